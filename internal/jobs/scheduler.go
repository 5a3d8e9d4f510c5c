// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: смена дня в полночь UTC+5
// и вечернее напоминание о серии.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/pullups/internal/calendar"
	"serotonyl.ru/pullups/internal/features/progress"
)

// Расписание в часовом поясе calendar.Zone.
const (
	RolloverSpec = "0 0 * * *"  // полночь
	ReminderSpec = "0 20 * * *" // 20:00
)

// SessionSource — откуда задачи берут историю тренировок.
type SessionSource interface {
	Sessions(ctx context.Context, limit int) ([]*progress.Session, error)
}

// Notifier отправляет текстовое уведомление пользователю.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	cal       *calendar.Calendar
	sessions  SessionSource
	notifier  Notifier // nil — уведомления только в лог
	threshold int      // минимальная серия для напоминания
}

// NewScheduler создаёт планировщик в поясе UTC+5.
func NewScheduler(cal *calendar.Calendar, sessions SessionSource, notifier Notifier, threshold int) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(calendar.Zone)),
		cal:       cal,
		sessions:  sessions,
		notifier:  notifier,
		threshold: threshold,
	}
}

// Start регистрирует задачи и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(RolloverSpec, func() {
		log.Info("[CRON] Смена дня")
		if err := s.RunRollover(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка смены дня")
		}
	}); err != nil {
		return fmt.Errorf("ошибка регистрации задачи смены дня: %w", err)
	}

	if _, err := s.cron.AddFunc(ReminderSpec, func() {
		log.Debug("[CRON] Проверка напоминаний")
		if err := s.RunReminder(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка напоминания")
		}
	}); err != nil {
		return fmt.Errorf("ошибка регистрации напоминания: %w", err)
	}

	s.cron.Start()
	log.WithField("zone", calendar.Zone.String()).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) notify(ctx context.Context, text string) error {
	if s.notifier == nil {
		log.WithField("text", text).Info("Уведомление (Telegram не настроен)")
		return nil
	}
	return s.notifier.Notify(ctx, text)
}
