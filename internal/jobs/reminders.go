package jobs

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/pullups/internal/calendar"
	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/progress"
)

// RunRollover подводит итог прошедшего дня. Сообщение отправляется,
// только если вчера была тренировка.
func (s *Scheduler) RunRollover(ctx context.Context) error {
	sessions, err := s.sessions.Sessions(ctx, 0)
	if err != nil {
		return err
	}

	today := s.cal.Today()
	yesterday := s.cal.Yesterday()
	reps := progress.TotalOn(sessions, yesterday)
	streak := progress.StreakFor(sessions, today)

	log.WithFields(log.Fields{
		"date":      today,
		"yesterday": reps,
		"streak":    streak.AtRisk,
	}).Info("Новый день")

	if reps == 0 {
		return nil
	}
	return s.notify(ctx, RolloverMessage(yesterday, reps, streak.AtRisk))
}

// RunReminder напоминает о серии, если сегодня ещё не было тренировки
// и серия не короче порога.
func (s *Scheduler) RunReminder(ctx context.Context) error {
	sessions, err := s.sessions.Sessions(ctx, 0)
	if err != nil {
		return err
	}

	streak := progress.StreakFor(sessions, s.cal.Today())
	if streak.Current > 0 || streak.AtRisk < s.threshold {
		return nil
	}

	log.WithField("streak", streak.AtRisk).Info("Серия под угрозой, отправляем напоминание")
	return s.notify(ctx, ReminderMessage(streak.AtRisk, s.cal))
}

// RolloverMessage — итог дня.
func RolloverMessage(date string, reps, streak int) string {
	msg := fmt.Sprintf("📅 %s: %d %s.", calendar.FormatForDisplay(date), reps, common.PluralizeReps(reps))
	if streak > 1 {
		msg += fmt.Sprintf(" Серия: %d %s.", streak, common.PluralizeDays(streak))
	}
	return msg
}

// ReminderMessage — напоминание о серии под угрозой.
func ReminderMessage(streak int, cal *calendar.Calendar) string {
	left := cal.UntilMidnight()
	hours := int(left.Hours())
	minutes := int(left.Minutes()) % 60
	return fmt.Sprintf(
		"🔥 Серия %d %s под угрозой! До конца дня %d ч %02d мин — успей подтянуться.",
		streak, common.PluralizeDays(streak), hours, minutes,
	)
}
