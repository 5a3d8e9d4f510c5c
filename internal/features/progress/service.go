// Package progress — service.go сохраняет тренировку и раздаёт награды.
//
// Порядок сохранения:
//  1. Проверка ввода и запись тренировки.
//  2. Качество, вехи, стрик, рекорд и повышение ранга по полной истории.
//  3. Начисление монет по уже посчитанным сигналам.
//  4. Открытие новых достижений.
package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/pullups/internal/calendar"
	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/metrics"
)

// Service управляет историей тренировок и прогрессом.
type Service struct {
	repo     Repository
	rewarder Rewarder
	cal      *calendar.Calendar
	metrics  *metrics.Manager

	mu sync.Mutex // один LogSession за раз: вехи не должны задублироваться
}

// NewService создаёт сервис прогресса.
func NewService(repo Repository, rewarder Rewarder, cal *calendar.Calendar, m *metrics.Manager) *Service {
	return &Service{repo: repo, rewarder: rewarder, cal: cal, metrics: m}
}

// validate проверяет подходы и возвращает сумму повторов.
func validate(in SessionInput) (int, error) {
	if len(in.Sets) == 0 {
		return 0, common.ErrEmptySession
	}
	total := 0
	for _, set := range in.Sets {
		if set.Reps < 0 {
			return 0, common.ErrInvalidReps
		}
		total += set.Reps
	}
	if total == 0 {
		return 0, common.ErrEmptySession
	}
	if in.Duration != nil && *in.Duration < 0 {
		return 0, fmt.Errorf("длительность не может быть отрицательной: %d", *in.Duration)
	}
	return total, nil
}

// LogSession сохраняет тренировку и возвращает всё, что она принесла.
func (s *Service) LogSession(ctx context.Context, in SessionInput) (*SessionOutcome, error) {
	total, err := validate(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.repo.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistenceUnavailable, err)
	}

	now := s.cal.Now()
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now.UTC(),
		Date:      calendar.DateOf(now),
		Sets:      append([]Set(nil), in.Sets...),
		Duration:  in.Duration,
		Tags:      append([]string(nil), in.Tags...),
		TotalReps: total,
	}
	history := append([]*Session{session}, previous...)
	oldTotal := LifetimeTotal(previous)
	newTotal := oldTotal + total

	quality := SessionQuality(session, previous)
	streak := StreakFor(history, calendar.DateOf(now))
	record := IsPersonalRecord(session, previous)
	promotion := CheckForPromotion(oldTotal, newTotal)

	existing, err := s.repo.ListMilestones(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения вех: %w", err)
	}
	newMilestones := DetectNewMilestones(history, existing, now)
	paid := 0
	for _, m := range newMilestones {
		if IsPaidMilestone(m) {
			paid++
		}
	}

	// Качество и рекорд засчитываются, только если было с чем сравнивать
	signals := economy.RewardInput{
		TotalReps:     total,
		NewMilestones: paid,
		StreakDays:    max(streak.Current-1, 0),
	}
	if len(previous) > 0 {
		signals.QualityScore = quality.Score
		signals.PersonalRecord = record
	}

	// Сначала награда, потом запись: если не сохранилась тренировка,
	// монеты списываются обратно и вехи остаются невыплаченными.
	coins, err := s.rewarder.AwardCoinsForSession(ctx, signals)
	if err != nil {
		return nil, fmt.Errorf("ошибка начисления награды: %w", err)
	}
	if err := s.repo.SaveSession(ctx, session, newMilestones); err != nil {
		s.revokeReward(context.WithoutCancel(ctx), coins)
		return nil, fmt.Errorf("ошибка сохранения тренировки: %w", err)
	}

	achievements, err := s.unlockAchievements(ctx, history, append(existing, newMilestones...), now)
	if err != nil {
		return nil, err
	}

	s.metrics.CounterSessions.Inc()
	s.metrics.HistSessionReps.Observe(float64(total))
	s.metrics.CounterMilestones.Add(float64(len(newMilestones)))

	fields := log.Fields{
		"reps":       total,
		"coins":      coins,
		"quality":    quality.Score,
		"streak":     streak.Current,
		"milestones": len(newMilestones),
	}
	if promotion != nil {
		fields["promotion"] = promotion.Name
	}
	log.WithFields(fields).Info("Тренировка сохранена")

	return &SessionOutcome{
		Session:         session,
		CoinsAwarded:    coins,
		Quality:         quality,
		PersonalRecord:  record,
		NewMilestones:   newMilestones,
		NewAchievements: achievements,
		Promotion:       promotion,
		Streak:          streak,
		LifetimeTotal:   newTotal,
	}, nil
}

// revokeReward возвращает награду, если тренировку не удалось сохранить.
func (s *Service) revokeReward(ctx context.Context, coins int64) {
	if coins == 0 {
		return
	}
	if err := s.rewarder.RevokeSessionReward(ctx, coins); err != nil {
		log.WithError(err).WithField("coins", coins).Error("Не удалось отменить награду за несохранённую тренировку")
	}
}

// unlockAchievements записывает новые достижения.
func (s *Service) unlockAchievements(ctx context.Context, history []*Session, milestones []*Milestone, now time.Time) ([]AchievementDefinition, error) {
	unlocked, err := s.repo.ListAchievementUnlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения достижений: %w", err)
	}

	found := DetectNewAchievements(NewAchievementContext(history, milestones, calendar.DateOf(now)), unlocked)
	for _, a := range found {
		u := &AchievementUnlock{AchievementID: a.ID, Timestamp: now.UTC()}
		if err := s.repo.AppendAchievementUnlock(ctx, u); err != nil {
			return nil, fmt.Errorf("ошибка сохранения достижения %s: %w", a.ID, err)
		}
	}
	return found, nil
}

// Sessions возвращает последние limit тренировок (0 — все), новые первыми.
func (s *Service) Sessions(ctx context.Context, limit int) ([]*Session, error) {
	sessions, err := s.repo.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тренировок: %w", err)
	}
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// Overview собирает сводку прогресса.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	sessions, err := s.Sessions(ctx, 0)
	if err != nil {
		return nil, err
	}

	today := s.cal.Today()
	total := LifetimeTotal(sessions)
	overview := &Overview{
		LifetimeTotal: total,
		Sessions:      len(sessions),
		TodayTotal:    TotalOn(sessions, today),
		Rank:          RankProgressFor(total),
		Streak:        StreakFor(sessions, today),
		Records:       PersonalRecordsFor(sessions),
	}
	if days := DailyTotals(sessions); len(days) > 0 {
		overview.DailyAverage = float64(total) / float64(len(days))
	}
	return overview, nil
}

// Streak возвращает текущую серию.
func (s *Service) Streak(ctx context.Context) (StreakInfo, error) {
	sessions, err := s.Sessions(ctx, 0)
	if err != nil {
		return StreakInfo{}, err
	}
	return StreakFor(sessions, s.cal.Today()), nil
}

// Milestones возвращает открытые вехи, новые первыми.
func (s *Service) Milestones(ctx context.Context) ([]*Milestone, error) {
	ms, err := s.repo.ListMilestones(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения вех: %w", err)
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Timestamp.After(ms[j].Timestamp) })
	return ms, nil
}

// AchievementStatus — достижение и отметка, открыто ли оно.
type AchievementStatus struct {
	AchievementDefinition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// Achievements возвращает весь каталог с отметками об открытии.
func (s *Service) Achievements(ctx context.Context) ([]AchievementStatus, error) {
	unlocks, err := s.repo.ListAchievementUnlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения достижений: %w", err)
	}
	at := make(map[string]time.Time, len(unlocks))
	for _, u := range unlocks {
		at[u.AchievementID] = u.Timestamp
	}

	catalogue := Achievements()
	out := make([]AchievementStatus, 0, len(catalogue))
	for _, a := range catalogue {
		status := AchievementStatus{AchievementDefinition: a}
		if ts, ok := at[a.ID]; ok {
			status.Unlocked = true
			status.UnlockedAt = &ts
		}
		out = append(out, status)
	}
	return out, nil
}

// Locker отдаёт блокировку записи тренировок.
func (s *Service) Locker() sync.Locker {
	return &s.mu
}
