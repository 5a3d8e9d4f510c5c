// Package progress — repository.go описывает хранилище тренировок,
// вех и достижений. Реализации — internal/db/sqlite и internal/db/postgres.
package progress

import (
	"context"

	"serotonyl.ru/pullups/internal/features/economy"
)

// Repository хранит историю. Все коллекции только пополняются;
// очистка — только полным сбросом.
type Repository interface {
	AppendSession(ctx context.Context, s *Session) error
	// SaveSession сохраняет тренировку вместе с её новыми вехами
	// в одной транзакции: либо всё, либо ничего.
	SaveSession(ctx context.Context, s *Session, milestones []*Milestone) error
	// ListSessions возвращает все тренировки, новые первыми.
	ListSessions(ctx context.Context) ([]*Session, error)

	AppendMilestone(ctx context.Context, m *Milestone) error
	ListMilestones(ctx context.Context) ([]*Milestone, error)

	AppendAchievementUnlock(ctx context.Context, u *AchievementUnlock) error
	ListAchievementUnlocks(ctx context.Context) ([]*AchievementUnlock, error)
}

// Rewarder начисляет монеты за тренировку. Реализуется economy.Service.
type Rewarder interface {
	AwardCoinsForSession(ctx context.Context, in economy.RewardInput) (int64, error)
	// RevokeSessionReward списывает награду обратно, если тренировку не удалось сохранить.
	RevokeSessionReward(ctx context.Context, amount int64) error
}
