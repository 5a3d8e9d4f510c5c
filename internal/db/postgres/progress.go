package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/pullups/internal/features/progress"
)

// AppendSession сохраняет тренировку.
func (s *Store) AppendSession(ctx context.Context, sess *progress.Session) error {
	return insertSession(ctx, s.pool, sess)
}

// SaveSession сохраняет тренировку и её новые вехи в одной транзакции.
func (s *Store) SaveSession(ctx context.Context, sess *progress.Session, milestones []*progress.Milestone) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertSession(ctx, tx, sess); err != nil {
			return err
		}
		for _, m := range milestones {
			if err := insertMilestone(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSessions возвращает все тренировки, новые первыми.
func (s *Store) ListSessions(ctx context.Context) ([]*progress.Session, error) {
	return listSessions(ctx, s.pool)
}

// AppendMilestone сохраняет веху. Тип вехи уникален.
func (s *Store) AppendMilestone(ctx context.Context, m *progress.Milestone) error {
	return insertMilestone(ctx, s.pool, m)
}

// ListMilestones возвращает вехи, новые первыми.
func (s *Store) ListMilestones(ctx context.Context) ([]*progress.Milestone, error) {
	return listMilestones(ctx, s.pool)
}

// AppendAchievementUnlock сохраняет открытое достижение.
func (s *Store) AppendAchievementUnlock(ctx context.Context, u *progress.AchievementUnlock) error {
	return insertAchievementUnlock(ctx, s.pool, u)
}

// ListAchievementUnlocks возвращает открытые достижения, новые первыми.
func (s *Store) ListAchievementUnlocks(ctx context.Context) ([]*progress.AchievementUnlock, error) {
	return listAchievementUnlocks(ctx, s.pool)
}

func insertSession(ctx context.Context, q querier, sess *progress.Session) error {
	sets, err := json.Marshal(sess.Sets)
	if err != nil {
		return fmt.Errorf("ошибка кодирования подходов: %w", err)
	}
	tags := sess.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err = q.Exec(ctx, `
		INSERT INTO sessions (id, created_at, date, sets, duration, tags, total_reps)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sess.ID, sess.CreatedAt, sess.Date, string(sets), sess.Duration, tags, sess.TotalReps)
	if err != nil {
		return fmt.Errorf("ошибка записи тренировки: %w", err)
	}
	return nil
}

func listSessions(ctx context.Context, q querier) ([]*progress.Session, error) {
	rows, err := q.Query(ctx, `
		SELECT id, created_at, date, sets, duration, tags, total_reps
		FROM sessions
		ORDER BY created_at DESC, seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тренировок: %w", err)
	}
	defer rows.Close()

	var sessions []*progress.Session
	for rows.Next() {
		sess := &progress.Session{}
		var sets []byte
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &sess.Date, &sets, &sess.Duration, &sess.Tags, &sess.TotalReps); err != nil {
			return nil, fmt.Errorf("ошибка чтения тренировки: %w", err)
		}
		if err := json.Unmarshal(sets, &sess.Sets); err != nil {
			return nil, fmt.Errorf("ошибка декодирования подходов: %w", err)
		}
		if len(sess.Tags) == 0 {
			sess.Tags = nil
		}
		sess.CreatedAt = sess.CreatedAt.UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func insertMilestone(ctx context.Context, q querier, m *progress.Milestone) error {
	_, err := q.Exec(ctx, `
		INSERT INTO milestones (id, type, title, description, created_at, value)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.Type, m.Title, m.Description, m.Timestamp, m.Value)
	if err != nil {
		return fmt.Errorf("ошибка записи вехи %s: %w", m.Type, err)
	}
	return nil
}

func listMilestones(ctx context.Context, q querier) ([]*progress.Milestone, error) {
	rows, err := q.Query(ctx, `
		SELECT id, type, title, description, created_at, value
		FROM milestones
		ORDER BY created_at DESC, seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения вех: %w", err)
	}
	defer rows.Close()

	var ms []*progress.Milestone
	for rows.Next() {
		m := &progress.Milestone{}
		if err := rows.Scan(&m.ID, &m.Type, &m.Title, &m.Description, &m.Timestamp, &m.Value); err != nil {
			return nil, fmt.Errorf("ошибка чтения вехи: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

func insertAchievementUnlock(ctx context.Context, q querier, u *progress.AchievementUnlock) error {
	_, err := q.Exec(ctx, `
		INSERT INTO achievement_unlocks (achievement_id, created_at) VALUES ($1, $2)
		ON CONFLICT (achievement_id) DO NOTHING
	`, u.AchievementID, u.Timestamp)
	if err != nil {
		return fmt.Errorf("ошибка записи достижения %s: %w", u.AchievementID, err)
	}
	return nil
}

func listAchievementUnlocks(ctx context.Context, q querier) ([]*progress.AchievementUnlock, error) {
	rows, err := q.Query(ctx, `
		SELECT achievement_id, created_at
		FROM achievement_unlocks
		ORDER BY created_at DESC, seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения достижений: %w", err)
	}
	defer rows.Close()

	var unlocks []*progress.AchievementUnlock
	for rows.Next() {
		u := &progress.AchievementUnlock{}
		if err := rows.Scan(&u.AchievementID, &u.Timestamp); err != nil {
			return nil, fmt.Errorf("ошибка чтения достижения: %w", err)
		}
		u.Timestamp = u.Timestamp.UTC()
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}
