package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"serotonyl.ru/pullups/internal/features/progress"
)

// AppendSession сохраняет тренировку.
func (s *Store) AppendSession(ctx context.Context, sess *progress.Session) error {
	return insertSession(ctx, s.db, sess)
}

// SaveSession сохраняет тренировку и её новые вехи в одной транзакции.
func (s *Store) SaveSession(ctx context.Context, sess *progress.Session, milestones []*progress.Milestone) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
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
	return listSessions(ctx, s.db)
}

// AppendMilestone сохраняет веху. Тип вехи уникален.
func (s *Store) AppendMilestone(ctx context.Context, m *progress.Milestone) error {
	return insertMilestone(ctx, s.db, m)
}

// ListMilestones возвращает вехи, новые первыми.
func (s *Store) ListMilestones(ctx context.Context) ([]*progress.Milestone, error) {
	return listMilestones(ctx, s.db)
}

// AppendAchievementUnlock сохраняет открытое достижение.
func (s *Store) AppendAchievementUnlock(ctx context.Context, u *progress.AchievementUnlock) error {
	return insertAchievementUnlock(ctx, s.db, u)
}

// ListAchievementUnlocks возвращает открытые достижения, новые первыми.
func (s *Store) ListAchievementUnlocks(ctx context.Context) ([]*progress.AchievementUnlock, error) {
	return listAchievementUnlocks(ctx, s.db)
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
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("ошибка кодирования тегов: %w", err)
	}

	var duration sql.NullInt64
	if sess.Duration != nil {
		duration = sql.NullInt64{Int64: int64(*sess.Duration), Valid: true}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, date, sets, duration, tags, total_reps)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, toNanos(sess.CreatedAt), sess.Date, string(sets), duration, string(tagsJSON), sess.TotalReps)
	if err != nil {
		return fmt.Errorf("ошибка записи тренировки: %w", err)
	}
	return nil
}

func listSessions(ctx context.Context, q querier) ([]*progress.Session, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, created_at, date, sets, duration, tags, total_reps
		FROM sessions
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тренировок: %w", err)
	}
	defer rows.Close()

	var sessions []*progress.Session
	for rows.Next() {
		sess := &progress.Session{}
		var created int64
		var sets, tags string
		var duration sql.NullInt64
		if err := rows.Scan(&sess.ID, &created, &sess.Date, &sets, &duration, &tags, &sess.TotalReps); err != nil {
			return nil, fmt.Errorf("ошибка чтения тренировки: %w", err)
		}
		if err := json.Unmarshal([]byte(sets), &sess.Sets); err != nil {
			return nil, fmt.Errorf("ошибка декодирования подходов: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &sess.Tags); err != nil {
			return nil, fmt.Errorf("ошибка декодирования тегов: %w", err)
		}
		if len(sess.Tags) == 0 {
			sess.Tags = nil
		}
		if duration.Valid {
			d := int(duration.Int64)
			sess.Duration = &d
		}
		sess.CreatedAt = fromNanos(created)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func insertMilestone(ctx context.Context, q querier, m *progress.Milestone) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO milestones (id, type, title, description, created_at, value)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.Type, m.Title, m.Description, toNanos(m.Timestamp), m.Value)
	if err != nil {
		return fmt.Errorf("ошибка записи вехи %s: %w", m.Type, err)
	}
	return nil
}

func listMilestones(ctx context.Context, q querier) ([]*progress.Milestone, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, type, title, description, created_at, value
		FROM milestones
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения вех: %w", err)
	}
	defer rows.Close()

	var ms []*progress.Milestone
	for rows.Next() {
		m := &progress.Milestone{}
		var created int64
		if err := rows.Scan(&m.ID, &m.Type, &m.Title, &m.Description, &created, &m.Value); err != nil {
			return nil, fmt.Errorf("ошибка чтения вехи: %w", err)
		}
		m.Timestamp = fromNanos(created)
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

func insertAchievementUnlock(ctx context.Context, q querier, u *progress.AchievementUnlock) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO achievement_unlocks (achievement_id, created_at) VALUES (?, ?)
		ON CONFLICT (achievement_id) DO NOTHING
	`, u.AchievementID, toNanos(u.Timestamp))
	if err != nil {
		return fmt.Errorf("ошибка записи достижения %s: %w", u.AchievementID, err)
	}
	return nil
}

func listAchievementUnlocks(ctx context.Context, q querier) ([]*progress.AchievementUnlock, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT achievement_id, created_at
		FROM achievement_unlocks
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения достижений: %w", err)
	}
	defer rows.Close()

	var unlocks []*progress.AchievementUnlock
	for rows.Next() {
		u := &progress.AchievementUnlock{}
		var created int64
		if err := rows.Scan(&u.AchievementID, &created); err != nil {
			return nil, fmt.Errorf("ошибка чтения достижения: %w", err)
		}
		u.Timestamp = fromNanos(created)
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}
