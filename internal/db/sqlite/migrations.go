// Package sqlite — migrations.go содержит схему базы.
// Версии миграций записываются в schema_migrations; применённые пропускаются.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// migration — одна версия схемы. SQLite выполняет по одному выражению за раз.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS coin_balance (
				id         INTEGER PRIMARY KEY CHECK (id = 1),
				balance    INTEGER NOT NULL CHECK (balance >= 0),
				updated_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS coin_transactions (
				id            TEXT PRIMARY KEY,
				amount        INTEGER NOT NULL,
				type          TEXT NOT NULL,
				description   TEXT NOT NULL DEFAULT '',
				balance_after INTEGER NOT NULL,
				created_at    INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_coin_transactions_created ON coin_transactions (created_at)`,
			`CREATE TABLE IF NOT EXISTS chest_modifiers (
				id                   INTEGER PRIMARY KEY CHECK (id = 1),
				streak_bonus_enabled INTEGER NOT NULL DEFAULT 0,
				daily_bonus_enabled  INTEGER NOT NULL DEFAULT 0,
				current_streak       INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
				last_open_date       TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS chest_opens (
				id         TEXT PRIMARY KEY,
				tier       TEXT NOT NULL,
				cost       INTEGER NOT NULL,
				cards      TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				date       TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_chest_opens_date ON chest_opens (date)`,
			`CREATE TABLE IF NOT EXISTS wallet_items (
				id         TEXT PRIMARY KEY,
				value      INTEGER NOT NULL,
				tier       TEXT NOT NULL,
				created_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id         TEXT PRIMARY KEY,
				created_at INTEGER NOT NULL,
				date       TEXT NOT NULL,
				sets       TEXT NOT NULL,
				duration   INTEGER,
				tags       TEXT NOT NULL DEFAULT '[]',
				total_reps INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions (date)`,
			`CREATE TABLE IF NOT EXISTS milestones (
				id          TEXT PRIMARY KEY,
				type        TEXT NOT NULL UNIQUE,
				title       TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at  INTEGER NOT NULL,
				value       INTEGER NOT NULL
			)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS achievement_unlocks (
				achievement_id TEXT PRIMARY KEY,
				created_at     INTEGER NOT NULL
			)`,
		},
	},
}

// SchemaVersion — последняя версия схемы.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate применяет недостающие миграции, каждую в своей транзакции.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	for _, m := range migrations {
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", m.version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("ошибка проверки миграции: %w", err)
		}
		if exists {
			return nil
		}

		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("ошибка выполнения миграции %d: %w", m.version, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version) VALUES (?)", m.version,
		); err != nil {
			return fmt.Errorf("ошибка записи версии миграции: %w", err)
		}

		log.WithField("version", m.version).Info("Миграция применена")
		return nil
	})
}

// AppliedVersion возвращает последнюю применённую версию схемы.
func (s *Store) AppliedVersion(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("ошибка чтения версии схемы: %w", err)
	}
	return int(v.Int64), nil
}
