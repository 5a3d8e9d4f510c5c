// Package postgres — queries.go содержит схему и выполнение миграций.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS coin_balance (
				id         SMALLINT PRIMARY KEY CHECK (id = 1),
				balance    BIGINT NOT NULL CHECK (balance >= 0),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS coin_transactions (
				seq           BIGSERIAL,
				id            TEXT PRIMARY KEY,
				amount        BIGINT NOT NULL,
				type          TEXT NOT NULL,
				description   TEXT NOT NULL DEFAULT '',
				balance_after BIGINT NOT NULL,
				created_at    TIMESTAMPTZ NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_coin_transactions_created ON coin_transactions (created_at);
			CREATE TABLE IF NOT EXISTS chest_modifiers (
				id                   SMALLINT PRIMARY KEY CHECK (id = 1),
				streak_bonus_enabled BOOLEAN NOT NULL DEFAULT FALSE,
				daily_bonus_enabled  BOOLEAN NOT NULL DEFAULT FALSE,
				current_streak       INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
				last_open_date       TEXT NOT NULL DEFAULT ''
			);
			CREATE TABLE IF NOT EXISTS chest_opens (
				seq        BIGSERIAL,
				id         TEXT PRIMARY KEY,
				tier       TEXT NOT NULL,
				cost       BIGINT NOT NULL,
				cards      JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				date       TEXT NOT NULL
			);
			CREATE TABLE IF NOT EXISTS wallet_items (
				seq        BIGSERIAL,
				id         TEXT PRIMARY KEY,
				value      INTEGER NOT NULL,
				tier       TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			);
			CREATE TABLE IF NOT EXISTS sessions (
				seq        BIGSERIAL,
				id         TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL,
				date       TEXT NOT NULL,
				sets       JSONB NOT NULL,
				duration   INTEGER,
				tags       TEXT[] NOT NULL DEFAULT '{}',
				total_reps INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions (date);
			CREATE TABLE IF NOT EXISTS milestones (
				seq         BIGSERIAL,
				id          TEXT PRIMARY KEY,
				type        TEXT NOT NULL UNIQUE,
				title       TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at  TIMESTAMPTZ NOT NULL,
				value       INTEGER NOT NULL
			);
		`,
	},
	{
		version: 2,
		sql: `
			CREATE TABLE IF NOT EXISTS achievement_unlocks (
				seq            BIGSERIAL,
				achievement_id TEXT PRIMARY KEY,
				created_at     TIMESTAMPTZ NOT NULL
			);
		`,
	},
}

// ExecMigrationSQL выполняет один SQL-запрос миграции в транзакции.
// Если запрос упадёт — транзакция откатится автоматически.
func ExecMigrationSQL(ctx context.Context, pool *pgxpool.Pool, version int, sql string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("ошибка проверки миграции: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", version,
	); err != nil {
		return fmt.Errorf("ошибка записи версии миграции: %w", err)
	}

	return tx.Commit(ctx)
}
