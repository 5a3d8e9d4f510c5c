package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/economy"
)

// querier — общее у *sql.DB и *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetBalance возвращает баланс; если он ещё не записан — 0.
func (s *Store) GetBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, "SELECT balance FROM coin_balance WHERE id = 1").Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// ApplyDelta меняет баланс условным UPDATE: списание проходит, только если
// после него баланс не меньше нуля. Транзакция открывается как BEGIN IMMEDIATE,
// поэтому второй процесс на том же файле ждёт и видит уже новый баланс.
func (s *Store) ApplyDelta(ctx context.Context, delta int64, entry *economy.Transaction) (int64, error) {
	var balance int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO coin_balance (id, balance, updated_at) VALUES (1, 0, strftime('%s','now'))
			ON CONFLICT (id) DO NOTHING
		`); err != nil {
			return fmt.Errorf("ошибка записи баланса: %w", err)
		}

		err := tx.QueryRowContext(ctx, `
			UPDATE coin_balance SET balance = balance + ?, updated_at = strftime('%s','now')
			WHERE id = 1 AND balance + ? >= 0
			RETURNING balance
		`, delta, delta).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			if err := tx.QueryRowContext(ctx, "SELECT balance FROM coin_balance WHERE id = 1").Scan(&balance); err != nil {
				return fmt.Errorf("ошибка получения баланса: %w", err)
			}
			return common.ErrInsufficientCoins
		}
		if err != nil {
			return fmt.Errorf("ошибка записи баланса: %w", err)
		}

		if entry == nil {
			return nil
		}
		entry.BalanceAfter = balance
		return insertTransaction(ctx, tx, entry)
	})
	if errors.Is(err, common.ErrInsufficientCoins) {
		return balance, err
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// SetBalance записывает баланс и запись журнала в одной транзакции.
func (s *Store) SetBalance(ctx context.Context, balance int64, entry *economy.Transaction) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertBalance(ctx, tx, balance); err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		return insertTransaction(ctx, tx, entry)
	})
}

// ListTransactions возвращает последние limit операций (limit <= 0 — все).
func (s *Store) ListTransactions(ctx context.Context, limit int) ([]*economy.Transaction, error) {
	query := `
		SELECT id, amount, type, description, balance_after, created_at
		FROM coin_transactions
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return listTransactions(ctx, s.db, query, args...)
}

func upsertBalance(ctx context.Context, q querier, balance int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO coin_balance (id, balance, updated_at) VALUES (1, ?, strftime('%s','now'))
		ON CONFLICT (id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at
	`, balance)
	if err != nil {
		return fmt.Errorf("ошибка записи баланса: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, q querier, t *economy.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO coin_transactions (id, amount, type, description, balance_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.Amount, t.Type, t.Description, t.BalanceAfter, toNanos(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("ошибка записи операции: %w", err)
	}
	return nil
}

func listTransactions(ctx context.Context, q querier, query string, args ...any) ([]*economy.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории операций: %w", err)
	}
	defer rows.Close()

	var txs []*economy.Transaction
	for rows.Next() {
		t := &economy.Transaction{}
		var created int64
		if err := rows.Scan(&t.ID, &t.Amount, &t.Type, &t.Description, &t.BalanceAfter, &created); err != nil {
			return nil, fmt.Errorf("ошибка чтения операции: %w", err)
		}
		t.CreatedAt = fromNanos(created)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
