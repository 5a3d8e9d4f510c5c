package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/economy"
)

// GetBalance возвращает баланс; если он ещё не записан — 0.
func (s *Store) GetBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, "SELECT balance FROM coin_balance WHERE id = 1").Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// ApplyDelta меняет баланс на delta в одной транзакции.
// Строка баланса читается с блокировкой FOR UPDATE, проверка и запись
// идут под ней, поэтому параллельные процессы не спишут одни и те же монеты дважды.
func (s *Store) ApplyDelta(ctx context.Context, delta int64, entry *economy.Transaction) (int64, error) {
	var balance int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO coin_balance (id, balance, updated_at) VALUES (1, 0, NOW())
			ON CONFLICT (id) DO NOTHING
		`); err != nil {
			return fmt.Errorf("ошибка записи баланса: %w", err)
		}

		if err := tx.QueryRow(ctx, "SELECT balance FROM coin_balance WHERE id = 1 FOR UPDATE").Scan(&balance); err != nil {
			return fmt.Errorf("ошибка получения баланса: %w", err)
		}
		if balance+delta < 0 {
			return common.ErrInsufficientCoins
		}

		balance += delta
		if _, err := tx.Exec(ctx, `
			UPDATE coin_balance SET balance = balance + $1, updated_at = NOW() WHERE id = 1
		`, delta); err != nil {
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

// SetBalance записывает баланс целиком и запись журнала в одной транзакции.
// Значение пишется как есть; начисления и списания идут через ApplyDelta.
func (s *Store) SetBalance(ctx context.Context, balance int64, entry *economy.Transaction) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
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
		ORDER BY created_at DESC, seq DESC
	`
	if limit > 0 {
		return listTransactions(ctx, s.pool, query+" LIMIT $1", limit)
	}
	return listTransactions(ctx, s.pool, query)
}

func upsertBalance(ctx context.Context, q querier, balance int64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO coin_balance (id, balance, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()
	`, balance)
	if err != nil {
		return fmt.Errorf("ошибка записи баланса: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, q querier, t *economy.Transaction) error {
	_, err := q.Exec(ctx, `
		INSERT INTO coin_transactions (id, amount, type, description, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.Amount, t.Type, t.Description, t.BalanceAfter, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи операции: %w", err)
	}
	return nil
}

func listTransactions(ctx context.Context, q querier, query string, args ...any) ([]*economy.Transaction, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории операций: %w", err)
	}
	defer rows.Close()

	var txs []*economy.Transaction
	for rows.Next() {
		t := &economy.Transaction{}
		if err := rows.Scan(&t.ID, &t.Amount, &t.Type, &t.Description, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения операции: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
