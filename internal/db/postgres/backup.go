package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/pullups/internal/backup"
)

// Snapshot читает всё состояние в одной транзакции REPEATABLE READ.
func (s *Store) Snapshot(ctx context.Context) (*backup.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	snap := &backup.Snapshot{}
	if err = tx.QueryRow(ctx,
		"SELECT COALESCE((SELECT balance FROM coin_balance WHERE id = 1), 0)",
	).Scan(&snap.Coins); err != nil {
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	if snap.Modifiers, err = getModifiers(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Sessions, err = listSessions(ctx, tx); err != nil {
		return nil, err
	}
	if snap.ChestOpens, err = listOpenRecords(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Wallet, err = listWalletItems(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Milestones, err = listMilestones(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Achievements, err = listAchievementUnlocks(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Transactions, err = listTransactions(ctx, tx, `
		SELECT id, amount, type, description, balance_after, created_at
		FROM coin_transactions
		ORDER BY created_at DESC, seq DESC
	`); err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore очищает базу и записывает снимок в одной транзакции.
func (s *Store) Restore(ctx context.Context, snap *backup.Snapshot) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := truncateAll(ctx, tx); err != nil {
			return err
		}
		if err := upsertBalance(ctx, tx, snap.Coins); err != nil {
			return err
		}
		if err := upsertModifiers(ctx, tx, snap.Modifiers); err != nil {
			return err
		}
		// от старых к новым, чтобы seq сохранил порядок при равном времени
		for i := len(snap.Sessions) - 1; i >= 0; i-- {
			if err := insertSession(ctx, tx, snap.Sessions[i]); err != nil {
				return err
			}
		}
		for i := len(snap.ChestOpens) - 1; i >= 0; i-- {
			if err := insertOpenRecord(ctx, tx, snap.ChestOpens[i]); err != nil {
				return err
			}
		}
		for i := len(snap.Wallet) - 1; i >= 0; i-- {
			if err := insertWalletItem(ctx, tx, snap.Wallet[i]); err != nil {
				return err
			}
		}
		for i := len(snap.Milestones) - 1; i >= 0; i-- {
			if err := insertMilestone(ctx, tx, snap.Milestones[i]); err != nil {
				return err
			}
		}
		for i := len(snap.Achievements) - 1; i >= 0; i-- {
			if err := insertAchievementUnlock(ctx, tx, snap.Achievements[i]); err != nil {
				return err
			}
		}
		for i := len(snap.Transactions) - 1; i >= 0; i-- {
			if err := insertTransaction(ctx, tx, snap.Transactions[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearAll удаляет все данные, схема остаётся.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		return truncateAll(ctx, tx)
	})
}

func truncateAll(ctx context.Context, q querier) error {
	_, err := q.Exec(ctx, `
		TRUNCATE coin_transactions, coin_balance, chest_modifiers, wallet_items,
			chest_opens, achievement_unlocks, milestones, sessions
		RESTART IDENTITY
	`)
	if err != nil {
		return fmt.Errorf("ошибка очистки данных: %w", err)
	}
	return nil
}
