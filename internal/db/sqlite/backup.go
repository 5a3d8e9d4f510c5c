package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"serotonyl.ru/pullups/internal/backup"
)

// Таблицы с данными пользователя, в порядке очистки.
var dataTables = []string{
	"coin_transactions",
	"coin_balance",
	"chest_modifiers",
	"wallet_items",
	"chest_opens",
	"achievement_unlocks",
	"milestones",
	"sessions",
}

// Snapshot читает всё состояние в одной транзакции.
func (s *Store) Snapshot(ctx context.Context) (*backup.Snapshot, error) {
	snap := &backup.Snapshot{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if err = tx.QueryRowContext(ctx,
			"SELECT COALESCE((SELECT balance FROM coin_balance WHERE id = 1), 0)",
		).Scan(&snap.Coins); err != nil {
			return fmt.Errorf("ошибка получения баланса: %w", err)
		}
		if snap.Modifiers, err = getModifiers(ctx, tx); err != nil {
			return err
		}
		if snap.Sessions, err = listSessions(ctx, tx); err != nil {
			return err
		}
		if snap.ChestOpens, err = listOpenRecords(ctx, tx); err != nil {
			return err
		}
		if snap.Wallet, err = listWalletItems(ctx, tx); err != nil {
			return err
		}
		if snap.Milestones, err = listMilestones(ctx, tx); err != nil {
			return err
		}
		if snap.Achievements, err = listAchievementUnlocks(ctx, tx); err != nil {
			return err
		}
		snap.Transactions, err = listTransactions(ctx, tx, `
			SELECT id, amount, type, description, balance_after, created_at
			FROM coin_transactions
			ORDER BY created_at DESC, rowid DESC
		`)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore очищает базу и записывает снимок. При любой ошибке база
// остаётся в прежнем состоянии.
func (s *Store) Restore(ctx context.Context, snap *backup.Snapshot) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := clearTables(ctx, tx); err != nil {
			return err
		}
		if err := upsertBalance(ctx, tx, snap.Coins); err != nil {
			return err
		}
		if err := upsertModifiers(ctx, tx, snap.Modifiers); err != nil {
			return err
		}
		// списки в снимке идут новыми первыми; вставляем от старых,
		// чтобы при равных отметках времени сохранился порядок
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
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return clearTables(ctx, tx)
	})
}

func clearTables(ctx context.Context, q querier) error {
	for _, table := range dataTables {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("ошибка очистки %s: %w", table, err)
		}
	}
	return nil
}
