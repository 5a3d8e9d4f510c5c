package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"serotonyl.ru/pullups/internal/features/chests"
)

// GetModifiers возвращает состояние модификаторов; по умолчанию всё выключено.
func (s *Store) GetModifiers(ctx context.Context) (chests.ModifierState, error) {
	return getModifiers(ctx, s.db)
}

// SetModifiers перезаписывает состояние модификаторов.
func (s *Store) SetModifiers(ctx context.Context, state chests.ModifierState) error {
	return upsertModifiers(ctx, s.db, state)
}

// SaveOpening сохраняет открытие, карты и модификаторы в одной транзакции.
func (s *Store) SaveOpening(ctx context.Context, record *chests.OpenRecord, items []*chests.WalletItem, state chests.ModifierState) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertOpenRecord(ctx, tx, record); err != nil {
			return err
		}
		for _, item := range items {
			if err := insertWalletItem(ctx, tx, item); err != nil {
				return err
			}
		}
		return upsertModifiers(ctx, tx, state)
	})
}

// ListOpenRecords возвращает журнал открытий, новые первыми.
func (s *Store) ListOpenRecords(ctx context.Context) ([]*chests.OpenRecord, error) {
	return listOpenRecords(ctx, s.db)
}

// ListWalletItems возвращает карты кошелька, новые первыми.
func (s *Store) ListWalletItems(ctx context.Context) ([]*chests.WalletItem, error) {
	return listWalletItems(ctx, s.db)
}

func getModifiers(ctx context.Context, q querier) (chests.ModifierState, error) {
	var st chests.ModifierState
	err := q.QueryRowContext(ctx, `
		SELECT streak_bonus_enabled, daily_bonus_enabled, current_streak, last_open_date
		FROM chest_modifiers WHERE id = 1
	`).Scan(&st.StreakBonusEnabled, &st.DailyBonusEnabled, &st.CurrentStreak, &st.LastOpenDate)
	if errors.Is(err, sql.ErrNoRows) {
		return chests.ModifierState{}, nil
	}
	if err != nil {
		return chests.ModifierState{}, fmt.Errorf("ошибка получения модификаторов: %w", err)
	}
	return st, nil
}

func upsertModifiers(ctx context.Context, q querier, st chests.ModifierState) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO chest_modifiers (id, streak_bonus_enabled, daily_bonus_enabled, current_streak, last_open_date)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			streak_bonus_enabled = excluded.streak_bonus_enabled,
			daily_bonus_enabled  = excluded.daily_bonus_enabled,
			current_streak       = excluded.current_streak,
			last_open_date       = excluded.last_open_date
	`, st.StreakBonusEnabled, st.DailyBonusEnabled, st.CurrentStreak, st.LastOpenDate)
	if err != nil {
		return fmt.Errorf("ошибка записи модификаторов: %w", err)
	}
	return nil
}

func insertOpenRecord(ctx context.Context, q querier, r *chests.OpenRecord) error {
	cards, err := json.Marshal(r.Cards)
	if err != nil {
		return fmt.Errorf("ошибка кодирования карт: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO chest_opens (id, tier, cost, cards, created_at, date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, string(r.Tier), r.Cost, string(cards), toNanos(r.Timestamp), r.Date)
	if err != nil {
		return fmt.Errorf("ошибка записи открытия: %w", err)
	}
	return nil
}

func insertWalletItem(ctx context.Context, q querier, item *chests.WalletItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO wallet_items (id, value, tier, created_at) VALUES (?, ?, ?, ?)
	`, item.ID, item.Value, string(item.Tier), toNanos(item.Timestamp))
	if err != nil {
		return fmt.Errorf("ошибка записи карты: %w", err)
	}
	return nil
}

func listOpenRecords(ctx context.Context, q querier) ([]*chests.OpenRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, tier, cost, cards, created_at, date
		FROM chest_opens
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала открытий: %w", err)
	}
	defer rows.Close()

	var records []*chests.OpenRecord
	for rows.Next() {
		r := &chests.OpenRecord{}
		var tier, cards string
		var created int64
		if err := rows.Scan(&r.ID, &tier, &r.Cost, &cards, &created, &r.Date); err != nil {
			return nil, fmt.Errorf("ошибка чтения открытия: %w", err)
		}
		if err := json.Unmarshal([]byte(cards), &r.Cards); err != nil {
			return nil, fmt.Errorf("ошибка декодирования карт: %w", err)
		}
		r.Tier = chests.Tier(tier)
		r.Timestamp = fromNanos(created)
		records = append(records, r)
	}
	return records, rows.Err()
}

func listWalletItems(ctx context.Context, q querier) ([]*chests.WalletItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, value, tier, created_at
		FROM wallet_items
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения кошелька: %w", err)
	}
	defer rows.Close()

	var items []*chests.WalletItem
	for rows.Next() {
		item := &chests.WalletItem{}
		var tier string
		var created int64
		if err := rows.Scan(&item.ID, &item.Value, &tier, &created); err != nil {
			return nil, fmt.Errorf("ошибка чтения карты: %w", err)
		}
		item.Tier = chests.Tier(tier)
		item.Timestamp = fromNanos(created)
		items = append(items, item)
	}
	return items, rows.Err()
}
