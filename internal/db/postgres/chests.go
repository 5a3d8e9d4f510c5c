package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/pullups/internal/features/chests"
)

// GetModifiers возвращает состояние модификаторов; по умолчанию всё выключено.
func (s *Store) GetModifiers(ctx context.Context) (chests.ModifierState, error) {
	return getModifiers(ctx, s.pool)
}

// SetModifiers перезаписывает состояние модификаторов.
func (s *Store) SetModifiers(ctx context.Context, state chests.ModifierState) error {
	return upsertModifiers(ctx, s.pool, state)
}

// SaveOpening сохраняет открытие, карты и модификаторы в одной транзакции.
func (s *Store) SaveOpening(ctx context.Context, record *chests.OpenRecord, items []*chests.WalletItem, state chests.ModifierState) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertOpenRecord(ctx, tx, record); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, item := range items {
			batch.Queue(`
				INSERT INTO wallet_items (id, value, tier, created_at) VALUES ($1, $2, $3, $4)
			`, item.ID, item.Value, string(item.Tier), item.Timestamp)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("ошибка записи карт: %w", err)
		}

		return upsertModifiers(ctx, tx, state)
	})
}

// ListOpenRecords возвращает журнал открытий, новые первыми.
func (s *Store) ListOpenRecords(ctx context.Context) ([]*chests.OpenRecord, error) {
	return listOpenRecords(ctx, s.pool)
}

// ListWalletItems возвращает карты кошелька, новые первыми.
func (s *Store) ListWalletItems(ctx context.Context) ([]*chests.WalletItem, error) {
	return listWalletItems(ctx, s.pool)
}

func getModifiers(ctx context.Context, q querier) (chests.ModifierState, error) {
	var st chests.ModifierState
	err := q.QueryRow(ctx, `
		SELECT streak_bonus_enabled, daily_bonus_enabled, current_streak, last_open_date
		FROM chest_modifiers WHERE id = 1
	`).Scan(&st.StreakBonusEnabled, &st.DailyBonusEnabled, &st.CurrentStreak, &st.LastOpenDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return chests.ModifierState{}, nil
	}
	if err != nil {
		return chests.ModifierState{}, fmt.Errorf("ошибка получения модификаторов: %w", err)
	}
	return st, nil
}

func upsertModifiers(ctx context.Context, q querier, st chests.ModifierState) error {
	_, err := q.Exec(ctx, `
		INSERT INTO chest_modifiers (id, streak_bonus_enabled, daily_bonus_enabled, current_streak, last_open_date)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			streak_bonus_enabled = EXCLUDED.streak_bonus_enabled,
			daily_bonus_enabled  = EXCLUDED.daily_bonus_enabled,
			current_streak       = EXCLUDED.current_streak,
			last_open_date       = EXCLUDED.last_open_date
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
	_, err = q.Exec(ctx, `
		INSERT INTO chest_opens (id, tier, cost, cards, created_at, date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, string(r.Tier), r.Cost, string(cards), r.Timestamp, r.Date)
	if err != nil {
		return fmt.Errorf("ошибка записи открытия: %w", err)
	}
	return nil
}

func insertWalletItem(ctx context.Context, q querier, item *chests.WalletItem) error {
	_, err := q.Exec(ctx, `
		INSERT INTO wallet_items (id, value, tier, created_at) VALUES ($1, $2, $3, $4)
	`, item.ID, item.Value, string(item.Tier), item.Timestamp)
	if err != nil {
		return fmt.Errorf("ошибка записи карты: %w", err)
	}
	return nil
}

func listOpenRecords(ctx context.Context, q querier) ([]*chests.OpenRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT id, tier, cost, cards, created_at, date
		FROM chest_opens
		ORDER BY created_at DESC, seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала открытий: %w", err)
	}
	defer rows.Close()

	var records []*chests.OpenRecord
	for rows.Next() {
		r := &chests.OpenRecord{}
		var tier string
		var cards []byte
		if err := rows.Scan(&r.ID, &tier, &r.Cost, &cards, &r.Timestamp, &r.Date); err != nil {
			return nil, fmt.Errorf("ошибка чтения открытия: %w", err)
		}
		if err := json.Unmarshal(cards, &r.Cards); err != nil {
			return nil, fmt.Errorf("ошибка декодирования карт: %w", err)
		}
		r.Tier = chests.Tier(tier)
		r.Timestamp = r.Timestamp.UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

func listWalletItems(ctx context.Context, q querier) ([]*chests.WalletItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, value, tier, created_at
		FROM wallet_items
		ORDER BY created_at DESC, seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения кошелька: %w", err)
	}
	defer rows.Close()

	var items []*chests.WalletItem
	for rows.Next() {
		item := &chests.WalletItem{}
		var tier string
		if err := rows.Scan(&item.ID, &item.Value, &tier, &item.Timestamp); err != nil {
			return nil, fmt.Errorf("ошибка чтения карты: %w", err)
		}
		item.Tier = chests.Tier(tier)
		item.Timestamp = item.Timestamp.UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}
