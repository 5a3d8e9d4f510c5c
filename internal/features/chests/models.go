// Package chests реализует сундуки: таблицы вероятностей, модификаторы
// шансов и транзакцию открытия (списание → розыгрыш → запись или возврат).
// models.go содержит типы данных и константы сундуков.
package chests

import (
	"fmt"
	"time"

	"serotonyl.ru/pullups/internal/common"
)

// Tier — тип сундука. Набор закрытый: common, rare, epic.
type Tier string

const (
	TierCommon Tier = "common"
	TierRare   Tier = "rare"
	TierEpic   Tier = "epic"
)

// Tiers возвращает все типы сундуков от дешёвого к дорогому.
func Tiers() []Tier {
	return []Tier{TierCommon, TierRare, TierEpic}
}

// ParseTier разбирает строку в Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, err := t.Definition(); err != nil {
		return "", fmt.Errorf("%w: %q", err, s)
	}
	return t, nil
}

// Definition — неизменяемое описание сундука.
type Definition struct {
	Tier      Tier   `json:"tier"`
	Cost      int64  `json:"cost"`      // цена в монетах
	CardCount int    `json:"cardCount"` // сколько карт выпадает
	Name      string `json:"name"`
	Color     string `json:"color"`
	GlowColor string `json:"glowColor"`
}

// Definition возвращает описание сундука.
// Для неизвестного типа — common.ErrUnknownTier.
func (t Tier) Definition() (Definition, error) {
	switch t {
	case TierCommon:
		return Definition{
			Tier:      TierCommon,
			Cost:      5000,
			CardCount: 3,
			Name:      "Common Chest",
			Color:     "#CD7F32",
			GlowColor: "rgba(205, 127, 50, 0.5)",
		}, nil
	case TierRare:
		return Definition{
			Tier:      TierRare,
			Cost:      10000,
			CardCount: 5,
			Name:      "Rare Chest",
			Color:     "#C0C0C0",
			GlowColor: "rgba(192, 192, 192, 0.6)",
		}, nil
	case TierEpic:
		return Definition{
			Tier:      TierEpic,
			Cost:      20000,
			CardCount: 7,
			Name:      "Epic Chest",
			Color:     "#FFD700",
			GlowColor: "rgba(255, 215, 0, 0.7)",
		}, nil
	}
	return Definition{}, common.ErrUnknownTier
}

// ModifierState — состояние модификаторов шансов (синглтон).
// Пустая LastOpenDate означает, что сундуки ещё не открывались.
type ModifierState struct {
	StreakBonusEnabled bool   `json:"streakBonusEnabled"`
	DailyBonusEnabled  bool   `json:"dailyBonusEnabled"`
	CurrentStreak      int    `json:"currentStreak"`
	LastOpenDate       string `json:"lastOpenDate,omitempty"`
}

// OpenRecord — запись журнала открытий. Только добавляется.
type OpenRecord struct {
	ID        string    `json:"id"`
	Tier      Tier      `json:"tier"`
	Cost      int64     `json:"cost"`
	Cards     []int     `json:"cards"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"` // календарная дата UTC+5
}

// WalletItem — одна карта в кошельке.
type WalletItem struct {
	ID        string    `json:"id"`
	Value     int       `json:"value"`
	Tier      Tier      `json:"tier"`
	Timestamp time.Time `json:"timestamp"`
}

// FailureKind — почему открытие не удалось.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureInsufficientFunds FailureKind = "insufficient_funds"
	FailureTransaction       FailureKind = "transaction_failed"
	FailureRefund            FailureKind = "refund_failed"
)

// Сообщения для пользователя
const (
	MsgInsufficientCoins = "Insufficient coins"
	MsgOpenFailed        = "Failed to open chest"
	MsgRefundFailed      = "Failed to open chest, coins were not refunded"
)

// OpenResult — результат попытки открыть сундук.
type OpenResult struct {
	Success bool        `json:"success"`
	Tier    Tier        `json:"tier"`
	Cards   []int       `json:"cards,omitempty"`
	Record  *OpenRecord `json:"record,omitempty"`
	Balance *int64      `json:"balance,omitempty"` // баланс после попытки; nil, если прочитать не удалось
	Failure FailureKind `json:"failure,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WalletSummary — сводка по кошельку карт.
type WalletSummary struct {
	Cards      int          `json:"cards"`
	TotalValue int          `json:"totalValue"`
	ByTier     map[Tier]int `json:"byTier"`
}
