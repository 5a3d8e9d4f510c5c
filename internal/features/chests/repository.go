// Package chests — repository.go описывает хранилище сундуков.
// Реализации живут в internal/db/sqlite и internal/db/postgres.
package chests

import "context"

// Repository хранит модификаторы, журнал открытий и кошелёк карт.
type Repository interface {
	// GetModifiers возвращает состояние модификаторов.
	// Если оно ещё не записано — нулевое значение (всё выключено).
	GetModifiers(ctx context.Context) (ModifierState, error)

	// SetModifiers перезаписывает состояние модификаторов.
	SetModifiers(ctx context.Context, state ModifierState) error

	// SaveOpening сохраняет результат открытия одной операцией:
	// запись журнала, карты в кошелёк и новое состояние модификаторов.
	// При ошибке ничего из этого не сохраняется.
	SaveOpening(ctx context.Context, record *OpenRecord, items []*WalletItem, state ModifierState) error

	// ListOpenRecords возвращает журнал открытий, новые первыми.
	ListOpenRecords(ctx context.Context) ([]*OpenRecord, error)

	// ListWalletItems возвращает все карты кошелька, новые первыми.
	ListWalletItems(ctx context.Context) ([]*WalletItem, error)
}

// Wallet — баланс монет, с которым работает открытие сундука.
// Реализуется economy.Service.
type Wallet interface {
	GetBalance(ctx context.Context) (int64, error)
	DeductCoins(ctx context.Context, amount int64, txType, description string) (int64, error)
	AddCoins(ctx context.Context, amount int64, txType, description string) (int64, error)
}
