// Package economy — repository.go описывает хранилище баланса и журнала.
// Реализации живут в internal/db/sqlite и internal/db/postgres.
package economy

import "context"

// Repository хранит баланс (синглтон) и журнал операций.
type Repository interface {
	// GetBalance возвращает текущий баланс. Если баланс ещё не записан — 0.
	GetBalance(ctx context.Context) (int64, error)

	// ApplyDelta атомарно меняет баланс на delta и пишет entry в журнал
	// с заполненным BalanceAfter. Проверка и запись идут в одной транзакции
	// хранилища, так что их не разорвёт и другой процесс на той же базе.
	// Если списание увело бы баланс в минус, ничего не пишется: возвращаются
	// текущий баланс и common.ErrInsufficientCoins.
	ApplyDelta(ctx context.Context, delta int64, entry *Transaction) (int64, error)

	// SetBalance записывает баланс целиком и, если entry != nil, запись журнала.
	// Обе записи сохраняются вместе: либо обе, либо ни одной.
	SetBalance(ctx context.Context, balance int64, entry *Transaction) error

	// ListTransactions возвращает последние limit операций, новые первыми.
	ListTransactions(ctx context.Context, limit int) ([]*Transaction, error)
}
