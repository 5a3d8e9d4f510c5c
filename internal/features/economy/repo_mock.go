package economy

import (
	"context"
	"sync"

	"serotonyl.ru/pullups/internal/common"
)

// MockRepo — хранилище в памяти для тестов.
// FailWrite позволяет подсунуть ошибку записи баланса.
type MockRepo struct {
	mu           sync.Mutex
	balance      int64
	transactions []*Transaction

	// FailWrite вызывается перед каждой записью; ненулевая ошибка прерывает запись.
	FailWrite func(balance int64, entry *Transaction) error
	// FailGetBalance, если задан, подменяет результат чтения баланса.
	FailGetBalance func() error
}

// NewMockRepo создаёт хранилище с начальным балансом.
func NewMockRepo(balance int64) *MockRepo {
	return &MockRepo{balance: balance}
}

func (r *MockRepo) GetBalance(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailGetBalance != nil {
		if err := r.FailGetBalance(); err != nil {
			return 0, err
		}
	}
	return r.balance, nil
}

func (r *MockRepo) ApplyDelta(_ context.Context, delta int64, entry *Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := r.balance + delta
	if updated < 0 {
		return r.balance, common.ErrInsufficientCoins
	}
	if entry != nil {
		entry.BalanceAfter = updated
	}
	if err := r.write(updated, entry); err != nil {
		return 0, err
	}
	return updated, nil
}

func (r *MockRepo) SetBalance(_ context.Context, balance int64, entry *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(balance, entry)
}

func (r *MockRepo) write(balance int64, entry *Transaction) error {
	if r.FailWrite != nil {
		if err := r.FailWrite(balance, entry); err != nil {
			return err
		}
	}
	r.balance = balance
	if entry != nil {
		cp := *entry
		r.transactions = append(r.transactions, &cp)
	}
	return nil
}

func (r *MockRepo) ListTransactions(_ context.Context, limit int) ([]*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txs := make([]*Transaction, len(r.transactions))
	copy(txs, r.transactions)
	// новые первыми
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}
