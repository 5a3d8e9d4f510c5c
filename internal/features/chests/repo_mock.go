package chests

import (
	"context"
	"sync"
)

// MockRepo — хранилище сундуков в памяти для тестов.
// FailSaveOpening позволяет подсунуть сбой между списанием и записью.
type MockRepo struct {
	mu        sync.Mutex
	modifiers ModifierState
	records   []*OpenRecord
	wallet    []*WalletItem

	FailSaveOpening func(record *OpenRecord) error
}

// NewMockRepo создаёт пустое хранилище.
func NewMockRepo() *MockRepo {
	return &MockRepo{}
}

func (r *MockRepo) GetModifiers(context.Context) (ModifierState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modifiers, nil
}

func (r *MockRepo) SetModifiers(_ context.Context, state ModifierState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modifiers = state
	return nil
}

func (r *MockRepo) SaveOpening(ctx context.Context, record *OpenRecord, items []*WalletItem, state ModifierState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.FailSaveOpening != nil {
		if err := r.FailSaveOpening(record); err != nil {
			return err
		}
	}
	r.records = append(r.records, record)
	r.wallet = append(r.wallet, items...)
	r.modifiers = state
	return nil
}

func (r *MockRepo) ListOpenRecords(context.Context) ([]*OpenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*OpenRecord, 0, len(r.records))
	for i := len(r.records) - 1; i >= 0; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

func (r *MockRepo) ListWalletItems(context.Context) ([]*WalletItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*WalletItem, 0, len(r.wallet))
	for i := len(r.wallet) - 1; i >= 0; i-- {
		out = append(out, r.wallet[i])
	}
	return out, nil
}
