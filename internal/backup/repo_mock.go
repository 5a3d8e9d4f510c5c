package backup

import (
	"context"
	"sync"
	"time"
)

// MockRepo — хранилище в памяти для тестов.
type MockRepo struct {
	mu   sync.Mutex
	snap Snapshot

	Restores    int
	FailRestore error
}

// NewMockRepo создаёт хранилище с начальным состоянием.
func NewMockRepo(initial Snapshot) *MockRepo {
	return &MockRepo{snap: initial}
}

func (r *MockRepo) Snapshot(context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := r.snap
	return &cp, nil
}

func (r *MockRepo) Restore(_ context.Context, snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailRestore != nil {
		return r.FailRestore
	}
	r.Restores++
	r.snap = *snap
	r.snap.Version = 0
	r.snap.ExportDate = time.Time{}
	return nil
}

func (r *MockRepo) ClearAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = Snapshot{}
	return nil
}
