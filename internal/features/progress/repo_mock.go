package progress

import (
	"context"
	"errors"
	"sync"
)

// MockRepo — хранилище истории в памяти для тестов.
type MockRepo struct {
	mu         sync.Mutex
	sessions   []*Session
	milestones []*Milestone
	unlocks    []*AchievementUnlock

	FailSaveSession func(s *Session) error
}

// NewMockRepo создаёт пустое хранилище.
func NewMockRepo() *MockRepo {
	return &MockRepo{}
}

func (r *MockRepo) AppendSession(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return nil
}

func (r *MockRepo) SaveSession(_ context.Context, s *Session, milestones []*Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSaveSession != nil {
		if err := r.FailSaveSession(s); err != nil {
			return err
		}
	}
	for _, m := range milestones {
		if r.hasMilestone(m.Type) {
			return errors.New("milestone type already exists")
		}
	}
	r.sessions = append(r.sessions, s)
	r.milestones = append(r.milestones, milestones...)
	return nil
}

func (r *MockRepo) ListSessions(context.Context) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for i := len(r.sessions) - 1; i >= 0; i-- {
		out = append(out, r.sessions[i])
	}
	return out, nil
}

func (r *MockRepo) AppendMilestone(_ context.Context, m *Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasMilestone(m.Type) {
		return errors.New("milestone type already exists")
	}
	r.milestones = append(r.milestones, m)
	return nil
}

func (r *MockRepo) hasMilestone(t string) bool {
	for _, existing := range r.milestones {
		if existing.Type == t {
			return true
		}
	}
	return false
}

func (r *MockRepo) ListMilestones(context.Context) ([]*Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Milestone, len(r.milestones))
	copy(out, r.milestones)
	return out, nil
}

func (r *MockRepo) AppendAchievementUnlock(_ context.Context, u *AchievementUnlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unlocks = append(r.unlocks, u)
	return nil
}

func (r *MockRepo) ListAchievementUnlocks(context.Context) ([]*AchievementUnlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*AchievementUnlock, len(r.unlocks))
	copy(out, r.unlocks)
	return out, nil
}
