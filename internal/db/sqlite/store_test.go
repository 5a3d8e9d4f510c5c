package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/pullups/internal/backup"
	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
	"serotonyl.ru/pullups/internal/metrics"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "pullups.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var base = time.Date(2025, 2, 13, 7, 0, 0, 0, time.UTC)

func TestOpen_AppliesMigrations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.AppliedVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion(), v)

	for _, table := range append([]string{"schema_migrations"}, dataTables...) {
		var name string
		err := s.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "таблица %s", table)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pullups.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SetBalance(ctx, 42, nil))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	balance, err := s.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance)
}

func TestBalance_DefaultAndJournal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	balance, err := s.GetBalance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)

	for i := 1; i <= 3; i++ {
		entry := &economy.Transaction{
			ID:           gofakeit.UUID(),
			Amount:       int64(i * 10),
			Type:         economy.TxTypeSessionReward,
			Description:  gofakeit.Sentence(3),
			BalanceAfter: int64(i * 10),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.SetBalance(ctx, entry.BalanceAfter, entry))
	}

	balance, err = s.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)

	txs, err := s.ListTransactions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(30), txs[0].Amount)
	assert.Equal(t, int64(20), txs[1].Amount)
	assert.True(t, txs[0].CreatedAt.Equal(base.Add(3*time.Minute)))

	all, err := s.ListTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSetBalance_RejectsNegative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetBalance(ctx, 5, nil))
	assert.Error(t, s.SetBalance(ctx, -1, nil))

	balance, err := s.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestSetBalance_JournalFailureKeepsBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &economy.Transaction{ID: "dup", Amount: 5, Type: economy.TxTypeSessionReward, BalanceAfter: 5, CreatedAt: base}
	require.NoError(t, s.SetBalance(ctx, 5, entry))

	// тот же ID — запись журнала не пройдёт, баланс не должен измениться
	assert.Error(t, s.SetBalance(ctx, 99, entry))

	balance, err := s.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestModifiers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.GetModifiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, chests.ModifierState{}, st)

	want := chests.ModifierState{StreakBonusEnabled: true, DailyBonusEnabled: true, CurrentStreak: 4, LastOpenDate: "2025-02-13"}
	require.NoError(t, s.SetModifiers(ctx, want))

	st, err = s.GetModifiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, st)
}

func TestSaveOpening(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := &chests.OpenRecord{
		ID: gofakeit.UUID(), Tier: chests.TierRare, Cost: 250,
		Cards: []int{10, 25, 50}, Timestamp: base, Date: "2025-02-13",
	}
	var items []*chests.WalletItem
	for _, v := range record.Cards {
		items = append(items, &chests.WalletItem{ID: gofakeit.UUID(), Value: v, Tier: chests.TierRare, Timestamp: base})
	}
	state := chests.ModifierState{CurrentStreak: 1, LastOpenDate: "2025-02-13"}

	require.NoError(t, s.SaveOpening(ctx, record, items, state))

	records, err := s.ListOpenRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.Cards, records[0].Cards)
	assert.Equal(t, chests.TierRare, records[0].Tier)

	wallet, err := s.ListWalletItems(ctx)
	require.NoError(t, err)
	assert.Len(t, wallet, 3)

	got, err := s.GetModifiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestSaveOpening_Atomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := &chests.OpenRecord{ID: "open-1", Tier: chests.TierCommon, Cost: 100, Cards: []int{5}, Timestamp: base, Date: "2025-02-13"}
	// две карты с одним ID — вторая вставка упадёт
	items := []*chests.WalletItem{
		{ID: "card", Value: 5, Tier: chests.TierCommon, Timestamp: base},
		{ID: "card", Value: 5, Tier: chests.TierCommon, Timestamp: base},
	}

	err := s.SaveOpening(ctx, record, items, chests.ModifierState{CurrentStreak: 1})
	require.Error(t, err)

	records, err := s.ListOpenRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	wallet, err := s.ListWalletItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, wallet)

	st, err := s.GetModifiers(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.CurrentStreak)
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	weight := 7.5
	duration := 600
	first := &progress.Session{
		ID: gofakeit.UUID(), CreatedAt: base, Date: "2025-02-13",
		Sets: []progress.Set{{Reps: 10}, {Reps: 8, Weight: &weight}}, Duration: &duration,
		Tags: []string{"morning"}, TotalReps: 18,
	}
	second := &progress.Session{
		ID: gofakeit.UUID(), CreatedAt: base.Add(time.Hour), Date: "2025-02-13",
		Sets: []progress.Set{{Reps: 5}}, TotalReps: 5,
	}
	require.NoError(t, s.AppendSession(ctx, first))
	require.NoError(t, s.AppendSession(ctx, second))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Nil(t, sessions[0].Duration)
	assert.Nil(t, sessions[0].Tags)

	got := sessions[1]
	assert.Equal(t, first.Sets, got.Sets)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 600, *got.Duration)
	assert.Equal(t, []string{"morning"}, got.Tags)
	assert.True(t, got.CreatedAt.Equal(base))
}

func TestMilestones_UniqueType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := &progress.Milestone{ID: "m1", Type: progress.MilestoneFirstSession, Title: "First Session", Timestamp: base, Value: 1}
	require.NoError(t, s.AppendMilestone(ctx, m))

	dup := *m
	dup.ID = "m2"
	assert.Error(t, s.AppendMilestone(ctx, &dup))

	ms, err := s.ListMilestones(ctx)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "First Session", ms[0].Title)
}

func TestSaveSession_Atomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMilestone(ctx, &progress.Milestone{ID: "m1", Type: progress.MilestoneFirstSession, Timestamp: base, Value: 1}))

	sess := &progress.Session{ID: "s1", CreatedAt: base, Date: "2025-02-13", Sets: []progress.Set{{Reps: 12}}, TotalReps: 12}
	err := s.SaveSession(ctx, sess, []*progress.Milestone{
		{ID: "m2", Type: progress.MilestoneFirst10, Timestamp: base, Value: 10},
		{ID: "m3", Type: progress.MilestoneFirstSession, Timestamp: base, Value: 1},
	})
	require.Error(t, err)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	ms, err := s.ListMilestones(ctx)
	require.NoError(t, err)
	assert.Len(t, ms, 1)

	require.NoError(t, s.SaveSession(ctx, sess, []*progress.Milestone{
		{ID: "m2", Type: progress.MilestoneFirst10, Timestamp: base, Value: 10},
	}))
	sessions, err = s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	ms, err = s.ListMilestones(ctx)
	require.NoError(t, err)
	assert.Len(t, ms, 2)
}

func TestAchievementUnlocks_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &progress.AchievementUnlock{AchievementID: "first-pull", Timestamp: base}
	require.NoError(t, s.AppendAchievementUnlock(ctx, u))
	require.NoError(t, s.AppendAchievementUnlock(ctx, u))

	unlocks, err := s.ListAchievementUnlocks(ctx)
	require.NoError(t, err)
	assert.Len(t, unlocks, 1)
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.SetBalance(ctx, 70, &economy.Transaction{
		ID: "tx1", Amount: 70, Type: economy.TxTypeSessionReward, BalanceAfter: 70, CreatedAt: base,
	}))
	require.NoError(t, s.AppendSession(ctx, &progress.Session{
		ID: "s1", CreatedAt: base, Date: "2025-02-13", Sets: []progress.Set{{Reps: 70}}, TotalReps: 70,
	}))
	require.NoError(t, s.AppendMilestone(ctx, &progress.Milestone{
		ID: "m1", Type: progress.MilestoneFirstSession, Title: "First Session", Timestamp: base, Value: 1,
	}))
	require.NoError(t, s.AppendAchievementUnlock(ctx, &progress.AchievementUnlock{AchievementID: "first-pull", Timestamp: base}))
	require.NoError(t, s.SaveOpening(ctx,
		&chests.OpenRecord{ID: "o1", Tier: chests.TierCommon, Cost: 100, Cards: []int{1, 2}, Timestamp: base, Date: "2025-02-13"},
		[]*chests.WalletItem{{ID: "w1", Value: 1, Tier: chests.TierCommon, Timestamp: base}},
		chests.ModifierState{DailyBonusEnabled: true, CurrentStreak: 1, LastOpenDate: "2025-02-13"},
	))
}

func TestSnapshotRestore(t *testing.T) {
	src := newTestStore(t)
	seed(t, src)
	ctx := context.Background()

	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(70), snap.Coins)
	assert.Len(t, snap.Sessions, 1)
	assert.Len(t, snap.ChestOpens, 1)
	assert.Len(t, snap.Wallet, 1)
	assert.Len(t, snap.Milestones, 1)
	assert.Len(t, snap.Achievements, 1)
	assert.Len(t, snap.Transactions, 1)
	assert.True(t, snap.Modifiers.DailyBonusEnabled)

	dst := newTestStore(t)
	require.NoError(t, dst.SetBalance(ctx, 999, nil))
	require.NoError(t, dst.Restore(ctx, snap))

	restored, err := dst.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, restored)
}

func TestRestore_FailureKeepsData(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	bad := &backup.Snapshot{
		Coins: 5,
		Milestones: []*progress.Milestone{
			{ID: "a", Type: "first-session", Timestamp: base},
			{ID: "b", Type: "first-session", Timestamp: base},
		},
	}
	require.Error(t, s.Restore(ctx, bad))

	balance, err := s.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.ClearAll(ctx))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.Coins)
	assert.Empty(t, snap.Sessions)
	assert.Empty(t, snap.Transactions)
	assert.Equal(t, chests.ModifierState{}, snap.Modifiers)
}

func TestEconomyServiceOnSQLite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	svc := economy.NewService(s, metrics.NewTestManager())

	balance, err := svc.AddCoins(ctx, 300, economy.TxTypeSessionReward, "тренировка")
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	balance, err = svc.DeductCoins(ctx, 250, economy.TxTypeChestPurchase, "сундук")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	_, err = svc.DeductCoins(ctx, 100, economy.TxTypeChestPurchase, "сундук")
	require.Error(t, err)

	history, err := svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(-250), history[0].Amount)
}

func TestApplyDelta(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &economy.Transaction{ID: "t1", Amount: 300, Type: economy.TxTypeSessionReward, CreatedAt: base}
	balance, err := s.ApplyDelta(ctx, 300, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)
	assert.Equal(t, int64(300), entry.BalanceAfter)

	balance, err = s.ApplyDelta(ctx, -301, &economy.Transaction{ID: "t2", Amount: -301, Type: economy.TxTypeChestPurchase, CreatedAt: base})
	assert.ErrorIs(t, err, common.ErrInsufficientCoins)
	assert.Equal(t, int64(300), balance)

	balance, err = s.ApplyDelta(ctx, -300, &economy.Transaction{ID: "t3", Amount: -300, Type: economy.TxTypeChestPurchase, CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Zero(t, balance)

	txs, err := s.ListTransactions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "t3", txs[0].ID)
	assert.Zero(t, txs[0].BalanceAfter)
}

func TestApplyDelta_DebitOnEmptyStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	balance, err := s.ApplyDelta(ctx, -1, &economy.Transaction{ID: "t1", Amount: -1, CreatedAt: base})
	assert.ErrorIs(t, err, common.ErrInsufficientCoins)
	assert.Zero(t, balance)

	txs, err := s.ListTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// Два процесса (CLI и serve) открывают один и тот же файл.
func TestDeductCoins_TwoStoresOneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pullups.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.SetBalance(ctx, 5000, &economy.Transaction{
		ID: "seed", Amount: 5000, Type: economy.TxTypeSessionReward, BalanceAfter: 5000, CreatedAt: base,
	}))

	services := []*economy.Service{
		economy.NewService(first, metrics.NewTestManager()),
		economy.NewService(second, metrics.NewTestManager()),
	}

	start := make(chan struct{})
	errs := make([]error, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc *economy.Service) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.DeductCoins(ctx, 5000, economy.TxTypeChestPurchase, "сундук")
		}(i, svc)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, common.ErrInsufficientCoins)
	}
	assert.Equal(t, 1, succeeded)

	balance, err := second.GetBalance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)

	txs, err := first.ListTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
