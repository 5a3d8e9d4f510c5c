package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"serotonyl.ru/pullups/internal/calendar"
	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *Service
	repo  *MockRepo
	coins *economy.MockRepo
	clock *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{now: noonOn("2025-02-13")}
	m := metrics.NewTestManager()
	coins := economy.NewMockRepo(0)
	repo := NewMockRepo()
	cal := calendar.New(calendar.WithClock(clk.Now))
	return &fixture{
		svc:   NewService(repo, economy.NewService(coins, m), cal, m),
		repo:  repo,
		coins: coins,
		clock: clk,
	}
}

func sets(reps ...int) SessionInput {
	in := SessionInput{}
	for _, r := range reps {
		in.Sets = append(in.Sets, Set{Reps: r})
	}
	return in
}

func TestLogSession_FirstSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.svc.LogSession(ctx, sets(12))
	require.NoError(t, err)

	assert.Equal(t, 12, out.LifetimeTotal)
	assert.Equal(t, "2025-02-13", out.Session.Date)
	assert.Equal(t, 12, out.Session.TotalReps)
	assert.Nil(t, out.Promotion)
	assert.Equal(t, int64(12), out.CoinsAwarded)
	assert.False(t, out.PersonalRecord)
	assert.Equal(t, []string{MilestoneFirstSession, MilestoneFirst10}, types(out.NewMilestones))
	assert.Equal(t, "Bronze III", RankFor(out.LifetimeTotal).Name)
	assert.Equal(t, 1, out.Streak.Current)

	balance, _ := f.coins.GetBalance(ctx)
	assert.Equal(t, int64(12), balance)

	stored, _ := f.repo.ListMilestones(ctx)
	assert.Len(t, stored, 2)
	unlocks, _ := f.repo.ListAchievementUnlocks(ctx)
	assert.Len(t, unlocks, len(out.NewAchievements))
	assert.NotEmpty(t, out.NewAchievements)
}

func TestLogSession_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.LogSession(ctx, SessionInput{})
	assert.ErrorIs(t, err, common.ErrEmptySession)
	_, err = f.svc.LogSession(ctx, sets(0, 0))
	assert.ErrorIs(t, err, common.ErrEmptySession)
	_, err = f.svc.LogSession(ctx, sets(5, -1))
	assert.ErrorIs(t, err, common.ErrInvalidReps)
	neg := -3
	_, err = f.svc.LogSession(ctx, SessionInput{Sets: []Set{{Reps: 4}}, Duration: &neg})
	assert.Error(t, err)

	sessions, _ := f.repo.ListSessions(ctx)
	assert.Empty(t, sessions)
}

func TestLogSession_SecondDayRewards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.LogSession(ctx, sets(10))
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	out, err := f.svc.LogSession(ctx, sets(12, 10))
	require.NoError(t, err)

	// 22 повтора, рывок на 12 (+100), рекорд (+150), стрик 2 (+10)
	assert.True(t, out.PersonalRecord)
	assert.Equal(t, 2, out.Streak.Current)
	q := out.Quality.Score
	want := economy.CalculateReward(economy.RewardInput{
		TotalReps:      22,
		QualityScore:   q,
		NewMilestones:  1,
		StreakDays:     1,
		PersonalRecord: true,
	})
	assert.Equal(t, want, out.CoinsAwarded)

	balance, _ := f.coins.GetBalance(ctx)
	assert.Equal(t, int64(10)+want, balance)
}

func TestLogSession_Promotion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.LogSession(ctx, sets(60))
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)
	out, err := f.svc.LogSession(ctx, sets(45))
	require.NoError(t, err)

	require.NotNil(t, out.Promotion)
	assert.Equal(t, "Bronze II", out.Promotion.Name)
	assert.Contains(t, types(out.NewMilestones), MilestoneFirst100)
}

func TestLogSession_MilestonesNotDuplicated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 4; i++ {
		_, err := f.svc.LogSession(ctx, sets(30))
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
	}

	stored, _ := f.repo.ListMilestones(ctx)
	seen := map[string]bool{}
	for _, m := range stored {
		assert.False(t, seen[m.Type], "duplicate %s", m.Type)
		seen[m.Type] = true
	}

	unlocks, _ := f.repo.ListAchievementUnlocks(ctx)
	seenA := map[string]bool{}
	for _, u := range unlocks {
		assert.False(t, seenA[u.AchievementID])
		seenA[u.AchievementID] = true
	}
}

func TestLogSession_StoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.repo.FailSaveSession = func(*Session) error { return errors.New("disk full") }

	_, err := f.svc.LogSession(ctx, sets(10))
	require.Error(t, err)

	balance, _ := f.coins.GetBalance(ctx)
	assert.Zero(t, balance)

	stored, _ := f.repo.ListMilestones(ctx)
	assert.Empty(t, stored)

	// награда начислена и тут же отменена
	txs, _ := f.coins.ListTransactions(ctx, 0)
	require.Len(t, txs, 2)
	assert.Equal(t, economy.TxTypeRewardRevoked, txs[0].Type)
	assert.Equal(t, int64(-10), txs[0].Amount)
}

func TestLogSession_RewardFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.coins.FailWrite = func(int64, *economy.Transaction) error { return errors.New("disk full") }

	_, err := f.svc.LogSession(ctx, sets(12))
	require.Error(t, err)

	sessions, _ := f.repo.ListSessions(ctx)
	assert.Empty(t, sessions)
	stored, _ := f.repo.ListMilestones(ctx)
	assert.Empty(t, stored)
	unlocks, _ := f.repo.ListAchievementUnlocks(ctx)
	assert.Empty(t, unlocks)

	// повтор после сбоя находит те же вехи и платит за них
	f.coins.FailWrite = nil
	out, err := f.svc.LogSession(ctx, sets(12))
	require.NoError(t, err)
	assert.Equal(t, []string{MilestoneFirstSession, MilestoneFirst10}, types(out.NewMilestones))
	assert.Equal(t, int64(12), out.CoinsAwarded)

	balance, _ := f.coins.GetBalance(ctx)
	assert.Equal(t, int64(12), balance)
	sessions, _ = f.repo.ListSessions(ctx)
	assert.Len(t, sessions, 1)
}

func TestOverviewAndAchievements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	overview, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Zero(t, overview.LifetimeTotal)
	assert.Zero(t, overview.DailyAverage)
	assert.Equal(t, "Bronze III", overview.Rank.Current.Name)

	_, err = f.svc.LogSession(ctx, sets(8, 7))
	require.NoError(t, err)

	overview, err = f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, overview.LifetimeTotal)
	assert.Equal(t, 15, overview.TodayTotal)
	assert.Equal(t, 1, overview.Sessions)
	assert.Equal(t, 8, overview.Records.MaxSingleSet)
	assert.Equal(t, 15.0, overview.DailyAverage)

	statuses, err := f.svc.Achievements(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 50)
	unlocked := 0
	for _, s := range statuses {
		if s.Unlocked {
			unlocked++
			assert.NotNil(t, s.UnlockedAt)
		}
	}
	assert.Greater(t, unlocked, 0)

	streak, err := f.svc.Streak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.Current)

	sessions, err := f.svc.Sessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
