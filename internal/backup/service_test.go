package backup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/pullups/internal/calendar"
	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
)

var exportTime = time.Date(2025, 2, 13, 10, 0, 0, 0, time.UTC)

func newTestService(initial Snapshot) (*Service, *MockRepo) {
	repo := NewMockRepo(initial)
	cal := calendar.New(calendar.WithClock(func() time.Time { return exportTime }))
	return NewService(repo, cal), repo
}

func sampleState() Snapshot {
	at := time.Date(2025, 2, 12, 8, 0, 0, 0, time.UTC)
	return Snapshot{
		Coins: 120,
		Sessions: []*progress.Session{{
			ID: gofakeit.UUID(), CreatedAt: at, Date: "2025-02-12",
			Sets: []progress.Set{{Reps: 10}, {Reps: 8}}, TotalReps: 18,
		}},
		Modifiers: chests.ModifierState{StreakBonusEnabled: true, CurrentStreak: 2, LastOpenDate: "2025-02-12"},
		ChestOpens: []*chests.OpenRecord{{
			ID: gofakeit.UUID(), Tier: chests.TierCommon, Cost: 5000, Cards: []int{10, 30, 30}, Timestamp: at, Date: "2025-02-12",
		}},
		Wallet: []*chests.WalletItem{{ID: gofakeit.UUID(), Value: 30, Tier: chests.TierCommon, Timestamp: at}},
		Milestones: []*progress.Milestone{{
			ID: gofakeit.UUID(), Type: progress.MilestoneFirstSession, Title: "First Session", Timestamp: at, Value: 1,
		}},
		Achievements: []*progress.AchievementUnlock{{AchievementID: "first-pull", Timestamp: at}},
		Transactions: []*economy.Transaction{{
			ID: gofakeit.UUID(), Amount: 18, Type: economy.TxTypeSessionReward, BalanceAfter: 120, CreatedAt: at,
		}},
	}
}

func TestExport_Format(t *testing.T) {
	svc, _ := newTestService(sampleState())

	data, err := svc.ExportBytes(context.Background(), "")
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"version", "exportDate", "sessions", "coins", "modifiers", "chestOpens", "wallet", "milestones", "achievements", "transactions"} {
		assert.Contains(t, fields, key)
	}
	assert.JSONEq(t, "1", string(fields["version"]))
	assert.JSONEq(t, `"2025-02-13T10:00:00Z"`, string(fields["exportDate"]))
}

func TestExport_EmptyStateHasEmptyLists(t *testing.T) {
	svc, _ := newTestService(Snapshot{})

	data, err := svc.ExportBytes(context.Background(), "")
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.JSONEq(t, "[]", string(fields["sessions"]))
	assert.JSONEq(t, "[]", string(fields["transactions"]))
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestService(sampleState())
	data, err := src.ExportBytes(ctx, "")
	require.NoError(t, err)

	dst, repo := newTestService(Snapshot{Coins: 999})
	summary, err := dst.Import(ctx, data, "")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sessions)
	assert.Equal(t, int64(120), summary.Coins)
	assert.Equal(t, 1, summary.ChestOpens)
	assert.Equal(t, 1, repo.Restores)

	got, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(120), got.Coins)
	assert.True(t, got.Modifiers.StreakBonusEnabled)
	assert.Equal(t, 18, got.Sessions[0].TotalReps)
}

func TestImport_MissingRequiredFieldsKeepsData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"нет версии", `{"sessions": [], "coins": 5}`},
		{"нет тренировок", `{"version": 1, "coins": 5}`},
		{"нет монет", `{"version": 1, "sessions": []}`},
		{"null вместо списка", `{"version": 1, "sessions": null, "coins": 5}`},
		{"не JSON", `not json`},
		{"массив", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(sampleState())

			_, err := svc.Import(context.Background(), []byte(tt.data), "")
			require.ErrorIs(t, err, common.ErrInvalidImport)
			assert.Zero(t, repo.Restores)

			got, _ := repo.Snapshot(context.Background())
			assert.Equal(t, int64(120), got.Coins)
		})
	}
}

func TestImport_OptionalFieldsDefaultEmpty(t *testing.T) {
	svc, repo := newTestService(sampleState())

	summary, err := svc.Import(context.Background(), []byte(`{"version": 1, "sessions": [], "coins": 7}`), "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.Coins)

	got, _ := repo.Snapshot(context.Background())
	assert.Empty(t, got.Wallet)
	assert.Empty(t, got.Milestones)
	assert.Equal(t, chests.ModifierState{}, got.Modifiers)
}

func TestDecode_RejectsBadContent(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"будущая версия", `{"version": 2, "sessions": [], "coins": 0}`},
		{"отрицательный баланс", `{"version": 1, "sessions": [], "coins": -1}`},
		{"кривая дата", `{"version": 1, "coins": 0, "sessions": [{"id": "a", "date": "13.02.2025", "sets": [], "totalReps": 0}]}`},
		{"сумма подходов", `{"version": 1, "coins": 0, "sessions": [{"id": "a", "date": "2025-02-13", "sets": [{"reps": 5}], "totalReps": 6}]}`},
		{"отрицательные повторы", `{"version": 1, "coins": 0, "sessions": [{"id": "a", "date": "2025-02-13", "sets": [{"reps": -5}], "totalReps": -5}]}`},
		{"неизвестный сундук", `{"version": 1, "coins": 0, "sessions": [], "chestOpens": [{"id": "o", "tier": "legendary"}]}`},
		{"лишняя карта", `{"version": 1, "coins": 0, "sessions": [], "chestOpens": [{"id": "o", "tier": "common", "cards": [10, 20, 30, 10]}]}`},
		{"мало карт", `{"version": 1, "coins": 0, "sessions": [], "chestOpens": [{"id": "o", "tier": "rare", "cards": [20, 40]}]}`},
		{"чужой номинал", `{"version": 1, "coins": 0, "sessions": [], "chestOpens": [{"id": "o", "tier": "common", "cards": [10, 20, 999]}]}`},
		{"номинал из другого сундука", `{"version": 1, "coins": 0, "sessions": [], "chestOpens": [{"id": "o", "tier": "common", "cards": [10, 20, 180]}]}`},
		{"карта кошелька с чужим номиналом", `{"version": 1, "coins": 0, "sessions": [], "wallet": [{"id": "w", "tier": "epic", "value": 10}]}`},
		{"карта кошелька без сундука", `{"version": 1, "coins": 0, "sessions": [], "wallet": [{"id": "w", "tier": "gold", "value": 10}]}`},
		{"повтор вехи", `{"version": 1, "coins": 0, "sessions": [], "milestones": [{"id": "a", "type": "first-session"}, {"id": "b", "type": "first-session"}]}`},
		{"операция без id", `{"version": 1, "coins": 0, "sessions": [], "transactions": [{"amount": 5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), "")
			assert.ErrorIs(t, err, common.ErrInvalidImport)
		})
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestService(sampleState())
	passphrase := gofakeit.Password(true, true, true, false, false, 16)

	data, err := src.ExportBytes(ctx, passphrase)
	require.NoError(t, err)
	assert.True(t, IsEncrypted(data))
	assert.NotContains(t, string(data), "First Session")

	dst, repo := newTestService(Snapshot{})

	_, err = dst.Import(ctx, data, "")
	require.ErrorIs(t, err, common.ErrBadPassphrase)

	_, err = dst.Import(ctx, data, passphrase+"x")
	require.ErrorIs(t, err, common.ErrBadPassphrase)
	assert.Zero(t, repo.Restores)

	summary, err := dst.Import(ctx, data, passphrase)
	require.NoError(t, err)
	assert.Equal(t, int64(120), summary.Coins)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	data, err := Encrypt([]byte(`{"version":1}`), "secret")
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	env.Ciphertext[0] ^= 0xff
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = Decrypt(tampered, "secret")
	assert.ErrorIs(t, err, common.ErrBadPassphrase)
}

func TestImport_RestoreFailure(t *testing.T) {
	svc, repo := newTestService(Snapshot{})
	repo.FailRestore = errors.New("disk full")

	_, err := svc.Import(context.Background(), []byte(`{"version": 1, "sessions": [], "coins": 1}`), "")
	assert.ErrorIs(t, err, common.ErrPersistenceUnavailable)
}

func TestReset(t *testing.T) {
	svc, repo := newTestService(sampleState())

	require.NoError(t, svc.Reset(context.Background()))

	got, _ := repo.Snapshot(context.Background())
	assert.Zero(t, got.Coins)
	assert.Empty(t, got.Sessions)
}

type recordingLock struct {
	name   string
	events *[]string
}

func (l recordingLock) Lock()   { *l.events = append(*l.events, "lock "+l.name) }
func (l recordingLock) Unlock() { *l.events = append(*l.events, "unlock "+l.name) }

func TestImport_HoldsLocksAndRunsHook(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepo(Snapshot{})
	var events []string
	svc := NewService(repo, calendar.New(),
		WithLocks(recordingLock{"progress", &events}, recordingLock{"chests", &events}),
		WithRestoreHook(func(context.Context) {
			events = append(events, "restored")
			assert.Equal(t, 1, repo.Restores)
		}),
	)

	data, err := Encode(&Snapshot{Version: FormatVersion, Coins: 7, Sessions: []*progress.Session{}}, "")
	require.NoError(t, err)
	_, err = svc.Import(ctx, data, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"lock progress", "lock chests", "restored", "unlock chests", "unlock progress"}, events)

	events = nil
	require.NoError(t, svc.Reset(ctx))
	assert.Equal(t, []string{"lock progress", "lock chests", "restored", "unlock chests", "unlock progress"}, events)
}

func TestImport_RestoreFailureReleasesLocks(t *testing.T) {
	repo := NewMockRepo(Snapshot{})
	repo.FailRestore = errors.New("disk full")
	var events []string
	hooked := false
	svc := NewService(repo, calendar.New(),
		WithLocks(recordingLock{"economy", &events}),
		WithRestoreHook(func(context.Context) { hooked = true }),
	)

	_, err := svc.Import(context.Background(), []byte(`{"version": 1, "sessions": [], "coins": 1}`), "")
	require.ErrorIs(t, err, common.ErrPersistenceUnavailable)
	assert.False(t, hooked)
	assert.Equal(t, []string{"lock economy", "unlock economy"}, events)
}
