package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/pullups/internal/backup"
	"serotonyl.ru/pullups/internal/calendar"
	"serotonyl.ru/pullups/internal/config"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StoreDriver:             config.DriverSQLite,
		SQLitePath:              filepath.Join(t.TempDir(), "pullups.db"),
		HTTPAddr:                "127.0.0.1:0",
		MetricsEnabled:          true,
		ReminderStreakThreshold: 3,
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	now := time.Date(2025, 2, 13, 7, 0, 0, 0, time.UTC)
	cal := calendar.New(calendar.WithClock(func() time.Time { return now }))

	a, err := New(context.Background(), testConfig(t), WithCalendar(cal))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_SQLite(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	assert.Nil(t, a.Bot)
	require.NoError(t, a.Store.Ping(ctx))

	out, err := a.Progress.LogSession(ctx, progress.SessionInput{Sets: []progress.Set{{Reps: 10}}})
	require.NoError(t, err)

	balance, err := a.Economy.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, out.CoinsAwarded, balance)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "mongo"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestHandler_MetricsToggle(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	a.Config.MetricsEnabled = false
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve не остановился после отмены контекста")
	}
}

func TestBackupImport_WaitsForBalanceLockAndRefreshesGauge(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := a.Economy.AddCoins(ctx, 300, economy.TxTypeSessionReward, "тренировка")
	require.NoError(t, err)
	assert.Equal(t, 300.0, testutil.ToFloat64(a.Metrics.GaugeBalance))

	data, err := backup.Encode(&backup.Snapshot{Version: backup.FormatVersion, Coins: 7000, Sessions: []*progress.Session{}}, "")
	require.NoError(t, err)

	lock := a.Economy.Locker()
	lock.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := a.Backup.Import(ctx, data, "")
		done <- err
	}()

	select {
	case err := <-done:
		lock.Unlock()
		t.Fatalf("импорт не дождался блокировки баланса: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	lock.Unlock()
	require.NoError(t, <-done)

	balance, err := a.Economy.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), balance)
	assert.Equal(t, 7000.0, testutil.ToFloat64(a.Metrics.GaugeBalance))

	require.NoError(t, a.Backup.Reset(ctx))
	assert.Zero(t, testutil.ToFloat64(a.Metrics.GaugeBalance))
}
