// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: открывает хранилище, создаёт сервисы,
// бота и планировщик, а Serve запускает HTTP API и фоновые задачи.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/pullups/internal/api"
	"serotonyl.ru/pullups/internal/backup"
	"serotonyl.ru/pullups/internal/bot"
	"serotonyl.ru/pullups/internal/calendar"
	"serotonyl.ru/pullups/internal/config"
	"serotonyl.ru/pullups/internal/db/postgres"
	"serotonyl.ru/pullups/internal/db/sqlite"
	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
	"serotonyl.ru/pullups/internal/jobs"
	"serotonyl.ru/pullups/internal/metrics"
)

const (
	metricsNamespace = "pullups"
	metricsSubsystem = "tracker"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Store — хранилище со всеми репозиториями.
// Реализуется sqlite.Store и postgres.Store.
type Store interface {
	economy.Repository
	chests.Repository
	progress.Repository
	backup.Repository

	Ping(ctx context.Context) error
	Close() error
}

// App содержит все компоненты приложения.
type App struct {
	Config   *config.Config
	Calendar *calendar.Calendar
	Store    Store
	Registry *prometheus.Registry
	Metrics  *metrics.Manager

	Economy  *economy.Service
	Progress *progress.Service
	Chests   *chests.Service
	Backup   *backup.Service

	// Bot == nil, если Telegram не настроен
	Bot *bot.Bot
}

// Option настраивает App при создании.
type Option func(*App)

// WithCalendar подменяет календарь (часы) приложения.
func WithCalendar(cal *calendar.Calendar) Option {
	return func(a *App) { a.Calendar = cal }
}

// New открывает хранилище и собирает сервисы.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		Config:   cfg,
		Calendar: calendar.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	// === 1. Хранилище ===
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия хранилища: %w", err)
	}
	a.Store = store

	// === 2. Метрики ===
	a.Registry = metrics.NewRegistry()
	a.Metrics = metrics.NewManager(metricsNamespace, metricsSubsystem, a.Registry)

	// === 3. Сервисы ===
	a.Economy = economy.NewService(store, a.Metrics)
	a.Progress = progress.NewService(store, a.Economy, a.Calendar, a.Metrics)
	a.Chests = chests.NewService(store, a.Economy, chests.NewCryptoSource(), a.Calendar, a.Metrics)
	// Восстановление ждёт, пока закончатся тренировка, сундук и операция с балансом
	a.Backup = backup.NewService(store, a.Calendar,
		backup.WithLocks(a.Progress.Locker(), a.Chests.Locker(), a.Economy.Locker()),
		backup.WithRestoreHook(a.Economy.RefreshBalanceGauge),
	)

	// === 4. Telegram ===
	if cfg.NotifyEnabled() {
		telegramAPI, err := bot.NewAPI(cfg.TelegramBotToken)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		handler := bot.NewHandler(a.Progress, a.Economy, a.Chests)
		a.Bot = bot.New(telegramAPI, nil, cfg.TelegramChatID, handler)
	}

	log.WithFields(log.Fields{
		"driver":   cfg.StoreDriver,
		"telegram": a.Bot != nil,
	}).Info("Приложение инициализировано")
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("неизвестный драйвер хранилища %q", cfg.StoreDriver)
	}
}

// Handler собирает HTTP API поверх сервисов приложения.
func (a *App) Handler() http.Handler {
	srv := api.NewServer(api.Services{
		Progress: a.Progress,
		Economy:  a.Economy,
		Chests:   a.Chests,
		Backup:   a.Backup,
		Metrics:  a.Metrics,
	})
	if a.Config.MetricsEnabled {
		srv.EnableMetrics(a.Registry)
	}
	return srv.Handler()
}

// Serve запускает HTTP API, бота и планировщик и ждёт отмены ctx.
// Ошибка любого компонента останавливает остальные.
func (a *App) Serve(ctx context.Context) error {
	var notifier jobs.Notifier
	if a.Bot != nil {
		notifier = a.Bot
	}
	scheduler := jobs.NewScheduler(a.Calendar, a.Progress, notifier, a.Config.ReminderStreakThreshold)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", httpServer.Addr).Info("HTTP API запущен")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
		}
		log.Info("HTTP API остановлен")
		return nil
	})

	if a.Bot != nil {
		g.Go(func() error {
			return a.Bot.Start(gctx)
		})
	}

	return g.Wait()
}

// Close освобождает ресурсы приложения.
func (a *App) Close() error {
	var err error
	if a.Bot != nil {
		a.Bot.Close()
	}
	if a.Store != nil {
		err = multierr.Append(err, a.Store.Close())
	}
	return err
}
