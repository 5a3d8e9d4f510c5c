// Package sqlite — локальное хранилище на SQLite (драйвер modernc.org/sqlite,
// без cgo). Это хранилище по умолчанию: все данные лежат в одном файле
// на устройстве пользователя.
//
// Store реализует репозитории economy, chests, progress и backup.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"serotonyl.ru/pullups/internal/backup"
	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
)

// Store — подключение к файлу SQLite.
type Store struct {
	db *sql.DB
}

// Open открывает (или создаёт) базу по пути path и применяет миграции.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ошибка создания каталога базы: %w", err)
		}
	}

	// _txlock=immediate: транзакция сразу берёт блокировку записи и ждёт
	// её по busy_timeout, если база занята другим процессом
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы: %w", err)
	}

	// SQLite пишет в один поток; одно соединение исключает "database is locked"
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.WithField("path", path).Debug("База SQLite открыта")
	return s, nil
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping проверяет, что база доступна.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx выполняет fn в транзакции. Ошибка fn откатывает транзакцию.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Время хранится в наносекундах Unix (UTC), чтобы сортировка была точной.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

var (
	_ economy.Repository  = (*Store)(nil)
	_ chests.Repository   = (*Store)(nil)
	_ progress.Repository = (*Store)(nil)
	_ backup.Repository   = (*Store)(nil)
)
