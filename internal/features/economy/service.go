// Package economy — service.go содержит бизнес-логику баланса.
// Проверка и списание выполняет хранилище в одной транзакции
// (Repository.ApplyDelta), поэтому баланс не уходит в минус даже при
// двух процессах на одной базе. Мьютекс упорядочивает вызовы внутри процесса.
package economy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/metrics"
)

// Service управляет балансом монет.
type Service struct {
	repo    Repository
	metrics *metrics.Manager
	now     func() time.Time

	mu sync.Mutex
}

// NewService создаёт сервис экономики.
func NewService(repo Repository, m *metrics.Manager) *Service {
	return &Service{repo: repo, metrics: m, now: time.Now}
}

// GetBalance возвращает текущий баланс.
func (s *Service) GetBalance(ctx context.Context) (int64, error) {
	balance, err := s.repo.GetBalance(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// AddCoins начисляет монеты и пишет операцию в журнал.
// Возвращает баланс после начисления.
func (s *Service) AddCoins(ctx context.Context, amount int64, txType, description string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.repo.ApplyDelta(ctx, amount, s.entry(amount, txType, description))
	if err != nil {
		return 0, fmt.Errorf("ошибка начисления: %w", err)
	}

	s.metrics.CounterCoinsCredited.Add(float64(amount))
	s.metrics.GaugeBalance.Set(float64(updated))

	log.WithFields(log.Fields{
		"amount":  amount,
		"type":    txType,
		"balance": updated,
	}).Debug("Монеты начислены")

	return updated, nil
}

// DeductCoins списывает монеты. Если монет не хватает, возвращает
// common.ErrInsufficientCoins и баланс не меняется (без частичного списания).
// Возвращает баланс после списания.
func (s *Service) DeductCoins(ctx context.Context, amount int64, txType, description string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.repo.ApplyDelta(ctx, -amount, s.entry(-amount, txType, description))
	if errors.Is(err, common.ErrInsufficientCoins) {
		return updated, common.ErrInsufficientCoins
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка списания: %w", err)
	}

	s.metrics.CounterCoinsDebited.Add(float64(amount))
	s.metrics.GaugeBalance.Set(float64(updated))

	log.WithFields(log.Fields{
		"amount":  amount,
		"type":    txType,
		"balance": updated,
	}).Debug("Монеты списаны")

	return updated, nil
}

// AwardCoinsForSession считает награду за тренировку и начисляет её.
// Возвращает сумму начисления. Нулевая награда ничего не меняет.
func (s *Service) AwardCoinsForSession(ctx context.Context, in RewardInput) (int64, error) {
	amount := CalculateReward(in)
	if amount == 0 {
		return 0, nil
	}

	description := fmt.Sprintf("Награда за тренировку: %d %s", in.TotalReps, common.PluralizeReps(in.TotalReps))
	if _, err := s.AddCoins(ctx, amount, TxTypeSessionReward, description); err != nil {
		return 0, err
	}
	return amount, nil
}

// RevokeSessionReward списывает ранее начисленную награду за тренировку.
func (s *Service) RevokeSessionReward(ctx context.Context, amount int64) error {
	if amount == 0 {
		return nil
	}
	_, err := s.DeductCoins(ctx, amount, TxTypeRewardRevoked, "Отмена награды: тренировка не сохранена")
	return err
}

// RefreshBalanceGauge перечитывает баланс в метрику после замены данных в обход сервиса.
func (s *Service) RefreshBalanceGauge(ctx context.Context) {
	balance, err := s.repo.GetBalance(ctx)
	if err != nil {
		log.WithError(err).Warn("Не удалось обновить метрику баланса")
		return
	}
	s.metrics.GaugeBalance.Set(float64(balance))
}

// History возвращает последние операции с монетами.
func (s *Service) History(ctx context.Context, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	txs, err := s.repo.ListTransactions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	return txs, nil
}

// entry создаёт запись журнала для операции; BalanceAfter заполняет хранилище.
func (s *Service) entry(amount int64, txType, description string) *Transaction {
	return &Transaction{
		ID:          uuid.NewString(),
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   s.now().UTC(),
	}
}

// Locker отдаёт блокировку баланса: пока она захвачена, начисления и списания ждут.
func (s *Service) Locker() sync.Locker {
	return &s.mu
}
