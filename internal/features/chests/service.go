// Package chests — service.go координирует открытие сундука от начала до конца.
//
// Открытие — сага из шагов:
//
//	Idle → Validating → Debited → Drawn → Committed
//	Validating → Rejected    (не хватает монет, ничего не меняется)
//	Debited    → RolledBack  (сбой после списания, монеты возвращаются)
//
// Монеты списываются только если карты записаны или монеты возвращены.
package chests

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/pullups/internal/calendar"
	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/metrics"
)

// Phase — шаг саги открытия (для логов).
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseDebited
	PhaseDrawn
	PhaseCommitted
	PhaseRejected
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseDebited:
		return "debited"
	case PhaseDrawn:
		return "drawn"
	case PhaseCommitted:
		return "committed"
	case PhaseRejected:
		return "rejected"
	case PhaseRolledBack:
		return "rolled_back"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Service управляет сундуками.
type Service struct {
	repo    Repository
	wallet  Wallet
	engine  *ModifierEngine
	rnd     RandomSource
	cal     *calendar.Calendar
	metrics *metrics.Manager

	// mu сериализует открытия: модификаторы читаются и пишутся
	// в рамках одной операции.
	mu sync.Mutex
}

// NewService создаёт сервис сундуков.
func NewService(repo Repository, wallet Wallet, rnd RandomSource, cal *calendar.Calendar, m *metrics.Manager) *Service {
	return &Service{
		repo:    repo,
		wallet:  wallet,
		engine:  NewModifierEngine(cal),
		rnd:     rnd,
		cal:     cal,
		metrics: m,
	}
}

// Engine возвращает движок модификаторов.
func (s *Service) Engine() *ModifierEngine {
	return s.engine
}

// OpenChest выполняет полный цикл открытия сундука.
//
// Ожидаемые исходы (не хватает монет, сбой с возвратом) возвращаются
// в OpenResult без ошибки. Ошибка возвращается, если:
//   - тип сундука неизвестен (ничего не менялось);
//   - хранилище недоступно до списания (ничего не менялось);
//   - возврат монет после сбоя не удался (OpenResult тоже заполнен).
func (s *Service) OpenChest(ctx context.Context, tier Tier) (*OpenResult, error) {
	def, err := tier.Definition()
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, tier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := log.WithFields(log.Fields{"tier": tier, "cost": def.Cost})
	logger.WithField("phase", PhaseValidating).Debug("Открытие сундука")

	balance, err := s.wallet.GetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistenceUnavailable, err)
	}
	if balance < def.Cost {
		return s.reject(tier, balance), nil
	}

	balance, err = s.wallet.DeductCoins(ctx, def.Cost, economy.TxTypeChestPurchase, "Покупка: "+def.Name)
	if errors.Is(err, common.ErrInsufficientCoins) {
		return s.reject(tier, balance), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistenceUnavailable, err)
	}
	logger.WithField("phase", PhaseDebited).Debug("Монеты списаны")

	// После списания сага доходит до конца, даже если вызывающий отменил контекст
	ctx = context.WithoutCancel(ctx)

	record, err := s.drawAndCommit(ctx, def, logger)
	if err != nil {
		return s.rollback(ctx, def, err, logger)
	}

	s.metrics.CounterChestOpens.WithLabelValues(string(tier), metrics.ResultSuccess).Inc()
	logger.WithFields(log.Fields{
		"phase": PhaseCommitted,
		"cards": record.Cards,
	}).Info("Сундук открыт")

	return &OpenResult{
		Success: true,
		Tier:    tier,
		Cards:   record.Cards,
		Record:  record,
		Balance: &balance,
	}, nil
}

// drawAndCommit разыгрывает карты и сохраняет результат.
func (s *Service) drawAndCommit(ctx context.Context, def Definition, logger *log.Entry) (*OpenRecord, error) {
	state, err := s.repo.GetModifiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения модификаторов: %w", err)
	}

	base, err := TableFor(def.Tier)
	if err != nil {
		return nil, err
	}
	table := s.engine.Apply(base, state)

	cards, err := DrawMany(table, def.CardCount, s.rnd)
	if err != nil {
		return nil, fmt.Errorf("ошибка розыгрыша: %w", err)
	}
	logger.WithFields(log.Fields{
		"phase":  PhaseDrawn,
		"streak": state.CurrentStreak,
	}).Debug("Карты разыграны")

	now := s.cal.Now()
	record := &OpenRecord{
		ID:        uuid.NewString(),
		Tier:      def.Tier,
		Cost:      def.Cost,
		Cards:     cards,
		Timestamp: now.UTC(),
		Date:      calendar.DateOf(now),
	}
	items := make([]*WalletItem, 0, len(cards))
	for _, value := range cards {
		items = append(items, &WalletItem{
			ID:        uuid.NewString(),
			Value:     value,
			Tier:      def.Tier,
			Timestamp: now.UTC(),
		})
	}

	if err := s.repo.SaveOpening(ctx, record, items, s.engine.Advance(state)); err != nil {
		return nil, fmt.Errorf("ошибка сохранения открытия: %w", err)
	}
	return record, nil
}

// reject — монет не хватает, ничего не изменилось.
func (s *Service) reject(tier Tier, balance int64) *OpenResult {
	s.metrics.CounterChestOpens.WithLabelValues(string(tier), metrics.ResultInsufficient).Inc()
	log.WithFields(log.Fields{
		"tier":    tier,
		"balance": balance,
		"phase":   PhaseRejected,
	}).Info("Недостаточно монет для сундука")

	return &OpenResult{
		Tier:    tier,
		Balance: &balance,
		Failure: FailureInsufficientFunds,
		Error:   MsgInsufficientCoins,
	}
}

// rollback возвращает списанные монеты после сбоя.
func (s *Service) rollback(ctx context.Context, def Definition, cause error, logger *log.Entry) (*OpenResult, error) {
	balance, err := s.wallet.AddCoins(ctx, def.Cost, economy.TxTypeChestRefund, "Возврат: "+def.Name)
	if err != nil {
		s.metrics.CounterChestOpens.WithLabelValues(string(def.Tier), metrics.ResultRefundFailed).Inc()
		s.metrics.CounterRefundFailures.Inc()
		logger.WithFields(log.Fields{
			"phase":        PhaseRolledBack,
			"cause":        cause.Error(),
			"refund_error": err.Error(),
		}).Error("Не удалось вернуть монеты после сбоя открытия сундука")

		res := &OpenResult{
			Tier:    def.Tier,
			Failure: FailureRefund,
			Error:   MsgRefundFailed,
		}
		if current, readErr := s.wallet.GetBalance(ctx); readErr == nil {
			res.Balance = &current
		}
		return res, fmt.Errorf("%w: %w", common.ErrRefundFailed, errors.Join(cause, err))
	}

	s.metrics.CounterChestOpens.WithLabelValues(string(def.Tier), metrics.ResultFailed).Inc()
	s.metrics.CounterRefunds.Inc()
	logger.WithError(cause).WithField("phase", PhaseRolledBack).Warn("Открытие сундука не удалось, монеты возвращены")

	return &OpenResult{
		Tier:    def.Tier,
		Balance: &balance,
		Failure: FailureTransaction,
		Error:   MsgOpenFailed,
	}, nil
}

// Modifiers возвращает текущее состояние модификаторов.
func (s *Service) Modifiers(ctx context.Context) (ModifierState, error) {
	state, err := s.repo.GetModifiers(ctx)
	if err != nil {
		return ModifierState{}, fmt.Errorf("ошибка чтения модификаторов: %w", err)
	}
	return state, nil
}

// SetModifierFlags включает или выключает бонусы. Стрик не меняется.
func (s *Service) SetModifierFlags(ctx context.Context, streakEnabled, dailyEnabled bool) (ModifierState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.repo.GetModifiers(ctx)
	if err != nil {
		return ModifierState{}, fmt.Errorf("ошибка чтения модификаторов: %w", err)
	}
	state.StreakBonusEnabled = streakEnabled
	state.DailyBonusEnabled = dailyEnabled
	if err := s.repo.SetModifiers(ctx, state); err != nil {
		return ModifierState{}, fmt.Errorf("ошибка записи модификаторов: %w", err)
	}

	log.WithFields(log.Fields{
		"streak_bonus": streakEnabled,
		"daily_bonus":  dailyEnabled,
	}).Info("Модификаторы обновлены")
	return state, nil
}

// Odds возвращает текущую таблицу шансов сундука с учётом бонусов.
func (s *Service) Odds(ctx context.Context, tier Tier) (Table, error) {
	base, err := TableFor(tier)
	if err != nil {
		return nil, err
	}
	state, err := s.Modifiers(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Apply(base, state), nil
}

// History возвращает журнал открытий, новые первыми.
func (s *Service) History(ctx context.Context) ([]*OpenRecord, error) {
	records, err := s.repo.ListOpenRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала открытий: %w", err)
	}
	return records, nil
}

// WalletItems возвращает все карты, новые первыми.
func (s *Service) WalletItems(ctx context.Context) ([]*WalletItem, error) {
	items, err := s.repo.ListWalletItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения кошелька: %w", err)
	}
	return items, nil
}

// Summary считает количество и суммарную ценность карт.
func (s *Service) Summary(ctx context.Context) (*WalletSummary, error) {
	items, err := s.WalletItems(ctx)
	if err != nil {
		return nil, err
	}
	summary := &WalletSummary{ByTier: make(map[Tier]int)}
	for _, item := range items {
		summary.Cards++
		summary.TotalValue += item.Value
		summary.ByTier[item.Tier]++
	}
	return summary, nil
}

// OpenedToday проверяет, открывался ли сегодня хотя бы один сундук.
func (s *Service) OpenedToday(ctx context.Context) (bool, error) {
	records, err := s.History(ctx)
	if err != nil {
		return false, err
	}
	today := s.cal.Today()
	for _, r := range records {
		if r.Date == today {
			return true, nil
		}
	}
	return false, nil
}

// Locker отдаёт блокировку открытия сундуков: пока она захвачена, новый сундук не откроется.
func (s *Service) Locker() sync.Locker {
	return &s.mu
}
