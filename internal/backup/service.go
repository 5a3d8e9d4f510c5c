package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/pullups/internal/calendar"
	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
)

// Поля, без которых файл не принимается.
var requiredFields = []string{"version", "sessions", "coins"}

// ImportSummary — сколько записей загружено.
type ImportSummary struct {
	Version      int   `json:"version"`
	Sessions     int   `json:"sessions"`
	Coins        int64 `json:"coins"`
	ChestOpens   int   `json:"chestOpens"`
	WalletItems  int   `json:"walletItems"`
	Milestones   int   `json:"milestones"`
	Achievements int   `json:"achievements"`
	Transactions int   `json:"transactions"`
}

// Service — выгрузка, загрузка и сброс данных.
type Service struct {
	repo Repository
	cal  *calendar.Calendar

	locks     []sync.Locker
	onRestore func(ctx context.Context)
}

// Option настраивает Service.
type Option func(*Service)

// WithLocks задаёт блокировки других сервисов, которые Import и Reset
// держат на время записи. Захватываются в переданном порядке.
func WithLocks(locks ...sync.Locker) Option {
	return func(s *Service) {
		s.locks = append(s.locks, locks...)
	}
}

// WithRestoreHook задаёт вызов после успешных Import и Reset,
// пока блокировки ещё удерживаются.
func WithRestoreHook(fn func(ctx context.Context)) Option {
	return func(s *Service) {
		s.onRestore = fn
	}
}

// NewService создаёт сервис бэкапов.
func NewService(repo Repository, cal *calendar.Calendar, opts ...Option) *Service {
	s := &Service{repo: repo, cal: cal}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// exclusive выполняет замену данных под блокировками сервисов.
func (s *Service) exclusive(ctx context.Context, fn func() error) error {
	for _, l := range s.locks {
		l.Lock()
	}
	defer func() {
		for i := len(s.locks) - 1; i >= 0; i-- {
			s.locks[i].Unlock()
		}
	}()

	if err := fn(); err != nil {
		return err
	}
	if s.onRestore != nil {
		s.onRestore(ctx)
	}
	return nil
}

// Export собирает полный снимок состояния.
func (s *Service) Export(ctx context.Context) (*Snapshot, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistenceUnavailable, err)
	}
	snap.Version = FormatVersion
	snap.ExportDate = s.cal.Now().UTC()
	snap.normalize()

	log.WithFields(log.Fields{
		"sessions": len(snap.Sessions),
		"coins":    snap.Coins,
	}).Info("Данные выгружены")
	return snap, nil
}

// ExportBytes выгружает состояние в JSON; с паролем — в зашифрованный конверт.
func (s *Service) ExportBytes(ctx context.Context, passphrase string) ([]byte, error) {
	snap, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	return Encode(snap, passphrase)
}

// Encode кодирует снимок в файл выгрузки.
func Encode(snap *Snapshot, passphrase string) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ошибка кодирования выгрузки: %w", err)
	}
	if passphrase == "" {
		return data, nil
	}
	return Encrypt(data, passphrase)
}

// Decode разбирает и проверяет файл выгрузки, ничего не меняя в хранилище.
func Decode(data []byte, passphrase string) (*Snapshot, error) {
	if IsEncrypted(data) {
		if passphrase == "" {
			return nil, fmt.Errorf("%w: файл зашифрован, укажите пароль", common.ErrBadPassphrase)
		}
		plain, err := Decrypt(data, passphrase)
		if err != nil {
			return nil, err
		}
		data = plain
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidImport, err)
	}
	var missing []string
	for _, key := range requiredFields {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: нет полей %s", common.ErrInvalidImport, strings.Join(missing, ", "))
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidImport, err)
	}
	if err := snap.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidImport, err)
	}
	snap.normalize()
	return snap, nil
}

// Import проверяет файл и только после этого заменяет им всё состояние.
// Некорректный файл не трогает существующие данные.
func (s *Service) Import(ctx context.Context, data []byte, passphrase string) (*ImportSummary, error) {
	snap, err := Decode(data, passphrase)
	if err != nil {
		log.WithError(err).Warn("Бэкап отклонён")
		return nil, err
	}

	err = s.exclusive(ctx, func() error {
		return s.repo.Restore(ctx, snap)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistenceUnavailable, err)
	}

	summary := &ImportSummary{
		Version:      snap.Version,
		Sessions:     len(snap.Sessions),
		Coins:        snap.Coins,
		ChestOpens:   len(snap.ChestOpens),
		WalletItems:  len(snap.Wallet),
		Milestones:   len(snap.Milestones),
		Achievements: len(snap.Achievements),
		Transactions: len(snap.Transactions),
	}
	log.WithFields(log.Fields{
		"sessions": summary.Sessions,
		"coins":    summary.Coins,
	}).Info("Бэкап загружен")
	return summary, nil
}

// Reset удаляет все данные.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.exclusive(ctx, func() error { return s.repo.ClearAll(ctx) }); err != nil {
		return fmt.Errorf("%w: %w", common.ErrPersistenceUnavailable, err)
	}
	log.Warn("Все данные удалены")
	return nil
}

// validate проверяет содержимое снимка.
func (snap *Snapshot) validate() error {
	if snap.Version < 1 || snap.Version > FormatVersion {
		return fmt.Errorf("неподдерживаемая версия %d", snap.Version)
	}
	if snap.Coins < 0 {
		return errors.New("отрицательный баланс")
	}
	if snap.Modifiers.CurrentStreak < 0 {
		return errors.New("отрицательная серия модификаторов")
	}

	for i, sess := range snap.Sessions {
		if err := validateSession(sess); err != nil {
			return fmt.Errorf("тренировка %d: %w", i, err)
		}
	}
	for i, r := range snap.ChestOpens {
		if err := validateOpenRecord(r); err != nil {
			return fmt.Errorf("открытие %d: %w", i, err)
		}
	}
	for i, item := range snap.Wallet {
		if item == nil || item.ID == "" {
			return fmt.Errorf("карта %d: нет id", i)
		}
		table, err := chests.TableFor(item.Tier)
		if err != nil {
			return fmt.Errorf("карта %d: %w", i, err)
		}
		if !table.Contains(item.Value) {
			return fmt.Errorf("карта %d: номинала %d нет в сундуке %s", i, item.Value, item.Tier)
		}
	}

	seen := make(map[string]bool, len(snap.Milestones))
	for i, m := range snap.Milestones {
		if m == nil || m.ID == "" || m.Type == "" {
			return fmt.Errorf("веха %d: нет id или типа", i)
		}
		if seen[m.Type] {
			return fmt.Errorf("веха %s повторяется", m.Type)
		}
		seen[m.Type] = true
	}
	for i, u := range snap.Achievements {
		if u == nil || u.AchievementID == "" {
			return fmt.Errorf("достижение %d: нет id", i)
		}
	}
	for i, t := range snap.Transactions {
		if t == nil || t.ID == "" {
			return fmt.Errorf("операция %d: нет id", i)
		}
	}
	return nil
}

// validateOpenRecord проверяет, что запись могла получиться при открытии:
// число карт равно числу карт сундука, номиналы есть в его таблице.
func validateOpenRecord(r *chests.OpenRecord) error {
	if r == nil || r.ID == "" {
		return errors.New("нет id")
	}
	def, err := r.Tier.Definition()
	if err != nil {
		return err
	}
	if len(r.Cards) != def.CardCount {
		return fmt.Errorf("карт %d, а в сундуке %s их %d", len(r.Cards), r.Tier, def.CardCount)
	}
	table, err := chests.TableFor(r.Tier)
	if err != nil {
		return err
	}
	for _, v := range r.Cards {
		if !table.Contains(v) {
			return fmt.Errorf("номинала %d нет в сундуке %s", v, r.Tier)
		}
	}
	return nil
}

func validateSession(sess *progress.Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("нет id")
	}
	if _, err := calendar.Parse(sess.Date); err != nil {
		return fmt.Errorf("некорректная дата %q", sess.Date)
	}
	total := 0
	for _, set := range sess.Sets {
		if set.Reps < 0 {
			return common.ErrInvalidReps
		}
		total += set.Reps
	}
	if total != sess.TotalReps {
		return fmt.Errorf("сумма подходов %d не равна totalReps %d", total, sess.TotalReps)
	}
	return nil
}

// normalize заменяет nil-списки пустыми и упорядочивает их новыми первыми.
func (snap *Snapshot) normalize() {
	if snap.Sessions == nil {
		snap.Sessions = []*progress.Session{}
	}
	if snap.ChestOpens == nil {
		snap.ChestOpens = []*chests.OpenRecord{}
	}
	if snap.Wallet == nil {
		snap.Wallet = []*chests.WalletItem{}
	}
	if snap.Milestones == nil {
		snap.Milestones = []*progress.Milestone{}
	}
	if snap.Achievements == nil {
		snap.Achievements = []*progress.AchievementUnlock{}
	}
	if snap.Transactions == nil {
		snap.Transactions = []*economy.Transaction{}
	}

	sort.SliceStable(snap.Sessions, func(i, j int) bool {
		return snap.Sessions[i].CreatedAt.After(snap.Sessions[j].CreatedAt)
	})
	sort.SliceStable(snap.ChestOpens, func(i, j int) bool {
		return snap.ChestOpens[i].Timestamp.After(snap.ChestOpens[j].Timestamp)
	})
	sort.SliceStable(snap.Wallet, func(i, j int) bool {
		return snap.Wallet[i].Timestamp.After(snap.Wallet[j].Timestamp)
	})
	sort.SliceStable(snap.Milestones, func(i, j int) bool {
		return snap.Milestones[i].Timestamp.After(snap.Milestones[j].Timestamp)
	})
	sort.SliceStable(snap.Achievements, func(i, j int) bool {
		return snap.Achievements[i].Timestamp.After(snap.Achievements[j].Timestamp)
	})
	sort.SliceStable(snap.Transactions, func(i, j int) bool {
		return snap.Transactions[i].CreatedAt.After(snap.Transactions[j].CreatedAt)
	})
}
