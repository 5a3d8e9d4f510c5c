package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
)

const helpText = `🏋️ Трекер подтягиваний
/log 10 8 6 #утро — записать тренировку (8x5 — с весом 5 кг, t=10m — длительность)
/open common|rare|epic — открыть сундук
/balance — баланс монет
/history — последние операции
/rank — ранг и прогресс
/streak — серия дней
/records — личные рекорды
/odds rare — шансы сундука`

const historyLimit = 10

// Handler выполняет команды бота и формирует ответы.
type Handler struct {
	progress *progress.Service
	economy  *economy.Service
	chests   *chests.Service
}

// NewHandler создаёт обработчик команд.
func NewHandler(progressService *progress.Service, economyService *economy.Service, chestService *chests.Service) *Handler {
	return &Handler{
		progress: progressService,
		economy:  economyService,
		chests:   chestService,
	}
}

// HandleLog записывает тренировку.
func (h *Handler) HandleLog(ctx context.Context, args []string) string {
	in, err := progress.ParseSessionArgs(args)
	if err != nil {
		return "❌ " + userError(err) + "\nПример: /log 10 8 6"
	}

	out, err := h.progress.LogSession(ctx, in)
	if err != nil {
		log.WithError(err).Error("Ошибка записи тренировки")
		return "❌ " + userError(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Записано: %d %s (всего %s)\n",
		out.Session.TotalReps, common.PluralizeReps(out.Session.TotalReps),
		common.FormatNumber(int64(out.LifetimeTotal)))
	if out.CoinsAwarded > 0 {
		fmt.Fprintf(&b, "💰 %s\n", common.FormatCoinsAmount(out.CoinsAwarded))
	}
	if out.Quality.Score > 0 {
		fmt.Fprintf(&b, "📈 Качество: %d/100\n", out.Quality.Score)
	}
	if out.PersonalRecord {
		b.WriteString("🏆 Новый личный рекорд!\n")
	}
	if out.Promotion != nil {
		fmt.Fprintf(&b, "⬆️ Новый ранг: %s\n", out.Promotion.Name)
	}
	for _, m := range out.NewMilestones {
		fmt.Fprintf(&b, "🎯 %s\n", m.Title)
	}
	for _, a := range out.NewAchievements {
		fmt.Fprintf(&b, "🏅 %s\n", a.Name)
	}
	if out.Streak.Current > 1 {
		fmt.Fprintf(&b, "🔥 Серия: %d %s", out.Streak.Current, common.PluralizeDays(out.Streak.Current))
	}
	return strings.TrimSpace(b.String())
}

// HandleOpen открывает сундук.
func (h *Handler) HandleOpen(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "❌ Укажите сундук: /open common|rare|epic"
	}
	tier, err := chests.ParseTier(strings.ToLower(args[0]))
	if err != nil {
		return "❌ " + userError(err)
	}

	res, err := h.chests.OpenChest(ctx, tier)
	if err != nil {
		log.WithError(err).WithField("tier", tier).Error("Ошибка открытия сундука")
		if res != nil && res.Failure == chests.FailureRefund {
			return "⚠️ Сундук не открылся, и монеты не удалось вернуть. Проверьте журнал операций."
		}
		return "❌ " + userError(err)
	}

	switch res.Failure {
	case chests.FailureInsufficientFunds:
		def, _ := tier.Definition()
		return fmt.Sprintf("💸 Недостаточно монет: нужно %s, на счёте %s",
			common.FormatBalance(def.Cost), common.FormatBalance(*res.Balance))
	case chests.FailureTransaction:
		return "⚠️ Сундук не открылся, монеты возвращены"
	}

	cards := make([]string, len(res.Cards))
	for i, c := range res.Cards {
		cards[i] = fmt.Sprintf("%d", c)
	}
	return fmt.Sprintf("🎁 %s: %s\n💰 Баланс: %s",
		tier, strings.Join(cards, ", "), common.FormatBalance(*res.Balance))
}

// HandleBalance показывает баланс.
func (h *Handler) HandleBalance(ctx context.Context) string {
	balance, err := h.economy.GetBalance(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		return "❌ " + userError(err)
	}
	return "💰 Баланс: " + common.FormatBalance(balance)
}

// HandleHistory показывает последние операции.
func (h *Handler) HandleHistory(ctx context.Context) string {
	txs, err := h.economy.History(ctx, historyLimit)
	if err != nil {
		log.WithError(err).Error("Ошибка получения истории")
		return "❌ " + userError(err)
	}
	if len(txs) == 0 {
		return "📜 Операций пока нет"
	}

	var b strings.Builder
	b.WriteString("📜 Последние операции:")
	for _, t := range txs {
		fmt.Fprintf(&b, "\n%s  %s — %s", t.CreatedAt.Format("02.01 15:04"), common.FormatCoinsAmount(t.Amount), t.Description)
	}
	return b.String()
}

// HandleRank показывает ранг и прогресс до следующего.
func (h *Handler) HandleRank(ctx context.Context) string {
	ov, err := h.progress.Overview(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения сводки")
		return "❌ " + userError(err)
	}
	msg := fmt.Sprintf("🎖 %s — %s %s всего",
		ov.Rank.Current.Name, common.FormatNumber(int64(ov.LifetimeTotal)), common.PluralizeReps(ov.LifetimeTotal))
	if ov.Rank.Next != nil {
		msg += fmt.Sprintf("\nДо %s: %d (%.0f%%)", ov.Rank.Next.Name, ov.Rank.RepsToNext, ov.Rank.Fraction*100)
	}
	return msg
}

// HandleStreak показывает серию дней.
func (h *Handler) HandleStreak(ctx context.Context) string {
	st, err := h.progress.Streak(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения серии")
		return "❌ " + userError(err)
	}
	switch {
	case st.Current > 0:
		return fmt.Sprintf("🔥 Серия: %d %s (рекорд %d)", st.Current, common.PluralizeDays(st.Current), st.Longest)
	case st.AtRisk > 0:
		return fmt.Sprintf("⏳ Серия %d %s под угрозой — потренируйтесь сегодня!", st.AtRisk, common.PluralizeDays(st.AtRisk))
	default:
		return fmt.Sprintf("🧊 Серии нет (рекорд %d)", st.Longest)
	}
}

// HandleRecords показывает личные рекорды.
func (h *Handler) HandleRecords(ctx context.Context) string {
	ov, err := h.progress.Overview(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения сводки")
		return "❌ " + userError(err)
	}
	r := ov.Records
	return fmt.Sprintf("🏆 Рекорды\nЗа тренировку: %d\nЗа подход: %d\nЗа день: %d",
		r.MaxSingleSession, r.MaxSingleSet, r.MaxDailyTotal)
}

// HandleOdds показывает текущие шансы сундука.
func (h *Handler) HandleOdds(ctx context.Context, args []string) string {
	tier := chests.TierCommon
	if len(args) > 0 {
		parsed, err := chests.ParseTier(strings.ToLower(args[0]))
		if err != nil {
			return "❌ " + userError(err)
		}
		tier = parsed
	}

	table, err := h.chests.Odds(ctx, tier)
	if err != nil {
		log.WithError(err).Error("Ошибка расчёта шансов")
		return "❌ " + userError(err)
	}

	entries := append(chests.Table(nil), table...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Value < entries[j].Value })

	var b strings.Builder
	fmt.Fprintf(&b, "🎲 Шансы %s:", tier)
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%4d — %.1f%%", e.Value, e.Probability*100)
	}
	return b.String()
}

// userError превращает ошибку в текст для пользователя.
// Ошибки хранилища не раскрываются.
func userError(err error) string {
	if errors.Is(err, common.ErrPersistenceUnavailable) {
		return common.ErrPersistenceUnavailable.Error()
	}
	return err.Error()
}
