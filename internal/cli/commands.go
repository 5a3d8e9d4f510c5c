package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func (c *cli) logCmd() *cobra.Command {
	var (
		tags     []string
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:     "log REPS...",
		Aliases: []string{"add"},
		Short:   "Записать тренировку",
		Example: "  pullups log 10 8 6\n  pullups log 8x10 6x10 --tag weighted --duration 12m",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := progress.ParseSessionArgs(args)
			if err != nil {
				return err
			}
			in.Tags = append(in.Tags, tags...)
			if duration > 0 {
				sec := int(duration.Seconds())
				in.Duration = &sec
			}

			out, err := c.app.Progress.LogSession(cmd.Context(), in)
			if err != nil {
				return err
			}
			if c.asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✅ Записано: %d %s, всего %s\n",
				out.Session.TotalReps, common.PluralizeReps(out.Session.TotalReps),
				common.FormatNumber(int64(out.LifetimeTotal)))
			fmt.Fprintf(w, "💰 %s\n", common.FormatCoinsAmount(out.CoinsAwarded))
			fmt.Fprintf(w, "📈 Качество: %d/100\n", out.Quality.Score)
			if out.PersonalRecord {
				fmt.Fprintln(w, "🏆 Новый личный рекорд!")
			}
			if out.Promotion != nil {
				fmt.Fprintf(w, "⬆️  Новый ранг: %s\n", out.Promotion.Name)
			}
			for _, m := range out.NewMilestones {
				fmt.Fprintf(w, "🎯 %s: %s\n", m.Title, m.Description)
			}
			for _, a := range out.NewAchievements {
				fmt.Fprintf(w, "🏅 %s: %s\n", a.Name, a.Description)
			}
			if out.Streak.Current > 0 {
				fmt.Fprintf(w, "🔥 Серия: %d %s\n", out.Streak.Current, common.PluralizeDays(out.Streak.Current))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "теги тренировки")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "длительность тренировки")
	return cmd
}

func (c *cli) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open TIER",
		Short:     "Открыть сундук (common, rare, epic)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(chests.TierCommon), string(chests.TierRare), string(chests.TierEpic)},
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := chests.ParseTier(strings.ToLower(args[0]))
			if err != nil {
				return err
			}

			res, err := c.app.Chests.OpenChest(cmd.Context(), tier)
			if res != nil && c.asJSON {
				if jerr := printJSON(cmd.OutOrStdout(), res); jerr != nil {
					return jerr
				}
			}
			if err != nil {
				return err
			}

			switch res.Failure {
			case chests.FailureInsufficientFunds:
				def, _ := tier.Definition()
				return fmt.Errorf("%w: нужно %s, на счёте %s", common.ErrInsufficientCoins,
					common.FormatBalance(def.Cost), common.FormatBalance(*res.Balance))
			case chests.FailureTransaction:
				return common.ErrTransactionFailed
			}
			if c.asJSON {
				return nil
			}

			w := cmd.OutOrStdout()
			cards := make([]string, len(res.Cards))
			for i, v := range res.Cards {
				cards[i] = common.FormatNumber(int64(v))
			}
			fmt.Fprintf(w, "🎁 %s: %s\n", tier, strings.Join(cards, ", "))
			fmt.Fprintf(w, "💰 Баланс: %s\n", common.FormatBalance(*res.Balance))
			return nil
		},
	}
}

func (c *cli) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "balance",
		Aliases: []string{"coins"},
		Short:   "Показать баланс монет",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			balance, err := c.app.Economy.GetBalance(cmd.Context())
			if err != nil {
				return err
			}
			if c.asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"balance": balance})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "💰 Баланс: %s\n", common.FormatBalance(balance))
			return nil
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Журнал операций с монетами",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := c.app.Economy.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if c.asJSON {
				if txs == nil {
					txs = []*economy.Transaction{}
				}
				return printJSON(cmd.OutOrStdout(), txs)
			}
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Операций пока нет")
				return nil
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ДАТА\tСУММА\tБАЛАНС\tОПИСАНИЕ")
			for _, t := range txs {
				fmt.Fprintf(tw, "%s\t%+d\t%d\t%s\n",
					t.CreatedAt.In(c.app.Calendar.Location()).Format("2006-01-02 15:04"),
					t.Amount, t.BalanceAfter, t.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", economy.DefaultHistoryLimit, "сколько операций показать")
	return cmd
}

func (c *cli) rankCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Текущий ранг и прогресс до следующего",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if all {
				if c.asJSON {
					return printJSON(w, progress.Ranks())
				}
				tw := newTable(w)
				fmt.Fprintln(tw, "РАНГ\tПОРОГ")
				for _, r := range progress.Ranks() {
					fmt.Fprintf(tw, "%s\t%s\n", r.Name, common.FormatNumber(int64(r.Threshold)))
				}
				return tw.Flush()
			}

			ov, err := c.app.Progress.Overview(cmd.Context())
			if err != nil {
				return err
			}
			if c.asJSON {
				return printJSON(w, ov.Rank)
			}
			fmt.Fprintf(w, "🎖  %s: %s %s всего\n",
				ov.Rank.Current.Name, common.FormatNumber(int64(ov.LifetimeTotal)), common.PluralizeReps(ov.LifetimeTotal))
			if ov.Rank.Next != nil {
				fmt.Fprintf(w, "До %s: %d (%.0f%%)\n", ov.Rank.Next.Name, ov.Rank.RepsToNext, ov.Rank.Fraction*100)
			} else {
				fmt.Fprintln(w, "Это высший ранг")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "показать всю лестницу рангов")
	return cmd
}

func (c *cli) streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Серия дней с тренировками",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.app.Progress.Streak(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, st)
			}
			switch {
			case st.Current > 0:
				fmt.Fprintf(w, "🔥 Серия: %d %s\n", st.Current, common.PluralizeDays(st.Current))
			case st.AtRisk > 0:
				fmt.Fprintf(w, "⏳ Серия %d %s под угрозой, до конца дня %s\n",
					st.AtRisk, common.PluralizeDays(st.AtRisk), c.app.Calendar.UntilMidnight().Round(time.Minute))
			default:
				fmt.Fprintln(w, "🧊 Серии нет")
			}
			fmt.Fprintf(w, "Рекорд: %d %s\n", st.Longest, common.PluralizeDays(st.Longest))
			return nil
		},
	}
}

func (c *cli) recordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "Личные рекорды и сводка",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ov, err := c.app.Progress.Overview(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, ov)
			}
			tw := newTable(w)
			fmt.Fprintf(tw, "За тренировку\t%d\n", ov.Records.MaxSingleSession)
			fmt.Fprintf(tw, "За подход\t%d\n", ov.Records.MaxSingleSet)
			fmt.Fprintf(tw, "За день\t%d\n", ov.Records.MaxDailyTotal)
			fmt.Fprintf(tw, "Всего\t%s\n", common.FormatNumber(int64(ov.LifetimeTotal)))
			fmt.Fprintf(tw, "Тренировок\t%d\n", ov.Sessions)
			fmt.Fprintf(tw, "Сегодня\t%d\n", ov.TodayTotal)
			fmt.Fprintf(tw, "В среднем за день\t%.1f\n", ov.DailyAverage)
			return tw.Flush()
		},
	}
}

func (c *cli) milestonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "milestones",
		Short: "Полученные вехи",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ms, err := c.app.Progress.Milestones(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if c.asJSON {
				if ms == nil {
					ms = []*progress.Milestone{}
				}
				return printJSON(w, ms)
			}
			if len(ms) == 0 {
				fmt.Fprintln(w, "Вех пока нет")
				return nil
			}
			tw := newTable(w)
			for _, m := range ms {
				fmt.Fprintf(tw, "%s\t%s\t%s\n",
					m.Timestamp.In(c.app.Calendar.Location()).Format("2006-01-02"), m.Title, m.Description)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) achievementsCmd() *cobra.Command {
	var unlockedOnly bool
	cmd := &cobra.Command{
		Use:   "achievements",
		Short: "Каталог достижений",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.Progress.Achievements(cmd.Context())
			if err != nil {
				return err
			}
			if unlockedOnly {
				filtered := list[:0]
				for _, a := range list {
					if a.Unlocked {
						filtered = append(filtered, a)
					}
				}
				list = filtered
			}
			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, list)
			}

			unlocked := 0
			tw := newTable(w)
			for _, a := range list {
				mark := "·"
				if a.Unlocked {
					mark = "✓"
					unlocked++
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, a.Name, a.Difficulty, a.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(w, "Открыто: %d из %d\n", unlocked, len(list))
			return nil
		},
	}
	cmd.Flags().BoolVar(&unlockedOnly, "unlocked", false, "только открытые")
	return cmd
}

func (c *cli) walletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wallet",
		Short: "Карты из сундуков",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := c.app.Chests.Summary(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, summary)
			}
			fmt.Fprintf(w, "🃏 Карт: %d на сумму %s\n", summary.Cards, common.FormatNumber(int64(summary.TotalValue)))
			tw := newTable(w)
			for _, t := range chests.Tiers() {
				fmt.Fprintf(tw, "%s\t%d\n", t, summary.ByTier[t])
			}
			return tw.Flush()
		},
	}
}

func (c *cli) modifiersCmd() *cobra.Command {
	var streakBonus, dailyBonus bool
	cmd := &cobra.Command{
		Use:   "modifiers",
		Short: "Модификаторы шансов сундуков",
		Long:  "Без флагов показывает состояние; --streak-bonus и --daily-bonus включают или выключают бонусы.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := c.app.Chests.Modifiers(ctx)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("streak-bonus") || flags.Changed("daily-bonus") {
				if flags.Changed("streak-bonus") {
					st.StreakBonusEnabled = streakBonus
				}
				if flags.Changed("daily-bonus") {
					st.DailyBonusEnabled = dailyBonus
				}
				st, err = c.app.Chests.SetModifierFlags(ctx, st.StreakBonusEnabled, st.DailyBonusEnabled)
				if err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, st)
			}
			engine := c.app.Chests.Engine()
			tw := newTable(w)
			fmt.Fprintf(tw, "Бонус серии\t%s\t(серия %d, активен: %s)\n",
				onOff(st.StreakBonusEnabled), st.CurrentStreak, yesNo(engine.IsStreakBonusActive(st)))
			fmt.Fprintf(tw, "Ежедневный бонус\t%s\t(активен: %s)\n",
				onOff(st.DailyBonusEnabled), yesNo(engine.IsDailyBonusActive(st)))
			fmt.Fprintf(tw, "Сдвиг шансов\t%.0f%%\t\n", engine.BonusMagnitude(st)*100)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&streakBonus, "streak-bonus", false, "бонус за серию открытий")
	cmd.Flags().BoolVar(&dailyBonus, "daily-bonus", false, "бонус первого открытия за день")
	return cmd
}

func (c *cli) oddsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "odds [TIER]",
		Short: "Текущие шансы сундука с учётом модификаторов",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier := chests.TierCommon
			if len(args) == 1 {
				parsed, err := chests.ParseTier(strings.ToLower(args[0]))
				if err != nil {
					return err
				}
				tier = parsed
			}
			table, err := c.app.Chests.Odds(cmd.Context(), tier)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, table)
			}

			entries := append(chests.Table(nil), table...)
			sort.Slice(entries, func(i, j int) bool { return entries[i].Value < entries[j].Value })
			tw := newTable(w)
			fmt.Fprintln(tw, "КАРТА\tШАНС")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%.2f%%\n", e.Value, e.Probability*100)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		out        string
		passphrase string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Выгрузить все данные в JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("passphrase") {
				passphrase = c.app.Config.BackupPassphrase
			}
			data, err := c.app.Backup.ExportBytes(cmd.Context(), passphrase)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("ошибка записи %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "💾 Бэкап сохранён: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "файл бэкапа (по умолчанию stdout)")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "пароль шифрования (по умолчанию BACKUP_PASSPHRASE)")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Заменить все данные содержимым бэкапа",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("passphrase") {
				passphrase = c.app.Config.BackupPassphrase
			}
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("ошибка чтения бэкапа: %w", err)
			}

			summary, err := c.app.Backup.Import(cmd.Context(), data, passphrase)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, summary)
			}
			fmt.Fprintf(w, "📥 Загружено: %d тренировок, %s, %d сундуков, %d карт\n",
				summary.Sessions, common.FormatBalance(summary.Coins), summary.ChestOpens, summary.WalletItems)
			return nil
		},
	}
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "пароль бэкапа (по умолчанию BACKUP_PASSPHRASE)")
	return cmd
}

var errResetNotConfirmed = errors.New("сброс удаляет все данные; повторите с флагом --yes")

func (c *cli) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Удалить все данные",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errResetNotConfirmed
			}
			if err := c.app.Backup.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "🗑  Все данные удалены")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "подтвердить удаление")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API, Telegram-бота и напоминания",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Serve(cmd.Context())
		},
	}
}

func onOff(b bool) string {
	if b {
		return "вкл"
	}
	return "выкл"
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}
