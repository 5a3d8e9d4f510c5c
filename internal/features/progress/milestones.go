// Package progress — milestones.go определяет вехи.
//
// Веха открывается один раз, когда история впервые переходит порог.
// Дубликаты отсекаются по типу вехи, а не по значению.
package progress

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/pullups/internal/calendar"
)

// Типы вех
const (
	MilestoneFirstSession = "first-session"
	MilestoneFirst10      = "first-10"
	MilestoneFirst100     = "first-100"
	MilestoneFirst1000    = "first-1000"
	MilestoneStreak7      = "streak-7"
	MilestoneStreak30     = "streak-30"

	// improvementPrefix + ID тренировки — рывок на 10+ повторов.
	improvementPrefix = "improvement-"
)

// ImprovementThreshold — на сколько повторов тренировка должна обогнать предыдущую.
const ImprovementThreshold = 10

// milestoneDefinition — пороговая веха с фиксированным типом.
type milestoneDefinition struct {
	Type        string
	Title       string
	Description string
	Value       int
	Paid        bool // даёт ли бонус монет
	reached     func(total int, streak StreakInfo, sessions int) bool
}

var milestoneDefinitions = []milestoneDefinition{
	{
		Type:        MilestoneFirstSession,
		Title:       "First Session",
		Description: "You logged your first training session!",
		Value:       1,
		reached:     func(_ int, _ StreakInfo, sessions int) bool { return sessions >= 1 },
	},
	{
		Type:        MilestoneFirst10,
		Title:       "First 10 Reps",
		Description: "You completed your first 10 pull-ups!",
		Value:       10,
		reached:     func(total int, _ StreakInfo, _ int) bool { return total >= 10 },
	},
	{
		Type:        MilestoneFirst100,
		Title:       "Century Club",
		Description: "You reached 100 total pull-ups!",
		Value:       100,
		Paid:        true,
		reached:     func(total int, _ StreakInfo, _ int) bool { return total >= 100 },
	},
	{
		Type:        MilestoneFirst1000,
		Title:       "Thousand Strong",
		Description: "You achieved 1,000 total pull-ups!",
		Value:       1000,
		Paid:        true,
		reached:     func(total int, _ StreakInfo, _ int) bool { return total >= 1000 },
	},
	{
		Type:        MilestoneStreak7,
		Title:       "Week Warrior",
		Description: "7-day training streak achieved!",
		Value:       7,
		Paid:        true,
		reached:     func(_ int, streak StreakInfo, _ int) bool { return streak.Current >= 7 },
	},
	{
		Type:        MilestoneStreak30,
		Title:       "Monthly Master",
		Description: "30-day training streak achieved!",
		Value:       30,
		Paid:        true,
		reached:     func(_ int, streak StreakInfo, _ int) bool { return streak.Current >= 30 },
	},
}

// IsPaidMilestone — даёт ли веха бонус монет.
// Вводные вехи (первая тренировка, первые 10 повторов) бонуса не дают.
func IsPaidMilestone(m *Milestone) bool {
	if strings.HasPrefix(m.Type, improvementPrefix) {
		return true
	}
	for _, def := range milestoneDefinitions {
		if def.Type == m.Type {
			return def.Paid
		}
	}
	return false
}

// IsImprovement — веха за рывок.
func IsImprovement(m *Milestone) bool {
	return strings.HasPrefix(m.Type, improvementPrefix)
}

// DetectNewMilestones возвращает вехи, которых ещё нет в existing.
//
// sessions — полная история, включая только что сохранённую тренировку,
// в любом порядке. now — момент обнаружения (и «сегодня» для стрика).
// Повторный вызов с теми же историей и вехами (плюс найденные) даёт пустой результат.
func DetectNewMilestones(sessions []*Session, existing []*Milestone, now time.Time) []*Milestone {
	if len(sessions) == 0 {
		return nil
	}

	have := make(map[string]bool, len(existing))
	for _, m := range existing {
		have[m.Type] = true
	}

	total := LifetimeTotal(sessions)
	streak := StreakFor(sessions, calendar.DateOf(now))

	var found []*Milestone
	for _, def := range milestoneDefinitions {
		if have[def.Type] || !def.reached(total, streak, len(sessions)) {
			continue
		}
		found = append(found, &Milestone{
			ID:          uuid.NewString(),
			Type:        def.Type,
			Title:       def.Title,
			Description: def.Description,
			Timestamp:   now.UTC(),
			Value:       def.Value,
		})
	}

	if len(sessions) >= 2 {
		ordered := newestFirst(sessions)
		latest, previous := ordered[0], ordered[1]
		delta := latest.TotalReps - previous.TotalReps
		tag := improvementPrefix + latest.ID
		if delta >= ImprovementThreshold && !have[tag] {
			found = append(found, &Milestone{
				ID:          uuid.NewString(),
				Type:        tag,
				Title:       "Breakthrough",
				Description: fmt.Sprintf("Improved by %d reps in one session!", delta),
				Timestamp:   now.UTC(),
				Value:       delta,
			})
		}
	}
	return found
}

// newestFirst возвращает копию истории, отсортированную от новой тренировки к старой.
func newestFirst(sessions []*Session) []*Session {
	out := make([]*Session, len(sessions))
	copy(out, sessions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
