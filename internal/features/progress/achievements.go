// Package progress — achievements.go содержит каталог достижений.
// Достижение открывается один раз; повторная проверка его не выдаёт.
package progress

import "strings"

// Difficulty — сложность достижения.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyLegendary Difficulty = "legendary"
)

// AchievementContext — всё, что нужно для проверки достижений.
// OrbEnergy, Readiness и Fatigue считаются вне этого пакета и могут отсутствовать.
type AchievementContext struct {
	TotalReps        int
	Sessions         []*Session
	CurrentStreak    int
	LongestStreak    int
	MaxDailyTotal    int
	MaxSingleSession int
	MaxSingleSet     int
	QualityScores    []int
	Milestones       []*Milestone

	OrbEnergy *int // nil — считается 0
	Readiness *int // nil — считается 0
	Fatigue   *int // nil — считается 100 (усталость неизвестна)
}

func (c *AchievementContext) orbEnergy() int {
	if c.OrbEnergy == nil {
		return 0
	}
	return *c.OrbEnergy
}

func (c *AchievementContext) readiness() int {
	if c.Readiness == nil {
		return 0
	}
	return *c.Readiness
}

func (c *AchievementContext) fatigue() int {
	if c.Fatigue == nil {
		return 100
	}
	return *c.Fatigue
}

func (c *AchievementContext) bestQuality() int {
	best := 0
	for _, q := range c.QualityScores {
		best = max(best, q)
	}
	return best
}

// AchievementDefinition — описание достижения.
type AchievementDefinition struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	Icon        string     `json:"icon"`

	check func(c *AchievementContext) bool
}

// Met проверяет условие достижения.
func (d AchievementDefinition) Met(c *AchievementContext) bool {
	return d.check(c)
}

func totalAtLeast(n int) func(*AchievementContext) bool {
	return func(c *AchievementContext) bool { return c.TotalReps >= n }
}

func sessionsAtLeast(n int) func(*AchievementContext) bool {
	return func(c *AchievementContext) bool { return len(c.Sessions) >= n }
}

func streakAtLeast(n int) func(*AchievementContext) bool {
	return func(c *AchievementContext) bool { return c.CurrentStreak >= n }
}

func setAtLeast(n int) func(*AchievementContext) bool {
	return func(c *AchievementContext) bool { return c.MaxSingleSet >= n }
}

func milestonesAtLeast(n int) func(*AchievementContext) bool {
	return func(c *AchievementContext) bool { return len(c.Milestones) >= n }
}

var achievements = []AchievementDefinition{
	// Повторы за всё время
	{ID: "first-pullup", Name: "First Pull-up", Description: "Complete your very first pull-up", Difficulty: DifficultyEasy, Icon: "bar-single", check: totalAtLeast(1)},
	{ID: "5-pullups", Name: "5 Pull-ups", Description: "Reach 5 total pull-ups", Difficulty: DifficultyEasy, Icon: "bars-five", check: totalAtLeast(5)},
	{ID: "10-pullups", Name: "10 Pull-ups", Description: "Reach 10 total pull-ups", Difficulty: DifficultyEasy, Icon: "bars-ten", check: totalAtLeast(10)},
	{ID: "20-pullups", Name: "20 Pull-ups", Description: "Reach 20 total pull-ups", Difficulty: DifficultyEasy, Icon: "bars-twenty", check: totalAtLeast(20)},
	{ID: "50-pullups", Name: "50 Pull-ups", Description: "Reach 50 total pull-ups", Difficulty: DifficultyEasy, Icon: "bars-stacked", check: totalAtLeast(50)},
	{ID: "100-pullups", Name: "Century Club", Description: "Reach 100 total pull-ups", Difficulty: DifficultyMedium, Icon: "trophy-silver", check: totalAtLeast(100)},

	// Тренировки
	{ID: "first-set", Name: "First Set", Description: "Log your first set", Difficulty: DifficultyEasy, Icon: "clipboard", check: sessionsAtLeast(1)},
	{ID: "first-session", Name: "First Session", Description: "Complete your first training session", Difficulty: DifficultyEasy, Icon: "stopwatch", check: sessionsAtLeast(1)},

	// Стрики
	{ID: "7-day-streak", Name: "Week Warrior", Description: "Maintain a 7-day training streak", Difficulty: DifficultyMedium, Icon: "flame", check: streakAtLeast(7)},
	{ID: "14-day-streak", Name: "Fortnight Fighter", Description: "Maintain a 14-day training streak", Difficulty: DifficultyMedium, Icon: "flame-large", check: streakAtLeast(14)},
	{ID: "21-day-streak", Name: "Triple Week", Description: "Maintain a 21-day training streak", Difficulty: DifficultyMedium, Icon: "flame-triple", check: streakAtLeast(21)},
	{ID: "30-day-streak", Name: "Monthly Master", Description: "Maintain a 30-day training streak", Difficulty: DifficultyHard, Icon: "flame-wreath", check: streakAtLeast(30)},
	{ID: "50-day-streak", Name: "Unstoppable", Description: "Maintain a 50-day training streak", Difficulty: DifficultyHard, Icon: "flame-rotating", check: streakAtLeast(50)},
	{ID: "60-day-streak", Name: "Golden Flame", Description: "Maintain a 60-day training streak", Difficulty: DifficultyHard, Icon: "flame-gold", check: streakAtLeast(60)},
	{ID: "90-day-streak", Name: "Elite Flame", Description: "Maintain a 90-day training streak", Difficulty: DifficultyLegendary, Icon: "flame-elite", check: streakAtLeast(90)},

	// Подход
	{ID: "5-reps-set", Name: "Strong Start", Description: "Complete 5 reps in a single set", Difficulty: DifficultyEasy, Icon: "fist-small", check: setAtLeast(5)},
	{ID: "10-reps-set", Name: "Power Set", Description: "Complete 10 reps in a single set", Difficulty: DifficultyMedium, Icon: "fist-clenched", check: setAtLeast(10)},
	{ID: "20-reps-set", Name: "Beast Mode", Description: "Complete 20 reps in a single set", Difficulty: DifficultyHard, Icon: "fist-glowing", check: setAtLeast(20)},
	{ID: "50-reps-set", Name: "Superhuman", Description: "Complete 50 reps in a single set", Difficulty: DifficultyLegendary, Icon: "fist-radiant", check: setAtLeast(50)},
	{ID: "100-total-reps", Name: "Hundred Hero", Description: "Complete 100 total reps across all sessions", Difficulty: DifficultyMedium, Icon: "fist-pedestal", check: totalAtLeast(100)},

	// Качество тренировки
	{ID: "max-session", Name: "Session Champion", Description: "Achieve your highest rep count in a session", Difficulty: DifficultyMedium, Icon: "starburst",
		check: func(c *AchievementContext) bool { return c.MaxSingleSession >= 30 }},
	{ID: "quality-80", Name: "Quality Training", Description: "Achieve 80+ session quality score", Difficulty: DifficultyMedium, Icon: "speedometer",
		check: func(c *AchievementContext) bool { return c.bestQuality() >= 80 }},
	{ID: "quality-90", Name: "Elite Performance", Description: "Achieve 90+ session quality score", Difficulty: DifficultyHard, Icon: "speedometer-glow",
		check: func(c *AchievementContext) bool { return c.bestQuality() >= 90 }},

	// Рекорды
	{ID: "first-pr", Name: "Personal Best", Description: "Set your first personal record", Difficulty: DifficultyEasy, Icon: "medal",
		check: func(c *AchievementContext) bool { return c.MaxSingleSession > 0 }},
	{ID: "3-prs", Name: "Record Breaker", Description: "Set 3 personal records", Difficulty: DifficultyMedium, Icon: "medal-triple",
		check: func(c *AchievementContext) bool { return len(c.Sessions) >= 3 && c.MaxSingleSession >= 15 }},

	// Усталость
	{ID: "fatigue-30", Name: "Well Rested", Description: "Maintain fatigue under 30%", Difficulty: DifficultyMedium, Icon: "heart",
		check: func(c *AchievementContext) bool { return c.fatigue() < 30 }},
	{ID: "fatigue-20", Name: "Peak Recovery", Description: "Maintain fatigue under 20%", Difficulty: DifficultyHard, Icon: "heart-glow",
		check: func(c *AchievementContext) bool { return c.fatigue() < 20 }},

	// Энергия
	{ID: "orb-100", Name: "Energy Surge", Description: "Fill orb to 100%", Difficulty: DifficultyMedium, Icon: "orb",
		check: func(c *AchievementContext) bool { return c.orbEnergy() >= 100 }},
	{ID: "orb-200", Name: "Double Power", Description: "Fill orb to 200%", Difficulty: DifficultyHard, Icon: "orb-double",
		check: func(c *AchievementContext) bool { return c.orbEnergy() >= 200 }},
	{ID: "orb-300", Name: "Maximum Energy", Description: "Fill orb to 300%", Difficulty: DifficultyLegendary, Icon: "orb-radiant",
		check: func(c *AchievementContext) bool { return c.orbEnergy() >= 300 }},

	// Регулярность
	{ID: "daily-100", Name: "Daily Dedication", Description: "Achieve 100% daily consistency", Difficulty: DifficultyMedium, Icon: "shield-check", check: streakAtLeast(1)},
	{ID: "weekly-100", Name: "Weekly Warrior", Description: "Achieve 100% weekly consistency", Difficulty: DifficultyHard, Icon: "shield-wreath", check: streakAtLeast(7)},
	{ID: "monthly-100", Name: "Monthly Legend", Description: "Achieve 100% monthly consistency", Difficulty: DifficultyLegendary, Icon: "shield-gold", check: streakAtLeast(30)},

	// Прогнозы
	{ID: "prediction-5", Name: "Good Estimate", Description: "Prediction accurate within 5%", Difficulty: DifficultyMedium, Icon: "target", check: sessionsAtLeast(5)},
	{ID: "prediction-2", Name: "Perfect Prediction", Description: "Prediction accurate within 2%", Difficulty: DifficultyHard, Icon: "target-glow", check: sessionsAtLeast(10)},

	// Готовность
	{ID: "readiness-peak", Name: "Peak Readiness", Description: "Achieve peak readiness score", Difficulty: DifficultyMedium, Icon: "sun",
		check: func(c *AchievementContext) bool { return c.readiness() >= 80 }},
	{ID: "readiness-critical", Name: "Critical State", Description: "Train despite critical readiness", Difficulty: DifficultyHard, Icon: "warning", check: sessionsAtLeast(3)},

	// Фокус
	{ID: "elite-focus", Name: "Elite Focus", Description: "Complete session in elite focus mode", Difficulty: DifficultyHard, Icon: "eye",
		check: func(c *AchievementContext) bool {
			for _, s := range c.Sessions {
				if s.HasTag("focus") {
					return true
				}
			}
			return false
		}},

	// Плато
	{ID: "plateau-detected", Name: "Plateau Awareness", Description: "Detect your first plateau", Difficulty: DifficultyMedium, Icon: "mountain", check: sessionsAtLeast(10)},
	{ID: "plateau-escape", Name: "Breakthrough", Description: "Escape a training plateau", Difficulty: DifficultyHard, Icon: "flag-peak",
		check: func(c *AchievementContext) bool {
			for _, m := range c.Milestones {
				if strings.Contains(m.Type, "improvement") {
					return true
				}
			}
			return false
		}},

	// Скорость роста
	{ID: "velocity-50", Name: "Rapid Progress", Description: "50% strength velocity increase", Difficulty: DifficultyHard, Icon: "arrow-up",
		check: func(c *AchievementContext) bool { return len(c.Sessions) >= 5 && c.MaxSingleSession >= 20 }},
	{ID: "velocity-100", Name: "Explosive Growth", Description: "100% strength velocity increase", Difficulty: DifficultyLegendary, Icon: "arrow-double",
		check: func(c *AchievementContext) bool { return len(c.Sessions) >= 10 && c.MaxSingleSession >= 40 }},

	// Вехи
	{ID: "rare-milestone", Name: "Rare Achievement", Description: "Unlock your first rare milestone", Difficulty: DifficultyHard, Icon: "diamond", check: milestonesAtLeast(1)},
	{ID: "legendary-milestone", Name: "Legendary Status", Description: "Unlock your first legendary milestone", Difficulty: DifficultyLegendary, Icon: "crown", check: totalAtLeast(1000)},
	{ID: "3-rare-milestones", Name: "Triple Rare", Description: "Unlock 3 rare milestones", Difficulty: DifficultyLegendary, Icon: "diamond-triple", check: milestonesAtLeast(3)},
	{ID: "3-legendary-milestones", Name: "Triple Crown", Description: "Unlock 3 legendary milestones", Difficulty: DifficultyLegendary, Icon: "crown-triple", check: milestonesAtLeast(5)},

	// Маленькие шаги
	{ID: "micro-1", Name: "Small Step", Description: "Achieve +1 rep micro progress", Difficulty: DifficultyEasy, Icon: "spark", check: sessionsAtLeast(2)},
	{ID: "micro-5", Name: "Steady Growth", Description: "Achieve +5 reps micro progress", Difficulty: DifficultyMedium, Icon: "spark-cluster", check: sessionsAtLeast(3)},
	{ID: "micro-10", Name: "Consistent Gains", Description: "Achieve 10 micro progress events", Difficulty: DifficultyHard, Icon: "spark-glow", check: sessionsAtLeast(10)},

	// Идеальный месяц
	{ID: "month-perfect", Name: "Perfect Month", Description: "Complete first month without missing a day", Difficulty: DifficultyLegendary, Icon: "calendar", check: streakAtLeast(30)},
}

// Achievements возвращает весь каталог достижений.
func Achievements() []AchievementDefinition {
	out := make([]AchievementDefinition, len(achievements))
	copy(out, achievements)
	return out
}

// AchievementByID ищет достижение по ID.
func AchievementByID(id string) (AchievementDefinition, bool) {
	for _, a := range achievements {
		if a.ID == id {
			return a, true
		}
	}
	return AchievementDefinition{}, false
}

// NewAchievementContext собирает контекст из истории и вех.
func NewAchievementContext(sessions []*Session, milestones []*Milestone, today string) *AchievementContext {
	streak := StreakFor(sessions, today)
	records := PersonalRecordsFor(sessions)
	return &AchievementContext{
		TotalReps:        LifetimeTotal(sessions),
		Sessions:         sessions,
		CurrentStreak:    streak.Current,
		LongestStreak:    streak.Longest,
		MaxDailyTotal:    records.MaxDailyTotal,
		MaxSingleSession: records.MaxSingleSession,
		MaxSingleSet:     records.MaxSingleSet,
		QualityScores:    QualityHistory(sessions),
		Milestones:       milestones,
	}
}

// DetectNewAchievements возвращает достижения, условие которых выполнено,
// но которых ещё нет среди unlocked. Порядок — как в каталоге.
func DetectNewAchievements(c *AchievementContext, unlocked []*AchievementUnlock) []AchievementDefinition {
	have := make(map[string]bool, len(unlocked))
	for _, u := range unlocked {
		have[u.AchievementID] = true
	}

	var found []AchievementDefinition
	for _, a := range achievements {
		if !have[a.ID] && a.Met(c) {
			found = append(found, a)
		}
	}
	return found
}
