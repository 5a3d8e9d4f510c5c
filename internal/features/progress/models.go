// Package progress выводит прогресс из истории тренировок: ранги, стрики,
// рекорды, вехи, качество тренировки и достижения. Почти всё здесь —
// чистые функции над полной историей, без отдельных счётчиков.
// models.go содержит структуры данных.
package progress

import "time"

// Set — один подход.
type Set struct {
	Reps   int      `json:"reps"`
	Weight *float64 `json:"weight,omitempty"` // доп. вес, кг
}

// Session — одна тренировка. После сохранения не меняется.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Date      string    `json:"date"` // календарная дата UTC+5
	Sets      []Set     `json:"sets"`
	Duration  *int      `json:"duration,omitempty"` // секунды
	Tags      []string  `json:"tags,omitempty"`
	TotalReps int       `json:"totalReps"`
}

// HasTag проверяет, отмечена ли тренировка тегом.
func (s *Session) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SessionInput — данные новой тренировки от пользователя.
type SessionInput struct {
	Sets     []Set
	Duration *int
	Tags     []string
}

// Milestone — разовая веха. Type уникален в хранилище.
type Milestone struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Value       int       `json:"value"`
}

// AchievementUnlock — отметка о полученном достижении.
type AchievementUnlock struct {
	AchievementID string    `json:"achievementId"`
	Timestamp     time.Time `json:"timestamp"`
}

// StreakInfo — серия дней с тренировками.
type StreakInfo struct {
	Current        int    `json:"current"`        // дни подряд, заканчивая сегодня
	Longest        int    `json:"longest"`        // самая длинная серия за всё время
	AtRisk         int    `json:"atRisk"`         // серия до вчера, если сегодня ещё не было тренировки
	LastActiveDate string `json:"lastActiveDate"` // "" если тренировок не было
}

// PersonalRecords — личные рекорды.
type PersonalRecords struct {
	MaxSingleSession int `json:"maxSingleSession"` // больше всего повторов за тренировку
	MaxSingleSet     int `json:"maxSingleSet"`     // больше всего повторов в подходе
	MaxDailyTotal    int `json:"maxDailyTotal"`    // больше всего повторов за день
}

// DailyTotal — сумма повторов за календарный день.
type DailyTotal struct {
	Date      string `json:"date"`
	TotalReps int    `json:"totalReps"`
	Sessions  int    `json:"sessions"`
}

// SessionOutcome — всё, что произошло после сохранения тренировки.
type SessionOutcome struct {
	Session         *Session               `json:"session"`
	CoinsAwarded    int64                  `json:"coinsAwarded"`
	Quality         QualityResult          `json:"quality"`
	PersonalRecord  bool                   `json:"personalRecord"`
	NewMilestones   []*Milestone           `json:"newMilestones"`
	NewAchievements []AchievementDefinition `json:"newAchievements"`
	Promotion       *Rank                  `json:"promotion,omitempty"`
	Streak          StreakInfo             `json:"streak"`
	LifetimeTotal   int                    `json:"lifetimeTotal"`
}

// Overview — сводка прогресса для экрана статистики.
type Overview struct {
	LifetimeTotal int             `json:"lifetimeTotal"`
	Sessions      int             `json:"sessions"`
	TodayTotal    int             `json:"todayTotal"`
	DailyAverage  float64         `json:"dailyAverage"`
	Rank          RankProgress    `json:"rank"`
	Streak        StreakInfo      `json:"streak"`
	Records       PersonalRecords `json:"records"`
}
