package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(defs []AchievementDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func TestCatalogue(t *testing.T) {
	all := Achievements()
	require.Len(t, all, 50)

	seen := map[string]bool{}
	for _, a := range all {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
		assert.NotEmpty(t, a.Name)
		assert.Contains(t, []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyLegendary}, a.Difficulty)
	}

	a, ok := AchievementByID("month-perfect")
	require.True(t, ok)
	assert.Equal(t, DifficultyLegendary, a.Difficulty)
	_, ok = AchievementByID("nope")
	assert.False(t, ok)
}

func TestDetectNewAchievements_EmptyHistory(t *testing.T) {
	c := NewAchievementContext(nil, nil, "2025-02-13")
	assert.Empty(t, DetectNewAchievements(c, nil))
}

func TestDetectNewAchievements_FirstSession(t *testing.T) {
	sessions := []*Session{sessionOn("2025-02-13", 12)}
	c := NewAchievementContext(sessions, nil, "2025-02-13")

	found := ids(DetectNewAchievements(c, nil))
	assert.ElementsMatch(t, []string{
		"first-pullup", "5-pullups", "10-pullups",
		"first-set", "first-session",
		"5-reps-set", "10-reps-set",
		"first-pr", "daily-100",
	}, found)
}

func TestDetectNewAchievements_SkipsUnlocked(t *testing.T) {
	sessions := []*Session{sessionOn("2025-02-13", 12)}
	c := NewAchievementContext(sessions, nil, "2025-02-13")

	first := DetectNewAchievements(c, nil)
	unlocks := make([]*AchievementUnlock, 0, len(first))
	for _, a := range first {
		unlocks = append(unlocks, &AchievementUnlock{AchievementID: a.ID})
	}
	assert.Empty(t, DetectNewAchievements(c, unlocks))
}

func TestAchievementContext_OptionalInputs(t *testing.T) {
	c := &AchievementContext{}
	fatigue30, _ := AchievementByID("fatigue-30")
	orb100, _ := AchievementByID("orb-100")
	readiness, _ := AchievementByID("readiness-peak")

	// нет данных: усталость 100, энергия 0, готовность 0
	assert.False(t, fatigue30.Met(c))
	assert.False(t, orb100.Met(c))
	assert.False(t, readiness.Met(c))

	low, orb, ready := 25, 150, 85
	c = &AchievementContext{Fatigue: &low, OrbEnergy: &orb, Readiness: &ready}
	assert.True(t, fatigue30.Met(c))
	assert.True(t, orb100.Met(c))
	assert.True(t, readiness.Met(c))
}

func TestAchievement_FocusTagAndBreakthrough(t *testing.T) {
	s := sessionOn("2025-02-13", 3)
	s.Tags = []string{"morning", "focus"}
	c := &AchievementContext{Sessions: []*Session{s}, Milestones: []*Milestone{{Type: "improvement-abc"}}}

	focus, _ := AchievementByID("elite-focus")
	escape, _ := AchievementByID("plateau-escape")
	assert.True(t, focus.Met(c))
	assert.True(t, escape.Met(c))
}

func TestAchievement_Quality(t *testing.T) {
	q80, _ := AchievementByID("quality-80")
	q90, _ := AchievementByID("quality-90")
	c := &AchievementContext{QualityScores: []int{60, 84}}
	assert.True(t, q80.Met(c))
	assert.False(t, q90.Met(c))
}
