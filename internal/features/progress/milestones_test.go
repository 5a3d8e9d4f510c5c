package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func types(ms []*Milestone) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Type)
	}
	return out
}

func TestDetectNewMilestones_Empty(t *testing.T) {
	assert.Empty(t, DetectNewMilestones(nil, nil, noonOn("2025-02-13")))
}

func TestDetectNewMilestones_FirstSession(t *testing.T) {
	sessions := []*Session{sessionOn("2025-02-13", 12)}
	found := DetectNewMilestones(sessions, nil, noonOn("2025-02-13"))
	assert.Equal(t, []string{MilestoneFirstSession, MilestoneFirst10}, types(found))
	for _, m := range found {
		assert.NotEmpty(t, m.ID)
		assert.False(t, IsPaidMilestone(m))
	}
	assert.Equal(t, 10, found[1].Value)
	assert.Equal(t, "First 10 Reps", found[1].Title)
}

func TestDetectNewMilestones_Idempotent(t *testing.T) {
	sessions := consecutive("2025-02-13", 7, 20) // 140 повторов, стрик 7
	now := noonOn("2025-02-13")

	first := DetectNewMilestones(sessions, nil, now)
	assert.ElementsMatch(t, []string{
		MilestoneFirstSession, MilestoneFirst10, MilestoneFirst100, MilestoneStreak7,
	}, types(first))

	second := DetectNewMilestones(sessions, first, now)
	assert.Empty(t, second)
}

func TestDetectNewMilestones_TypeDedupNotValue(t *testing.T) {
	existing := []*Milestone{{Type: MilestoneFirst100, Value: 100}}
	sessions := consecutive("2025-02-13", 1, 500)
	found := DetectNewMilestones(sessions, existing, noonOn("2025-02-13"))
	assert.NotContains(t, types(found), MilestoneFirst100)
}

func TestDetectNewMilestones_StreakUsesNow(t *testing.T) {
	sessions := consecutive("2025-02-13", 7, 1)
	// на следующий день без тренировки текущий стрик 0
	found := DetectNewMilestones(sessions, nil, noonOn("2025-02-14"))
	assert.NotContains(t, types(found), MilestoneStreak7)

	found = DetectNewMilestones(consecutive("2025-03-30", 30, 1), nil, noonOn("2025-03-30"))
	assert.Contains(t, types(found), MilestoneStreak30)
}

func TestDetectNewMilestones_Improvement(t *testing.T) {
	prev := sessionOn("2025-02-12", 10)
	latest := sessionOn("2025-02-13", 22)
	now := noonOn("2025-02-13")

	found := DetectNewMilestones([]*Session{prev, latest}, nil, now)
	var improvement *Milestone
	for _, m := range found {
		if IsImprovement(m) {
			improvement = m
		}
	}
	require.NotNil(t, improvement)
	assert.Equal(t, "improvement-"+latest.ID, improvement.Type)
	assert.Equal(t, 12, improvement.Value)
	assert.Equal(t, "Breakthrough", improvement.Title)
	assert.True(t, IsPaidMilestone(improvement))

	again := DetectNewMilestones([]*Session{latest, prev}, found, now)
	assert.Empty(t, again)
}

func TestDetectNewMilestones_SmallImprovementIgnored(t *testing.T) {
	sessions := []*Session{sessionOn("2025-02-12", 10), sessionOn("2025-02-13", 19)}
	for _, m := range DetectNewMilestones(sessions, nil, noonOn("2025-02-13")) {
		assert.False(t, IsImprovement(m))
	}
}

func TestIsPaidMilestone(t *testing.T) {
	assert.False(t, IsPaidMilestone(&Milestone{Type: MilestoneFirstSession}))
	assert.False(t, IsPaidMilestone(&Milestone{Type: MilestoneFirst10}))
	assert.True(t, IsPaidMilestone(&Milestone{Type: MilestoneFirst100}))
	assert.True(t, IsPaidMilestone(&Milestone{Type: MilestoneFirst1000}))
	assert.True(t, IsPaidMilestone(&Milestone{Type: MilestoneStreak7}))
	assert.True(t, IsPaidMilestone(&Milestone{Type: MilestoneStreak30}))
	assert.False(t, IsPaidMilestone(&Milestone{Type: "unknown"}))
}
