package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateReward(t *testing.T) {
	cases := []struct {
		name string
		in   RewardInput
		want int64
	}{
		{"first session", RewardInput{TotalReps: 12}, 12},
		{"quality bonus floors", RewardInput{TotalReps: 25, QualityScore: 73}, 25 + 9},
		{"exact quality half", RewardInput{TotalReps: 200, QualityScore: 29}, 200 + 29},
		{"all signals", RewardInput{TotalReps: 40, QualityScore: 100, NewMilestones: 2, StreakDays: 3, PersonalRecord: true}, 40 + 20 + 200 + 30 + 150},
		{"negative inputs clamp", RewardInput{TotalReps: -10, QualityScore: -50, NewMilestones: -1, StreakDays: -4}, 0},
		{"quality above 100 clamps", RewardInput{TotalReps: 10, QualityScore: 500}, 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculateReward(tc.in))
		})
	}
}

func TestBreakdown(t *testing.T) {
	b := Breakdown(RewardInput{TotalReps: 30, QualityScore: 80, NewMilestones: 1, StreakDays: 2, PersonalRecord: true})
	assert.Equal(t, RewardBreakdown{
		Base:      30,
		Quality:   12,
		Milestone: 100,
		Streak:    20,
		Record:    150,
		Total:     312,
	}, b)
}
