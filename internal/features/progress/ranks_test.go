package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankFor(t *testing.T) {
	cases := []struct {
		total int
		name  string
		tier  int
	}{
		{-5, "Bronze III", 0},
		{0, "Bronze III", 0},
		{12, "Bronze III", 0},
		{99, "Bronze III", 0},
		{100, "Bronze II", 1},
		{499, "Bronze I", 2},
		{500, "Silver III", 3},
		{2500, "Gold I", 8},
		{16999, "Diamond I", 14},
		{17000, "Elite", 15},
		{25000, "Ascendant", 16},
		{1000000, "Ascendant", 16},
	}
	for _, tc := range cases {
		r := RankFor(tc.total)
		assert.Equal(t, tc.name, r.Name, "total=%d", tc.total)
		assert.Equal(t, tc.tier, r.Tier, "total=%d", tc.total)
	}
}

func TestLadderIsOrdered(t *testing.T) {
	ranks := Ranks()
	require.Len(t, ranks, 17)
	for i := 1; i < len(ranks); i++ {
		assert.Equal(t, i, ranks[i].Tier)
		assert.Greater(t, ranks[i].Threshold, ranks[i-1].Threshold)
	}
}

func TestRankMonotonicity(t *testing.T) {
	prev := RankFor(0).Tier
	for total := 0; total <= 30000; total += 7 {
		tier := RankFor(total).Tier
		require.GreaterOrEqual(t, tier, prev, "total=%d", total)
		prev = tier
	}
}

func TestCheckForPromotion(t *testing.T) {
	assert.Nil(t, CheckForPromotion(0, 12))
	assert.Nil(t, CheckForPromotion(100, 100))

	r := CheckForPromotion(95, 105)
	require.NotNil(t, r)
	assert.Equal(t, "Bronze II", r.Name)

	// прыжок через несколько рангов — возвращается итоговый
	r = CheckForPromotion(0, 1600)
	require.NotNil(t, r)
	assert.Equal(t, "Gold III", r.Name)

	for a := 0; a <= 3000; a += 37 {
		for b := a; b <= 3000; b += 211 {
			if p := CheckForPromotion(a, b); p != nil {
				assert.Greater(t, p.Tier, RankFor(a).Tier)
			}
		}
	}
}

func TestRankProgressFor(t *testing.T) {
	p := RankProgressFor(0)
	assert.Equal(t, "Bronze III", p.Current.Name)
	require.NotNil(t, p.Next)
	assert.Equal(t, "Bronze II", p.Next.Name)
	assert.Zero(t, p.Fraction)
	assert.Equal(t, 100, p.RepsToNext)

	p = RankProgressFor(175)
	assert.Equal(t, "Bronze II", p.Current.Name)
	assert.InDelta(t, 0.5, p.Fraction, 1e-9)
	assert.Equal(t, 75, p.RepsToNext)

	p = RankProgressFor(30000)
	assert.Equal(t, "Ascendant", p.Current.Name)
	assert.Nil(t, p.Next)
	assert.Equal(t, 1.0, p.Fraction)

	p = RankProgressFor(-10)
	assert.Equal(t, 0.0, p.Fraction)
}
