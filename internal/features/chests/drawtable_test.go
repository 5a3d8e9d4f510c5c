package chests

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/pullups/internal/common"
)

func TestBaseTablesAreValid(t *testing.T) {
	for _, tier := range Tiers() {
		table, err := TableFor(tier)
		require.NoError(t, err)
		assert.NoError(t, table.Validate(), "tier %s", tier)
	}

	_, err := TableFor("legendary")
	assert.ErrorIs(t, err, common.ErrUnknownTier)
}

func TestTableFor_ReturnsCopy(t *testing.T) {
	a, _ := TableFor(TierCommon)
	a[0].Probability = 0.99
	b, _ := TableFor(TierCommon)
	assert.Equal(t, 0.20, b[0].Probability)
}

func TestDraw_CumulativeWalk(t *testing.T) {
	table, _ := TableFor(TierCommon) // 10:.2 20:.3 30:.5

	cases := []struct {
		r    float64
		want int
	}{
		{0, 10},
		{0.19, 10},
		{0.2, 10},
		{0.21, 20},
		{0.5, 20},
		{0.51, 30},
		{0.999999, 30},
	}
	for _, tc := range cases {
		got, err := Draw(table, &scriptedSource{values: []float64{tc.r}})
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "r=%v", tc.r)
	}
}

func TestDraw_FallsBackToLastEntry(t *testing.T) {
	// Масса не добирает до 1 — остаток отдаётся последней записи
	table := Table{{Value: 1, Probability: 0.3}, {Value: 2, Probability: 0.3}}
	got, err := Draw(table, &scriptedSource{values: []float64{0.95}})
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestDraw_Errors(t *testing.T) {
	_, err := Draw(Table{}, newSeededSource(1))
	assert.ErrorIs(t, err, common.ErrEmptyDrawTable)

	table, _ := TableFor(TierRare)
	_, err = Draw(table, failingSource{})
	assert.Error(t, err)
}

func TestDraw_AlwaysReturnsConfiguredValue(t *testing.T) {
	rnd := newSeededSource(42)
	for _, tier := range Tiers() {
		table, _ := TableFor(tier)
		for i := 0; i < 2000; i++ {
			v, err := Draw(table, rnd)
			require.NoError(t, err)
			require.True(t, table.Contains(v), "tier %s value %d", tier, v)
		}
	}
}

func TestDrawMany(t *testing.T) {
	table, _ := TableFor(TierEpic)
	values, err := DrawMany(table, 7, newSeededSource(7))
	require.NoError(t, err)
	assert.Len(t, values, 7)

	values, err = DrawMany(table, 0, newSeededSource(7))
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = DrawMany(table, -1, newSeededSource(7))
	assert.Error(t, err)
}

func TestDrawMany_FollowsDistribution(t *testing.T) {
	table, _ := TableFor(TierCommon)
	const n = 60000
	values, err := DrawMany(table, n, newSeededSource(2024))
	require.NoError(t, err)

	counts := map[int]int{}
	for _, v := range values {
		counts[v]++
	}
	for _, e := range table {
		freq := float64(counts[e.Value]) / n
		assert.InDelta(t, e.Probability, freq, 0.02, "value %d", e.Value)
	}
}

func TestCryptoSource_Range(t *testing.T) {
	src := NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v, err := src.Float64()
		require.NoError(t, err)
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestTableValidate(t *testing.T) {
	assert.ErrorIs(t, Table{}.Validate(), common.ErrEmptyDrawTable)
	assert.Error(t, Table{{Value: 1, Probability: 0.5}}.Validate())
	assert.Error(t, Table{{Value: 1, Probability: 1.5}, {Value: 2, Probability: -0.5}}.Validate())
	assert.NoError(t, Table{{Value: 1, Probability: 1}}.Validate())
	assert.False(t, math.IsNaN(Table{}.Sum()))
}
