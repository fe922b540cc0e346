package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyPrefersHashForLargeEquiJoins(t *testing.T) {
	s := NewStrategy(NewStatistics(1000, 1000))
	algo, err := s.Select(true)
	require.NoError(t, err)
	assert.Equal(t, HashBlock, algo)
	assert.Less(t, s.Cost(HashBlock), s.Cost(BlockNestedLoop))
}

func TestStrategyFallsBackToBlockNestedLoop(t *testing.T) {
	s := NewStrategy(NewStatistics(1000, 1000))
	algo, err := s.Select(false)
	require.NoError(t, err)
	assert.Equal(t, BlockNestedLoop, algo)
	assert.False(t, s.Supports(HashBlock, false))
	assert.False(t, s.Supports(SortedMerge, true), "inputs are not sorted")
}

func TestStrategyUsesMergeForTinySortedInputs(t *testing.T) {
	stats := NewStatistics(2, 2)
	stats.LeftSorted, stats.RightSorted = true, true
	algo, err := NewStrategy(stats).Select(true)
	require.NoError(t, err)
	assert.Equal(t, SortedMerge, algo)
}

func TestStrategyWithoutReplayableRight(t *testing.T) {
	stats := NewStatistics(100_000, 10)
	stats.RightReplayable = false
	s := NewStrategy(stats)

	_, err := s.Select(true)
	assert.Error(t, err, "left needs several blocks and right cannot replay")

	stats = NewStatistics(10, 10)
	stats.RightReplayable = false
	algo, err := NewStrategy(stats).Select(false)
	require.NoError(t, err)
	assert.Equal(t, BlockNestedLoop, algo)
}

func TestNilStatisticsUseDefaults(t *testing.T) {
	s := NewStrategy(nil)
	assert.Equal(t, DefaultStatistics(), s.Statistics())
	assert.Equal(t, float64(DefaultHighCost), s.Cost(Auto))
}

func TestParseAlgorithm(t *testing.T) {
	for _, a := range []Algorithm{Auto, NestedLoop, BlockNestedLoop, HashBlock, SortedMerge} {
		got, err := ParseAlgorithm(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := ParseAlgorithm("HASH_BLOCK")
	require.NoError(t, err)
	assert.Equal(t, HashBlock, got)

	_, err = ParseAlgorithm("grace_hash")
	assert.Error(t, err)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "probing-right", ProbingRight.String())
	assert.True(t, AdvancingLeft.drivesLeft())
	assert.False(t, ScanningRight.drivesLeft())
}
