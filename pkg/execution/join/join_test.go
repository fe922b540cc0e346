package join_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexql/pkg/execution/join"
	"dexql/pkg/iterator"
	"dexql/pkg/iterator/itertest"
	"dexql/pkg/memory"
	"dexql/pkg/row"
	"dexql/pkg/types"
)

func ints(values ...any) [][]any {
	out := make([][]any, len(values))
	for i, v := range values {
		out[i] = []any{v}
	}
	return out
}

func keyOnFirst() *join.Equi {
	return &join.Equi{
		LeftColumns:  []int{0},
		RightColumns: []int{0},
		Types:        []types.DataType{types.Long},
		LeftWidth:    1,
	}
}

func collect(t *testing.T, it iterator.BatchIterator[row.Row]) [][]any {
	t.Helper()
	got, err := iterator.CollectRows(context.Background(), it)
	require.NoError(t, err)
	return got
}

func build(t *testing.T, algo join.Algorithm, left, right iterator.BatchIterator[row.Row], cond join.RowCondition, opts join.BlockOptions[row.Row]) join.RowJoin {
	t.Helper()
	j, err := join.NewRows(algo, left, right, cond, opts)
	require.NoError(t, err)
	return j
}

func TestNestedLoopEmitsOnlyMatchingPairs(t *testing.T) {
	left := iterator.Rows(ints(int64(1), int64(2)))
	right := iterator.Rows(ints(int64(1), int64(3)))
	j := build(t, join.NestedLoop, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})

	assert.Equal(t, [][]any{{int64(1), int64(1)}}, collect(t, j))
	assert.Equal(t, join.NestedLoop, j.Algorithm())
}

func TestCrossJoinIsLeftMajor(t *testing.T) {
	left := iterator.Rows(ints("a", "b"))
	right := iterator.Rows(ints(int64(1), int64(2)))
	j := build(t, join.NestedLoop, left, right, join.RowCondition{}, join.BlockOptions[row.Row]{})

	assert.Equal(t, [][]any{
		{"a", int64(1)}, {"a", int64(2)},
		{"b", int64(1)}, {"b", int64(2)},
	}, collect(t, j))
}

func TestSortedMergeEmitsDuplicates(t *testing.T) {
	left := iterator.Rows(ints(int64(1), int64(2), int64(4)))
	right := iterator.Rows(ints(int64(1), int64(1), int64(2), int64(3)))
	j := build(t, join.SortedMerge, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})

	assert.Equal(t, [][]any{
		{int64(1), int64(1)},
		{int64(1), int64(1)},
		{int64(2), int64(2)},
	}, collect(t, j))
}

func TestSortedMergeDuplicateLeftAfterRightExhausted(t *testing.T) {
	left := iterator.Rows(ints(int64(1), int64(1), int64(1)))
	right := iterator.Rows(ints(int64(1)))
	j := build(t, join.SortedMerge, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})

	assert.Len(t, collect(t, j), 3, "every left duplicate meets the right row")
}

func TestSortedMergeNullKeysNeverMatch(t *testing.T) {
	left := iterator.Rows(ints(nil, int64(1)))
	right := iterator.Rows(ints(nil, int64(1)))
	j := build(t, join.SortedMerge, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})

	assert.Equal(t, [][]any{{int64(1), int64(1)}}, collect(t, j))
}

func TestHashBlockDuplicatesAndNulls(t *testing.T) {
	left := iterator.Rows([][]any{
		{int64(1), "l1"}, {int64(1), "l2"}, {int64(2), "l3"}, {nil, "l4"},
	})
	right := iterator.Rows(ints(int64(1), int64(2), int64(2), nil, int64(3)))
	cond := join.RowCondition{Equi: &join.Equi{
		LeftColumns: []int{0}, RightColumns: []int{0},
		Types: []types.DataType{types.Long}, LeftWidth: 2,
	}}
	j := build(t, join.HashBlock, left, right, cond, join.BlockOptions[row.Row]{})

	assert.Equal(t, [][]any{
		{int64(1), "l1", int64(1)},
		{int64(1), "l2", int64(1)},
		{int64(2), "l3", int64(2)},
		{int64(2), "l3", int64(2)},
	}, collect(t, j))
}

func TestHashBlockNormalizesKeyTypes(t *testing.T) {
	left := iterator.Rows(ints(int32(7), int8(8)))
	right := iterator.Rows(ints("7", 8.0, int64(9)))
	j := build(t, join.HashBlock, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})

	assert.Equal(t, [][]any{{int32(7), "7"}, {int8(8), 8.0}}, collect(t, j))
}

func TestHashBlockResidual(t *testing.T) {
	left := iterator.Rows([][]any{{int64(1), int64(10)}, {int64(1), int64(20)}})
	right := iterator.Rows([][]any{{int64(1), int64(15)}})
	cond := join.RowCondition{
		Equi: &join.Equi{LeftColumns: []int{0}, RightColumns: []int{0}, Types: []types.DataType{types.Long}, LeftWidth: 2},
		Residual: func(r row.Row) (bool, error) {
			return r.Get(1).(int64) < r.Get(3).(int64), nil
		},
	}
	j := build(t, join.HashBlock, left, right, cond, join.BlockOptions[row.Row]{})

	assert.Equal(t, [][]any{{int64(1), int64(10), int64(1), int64(15)}}, collect(t, j))
}

func TestAllAlgorithmsAgreeOnEquiJoin(t *testing.T) {
	leftCells := ints(int64(1), int64(2), int64(2), int64(3), int64(5))
	rightCells := ints(int64(2), int64(3), int64(3), int64(4), int64(5))
	var reference [][]any
	for i, algo := range []join.Algorithm{join.NestedLoop, join.BlockNestedLoop, join.HashBlock, join.SortedMerge} {
		j := build(t, algo, iterator.Rows(leftCells), iterator.Rows(rightCells),
			join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})
		got := collect(t, j)
		if i == 0 {
			reference = got
			require.Len(t, reference, 5)
			continue
		}
		assert.ElementsMatch(t, reference, got, algo.String())
	}
}

func TestBlockNestedLoopBlockMode(t *testing.T) {
	leftCells := ints(int64(1), int64(2), int64(3), int64(4), int64(5))
	rightCells := ints("x", "y", "z")
	blockBytes := int64(2 * memory.RowSize(row.Materialized{int64(1)}))

	j := join.NewBlockNestedLoop[row.Row, row.Row, row.Row](
		iterator.Rows(leftCells), iterator.Rows(rightCells), join.NewCombinedRow(), nil,
		join.BlockOptions[row.Row]{Accounting: memory.NewAccountant(blockBytes)})

	got := collect(t, j)
	assert.Len(t, got, 15)
	assert.Equal(t, 3, j.Blocks())
	assert.Equal(t, []any{int64(1), "x"}, got[0])
	assert.Equal(t, []any{int64(2), "x"}, got[1], "right-major within a block")
	assert.Equal(t, []any{int64(5), "z"}, got[14])
}

// rewindCounting counts MoveToStart calls on its delegate.
type rewindCounting struct {
	iterator.BatchIterator[row.Row]
	rewinds int
}

func (r *rewindCounting) MoveToStart() error {
	r.rewinds++
	return r.BatchIterator.MoveToStart()
}

func TestBlockNestedLoopReplayKeepsSingleBlock(t *testing.T) {
	left := &rewindCounting{BatchIterator: iterator.Rows(ints(int64(1), int64(2)))}
	right := &rewindCounting{BatchIterator: iterator.Rows(ints(int64(2)))}
	j := build(t, join.BlockNestedLoop, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})

	first := collect(t, j)
	require.NoError(t, j.MoveToStart())
	assert.Equal(t, first, collect(t, j))
	assert.Equal(t, 0, left.rewinds, "buffered left side is reused")
	assert.Equal(t, 1, right.rewinds)
}

func TestJoinsConformance(t *testing.T) {
	leftCells := ints(int64(1), int64(2), int64(3))
	rightCells := ints(int64(2), int64(3), int64(4))
	expected := [][]any{{int64(2), int64(2)}, {int64(3), int64(3)}}

	for _, algo := range []join.Algorithm{join.NestedLoop, join.BlockNestedLoop, join.HashBlock, join.SortedMerge} {
		t.Run(algo.String(), func(t *testing.T) {
			itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
				return build(t, algo, iterator.Rows(leftCells), iterator.Rows(rightCells),
					join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})
			}, expected)
		})
		t.Run(algo.String()+"/batched", func(t *testing.T) {
			itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
				left := itertest.NewBatchSimulating[row.Row](iterator.Rows(leftCells), 1, 0, 0)
				right := itertest.NewBatchSimulating[row.Row](iterator.Rows(rightCells), 2, 0, 0)
				return build(t, algo, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})
			}, expected)
		})
	}
}

func TestEmptyInputs(t *testing.T) {
	for _, algo := range []join.Algorithm{join.NestedLoop, join.BlockNestedLoop, join.HashBlock, join.SortedMerge} {
		j := build(t, algo, iterator.Rows(nil), iterator.Rows(ints(int64(1))),
			join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})
		assert.Empty(t, collect(t, j), algo.String())

		j = build(t, algo, iterator.Rows(ints(int64(1))), iterator.Rows(nil),
			join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})
		assert.Empty(t, collect(t, j), algo.String())
	}
}

func TestChildFailureKillsBothChildren(t *testing.T) {
	boom := errors.New("page checksum mismatch")
	for _, algo := range []join.Algorithm{join.NestedLoop, join.BlockNestedLoop, join.HashBlock, join.SortedMerge} {
		t.Run(algo.String(), func(t *testing.T) {
			left := itertest.NewFailing[row.Row](iterator.Rows(ints(int64(1), int64(2))), nil)
			right := itertest.NewFailing[row.Row](iterator.Rows(ints(int64(1), int64(2))), boom)
			right.FailAfter = 1
			j := build(t, algo, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})

			_, err := iterator.CollectRows(context.Background(), j)
			require.ErrorIs(t, err, boom)
			assert.False(t, iterator.IsKilled(err))
			assert.Equal(t, 1, left.KillCount())
			assert.Equal(t, 1, right.KillCount())

			_, err = j.MoveNext()
			assert.ErrorIs(t, err, boom, "failure is sticky")
		})
	}
}

func TestPredicateErrorKillsBothChildren(t *testing.T) {
	boom := errors.New("division by zero")
	left := itertest.NewFailing[row.Row](iterator.Rows(ints(int64(1))), nil)
	right := itertest.NewFailing[row.Row](iterator.Rows(ints(int64(1))), nil)
	cond := join.RowCondition{Residual: func(row.Row) (bool, error) { return false, boom }}
	j := build(t, join.BlockNestedLoop, left, right, cond, join.BlockOptions[row.Row]{})

	_, err := j.MoveNext()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, left.KillCount())
	assert.Equal(t, 1, right.KillCount())
}

func TestKillPropagatesOnce(t *testing.T) {
	left := itertest.NewFailing[row.Row](iterator.Rows(ints(int64(1))), nil)
	right := itertest.NewFailing[row.Row](iterator.Rows(ints(int64(1))), nil)
	j := build(t, join.HashBlock, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})

	cause := errors.New("cancelled by user")
	j.Kill(cause)
	j.Kill(cause)
	assert.Equal(t, 1, left.KillCount())
	assert.Equal(t, 1, right.KillCount())

	_, err := j.MoveNext()
	assert.True(t, iterator.IsKilled(err))
	assert.ErrorIs(t, err, cause)

	require.NoError(t, j.Close())
	assert.Equal(t, 1, left.CloseCount())
	assert.Equal(t, 1, right.CloseCount())
}

func TestPhaseTracksActiveChild(t *testing.T) {
	left := itertest.NewBatchSimulating[row.Row](iterator.Rows(ints(int64(1), int64(2))), 1, 0, 0)
	right := iterator.Rows(ints(int64(1)))
	j := build(t, join.HashBlock, left, right, join.RowCondition{Equi: keyOnFirst()}, join.BlockOptions[row.Row]{})

	ok, err := j.MoveNext()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, join.DrainingLeft, j.Phase())
	assert.False(t, j.AllLoaded(), "left still has batches")

	require.NoError(t, j.LoadNextBatch(context.Background()))
	assert.Equal(t, 1, left.Loads())
}

func TestNewRowsRejectsMissingKeys(t *testing.T) {
	_, err := join.NewRows(join.HashBlock, iterator.Rows(nil), iterator.Rows(nil), join.RowCondition{}, join.BlockOptions[row.Row]{})
	assert.Error(t, err)
	_, err = join.NewRows(join.SortedMerge, iterator.Rows(nil), iterator.Rows(nil), join.RowCondition{}, join.BlockOptions[row.Row]{})
	assert.Error(t, err)
	_, err = join.NewRows(join.Auto, iterator.Rows(nil), iterator.Rows(nil), join.RowCondition{}, join.BlockOptions[row.Row]{})
	assert.Error(t, err)

	bad := &join.Equi{LeftColumns: []int{0}, RightColumns: []int{0, 1}, Types: []types.DataType{types.Long}}
	_, err = join.NewRows(join.NestedLoop, iterator.Rows(nil), iterator.Rows(nil), join.RowCondition{Equi: bad}, join.BlockOptions[row.Row]{})
	assert.Error(t, err)
}
