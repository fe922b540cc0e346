package itertest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexql/pkg/iterator"
	"dexql/pkg/row"
)

// Factory builds a fresh iterator for each check.
type Factory func() iterator.BatchIterator[row.Row]

// Verify runs the standard BatchIterator checks against iterators built by
// newIt: the produced rows, replay through MoveToStart when supported,
// repeated exhaustion, close and kill idempotence, and fail-fast after kill.
func Verify(t *testing.T, newIt Factory, expected [][]any) {
	t.Helper()
	ctx := context.Background()

	t.Run("collects expected rows", func(t *testing.T) {
		it := newIt()
		defer it.Close()

		got, err := iterator.CollectRows(ctx, it)
		require.NoError(t, err)
		assertRows(t, expected, got)

		ok, err := it.MoveNext()
		require.NoError(t, err)
		assert.False(t, ok, "exhausted iterator stays exhausted")
		assert.True(t, it.AllLoaded())
	})

	t.Run("moveToStart replays", func(t *testing.T) {
		it := newIt()
		defer it.Close()

		_, err := iterator.CollectRows(ctx, it)
		require.NoError(t, err)

		if err := it.MoveToStart(); errors.Is(err, iterator.ErrReplayUnsupported) {
			t.Skip("iterator does not support replay")
		} else {
			require.NoError(t, err)
		}
		again, err := iterator.CollectRows(ctx, it)
		require.NoError(t, err)
		assertRows(t, expected, again)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		it := newIt()
		_, err := iterator.CollectRows(ctx, it)
		require.NoError(t, err)

		assert.NoError(t, it.Close())
		assert.NoError(t, it.Close())

		ok, err := it.MoveNext()
		assert.False(t, ok)
		assert.Error(t, err)
	})

	t.Run("kill fails fast", func(t *testing.T) {
		it := newIt()
		defer it.Close()

		cause := errors.New("client went away")
		it.Kill(cause)
		it.Kill(errors.New("second cause is ignored"))

		for range 3 {
			ok, err := it.MoveNext()
			assert.False(t, ok)
			require.Error(t, err)
			assert.True(t, iterator.IsKilled(err), "got %v", err)
		}
		if !it.AllLoaded() {
			err := it.LoadNextBatch(ctx)
			assert.True(t, iterator.IsKilled(err), "got %v", err)
		}
		assert.NoError(t, it.Close())
	})

	t.Run("kill mid iteration", func(t *testing.T) {
		if len(expected) == 0 {
			t.Skip("no rows")
		}
		it := newIt()
		defer it.Close()

		seen := 0
		err := iterator.Drive(ctx, it, func(row.Row) (bool, error) {
			seen++
			if seen == 1 {
				it.Kill(nil)
			}
			return true, nil
		})
		require.Error(t, err)
		assert.True(t, iterator.IsKilled(err))
		assert.Equal(t, 1, seen)
	})
}

func assertRows(t *testing.T, expected, got [][]any) {
	t.Helper()
	if len(expected) == 0 {
		assert.Empty(t, got)
		return
	}
	assert.Equal(t, expected, got)
}
