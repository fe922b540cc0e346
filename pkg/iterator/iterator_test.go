package iterator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexql/pkg/iterator"
	"dexql/pkg/iterator/itertest"
	"dexql/pkg/row"
)

func threeRows() [][]any {
	return [][]any{{int64(1), "a"}, {int64(2), "b"}, {int64(3), "c"}}
}

func TestRowsConformance(t *testing.T) {
	itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
		return iterator.Rows(threeRows())
	}, threeRows())
}

func TestEmptyRowsConformance(t *testing.T) {
	itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
		return iterator.Rows(nil)
	}, nil)
}

func TestPagedConformance(t *testing.T) {
	for _, pageSize := range []int{1, 2, 3, 10} {
		itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
			return pagedRows(threeRows(), pageSize, true)
		}, threeRows())
	}
}

func TestBatchSimulatingConformance(t *testing.T) {
	itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
		return itertest.NewBatchSimulating[row.Row](iterator.Rows(threeRows()), 2, 0, 0)
	}, threeRows())
}

// pagedRows serves cells page by page through a shared window.
func pagedRows(cells [][]any, pageSize int, replay bool) iterator.BatchIterator[row.Row] {
	return &windowed{Paged: iterator.NewPaged(iterator.SlicePages(cells, pageSize), replay), window: row.NewRowN()}
}

type windowed struct {
	*iterator.Paged[[]any]
	window *row.RowN
}

func (w *windowed) CurrentElement() row.Row { return w.window }

func (w *windowed) MoveNext() (bool, error) {
	ok, err := w.Paged.MoveNext()
	if ok {
		w.window.SetCells(w.Paged.CurrentElement())
	}
	return ok, err
}

func TestRowsSharesOneWindow(t *testing.T) {
	it := iterator.Rows(threeRows())
	require.True(t, mustMove[row.Row](t, it))
	first := it.CurrentElement()
	require.True(t, mustMove[row.Row](t, it))

	assert.Same(t, first, it.CurrentElement())
	assert.Equal(t, int64(2), first.Get(0), "retained row follows the cursor")
}

func TestRange(t *testing.T) {
	got, err := iterator.CollectRows(context.Background(), iterator.Range(3, 6))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(3)}, {int64(4)}, {int64(5)}}, got)

	got, err = iterator.CollectRows(context.Background(), iterator.Range(5, 5))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInMemoryStates(t *testing.T) {
	it := iterator.NewInMemory([]int{7})
	assert.Equal(t, iterator.Idle, it.State())

	require.True(t, mustMove[int](t, it))
	assert.Equal(t, iterator.Positioned, it.State())
	assert.Equal(t, 7, it.CurrentElement())

	assert.False(t, mustMove[int](t, it))
	assert.Equal(t, iterator.Exhausted, it.State())
	assert.Equal(t, 0, it.CurrentElement())

	assert.ErrorIs(t, it.LoadNextBatch(context.Background()), iterator.ErrAllLoaded)

	require.NoError(t, it.MoveToStart())
	assert.Equal(t, iterator.Idle, it.State())

	it.Kill(nil)
	assert.Equal(t, iterator.Killed, it.State())
	require.NoError(t, it.Close())
	assert.Equal(t, iterator.Killed, it.State(), "kill outranks close")
}

func TestPagedNeedsLoadBeforeFirstElement(t *testing.T) {
	it := iterator.NewPaged(iterator.SlicePages([]int{1, 2, 3}, 2), false)
	ctx := context.Background()

	assert.False(t, mustMove[int](t, it))
	assert.False(t, it.AllLoaded())

	require.NoError(t, it.LoadNextBatch(ctx))
	assert.True(t, mustMove[int](t, it))
	assert.True(t, mustMove[int](t, it))
	assert.False(t, mustMove[int](t, it))
	assert.False(t, it.AllLoaded())

	require.NoError(t, it.LoadNextBatch(ctx))
	assert.True(t, it.AllLoaded())
	assert.True(t, mustMove[int](t, it))
	assert.Equal(t, 3, it.CurrentElement())
	assert.False(t, mustMove[int](t, it))
	assert.Equal(t, iterator.Exhausted, it.State())

	assert.ErrorIs(t, it.LoadNextBatch(ctx), iterator.ErrAllLoaded)
	assert.ErrorIs(t, it.MoveToStart(), iterator.ErrReplayUnsupported)
}

func TestPagedReplayAfterPartialLoad(t *testing.T) {
	it := iterator.NewPaged(iterator.SlicePages([]int{1, 2, 3}, 1), true)
	ctx := context.Background()

	require.NoError(t, it.LoadNextBatch(ctx))
	require.True(t, mustMove[int](t, it))
	require.NoError(t, it.MoveToStart())

	got, err := iterator.Collect[int](ctx, it, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestPagedFetchErrorIsWrapped(t *testing.T) {
	boom := errors.New("disk unavailable")
	src := iterator.PageSourceFunc[int](func(context.Context, int) ([]int, bool, error) {
		return nil, false, boom
	})
	it := iterator.NewPaged[int](src, false)

	err := it.LoadNextBatch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetch page 0")
	assert.False(t, iterator.IsKilled(err))
}

// blockingSource parks in FetchPage until its context ends.
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSource) FetchPage(ctx context.Context, _ int) ([]int, bool, error) {
	close(s.entered)
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-s.release:
		return []int{1}, true, nil
	}
}

func TestLoadIsSingleFlight(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	it := iterator.NewPaged[int](src, false)

	first := iterator.LoadAsync[int](context.Background(), it)
	<-src.entered

	assert.ErrorIs(t, it.LoadNextBatch(context.Background()), iterator.ErrLoadInProgress)

	close(src.release)
	require.NoError(t, <-first)

	got, err := iterator.Collect[int](context.Background(), it, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestKillCancelsInFlightLoad(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	it := iterator.NewPaged[int](src, false)

	pending := iterator.LoadAsync[int](context.Background(), it)
	<-src.entered

	cause := errors.New("statement timeout")
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			it.Kill(cause)
		}()
	}
	wg.Wait()

	select {
	case err := <-pending:
		require.Error(t, err)
		assert.True(t, iterator.IsKilled(err))
		assert.ErrorIs(t, err, cause)
	case <-time.After(5 * time.Second):
		t.Fatal("kill did not cancel the outstanding load")
	}

	ok, err := it.MoveNext()
	assert.False(t, ok)
	assert.True(t, iterator.IsKilled(err))
}

func TestLoadHonoursCallerContext(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	it := iterator.NewPaged[int](src, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := it.LoadNextBatch(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, iterator.IsKilled(err))
}

func TestKilledError(t *testing.T) {
	assert.Same(t, iterator.ErrKilled, iterator.KilledError(nil))

	err := iterator.KilledError(context.Canceled)
	assert.True(t, iterator.IsKilled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, err, iterator.KilledError(err), "already marked errors are returned as is")
	assert.False(t, iterator.IsKilled(errors.New("other")))
}

func TestDriveStopsEarly(t *testing.T) {
	it := itertest.NewBatchSimulating[row.Row](iterator.Range(0, 10), 3, 0, time.Millisecond)
	n := 0
	err := iterator.Drive(context.Background(), it, func(row.Row) (bool, error) {
		n++
		return n < 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 1, it.Loads())
}

func TestBatchSimulatingMaxBatches(t *testing.T) {
	it := itertest.NewBatchSimulating[row.Row](iterator.Range(0, 10), 2, 2, 0)
	got, err := iterator.Count[row.Row](context.Background(), it)
	require.NoError(t, err)
	assert.Equal(t, 4, got, "two batches of two rows")
}

func TestFailingPropagates(t *testing.T) {
	boom := errors.New("boom")
	f := itertest.NewFailing[row.Row](iterator.Range(0, 3), boom)
	f.FailAfter = 2

	n, err := iterator.Count[row.Row](context.Background(), f)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, n)
}

func TestSliceIterator(t *testing.T) {
	it := iterator.NewSliceIterator([]string{"a", "b"})
	assert.Equal(t, 2, it.Remaining())

	v, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, it.CurrentIndex())

	it.Append("c")
	assert.Equal(t, 3, it.Len())
	it.Seek(10)
	assert.False(t, it.HasNext())
	_, err = it.Next()
	assert.ErrorIs(t, err, iterator.ErrExhausted)

	it.Rewind()
	assert.True(t, it.HasNext())
	it.Reset()
	assert.Equal(t, 0, it.Len())
}

func mustMove[T any](t *testing.T, it iterator.BatchIterator[T]) bool {
	t.Helper()
	ok, err := it.MoveNext()
	require.NoError(t, err)
	return ok
}
