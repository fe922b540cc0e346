package iterator

import (
	"context"

	"dexql/pkg/row"
)

// InMemory iterates a slice that is fully loaded from the start. It
// supports MoveToStart.
type InMemory[T any] struct {
	lc      Lifecycle
	cursor  *SliceIterator[T]
	current T
	state   State
}

func NewInMemory[T any](items []T) *InMemory[T] {
	return &InMemory[T]{cursor: NewSliceIterator(items)}
}

func (it *InMemory[T]) CurrentElement() T { return it.current }

func (it *InMemory[T]) MoveNext() (bool, error) {
	if err := it.lc.Check(); err != nil {
		return false, err
	}
	if !it.cursor.HasNext() {
		var zero T
		it.current = zero
		it.state = Exhausted
		return false, nil
	}
	it.current, _ = it.cursor.Next()
	it.state = Positioned
	return true, nil
}

func (it *InMemory[T]) MoveToStart() error {
	if err := it.lc.Check(); err != nil {
		return err
	}
	var zero T
	it.current = zero
	it.cursor.Rewind()
	it.state = Idle
	return nil
}

func (it *InMemory[T]) LoadNextBatch(context.Context) error {
	if err := it.lc.Check(); err != nil {
		return err
	}
	return ErrAllLoaded
}

func (it *InMemory[T]) AllLoaded() bool { return true }

func (it *InMemory[T]) Close() error {
	it.lc.MarkClosed()
	return nil
}

func (it *InMemory[T]) Kill(cause error) { it.lc.Kill(cause) }

func (it *InMemory[T]) State() State { return it.lc.State(it.state) }

// RowsIterator exposes [][]any through one shared row.RowN window.
type RowsIterator struct {
	*InMemory[[]any]
	window *row.RowN
}

// Rows returns a replayable row iterator over cells. Each element is the
// same *row.RowN re-pointed at the next tuple.
func Rows(cells [][]any) *RowsIterator {
	return &RowsIterator{
		InMemory: NewInMemory(cells),
		window:   row.NewRowN(),
	}
}

// Range yields single-column rows with values from..to-1 as int64.
func Range(from, to int64) *RowsIterator {
	cells := make([][]any, 0, max(0, to-from))
	for i := from; i < to; i++ {
		cells = append(cells, []any{i})
	}
	return Rows(cells)
}

func (it *RowsIterator) CurrentElement() row.Row { return it.window }

func (it *RowsIterator) MoveNext() (bool, error) {
	ok, err := it.InMemory.MoveNext()
	if ok {
		it.window.SetCells(it.InMemory.CurrentElement())
	}
	return ok, err
}
