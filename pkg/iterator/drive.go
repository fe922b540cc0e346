package iterator

import (
	"context"

	"dexql/pkg/row"
)

// Drive pulls every element of it, loading batches as needed, and hands each
// to fn. fn returns false to stop early. Drive does not close the iterator.
func Drive[T any](ctx context.Context, it BatchIterator[T], fn func(T) (bool, error)) error {
	for {
		ok, err := it.MoveNext()
		if err != nil {
			return err
		}
		if ok {
			more, err := fn(it.CurrentElement())
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
			continue
		}
		if it.AllLoaded() {
			return nil
		}
		if err := it.LoadNextBatch(ctx); err != nil {
			return err
		}
	}
}

// Collect drains it into a slice. clone copies shared elements; pass nil
// when elements are values.
func Collect[T any](ctx context.Context, it BatchIterator[T], clone func(T) T) ([]T, error) {
	var out []T
	err := Drive(ctx, it, func(e T) (bool, error) {
		if clone != nil {
			e = clone(e)
		}
		out = append(out, e)
		return true, nil
	})
	return out, err
}

// CollectRows drains a row iterator, materializing each row.
func CollectRows(ctx context.Context, it BatchIterator[row.Row]) ([][]any, error) {
	var out [][]any
	err := Drive(ctx, it, func(r row.Row) (bool, error) {
		out = append(out, r.Materialize())
		return true, nil
	})
	return out, err
}

// Count drains it and returns the number of elements.
func Count[T any](ctx context.Context, it BatchIterator[T]) (int, error) {
	n := 0
	err := Drive(ctx, it, func(T) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}
