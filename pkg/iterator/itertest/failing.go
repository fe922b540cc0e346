package itertest

import (
	"context"
	"sync/atomic"

	"dexql/pkg/iterator"
)

// Failing wraps an iterator and injects Err. With FailAfter >= 0, MoveNext
// fails once FailAfter elements were produced; with FailOnLoad > 0 the
// FailOnLoad-th LoadNextBatch fails.
type Failing[T any] struct {
	iterator.BatchIterator[T]

	Err        error
	FailAfter  int
	FailOnLoad int

	produced int
	loads    int
	kills    atomic.Int32
	closes   atomic.Int32
}

// NewFailing disables both triggers; set the fields that should fire.
func NewFailing[T any](delegate iterator.BatchIterator[T], err error) *Failing[T] {
	return &Failing[T]{BatchIterator: delegate, Err: err, FailAfter: -1}
}

func (f *Failing[T]) MoveNext() (bool, error) {
	if f.FailAfter >= 0 && f.produced >= f.FailAfter {
		return false, f.Err
	}
	ok, err := f.BatchIterator.MoveNext()
	if ok {
		f.produced++
	}
	return ok, err
}

func (f *Failing[T]) LoadNextBatch(ctx context.Context) error {
	f.loads++
	if f.FailOnLoad > 0 && f.loads == f.FailOnLoad {
		return f.Err
	}
	return f.BatchIterator.LoadNextBatch(ctx)
}

func (f *Failing[T]) Kill(cause error) {
	f.kills.Add(1)
	f.BatchIterator.Kill(cause)
}

func (f *Failing[T]) Close() error {
	f.closes.Add(1)
	return f.BatchIterator.Close()
}

// KillCount returns how often Kill reached this wrapper.
func (f *Failing[T]) KillCount() int { return int(f.kills.Load()) }

// CloseCount returns how often Close reached this wrapper.
func (f *Failing[T]) CloseCount() int { return int(f.closes.Load()) }
