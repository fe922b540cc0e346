package iterator

import "context"

// Forwarding delegates lifecycle and batch loading to a child. Operators
// that transform a single input embed it and implement CurrentElement and
// MoveNext themselves.
type Forwarding[T any] struct {
	Child BatchIterator[T]
}

func (f *Forwarding[T]) MoveToStart() error {
	return f.Child.MoveToStart()
}

func (f *Forwarding[T]) LoadNextBatch(ctx context.Context) error {
	return f.Child.LoadNextBatch(ctx)
}

func (f *Forwarding[T]) AllLoaded() bool { return f.Child.AllLoaded() }

func (f *Forwarding[T]) Close() error { return f.Child.Close() }

func (f *Forwarding[T]) Kill(cause error) { f.Child.Kill(cause) }
