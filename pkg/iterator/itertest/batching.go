// Package itertest provides wrappers that make fully loaded iterators behave
// like batched, slow or failing sources, and a conformance check that every
// BatchIterator implementation should pass.
package itertest

import (
	"context"
	"time"

	"dexql/pkg/iterator"
)

// BatchSimulating exposes a fully loaded delegate in batches of BatchSize
// elements. Between batches MoveNext returns false and AllLoaded is false
// until the caller loads the next batch.
type BatchSimulating[T any] struct {
	lc         iterator.Lifecycle
	delegate   iterator.BatchIterator[T]
	batchSize  int
	maxBatches int
	delay      time.Duration

	batch         int
	inBatch       int
	delegateEmpty bool
	loads         int
}

// NewBatchSimulating splits delegate into batches. maxBatches <= 0 means
// as many as the data needs; delay makes every load wait that long.
func NewBatchSimulating[T any](delegate iterator.BatchIterator[T], batchSize, maxBatches int, delay time.Duration) *BatchSimulating[T] {
	return &BatchSimulating[T]{
		delegate:   delegate,
		batchSize:  max(1, batchSize),
		maxBatches: maxBatches,
		delay:      delay,
	}
}

func (b *BatchSimulating[T]) CurrentElement() T { return b.delegate.CurrentElement() }

func (b *BatchSimulating[T]) MoveNext() (bool, error) {
	if err := b.lc.Check(); err != nil {
		return false, err
	}
	if b.inBatch >= b.batchSize {
		return false, nil
	}
	ok, err := b.delegate.MoveNext()
	if err != nil {
		return false, err
	}
	if !ok {
		b.delegateEmpty = true
		return false, nil
	}
	b.inBatch++
	return true, nil
}

func (b *BatchSimulating[T]) MoveToStart() error {
	if err := b.lc.Check(); err != nil {
		return err
	}
	if err := b.delegate.MoveToStart(); err != nil {
		return err
	}
	b.batch, b.inBatch, b.delegateEmpty = 0, 0, false
	return nil
}

func (b *BatchSimulating[T]) LoadNextBatch(ctx context.Context) error {
	if b.AllLoaded() {
		if err := b.lc.Check(); err != nil {
			return err
		}
		return iterator.ErrAllLoaded
	}
	loadCtx, done, err := b.lc.BeginLoad(ctx)
	if err != nil {
		return err
	}
	defer done()

	b.loads++
	if b.delay > 0 {
		timer := time.NewTimer(b.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-loadCtx.Done():
			return b.lc.LoadError(loadCtx.Err())
		}
	}
	b.batch++
	b.inBatch = 0
	return nil
}

func (b *BatchSimulating[T]) AllLoaded() bool {
	if b.delegateEmpty {
		return true
	}
	return b.maxBatches > 0 && b.batch >= b.maxBatches-1
}

func (b *BatchSimulating[T]) Close() error {
	if b.lc.MarkClosed() {
		return b.delegate.Close()
	}
	return nil
}

func (b *BatchSimulating[T]) Kill(cause error) {
	b.lc.Kill(cause)
	b.delegate.Kill(cause)
}

// Loads returns how many batch loads were started.
func (b *BatchSimulating[T]) Loads() int { return b.loads }
