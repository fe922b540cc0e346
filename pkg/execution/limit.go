package execution

import (
	"context"

	"github.com/cockroachdb/errors"

	"dexql/pkg/iterator"
)

// NoLimit disables the row limit of a Limit operator.
const NoLimit int64 = -1

// Limit skips the first offset elements of its child and then passes at
// most limit elements. Once the limit is reached it reports AllLoaded so
// consumers stop loading batches.
type Limit[T any] struct {
	iterator.Forwarding[T]
	lc      iterator.Lifecycle
	limit   int64
	offset  int64
	skipped int64
	emitted int64
}

func NewLimit[T any](child iterator.BatchIterator[T], limit, offset int64) (*Limit[T], error) {
	if child == nil {
		return nil, errors.New("limit needs a child iterator")
	}
	if limit < NoLimit {
		return nil, errors.Newf("limit must not be negative, got %d", limit)
	}
	if offset < 0 {
		return nil, errors.Newf("offset must not be negative, got %d", offset)
	}
	return &Limit[T]{Forwarding: iterator.Forwarding[T]{Child: child}, limit: limit, offset: offset}, nil
}

func (l *Limit[T]) CurrentElement() T { return l.Child.CurrentElement() }

func (l *Limit[T]) reached() bool { return l.limit != NoLimit && l.emitted >= l.limit }

func (l *Limit[T]) MoveNext() (bool, error) {
	if err := l.lc.Check(); err != nil {
		return false, err
	}
	if l.reached() {
		return false, nil
	}
	for l.skipped < l.offset {
		ok, err := l.Child.MoveNext()
		if err != nil || !ok {
			return false, err
		}
		l.skipped++
	}
	ok, err := l.Child.MoveNext()
	if err != nil || !ok {
		return false, err
	}
	l.emitted++
	return true, nil
}

func (l *Limit[T]) MoveToStart() error {
	if err := l.lc.Check(); err != nil {
		return err
	}
	if err := l.Child.MoveToStart(); err != nil {
		return err
	}
	l.skipped, l.emitted = 0, 0
	return nil
}

func (l *Limit[T]) LoadNextBatch(ctx context.Context) error {
	if err := l.lc.Check(); err != nil {
		return err
	}
	if l.reached() {
		return iterator.ErrAllLoaded
	}
	return l.Child.LoadNextBatch(ctx)
}

func (l *Limit[T]) AllLoaded() bool { return l.reached() || l.Child.AllLoaded() }

func (l *Limit[T]) Close() error {
	if !l.lc.MarkClosed() {
		return nil
	}
	return l.Child.Close()
}

func (l *Limit[T]) Kill(cause error) {
	if l.lc.Kill(cause) {
		l.Child.Kill(cause)
	}
}
