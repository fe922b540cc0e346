package iterator

import (
	"context"

	"github.com/cockroachdb/errors"
)

// BatchIterator is a pull cursor over a source that is filled batch by batch.
//
// The driving loop is:
//
//	for {
//	    ok, err := it.MoveNext()
//	    if err != nil {
//	        return err
//	    }
//	    if ok {
//	        consume(it.CurrentElement())
//	        continue
//	    }
//	    if it.AllLoaded() {
//	        return nil
//	    }
//	    if err := it.LoadNextBatch(ctx); err != nil {
//	        return err
//	    }
//	}
//
// An iterator belongs to the single pipeline stage that drives it. Only Kill
// may be called from another goroutine.
type BatchIterator[T any] interface {
	// CurrentElement is valid between a MoveNext that returned true and the
	// next call to MoveNext or MoveToStart. Elements may be shared views.
	CurrentElement() T

	// MoveToStart rewinds so the elements are produced again. Sources that
	// cannot replay return ErrReplayUnsupported.
	MoveToStart() error

	// MoveNext advances to the next buffered element. It returns false when
	// the buffered batch is used up; more data may follow a LoadNextBatch
	// unless AllLoaded reports true.
	MoveNext() (bool, error)

	// LoadNextBatch blocks until another batch is buffered or the source is
	// drained. At most one call may be outstanding per iterator; a second
	// concurrent call fails with ErrLoadInProgress.
	LoadNextBatch(ctx context.Context) error

	// AllLoaded reports whether the source has no further batches.
	AllLoaded() bool

	// Close releases resources. It is idempotent.
	Close() error

	// Kill cancels the iterator and any in-flight load. It is idempotent and
	// safe to call concurrently; the first cause wins.
	Kill(cause error)
}

var (
	// ErrKilled marks every error produced after Kill. Test with errors.Is.
	ErrKilled = errors.New("batch iterator killed")

	ErrClosed            = errors.New("batch iterator is closed")
	ErrLoadInProgress    = errors.New("a batch load is already in progress")
	ErrAllLoaded         = errors.New("all batches are already loaded")
	ErrReplayUnsupported = errors.New("batch iterator does not support moveToStart")
)

// KilledError turns a kill cause into an error marked with ErrKilled. The
// cause stays in the chain.
func KilledError(cause error) error {
	if cause == nil {
		return ErrKilled
	}
	if errors.Is(cause, ErrKilled) {
		return cause
	}
	return errors.Mark(errors.Wrap(cause, "batch iterator killed"), ErrKilled)
}

// IsKilled reports whether err is a kill outcome rather than a failure.
func IsKilled(err error) bool {
	return errors.Is(err, ErrKilled)
}

// LoadAsync runs LoadNextBatch in its own goroutine. The returned channel
// receives exactly one value.
func LoadAsync[T any](ctx context.Context, it BatchIterator[T]) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- it.LoadNextBatch(ctx)
	}()
	return done
}
