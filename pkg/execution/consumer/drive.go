package consumer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"dexql/pkg/iterator"
	"dexql/pkg/row"
)

// DriveOption configures Drive.
type DriveOption func(*emitter)

// WithLoadTimeout kills the pipeline when a single batch load takes longer
// than d. Zero disables the deadline.
func WithLoadTimeout(d time.Duration) DriveOption {
	return func(e *emitter) { e.loadTimeout = d }
}

// Drive emits the rows of it into receiver on the calling goroutine until
// the receiver pauses, the rows run out, or an error occurs. It returns the
// error that ended the emission, if any.
//
// Kills, context cancellation and load timeouts reach the receiver through
// Kill; every other error through Fail. In both cases the iterator is killed
// and closed. After Finish returns the iterator is closed.
func Drive(ctx context.Context, it iterator.BatchIterator[row.Row], receiver RowReceiver, opts ...DriveOption) error {
	e := &emitter{ctx: ctx, it: it, receiver: receiver}
	for _, opt := range opts {
		opt(e)
	}
	return e.run()
}

type emitter struct {
	ctx         context.Context
	it          iterator.BatchIterator[row.Row]
	receiver    RowReceiver
	loadTimeout time.Duration

	finished atomic.Bool
	inFinish atomic.Bool
	repeats  atomic.Int32

	mu  sync.Mutex
	err error // outcome of the latest leg; Resume may run on another goroutine
}

func (e *emitter) outcome() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *emitter) setOutcome(err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
	return err
}

func (e *emitter) run() error {
	for {
		ok, err := e.it.MoveNext()
		if err != nil {
			return e.terminate(err)
		}
		if ok {
			switch e.receiver.SetNextRow(e.it.CurrentElement()) {
			case Continue:
				continue
			case Pause:
				e.receiver.PauseProcessed(e)
				return e.outcome()
			case Stop:
				return e.finish()
			}
			continue
		}
		if e.it.AllLoaded() {
			return e.finish()
		}
		if err := e.load(); err != nil {
			return e.terminate(err)
		}
	}
}

func (e *emitter) load() error {
	if err := e.ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := e.ctx, context.CancelFunc(func() {})
	if e.loadTimeout > 0 {
		ctx, cancel = context.WithTimeout(e.ctx, e.loadTimeout)
	}
	defer cancel()

	err := e.it.LoadNextBatch(ctx)
	if err != nil && e.loadTimeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) && e.ctx.Err() == nil {
		return errors.Wrapf(err, "batch load exceeded %s", e.loadTimeout)
	}
	return err
}

func (e *emitter) finish() error {
	if !e.finished.CompareAndSwap(false, true) {
		return errors.AssertionFailedf("emission finished twice")
	}
	leg := e.repeats.Load()
	e.inFinish.Store(true)
	e.receiver.Finish(e)
	e.inFinish.Store(false)
	if e.repeats.Load() != leg {
		// the repeated leg has already released the iterator
		return e.outcome()
	}
	if err := e.outcome(); err != nil {
		return err
	}
	return e.setOutcome(e.it.Close())
}

// terminate routes err to Kill or Fail and releases the iterator.
func (e *emitter) terminate(err error) error {
	kill := iterator.IsKilled(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
	if kill {
		err = iterator.KilledError(err)
	}
	e.it.Kill(err)
	if closeErr := e.it.Close(); closeErr != nil {
		err = errors.CombineErrors(err, closeErr)
	}
	e.setOutcome(err)
	if kill {
		e.receiver.Kill(err)
	} else {
		e.receiver.Fail(err)
	}
	return err
}

// Resume continues after a pause.
func (e *emitter) Resume() {
	e.setOutcome(e.run())
}

// Repeat rewinds the iterator and emits every row again.
func (e *emitter) Repeat() error {
	if !e.inFinish.Load() || !e.finished.CompareAndSwap(true, false) {
		return errors.AssertionFailedf("repeat requested outside of Finish")
	}
	if err := e.it.MoveToStart(); err != nil {
		e.finished.Store(true)
		return errors.Wrap(err, "repeat emission")
	}
	e.inFinish.Store(false)
	e.repeats.Add(1)
	return e.setOutcome(e.run())
}
