package iterator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// State is the observable lifecycle position of an iterator.
type State int32

const (
	Idle State = iota
	Positioned
	Exhausted
	Closed
	Killed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Positioned:
		return "positioned"
	case Exhausted:
		return "exhausted"
	case Closed:
		return "closed"
	case Killed:
		return "killed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Lifecycle holds the terminal states and the single-flight load guard that
// every iterator needs. The zero value is ready to use. Kill may race with
// every other method; the rest are called by the driving goroutine.
type Lifecycle struct {
	mu         sync.Mutex
	killErr    error
	closed     bool
	cancelLoad context.CancelFunc
	loading    atomic.Bool
}

// Kill records the first cause and cancels an in-flight load. It reports
// whether this call performed the kill.
func (l *Lifecycle) Kill(cause error) bool {
	l.mu.Lock()
	if l.killErr != nil {
		l.mu.Unlock()
		return false
	}
	l.killErr = KilledError(cause)
	cancel := l.cancelLoad
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

// Killed returns the kill error, or nil.
func (l *Lifecycle) Killed() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.killErr
}

// MarkClosed reports whether this call performed the close.
func (l *Lifecycle) MarkClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.closed = true
	return true
}

// Check returns the error any operation must fail with once the iterator
// is killed or closed. Kill takes precedence.
func (l *Lifecycle) Check() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkLocked()
}

// Loading reports whether a load is outstanding.
func (l *Lifecycle) Loading() bool {
	return l.loading.Load()
}

// BeginLoad claims the single load slot. The returned context is cancelled
// by Kill; done must be called when the load finishes.
func (l *Lifecycle) BeginLoad(ctx context.Context) (loadCtx context.Context, done func(), err error) {
	if !l.loading.CompareAndSwap(false, true) {
		return nil, nil, ErrLoadInProgress
	}

	l.mu.Lock()
	if err := l.checkLocked(); err != nil {
		l.mu.Unlock()
		l.loading.Store(false)
		return nil, nil, err
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.cancelLoad = cancel
	l.mu.Unlock()

	done = func() {
		l.mu.Lock()
		l.cancelLoad = nil
		l.mu.Unlock()
		cancel()
		l.loading.Store(false)
	}
	return loadCtx, done, nil
}

// LoadError translates the error of a finished load. A load cut short by
// Kill reports the kill error rather than context.Canceled.
func (l *Lifecycle) LoadError(err error) error {
	if err == nil {
		return nil
	}
	if killed := l.Killed(); killed != nil {
		return killed
	}
	return err
}

// State folds the terminal flags over the driver-maintained state.
func (l *Lifecycle) State(current State) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.killErr != nil:
		return Killed
	case l.closed:
		return Closed
	default:
		return current
	}
}

func (l *Lifecycle) checkLocked() error {
	if l.killErr != nil {
		return l.killErr
	}
	if l.closed {
		return ErrClosed
	}
	return nil
}
