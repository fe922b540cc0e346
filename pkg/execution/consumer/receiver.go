// Package consumer connects batch iterators to row receivers. Drive pushes
// the rows of an iterator into a receiver honouring its flow control, and
// Executor runs several such pipelines concurrently.
package consumer

import (
	"context"
	"sync"

	"dexql/pkg/row"
)

// Result is the flow control answer of a receiver to a row.
type Result int

const (
	Continue Result = iota
	// Pause suspends the emitter; the receiver gets a ResumeHandle through
	// PauseProcessed.
	Pause
	// Stop ends the emission early. Finish is still called.
	Stop
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Pause:
		return "pause"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// ResumeHandle continues a paused emission. Resume runs on the calling
// goroutine until the next pause or the end of the rows.
type ResumeHandle interface {
	Resume()
}

// RepeatHandle replays a finished emission from the first row. It is only
// valid inside Finish; afterwards the source is closed.
type RepeatHandle interface {
	Repeat() error
}

// RowReceiver consumes the rows of one pipeline. Rows passed to SetNextRow
// are only valid for the duration of the call. Exactly one of Finish, Fail
// or Kill ends every emission.
type RowReceiver interface {
	SetNextRow(r row.Row) Result
	PauseProcessed(h ResumeHandle)
	Finish(h RepeatHandle)
	Fail(err error)
	// Kill reports that the pipeline was killed or its context cancelled.
	Kill(err error)
}

// Collecting materializes every row it receives. With a positive limit it
// answers Stop once limit rows are collected.
type Collecting struct {
	limit int

	mu   sync.Mutex
	rows [][]any
	err  error
	once sync.Once
	done chan struct{}
}

func NewCollecting(limit int) *Collecting {
	return &Collecting{limit: limit, done: make(chan struct{})}
}

func (c *Collecting) SetNextRow(r row.Row) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, r.Materialize())
	if c.limit > 0 && len(c.rows) >= c.limit {
		return Stop
	}
	return Continue
}

// PauseProcessed resumes at once; Collecting never pauses on its own.
func (c *Collecting) PauseProcessed(h ResumeHandle) { h.Resume() }

func (c *Collecting) Finish(RepeatHandle) { c.complete(nil) }

func (c *Collecting) Fail(err error) { c.complete(err) }

func (c *Collecting) Kill(err error) { c.complete(err) }

func (c *Collecting) complete(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed once the emission has ended.
func (c *Collecting) Done() <-chan struct{} { return c.done }

// Result waits for the emission to end and returns the collected rows.
func (c *Collecting) Result(ctx context.Context) ([][]any, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows, c.err
}
