// Package join implements the join operators as batch iterators over two
// children. Every operator drives one child at a time; the active child is
// the one LoadNextBatch and AllLoaded are delegated to.
package join

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"dexql/pkg/iterator"
	"dexql/pkg/logging"
)

// Phase names what a join operator is currently doing.
type Phase int

const (
	// DrainingLeft buffers left elements into the current block.
	DrainingLeft Phase = iota
	// ProbingRight matches right elements against the buffered block.
	ProbingRight
	// AdvancingLeft moves to the next outer element.
	AdvancingLeft
	// ScanningRight walks the right child for the current outer element.
	ScanningRight
)

func (p Phase) String() string {
	switch p {
	case DrainingLeft:
		return "draining-left"
	case ProbingRight:
		return "probing-right"
	case AdvancingLeft:
		return "advancing-left"
	case ScanningRight:
		return "scanning-right"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) drivesLeft() bool {
	return p == DrainingLeft || p == AdvancingLeft
}

// binary holds what every join shares: both children, the combiner, the
// residual predicate and the terminal states.
type binary[L, R, C any] struct {
	lc        iterator.Lifecycle
	algorithm Algorithm
	left      iterator.BatchIterator[L]
	right     iterator.BatchIterator[R]
	combiner  ElementCombiner[L, R, C]
	predicate Predicate[C]
	phase     Phase
	failure   error
}

func newBinary[L, R, C any](
	algorithm Algorithm,
	left iterator.BatchIterator[L],
	right iterator.BatchIterator[R],
	combiner ElementCombiner[L, R, C],
	predicate Predicate[C],
	phase Phase,
) binary[L, R, C] {
	return binary[L, R, C]{
		algorithm: algorithm,
		left:      left,
		right:     right,
		combiner:  combiner,
		predicate: predicate,
		phase:     phase,
	}
}

func (b *binary[L, R, C]) Algorithm() Algorithm { return b.algorithm }

// Phase returns the current phase. Only meaningful on the driving goroutine.
func (b *binary[L, R, C]) Phase() Phase { return b.phase }

func (b *binary[L, R, C]) CurrentElement() C { return b.combiner.CurrentElement() }

func (b *binary[L, R, C]) check() error {
	if err := b.lc.Check(); err != nil {
		return err
	}
	return b.failure
}

func (b *binary[L, R, C]) LoadNextBatch(ctx context.Context) error {
	if err := b.check(); err != nil {
		return err
	}
	var err error
	if b.phase.drivesLeft() {
		err = b.left.LoadNextBatch(ctx)
	} else {
		err = b.right.LoadNextBatch(ctx)
	}
	if err != nil {
		return b.fail(err)
	}
	return nil
}

func (b *binary[L, R, C]) AllLoaded() bool {
	if b.phase.drivesLeft() {
		return b.left.AllLoaded()
	}
	return b.right.AllLoaded()
}

func (b *binary[L, R, C]) Close() error {
	if !b.lc.MarkClosed() {
		return nil
	}
	var err error
	if cerr := b.left.Close(); cerr != nil {
		err = errors.Wrap(cerr, "close left")
	}
	if cerr := b.right.Close(); cerr != nil {
		err = errors.CombineErrors(err, errors.Wrap(cerr, "close right"))
	}
	return err
}

func (b *binary[L, R, C]) Kill(cause error) {
	if b.lc.Kill(cause) {
		b.left.Kill(cause)
		b.right.Kill(cause)
	}
}

// fail records err as the outcome of the join and kills both children so no
// sibling keeps producing for a consumer that is gone.
func (b *binary[L, R, C]) fail(err error) error {
	if iterator.IsKilled(err) {
		b.Kill(err)
		return b.lc.Killed()
	}
	if b.failure == nil {
		b.failure = err
		logging.WithJoin(b.algorithm.String()).Debug("join failed", "phase", b.phase.String(), "error", err)
		b.left.Kill(err)
		b.right.Kill(err)
	}
	return b.failure
}

func (b *binary[L, R, C]) matches() (bool, error) {
	if b.predicate == nil {
		return true, nil
	}
	return b.predicate(b.combiner.CurrentElement())
}

// rewindChildren rewinds both children and moves to phase.
func (b *binary[L, R, C]) rewindChildren(phase Phase) error {
	if err := b.check(); err != nil {
		return err
	}
	if err := b.left.MoveToStart(); err != nil {
		return err
	}
	if err := b.right.MoveToStart(); err != nil {
		return err
	}
	b.phase = phase
	return nil
}
