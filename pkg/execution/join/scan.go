package join

import (
	"github.com/cockroachdb/errors"

	"dexql/pkg/iterator"
	"dexql/pkg/logging"
)

// ScanJoin walks the right child once per left element. The right child
// must support MoveToStart. It implements the tuple-at-a-time nested loop
// and the sorted merge join.
type ScanJoin[L, R, C any] struct {
	binary[L, R, C]
	// passed reports that the right scan has moved beyond every possible
	// match for the current left element.
	passed Predicate[C]
	rewinds int
}

// NewNestedLoop returns a join that evaluates predicate for every pair. A
// nil predicate yields the cross product, left-major.
func NewNestedLoop[L, R, C any](
	left iterator.BatchIterator[L],
	right iterator.BatchIterator[R],
	combiner ElementCombiner[L, R, C],
	predicate Predicate[C],
) *ScanJoin[L, R, C] {
	return &ScanJoin[L, R, C]{
		binary: newBinary(NestedLoop, left, right, combiner, predicate, AdvancingLeft),
	}
}

// NewSortedMerge joins children that are both sorted ascending on the join
// key. Pairs satisfying predicate are emitted; once passed holds for a pair
// no later right element can match the current left element, so the right
// child is rewound and the next left element is taken.
func NewSortedMerge[L, R, C any](
	left iterator.BatchIterator[L],
	right iterator.BatchIterator[R],
	combiner ElementCombiner[L, R, C],
	predicate Predicate[C],
	passed Predicate[C],
) *ScanJoin[L, R, C] {
	return &ScanJoin[L, R, C]{
		binary: newBinary(SortedMerge, left, right, combiner, predicate, AdvancingLeft),
		passed: passed,
	}
}

// Rewinds returns how often the right child was replayed.
func (j *ScanJoin[L, R, C]) Rewinds() int { return j.rewinds }

func (j *ScanJoin[L, R, C]) MoveNext() (bool, error) {
	if err := j.check(); err != nil {
		return false, err
	}
	for {
		switch j.phase {
		case AdvancingLeft:
			ok, err := j.left.MoveNext()
			if err != nil {
				return false, j.fail(err)
			}
			if !ok {
				return false, nil
			}
			j.combiner.SetLeft(j.left.CurrentElement())
			j.phase = ScanningRight

		case ScanningRight:
			ok, err := j.right.MoveNext()
			if err != nil {
				return false, j.fail(err)
			}
			if !ok {
				if !j.right.AllLoaded() {
					return false, nil
				}
				if err := j.nextLeft(); err != nil {
					return false, j.fail(err)
				}
				continue
			}
			j.combiner.SetRight(j.right.CurrentElement())
			match, err := j.matches()
			if err != nil {
				return false, j.fail(err)
			}
			if match {
				return true, nil
			}
			if j.passed != nil {
				beyond, err := j.passed(j.combiner.CurrentElement())
				if err != nil {
					return false, j.fail(err)
				}
				if beyond {
					if err := j.nextLeft(); err != nil {
						return false, j.fail(err)
					}
				}
			}
		}
	}
}

// nextLeft rewinds the right child and goes back to the outer loop. This
// also covers a right side exhausted while left elements remain, so later
// duplicates of a left key see the right side again.
func (j *ScanJoin[L, R, C]) nextLeft() error {
	if err := j.right.MoveToStart(); err != nil {
		return errors.Wrap(err, "rewind right child")
	}
	j.rewinds++
	if j.rewinds%1024 == 0 {
		logging.WithJoin(j.algorithm.String()).Debug("right child replayed", "rewinds", j.rewinds)
	}
	j.phase = AdvancingLeft
	return nil
}

func (j *ScanJoin[L, R, C]) MoveToStart() error {
	if err := j.rewindChildren(AdvancingLeft); err != nil {
		return err
	}
	j.rewinds = 0
	return nil
}
