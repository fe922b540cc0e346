package join

import (
	"github.com/cockroachdb/errors"

	"dexql/pkg/iterator"
	"dexql/pkg/logging"
	"dexql/pkg/memory"
	"dexql/pkg/row"
	"dexql/pkg/types"
)

// DefaultLeftSizeHint sizes the left buffer when no cardinality estimate is
// known.
const DefaultLeftSizeHint = 1024

// maxPreallocatedRows caps how much of a size hint is allocated up front.
const maxPreallocatedRows = 64 * 1024

// BlockOptions configure the left buffer of a block join.
type BlockOptions[L any] struct {
	// LeftSizeHint is the estimated left cardinality.
	LeftSizeHint int

	// Materialize copies a left element so it survives the child moving on.
	// Defaults to materializing row.Row elements and keeping anything else.
	Materialize func(L) L

	// Accounting, when set, bounds the buffered block. Left elements that
	// are row.Row are accounted; once it asks for a break the block is
	// probed and the right child is replayed for the next block.
	Accounting memory.RowAccounting
}

// probe is the block-local matching structure of a block join.
type probe[L, R any] interface {
	add(L) error
	len() int
	reset()
	// start positions the probe for a new right element.
	start(R) error
	// next returns the next buffered left candidate for the started element.
	next() (L, bool, error)
}

// BlockJoin buffers the left child, block by block, and streams the right
// child against each block. It implements both the block nested loop and the
// hash block join; they differ only in how a right element finds its
// candidates.
type BlockJoin[L, R, C any] struct {
	binary[L, R, C]
	probe       probe[L, R]
	materialize func(L) L
	accounting  memory.RowAccounting

	leftDone        bool
	blocks          int
	brokeBlock      bool
	rightPositioned bool
}

// NewBlockNestedLoop returns a join that evaluates predicate for every pair
// of a buffered left element and a right element. predicate may be nil for
// a cross join.
func NewBlockNestedLoop[L, R, C any](
	left iterator.BatchIterator[L],
	right iterator.BatchIterator[R],
	combiner ElementCombiner[L, R, C],
	predicate Predicate[C],
	opts BlockOptions[L],
) *BlockJoin[L, R, C] {
	hint := hintedCapacity(opts.LeftSizeHint)
	return newBlockJoin(BlockNestedLoop, left, right, combiner, predicate, opts,
		&listProbe[L, R]{buffer: iterator.NewSliceIterator(make([]L, 0, hint))})
}

// NewHashBlock returns an equi-join. Left elements are hashed on leftKey,
// right elements probe with rightKey; keys are normalized to keyTypes before
// hashing so equal values of different Go types meet. residual, if not nil,
// is evaluated on every pair whose keys are equal. Null keys never match.
func NewHashBlock[L, R, C any](
	left iterator.BatchIterator[L],
	right iterator.BatchIterator[R],
	combiner ElementCombiner[L, R, C],
	leftKey KeyFunc[L],
	rightKey KeyFunc[R],
	keyTypes []types.DataType,
	residual Predicate[C],
	opts BlockOptions[L],
) *BlockJoin[L, R, C] {
	p := &hashProbe[L, R]{
		codec:    keyCodec{types: keyTypes},
		leftKey:  leftKey,
		rightKey: rightKey,
		buckets:  make(map[uint64][]hashEntry[L], hintedCapacity(opts.LeftSizeHint)),
	}
	return newBlockJoin(HashBlock, left, right, combiner, residual, opts, p)
}

func newBlockJoin[L, R, C any](
	algorithm Algorithm,
	left iterator.BatchIterator[L],
	right iterator.BatchIterator[R],
	combiner ElementCombiner[L, R, C],
	predicate Predicate[C],
	opts BlockOptions[L],
	p probe[L, R],
) *BlockJoin[L, R, C] {
	materialize := opts.Materialize
	if materialize == nil {
		materialize = materializeRow[L]
	}
	accounting := opts.Accounting
	if accounting == nil {
		accounting = memory.Unlimited{}
	}
	return &BlockJoin[L, R, C]{
		binary:      newBinary(algorithm, left, right, combiner, predicate, DrainingLeft),
		probe:       p,
		materialize: materialize,
		accounting:  accounting,
	}
}

func hintedCapacity(hint int) int {
	if hint <= 0 {
		hint = DefaultLeftSizeHint
	}
	return min(hint, maxPreallocatedRows)
}

func materializeRow[L any](l L) L {
	if r, ok := any(l).(row.Row); ok {
		if m, ok := any(row.Materialized(r.Materialize())).(L); ok {
			return m
		}
	}
	return l
}

// Blocks returns how many left blocks were started so far.
func (j *BlockJoin[L, R, C]) Blocks() int { return j.blocks }

func (j *BlockJoin[L, R, C]) MoveNext() (bool, error) {
	if err := j.check(); err != nil {
		return false, err
	}
	for {
		switch j.phase {
		case DrainingLeft:
			ok, err := j.left.MoveNext()
			if err != nil {
				return false, j.fail(err)
			}
			if ok {
				if err := j.buffer(j.left.CurrentElement()); err != nil {
					return false, j.fail(err)
				}
				continue
			}
			if !j.left.AllLoaded() {
				return false, nil
			}
			j.leftDone = true
			j.startProbing()

		case ProbingRight:
			if !j.rightPositioned {
				ok, err := j.right.MoveNext()
				if err != nil {
					return false, j.fail(err)
				}
				if !ok {
					if !j.right.AllLoaded() || j.leftDone {
						return false, nil
					}
					if err := j.nextBlock(); err != nil {
						return false, j.fail(err)
					}
					continue
				}
				r := j.right.CurrentElement()
				if err := j.probe.start(r); err != nil {
					return false, j.fail(err)
				}
				j.combiner.SetRight(r)
				j.rightPositioned = true
			}
			for {
				l, ok, err := j.probe.next()
				if err != nil {
					return false, j.fail(err)
				}
				if !ok {
					break
				}
				j.combiner.SetLeft(l)
				match, err := j.matches()
				if err != nil {
					return false, j.fail(err)
				}
				if match {
					return true, nil
				}
			}
			j.rightPositioned = false
		}
	}
}

func (j *BlockJoin[L, R, C]) buffer(l L) error {
	if j.probe.len() == 0 {
		j.blocks++
	}
	l = j.materialize(l)
	if err := j.probe.add(l); err != nil {
		return err
	}
	if r, ok := any(l).(row.Row); ok && j.accounting.AccountForAndMaybeBreak(r) {
		j.brokeBlock = true
		logging.WithJoin(j.algorithm.String()).Debug("left block full", "block", j.blocks, "rows", j.probe.len())
		j.startProbing()
	}
	return nil
}

func (j *BlockJoin[L, R, C]) startProbing() {
	j.phase = ProbingRight
	j.rightPositioned = false
}

// nextBlock drops the probed block and replays the right child for the
// next one.
func (j *BlockJoin[L, R, C]) nextBlock() error {
	j.probe.reset()
	j.accounting.Release()
	if err := j.right.MoveToStart(); err != nil {
		return errors.Wrap(err, "replay right child for next block")
	}
	j.phase = DrainingLeft
	return nil
}

// MoveToStart replays the join. When the whole left side fits one block it
// is kept and only the right child is rewound.
func (j *BlockJoin[L, R, C]) MoveToStart() error {
	if err := j.check(); err != nil {
		return err
	}
	if j.leftDone && !j.brokeBlock {
		if err := j.right.MoveToStart(); err != nil {
			return err
		}
		j.startProbing()
		return nil
	}
	if err := j.rewindChildren(DrainingLeft); err != nil {
		return err
	}
	j.probe.reset()
	j.accounting.Release()
	j.leftDone = false
	j.brokeBlock = false
	j.blocks = 0
	j.rightPositioned = false
	return nil
}

func (j *BlockJoin[L, R, C]) Close() error {
	err := j.binary.Close()
	j.probe.reset()
	j.accounting.Release()
	return err
}

// listProbe scans the whole block for every right element.
type listProbe[L, R any] struct {
	buffer *iterator.SliceIterator[L]
}

func (p *listProbe[L, R]) add(l L) error { p.buffer.Append(l); return nil }
func (p *listProbe[L, R]) len() int      { return p.buffer.Len() }
func (p *listProbe[L, R]) reset()        { p.buffer.Reset() }
func (p *listProbe[L, R]) start(R) error { p.buffer.Rewind(); return nil }

func (p *listProbe[L, R]) next() (L, bool, error) {
	if !p.buffer.HasNext() {
		var zero L
		return zero, false, nil
	}
	l, err := p.buffer.Next()
	return l, err == nil, err
}

type hashEntry[L any] struct {
	key   []any
	value L
}

// hashProbe chains left elements by key hash and checks key equality on
// lookup, so colliding hashes never produce false matches.
type hashProbe[L, R any] struct {
	codec    keyCodec
	leftKey  KeyFunc[L]
	rightKey KeyFunc[R]
	buckets  map[uint64][]hashEntry[L]
	size     int

	probeKey   []any
	candidates []hashEntry[L]
	pos        int
}

func (p *hashProbe[L, R]) add(l L) error {
	key, err := p.leftKey(l)
	if err != nil {
		return err
	}
	// Count the element even when its key cannot match so block accounting
	// and block numbering stay consistent.
	p.size++
	ok, err := p.codec.normalize(key)
	if err != nil || !ok {
		return err
	}
	h, err := p.codec.hash(key)
	if err != nil {
		return err
	}
	p.buckets[h] = append(p.buckets[h], hashEntry[L]{key: key, value: l})
	return nil
}

func (p *hashProbe[L, R]) len() int { return p.size }

func (p *hashProbe[L, R]) reset() {
	clear(p.buckets)
	p.size = 0
	p.candidates = nil
	p.probeKey = nil
	p.pos = 0
}

func (p *hashProbe[L, R]) start(r R) error {
	p.candidates, p.pos = nil, 0
	key, err := p.rightKey(r)
	if err != nil {
		return err
	}
	ok, err := p.codec.normalize(key)
	if err != nil || !ok {
		return err
	}
	h, err := p.codec.hash(key)
	if err != nil {
		return err
	}
	p.probeKey = key
	p.candidates = p.buckets[h]
	return nil
}

func (p *hashProbe[L, R]) next() (L, bool, error) {
	for p.pos < len(p.candidates) {
		e := p.candidates[p.pos]
		p.pos++
		eq, err := p.codec.equal(e.key, p.probeKey)
		if err != nil {
			var zero L
			return zero, false, err
		}
		if eq {
			return e.value, true, nil
		}
	}
	var zero L
	return zero, false, nil
}
