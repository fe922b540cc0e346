package join

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"

	"dexql/pkg/logging"
)

// Algorithm identifies a join implementation.
type Algorithm int

const (
	// Auto lets the strategy pick by estimated cost.
	Auto Algorithm = iota
	NestedLoop
	BlockNestedLoop
	HashBlock
	SortedMerge
)

func (a Algorithm) String() string {
	switch a {
	case Auto:
		return "auto"
	case NestedLoop:
		return "nested_loop"
	case BlockNestedLoop:
		return "block_nested_loop"
	case HashBlock:
		return "hash_block"
	case SortedMerge:
		return "sorted_merge"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// ParseAlgorithm accepts the names produced by Algorithm.String.
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, a := range []Algorithm{Auto, NestedLoop, BlockNestedLoop, HashBlock, SortedMerge} {
		if strings.EqualFold(name, a.String()) {
			return a, nil
		}
	}
	return Auto, errors.Newf("unknown join algorithm %q", name)
}

const (
	// DefaultHighCost is reported for algorithms without usable statistics.
	DefaultHighCost = 1e6

	// CPUPairCost weighs one predicate evaluation against one page read.
	CPUPairCost = 0.01

	rowsPerPage = 100
)

// Statistics describe both inputs of a join for cost estimation.
type Statistics struct {
	LeftCardinality  int     // rows in left input
	RightCardinality int     // rows in right input
	LeftSize         int     // pages of left input
	RightSize        int     // pages of right input
	LeftSorted       bool    // left sorted ascending on the join key
	RightSorted      bool    // right sorted ascending on the join key
	RightReplayable  bool    // right input supports MoveToStart
	MemorySize       int     // pages that fit one left block
	Selectivity      float64 // estimated fraction of pairs that match
}

// DefaultStatistics are used when nothing is known about the inputs.
func DefaultStatistics() *Statistics {
	return &Statistics{
		LeftCardinality:  1000,
		RightCardinality: 1000,
		LeftSize:         10,
		RightSize:        10,
		RightReplayable:  true,
		MemorySize:       100,
		Selectivity:      0.1,
	}
}

// NewStatistics derives page sizes from cardinalities.
func NewStatistics(leftRows, rightRows int) *Statistics {
	s := DefaultStatistics()
	s.LeftCardinality = leftRows
	s.RightCardinality = rightRows
	s.LeftSize = pages(leftRows)
	s.RightSize = pages(rightRows)
	return s
}

func pages(rows int) int {
	return (rows + rowsPerPage - 1) / rowsPerPage
}

func (s *Statistics) leftBlocks() int {
	if s.MemorySize <= 0 {
		return max(1, s.LeftSize)
	}
	return max(1, int(math.Ceil(float64(s.LeftSize)/float64(s.MemorySize))))
}

func (s *Statistics) pairs() float64 {
	return float64(s.LeftCardinality) * float64(s.RightCardinality)
}

// costModel is one candidate algorithm of the strategy.
type costModel interface {
	Algorithm() Algorithm
	Supports(equi bool, s *Statistics) bool
	EstimateCost(s *Statistics) float64
}

type nestedLoopCost struct{}

func (nestedLoopCost) Algorithm() Algorithm { return NestedLoop }

func (nestedLoopCost) Supports(_ bool, s *Statistics) bool { return s.RightReplayable }

// EstimateCost reads the right side once per left row.
func (nestedLoopCost) EstimateCost(s *Statistics) float64 {
	return float64(s.LeftSize) + float64(s.LeftCardinality)*float64(s.RightSize) + s.pairs()*CPUPairCost
}

type blockNestedLoopCost struct{}

func (blockNestedLoopCost) Algorithm() Algorithm { return BlockNestedLoop }

func (blockNestedLoopCost) Supports(_ bool, s *Statistics) bool {
	return s.leftBlocks() == 1 || s.RightReplayable
}

// EstimateCost uses |R| + blocks(R) * |S| plus one evaluation per pair.
func (blockNestedLoopCost) EstimateCost(s *Statistics) float64 {
	return float64(s.LeftSize+s.leftBlocks()*s.RightSize) + s.pairs()*CPUPairCost
}

type hashBlockCost struct{}

func (hashBlockCost) Algorithm() Algorithm { return HashBlock }

func (hashBlockCost) Supports(equi bool, s *Statistics) bool {
	return equi && (s.leftBlocks() == 1 || s.RightReplayable)
}

// EstimateCost uses the classic 3 * (|R| + |S|), plus a right pass per
// extra block when the left side does not fit memory.
func (hashBlockCost) EstimateCost(s *Statistics) float64 {
	io := 3*float64(s.LeftSize+s.RightSize) + float64((s.leftBlocks()-1)*s.RightSize)
	probes := float64(s.LeftCardinality+s.RightCardinality) * CPUPairCost
	return io + probes + s.pairs()*s.Selectivity*CPUPairCost
}

type sortedMergeCost struct{}

func (sortedMergeCost) Algorithm() Algorithm { return SortedMerge }

func (sortedMergeCost) Supports(equi bool, s *Statistics) bool {
	return equi && s.LeftSorted && s.RightSorted && s.RightReplayable
}

// EstimateCost charges the merge pass plus the right prefix rescanned for
// every left row, half of the right side on average.
func (sortedMergeCost) EstimateCost(s *Statistics) float64 {
	return float64(s.LeftSize+s.RightSize) + s.pairs()/2*CPUPairCost
}

// Strategy picks the cheapest join algorithm that can serve a condition.
type Strategy struct {
	models []costModel
	stats  *Statistics
}

func NewStrategy(stats *Statistics) *Strategy {
	if stats == nil {
		stats = DefaultStatistics()
	}
	return &Strategy{
		stats: stats,
		models: []costModel{
			hashBlockCost{},
			sortedMergeCost{},
			blockNestedLoopCost{},
			nestedLoopCost{},
		},
	}
}

// Statistics returns the statistics the strategy estimates with.
func (s *Strategy) Statistics() *Statistics { return s.stats }

// Select returns the cheapest supported algorithm. equi reports whether the
// condition has equality keys usable by hash and merge joins. Ties keep the
// earlier candidate.
func (s *Strategy) Select(equi bool) (Algorithm, error) {
	best, bestCost := Auto, math.Inf(1)
	for _, m := range s.models {
		if !m.Supports(equi, s.stats) {
			continue
		}
		if cost := m.EstimateCost(s.stats); cost < bestCost {
			best, bestCost = m.Algorithm(), cost
		}
	}
	if best == Auto {
		return Auto, errors.New("no suitable join algorithm found for condition")
	}
	logging.WithJoin(best.String()).Debug("join algorithm selected",
		"cost", bestCost, "equi", equi,
		"left_rows", s.stats.LeftCardinality, "right_rows", s.stats.RightCardinality)
	return best, nil
}

// Supports reports whether a can run the condition under the statistics.
func (s *Strategy) Supports(a Algorithm, equi bool) bool {
	for _, m := range s.models {
		if m.Algorithm() == a {
			return m.Supports(equi, s.stats)
		}
	}
	return false
}

// Cost estimates a, or DefaultHighCost for an unknown algorithm.
func (s *Strategy) Cost(a Algorithm) float64 {
	for _, m := range s.models {
		if m.Algorithm() == a {
			return m.EstimateCost(s.stats)
		}
	}
	return DefaultHighCost
}
