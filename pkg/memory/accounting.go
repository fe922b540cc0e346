// Package memory estimates the footprint of rows buffered by operators and
// decides when a buffer has grown large enough to be processed as a block.
package memory

import (
	"sync"

	"dexql/pkg/row"
	"dexql/pkg/types"
)

// RowAccounting tracks rows retained by an operator.
type RowAccounting interface {
	// AccountForAndMaybeBreak adds r to the tally and reports whether the
	// caller should stop buffering and process what it holds.
	AccountForAndMaybeBreak(r row.Row) bool

	// Release resets the tally once the buffered rows are dropped.
	Release()
}

// Unlimited never asks for a break.
type Unlimited struct{}

func (Unlimited) AccountForAndMaybeBreak(row.Row) bool { return false }
func (Unlimited) Release()                             {}

// Accountant breaks once the estimated bytes of the retained rows reach
// limit. A limit <= 0 disables breaking. It is safe for concurrent use.
type Accountant struct {
	mu       sync.Mutex
	limit    int64
	used     int64
	peak     int64
	rowCount int
}

func NewAccountant(limitBytes int64) *Accountant {
	return &Accountant{limit: limitBytes}
}

func (a *Accountant) AccountForAndMaybeBreak(r row.Row) bool {
	size := int64(RowSize(r))

	a.mu.Lock()
	defer a.mu.Unlock()
	a.used += size
	a.rowCount++
	a.peak = max(a.peak, a.used)
	return a.limit > 0 && a.used >= a.limit
}

func (a *Accountant) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used = 0
	a.rowCount = 0
}

// Used returns the bytes currently accounted.
func (a *Accountant) Used() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// Peak returns the largest tally seen since construction.
func (a *Accountant) Peak() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peak
}

// Rows returns the number of rows currently accounted.
func (a *Accountant) Rows() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rowCount
}

// RowSize estimates the retained size of r's cells.
func RowSize(r row.Row) int {
	size := 24
	for i := range r.NumColumns() {
		size += types.EstimateSize(r.Get(i))
	}
	return size
}
