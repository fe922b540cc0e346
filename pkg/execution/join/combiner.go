package join

import "dexql/pkg/row"

// ElementCombiner holds the latest left and right element of a join and
// exposes their combination. It is mutated in place for every candidate
// pair, so the combined element is only valid until the next Set call.
type ElementCombiner[L, R, C any] interface {
	SetLeft(L)
	SetRight(R)
	CurrentElement() C
}

// Predicate is a join condition over the combined element. An error aborts
// the join.
type Predicate[C any] func(C) (bool, error)

// CombinedRow concatenates a left and a right row without copying.
type CombinedRow struct {
	left  row.Row
	right row.Row
}

var _ ElementCombiner[row.Row, row.Row, row.Row] = (*CombinedRow)(nil)

func NewCombinedRow() *CombinedRow {
	return &CombinedRow{left: row.Empty, right: row.Empty}
}

func (c *CombinedRow) SetLeft(r row.Row)        { c.left = r }
func (c *CombinedRow) SetRight(r row.Row)       { c.right = r }
func (c *CombinedRow) CurrentElement() row.Row  { return c }
func (c *CombinedRow) Left() row.Row            { return c.left }
func (c *CombinedRow) Right() row.Row           { return c.right }
func (c *CombinedRow) NumColumns() int          { return c.left.NumColumns() + c.right.NumColumns() }
func (c *CombinedRow) String() string           { return row.Format(c) }

func (c *CombinedRow) Get(index int) any {
	if n := c.left.NumColumns(); index >= n {
		return c.right.Get(index - n)
	}
	return c.left.Get(index)
}

func (c *CombinedRow) Materialize() []any {
	return append(c.left.Materialize(), c.right.Materialize()...)
}
