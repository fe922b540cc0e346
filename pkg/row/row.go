package row

import (
	"fmt"
	"strings"
)

// Row is a positional view over column values.
//
// Rows handed out by iterators are usually shared windows: the same Row is
// re-pointed at the next tuple on every advance. A consumer that keeps a row
// past the current step must call Materialize.
type Row interface {
	NumColumns() int
	Get(index int) any

	// Materialize returns an owned copy of the current cells.
	Materialize() []any
}

// RowN is a mutable window over a slice of cells.
type RowN struct {
	cells []any
}

// NewRowN creates a window over cells. The slice is not copied.
func NewRowN(cells ...any) *RowN {
	return &RowN{cells: cells}
}

// NewRowNWithSize creates a window over size nil cells.
func NewRowNWithSize(size int) *RowN {
	return &RowN{cells: make([]any, size)}
}

// SetCells re-points the window.
func (r *RowN) SetCells(cells []any) {
	r.cells = cells
}

// Set overwrites one cell in the backing slice.
func (r *RowN) Set(index int, value any) {
	r.cells[index] = value
}

func (r *RowN) NumColumns() int    { return len(r.cells) }
func (r *RowN) Get(index int) any  { return r.cells[index] }
func (r *RowN) Materialize() []any { return Copy(r.cells) }
func (r *RowN) String() string     { return Format(r) }

// Row1 is a single-column window.
type Row1 struct {
	Value any
}

func (r *Row1) NumColumns() int { return 1 }

func (r *Row1) Get(index int) any {
	if index != 0 {
		panic(fmt.Sprintf("row: index %d out of range for single column row", index))
	}
	return r.Value
}

func (r *Row1) Materialize() []any { return []any{Copy1(r.Value)} }
func (r *Row1) String() string     { return Format(r) }

// Materialized is an owned row. It never changes after construction.
type Materialized []any

func (m Materialized) NumColumns() int    { return len(m) }
func (m Materialized) Get(index int) any  { return m[index] }
func (m Materialized) Materialize() []any { return Copy(m) }
func (m Materialized) String() string     { return Format(m) }

// Empty is the zero-column row.
var Empty Row = Materialized{}

// Copy deep-copies cells, including nested maps and slices.
func Copy(cells []any) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = Copy1(c)
	}
	return out
}

// Copy1 deep-copies a single value.
func Copy1(v any) any {
	switch x := v.(type) {
	case []any:
		return Copy(x)
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = Copy1(val)
		}
		return m
	case []byte:
		return append([]byte(nil), x...)
	default:
		return v
	}
}

// Format renders a row as "(1, a, NULL)".
func Format(r Row) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := range r.NumColumns() {
		if i > 0 {
			b.WriteString(", ")
		}
		if v := r.Get(i); v == nil {
			b.WriteString("NULL")
		} else {
			fmt.Fprint(&b, v)
		}
	}
	b.WriteByte(')')
	return b.String()
}
