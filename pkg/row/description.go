package row

import (
	"fmt"
	"strings"

	"dexql/pkg/types"
)

// Description names and types the columns of the rows a pipeline produces.
type Description struct {
	Names []string
	Types []types.DataType
}

// NewDescription validates that names and types line up.
func NewDescription(typesList []types.DataType, names []string) (*Description, error) {
	if len(typesList) == 0 {
		return nil, fmt.Errorf("description needs at least one column")
	}
	if names != nil && len(names) != len(typesList) {
		return nil, fmt.Errorf("names length (%d) must match types length (%d)", len(names), len(typesList))
	}
	if names == nil {
		names = make([]string, len(typesList))
		for i := range names {
			names[i] = fmt.Sprintf("col%d", i)
		}
	}
	return &Description{Names: names, Types: typesList}, nil
}

func (d *Description) NumColumns() int { return len(d.Types) }

// IndexOf returns the position of the named column, or -1.
func (d *Description) IndexOf(name string) int {
	for i, n := range d.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Combine appends right's columns to left's, as a join's output does.
func Combine(left, right *Description) *Description {
	return &Description{
		Names: append(append([]string{}, left.Names...), right.Names...),
		Types: append(append([]types.DataType{}, left.Types...), right.Types...),
	}
}

func (d *Description) String() string {
	parts := make([]string, len(d.Types))
	for i, t := range d.Types {
		parts[i] = fmt.Sprintf("%s(%s)", d.Names[i], t)
	}
	return strings.Join(parts, ", ")
}

// Coerce converts each cell of cells to its column type in place.
func (d *Description) Coerce(cells []any) error {
	if len(cells) != len(d.Types) {
		return fmt.Errorf("row has %d cells, description has %d columns", len(cells), len(d.Types))
	}
	for i, t := range d.Types {
		v, err := t.Value(cells[i])
		if err != nil {
			return fmt.Errorf("column %s: %w", d.Names[i], err)
		}
		cells[i] = v
	}
	return nil
}
