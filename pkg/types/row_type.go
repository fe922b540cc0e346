package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	dberror "dexql/pkg/error"
)

// ColumnPolicy decides what a RowType does with keys it does not declare.
type ColumnPolicy int

const (
	// Dynamic keeps unknown keys with their guessed types.
	Dynamic ColumnPolicy = iota
	// Strict rejects unknown keys.
	Strict
	// Ignored drops unknown keys.
	Ignored
)

func (p ColumnPolicy) String() string {
	switch p {
	case Dynamic:
		return "dynamic"
	case Strict:
		return "strict"
	case Ignored:
		return "ignored"
	default:
		return fmt.Sprintf("ColumnPolicy(%d)", int(p))
	}
}

// Column is one named member of a RowType.
type Column struct {
	Name string
	Type DataType
}

// RowType is a composite type over named columns. Values are
// map[string]any; a []any of matching arity is accepted positionally.
type RowType struct {
	base
	columns []Column
	index   map[string]int
	policy  ColumnPolicy
}

func NewRowType(columns []Column, policy ColumnPolicy) *RowType {
	rt := &RowType{
		base:    base{ObjectID, "object"},
		columns: columns,
		index:   make(map[string]int, len(columns)),
		policy:  policy,
	}
	for i, c := range columns {
		rt.index[c.Name] = i
	}
	return rt
}

func (rt *RowType) Columns() []Column   { return rt.columns }
func (rt *RowType) Policy() ColumnPolicy { return rt.policy }

// Column looks up a declared column by name.
func (rt *RowType) Column(name string) (Column, bool) {
	i, ok := rt.index[name]
	if !ok {
		return Column{}, false
	}
	return rt.columns[i], true
}

func (rt *RowType) String() string {
	if len(rt.columns) == 0 {
		return fmt.Sprintf("object(%s)", rt.policy)
	}
	parts := make([]string, len(rt.columns))
	for i, c := range rt.columns {
		parts[i] = c.Name + " " + c.Type.String()
	}
	return fmt.Sprintf("object(%s)(%s)", rt.policy, strings.Join(parts, ", "))
}

func (rt *RowType) Value(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return rt.fromMap(x)
	case []any:
		if len(x) != len(rt.columns) {
			return nil, dberror.TypeCoercion(v, rt.String()).
				WithHint(fmt.Sprintf("expected %d values, got %d", len(rt.columns), len(x)))
		}
		m := make(map[string]any, len(x))
		for i, c := range rt.columns {
			m[c.Name] = x[i]
		}
		return rt.fromMap(m)
	default:
		return nil, dberror.TypeCoercion(v, rt.String())
	}
}

func (rt *RowType) fromMap(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, val := range in {
		col, known := rt.Column(key)
		if !known {
			switch rt.policy {
			case Strict:
				return nil, dberror.TypeCoercion(in, rt.String()).
					WithHint(fmt.Sprintf("column %q is not declared", key))
			case Ignored:
				continue
			}
			out[key] = val
			continue
		}
		coerced, err := col.Type.Value(val)
		if err != nil {
			return nil, err
		}
		out[key] = coerced
	}
	return out, nil
}

// Compare orders by the declared columns, then by the sorted extra keys.
func (rt *RowType) Compare(a, b any) (int, error) {
	if r, ok := compareNulls(a, b); ok {
		return r, nil
	}
	av, err := rt.Value(a)
	if err != nil {
		return 0, err
	}
	bv, err := rt.Value(b)
	if err != nil {
		return 0, err
	}
	x, y := av.(map[string]any), bv.(map[string]any)
	for _, c := range rt.columns {
		r, err := c.Type.Compare(x[c.Name], y[c.Name])
		if err != nil || r != 0 {
			return r, err
		}
	}

	xs, ys := rt.extraKeys(x), rt.extraKeys(y)
	for i := 0; i < len(xs) && i < len(ys); i++ {
		if r := strings.Compare(xs[i], ys[i]); r != 0 {
			return r, nil
		}
		vt := Guess(x[xs[i]])
		r, err := vt.Compare(x[xs[i]], y[ys[i]])
		if err != nil || r != 0 {
			return r, err
		}
	}
	return len(xs) - len(ys), nil
}

func (rt *RowType) extraKeys(m map[string]any) []string {
	var keys []string
	for k := range m {
		if _, known := rt.index[k]; !known {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Streamer writes declared columns in order with their own streamers,
// followed by a count of extra keys and key/value pairs in generic form.
func (rt *RowType) Streamer() Streamer {
	return nullable{
		value: rt.Value,
		write: func(out *StreamOutput, v any) error {
			m := v.(map[string]any)
			if err := out.WriteVInt(len(rt.columns)); err != nil {
				return err
			}
			for _, c := range rt.columns {
				if err := c.Type.Streamer().WriteValue(out, m[c.Name]); err != nil {
					return err
				}
			}
			extras := rt.extraKeys(m)
			if err := out.WriteVInt(len(extras)); err != nil {
				return err
			}
			for _, k := range extras {
				if err := out.WriteString(k); err != nil {
					return err
				}
				if err := (genericStreamer{}).WriteValue(out, m[k]); err != nil {
					return err
				}
			}
			return nil
		},
		read: func(in *StreamInput) (any, error) {
			n, err := in.ReadVInt()
			if err != nil {
				return nil, err
			}
			if n != len(rt.columns) {
				return nil, errors.Newf("row stream has %d columns, type declares %d", n, len(rt.columns))
			}
			m := make(map[string]any, n)
			for _, c := range rt.columns {
				v, err := c.Type.Streamer().ReadValue(in)
				if err != nil {
					return nil, err
				}
				m[c.Name] = v
			}
			extras, err := in.ReadVInt()
			if err != nil {
				return nil, err
			}
			for range extras {
				k, err := in.ReadString()
				if err != nil {
					return nil, err
				}
				v, err := (genericStreamer{}).ReadValue(in)
				if err != nil {
					return nil, err
				}
				m[k] = v
			}
			return m, nil
		},
	}
}
