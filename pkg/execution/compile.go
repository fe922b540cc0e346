package execution

import (
	"github.com/cockroachdb/errors"

	dberror "dexql/pkg/error"
	"dexql/pkg/plan"
	"dexql/pkg/row"
	"dexql/pkg/types"
)

// Evaluator computes an expression over one input row.
type Evaluator func(r row.Row) (any, error)

// Layout maps the relations an input row is made of to the column each one
// starts at. A join row of users and orders has users at 0 and orders at
// len(users.Fields()).
type Layout struct {
	offsets map[plan.AnalysedRelation]int
	width   int
}

// NewLayout places relations side by side in the given order.
func NewLayout(relations ...plan.AnalysedRelation) *Layout {
	l := &Layout{offsets: make(map[plan.AnalysedRelation]int, len(relations))}
	for _, rel := range relations {
		l.offsets[rel] = l.width
		l.width += len(rel.Fields())
	}
	return l
}

// Width is the number of columns of a row with this layout.
func (l *Layout) Width() int { return l.width }

// Column returns the input column holding f.
func (l *Layout) Column(f *plan.Field) (int, bool) {
	off, ok := l.offsets[f.Relation]
	if !ok {
		return 0, false
	}
	return off + f.Index, true
}

// Compile turns e into an Evaluator. params are the values of the current
// execution and are coerced to the type analysis guessed for them.
func Compile(e plan.Expression, layout *Layout, params []any) (Evaluator, error) {
	switch n := e.(type) {
	case *plan.Literal:
		v := n.Value
		return func(row.Row) (any, error) { return v, nil }, nil

	case *plan.Field:
		col, ok := layout.Column(n)
		if !ok {
			return nil, errors.AssertionFailedf("field %s is not part of the input row", n)
		}
		return func(r row.Row) (any, error) { return r.Get(col), nil }, nil

	case *plan.Parameter:
		if n.Index < 0 || n.Index >= len(params) {
			return nil, dberror.ParameterIndexOutOfBounds(n.Index+1, len(params))
		}
		v, err := n.DataType.Value(params[n.Index])
		if err != nil {
			return nil, err
		}
		return func(row.Row) (any, error) { return v, nil }, nil

	case *plan.Function:
		args, err := compileAll(n.Arguments, layout, params)
		if err != nil {
			return nil, err
		}
		sig := n.Signature
		return func(r row.Row) (any, error) {
			values := make([]any, len(args))
			for i, arg := range args {
				v, err := arg(r)
				if err != nil {
					return nil, err
				}
				values[i] = v
			}
			return sig.Invoke(values)
		}, nil

	case *plan.Case:
		return compileCase(n, layout, params)

	case *plan.Cast:
		operand, err := Compile(n.Operand, layout, params)
		if err != nil {
			return nil, err
		}
		target := n.Target
		return func(r row.Row) (any, error) {
			v, err := operand(r)
			if err != nil {
				return nil, err
			}
			return target.Value(v)
		}, nil

	case *plan.Aliased:
		return Compile(n.Expression, layout, params)

	default:
		return nil, dberror.UnsupportedFeature("evaluation of " + e.String())
	}
}

func compileAll(exprs []plan.Expression, layout *Layout, params []any) ([]Evaluator, error) {
	out := make([]Evaluator, len(exprs))
	for i, e := range exprs {
		ev, err := Compile(e, layout, params)
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

func compileCase(c *plan.Case, layout *Layout, params []any) (Evaluator, error) {
	conds := make([]func(row.Row) (bool, error), len(c.Whens))
	results := make([]Evaluator, len(c.Whens))
	for i, w := range c.Whens {
		cond, err := CompilePredicate(w.Condition, layout, params)
		if err != nil {
			return nil, err
		}
		res, err := Compile(w.Result, layout, params)
		if err != nil {
			return nil, err
		}
		conds[i], results[i] = cond, res
	}
	var def Evaluator
	if c.Default != nil {
		var err error
		if def, err = Compile(c.Default, layout, params); err != nil {
			return nil, err
		}
	}

	typ := c.DataType
	return func(r row.Row) (any, error) {
		for i, cond := range conds {
			ok, err := cond(r)
			if err != nil {
				return nil, err
			}
			if ok {
				v, err := results[i](r)
				if err != nil {
					return nil, err
				}
				return typ.Value(v)
			}
		}
		if def == nil {
			return nil, nil
		}
		v, err := def(r)
		if err != nil {
			return nil, err
		}
		return typ.Value(v)
	}, nil
}

// CompilePredicate compiles a boolean-convertible expression. Null counts as
// false.
func CompilePredicate(e plan.Expression, layout *Layout, params []any) (func(row.Row) (bool, error), error) {
	ev, err := Compile(e, layout, params)
	if err != nil {
		return nil, err
	}
	return func(r row.Row) (bool, error) {
		v, err := ev(r)
		if err != nil || v == nil {
			return false, err
		}
		b, err := types.Boolean.Value(v)
		if err != nil {
			return false, err
		}
		return b.(bool), nil
	}, nil
}
