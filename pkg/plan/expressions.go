// Package plan is the typed tree produced by statement analysis. Every
// expression knows its DataType; relations expose their output fields.
package plan

import (
	"strconv"
	"strings"

	"dexql/pkg/functions"
	"dexql/pkg/types"
)

// Expression is a typed expression.
type Expression interface {
	Type() types.DataType
	String() string
}

// Literal is a constant already coerced to its type.
type Literal struct {
	Value    any
	DataType types.DataType
}

// NewLiteral coerces v to t.
func NewLiteral(t types.DataType, v any) (*Literal, error) {
	coerced, err := t.Value(v)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: coerced, DataType: t}, nil
}

func (l *Literal) Type() types.DataType { return l.DataType }

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		s, err := types.String.Value(v)
		if err != nil {
			return "?"
		}
		return s.(string)
	}
}

// Field is a column exported by a relation.
type Field struct {
	Relation AnalysedRelation
	Name     string
	Index    int // position in Relation.Fields()
	DataType types.DataType
}

func (f *Field) Type() types.DataType { return f.DataType }

func (f *Field) String() string {
	if f.Relation == nil || f.Relation.Name() == "" {
		return f.Name
	}
	return f.Relation.Name() + "." + f.Name
}

// Function is a resolved call.
type Function struct {
	Signature *functions.Signature
	Arguments []Expression
}

func (f *Function) Type() types.DataType { return f.Signature.ReturnType }

func (f *Function) String() string {
	var b strings.Builder
	b.WriteString(f.Signature.Name)
	b.WriteString("(")
	for i, a := range f.Arguments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString(")")
	return b.String()
}

// Parameter is a positional parameter. Index is 0-based.
type Parameter struct {
	Index    int
	DataType types.DataType
}

func (p *Parameter) Type() types.DataType { return p.DataType }
func (p *Parameter) String() string       { return "$" + strconv.Itoa(p.Index+1) }

type When struct {
	Condition Expression
	Result    Expression
}

// Case is a searched CASE. Default may be nil.
type Case struct {
	Whens    []When
	Default  Expression
	DataType types.DataType
}

func (c *Case) Type() types.DataType { return c.DataType }

func (c *Case) String() string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, w := range c.Whens {
		b.WriteString(" WHEN ")
		b.WriteString(w.Condition.String())
		b.WriteString(" THEN ")
		b.WriteString(w.Result.String())
	}
	if c.Default != nil {
		b.WriteString(" ELSE ")
		b.WriteString(c.Default.String())
	}
	b.WriteString(" END")
	return b.String()
}

type Cast struct {
	Operand Expression
	Target  types.DataType
}

func (c *Cast) Type() types.DataType { return c.Target }
func (c *Cast) String() string {
	return "CAST(" + c.Operand.String() + " AS " + c.Target.Name() + ")"
}

// Aliased names a select list expression.
type Aliased struct {
	Alias      string
	Expression Expression
}

func (a *Aliased) Type() types.DataType { return a.Expression.Type() }
func (a *Aliased) String() string       { return a.Expression.String() + " AS " + a.Alias }

// Walk calls fn for e and its sub-expressions, depth first. Returning false
// skips the children of the current node.
func Walk(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Function:
		for _, a := range n.Arguments {
			Walk(a, fn)
		}
	case *Case:
		for _, w := range n.Whens {
			Walk(w.Condition, fn)
			Walk(w.Result, fn)
		}
		Walk(n.Default, fn)
	case *Cast:
		Walk(n.Operand, fn)
	case *Aliased:
		Walk(n.Expression, fn)
	}
}

// Fields returns the fields referenced by e in visit order.
func Fields(e Expression) []*Field {
	var out []*Field
	Walk(e, func(x Expression) bool {
		if f, ok := x.(*Field); ok {
			out = append(out, f)
		}
		return true
	})
	return out
}

// Conjuncts splits e at op_and calls.
func Conjuncts(e Expression) []Expression {
	if e == nil {
		return nil
	}
	if f, ok := e.(*Function); ok && f.Signature.Name == functions.And {
		var out []Expression
		for _, a := range f.Arguments {
			out = append(out, Conjuncts(a)...)
		}
		return out
	}
	return []Expression{e}
}
