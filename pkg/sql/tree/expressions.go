package tree

import (
	"fmt"
	"strconv"
	"strings"
)

type StringLiteral struct{ Value string }
type LongLiteral struct{ Value int64 }
type DoubleLiteral struct{ Value float64 }
type BooleanLiteral struct{ Value bool }
type NullLiteral struct{}

func (l *StringLiteral) String() string {
	return "'" + strings.ReplaceAll(l.Value, "'", "''") + "'"
}
func (l *LongLiteral) String() string    { return strconv.FormatInt(l.Value, 10) }
func (l *DoubleLiteral) String() string  { return strconv.FormatFloat(l.Value, 'g', -1, 64) }
func (l *BooleanLiteral) String() string { return strconv.FormatBool(l.Value) }
func (*NullLiteral) String() string      { return "NULL" }

// QualifiedNameReference refers to a column.
type QualifiedNameReference struct {
	Name QualifiedName
}

func (r *QualifiedNameReference) String() string { return r.Name.String() }

type FunctionCall struct {
	Name      QualifiedName
	Arguments []Expression
	Distinct  bool
}

func (f *FunctionCall) String() string {
	var b sqlBuilder
	b.WriteString(f.Name.String())
	b.WriteString("(")
	b.writeIf(f.Distinct, "DISTINCT ")
	writeList(&b, f.Arguments, ", ")
	b.WriteString(")")
	return b.String()
}

// ParameterExpression is a positional parameter. Position is 1-based.
type ParameterExpression struct {
	Position int
}

func (p *ParameterExpression) String() string { return "$" + strconv.Itoa(p.Position) }

type WhenClause struct {
	Operand Expression
	Result  Expression
}

func (w WhenClause) String() string {
	return "WHEN " + w.Operand.String() + " THEN " + w.Result.String()
}

// SearchedCase is CASE WHEN cond THEN result ... [ELSE default] END.
type SearchedCase struct {
	WhenClauses []WhenClause
	Default     Expression
}

func (c *SearchedCase) String() string {
	var b sqlBuilder
	b.WriteString("CASE ")
	writeList(&b, c.WhenClauses, " ")
	if c.Default != nil {
		b.WriteString(" ELSE ")
		b.WriteString(c.Default.String())
	}
	b.WriteString(" END")
	return b.String()
}

type ComparisonOperator int

const (
	Equal ComparisonOperator = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

var comparisonSymbols = [...]string{"=", "<>", "<", "<=", ">", ">="}

func (o ComparisonOperator) String() string {
	if int(o) < len(comparisonSymbols) {
		return comparisonSymbols[o]
	}
	return fmt.Sprintf("ComparisonOperator(%d)", int(o))
}

// FunctionName is the operator function the comparison lowers to.
func (o ComparisonOperator) FunctionName() string { return "op_" + o.String() }

type ComparisonExpression struct {
	Operator    ComparisonOperator
	Left, Right Expression
}

func (c *ComparisonExpression) String() string {
	return c.Left.String() + " " + c.Operator.String() + " " + c.Right.String()
}

type LogicalOperator int

const (
	And LogicalOperator = iota
	Or
)

func (o LogicalOperator) String() string {
	if o == Or {
		return "OR"
	}
	return "AND"
}

func (o LogicalOperator) FunctionName() string { return "op_" + strings.ToLower(o.String()) }

type LogicalBinaryExpression struct {
	Operator    LogicalOperator
	Left, Right Expression
}

func (l *LogicalBinaryExpression) String() string {
	return "(" + l.Left.String() + " " + l.Operator.String() + " " + l.Right.String() + ")"
}

type NotExpression struct {
	Value Expression
}

func (n *NotExpression) String() string { return "NOT " + n.Value.String() }

type IsNullPredicate struct {
	Value Expression
}

func (p *IsNullPredicate) String() string { return p.Value.String() + " IS NULL" }

type IsNotNullPredicate struct {
	Value Expression
}

func (p *IsNotNullPredicate) String() string { return p.Value.String() + " IS NOT NULL" }

type ArithmeticOperator int

const (
	Add ArithmeticOperator = iota
	Subtract
	Multiply
	Divide
	Modulus
)

var arithmetic = [...]struct{ symbol, function string }{
	{"+", "add"},
	{"-", "subtract"},
	{"*", "multiply"},
	{"/", "divide"},
	{"%", "modulus"},
}

func (o ArithmeticOperator) String() string {
	if int(o) < len(arithmetic) {
		return arithmetic[o].symbol
	}
	return fmt.Sprintf("ArithmeticOperator(%d)", int(o))
}

func (o ArithmeticOperator) FunctionName() string {
	if int(o) < len(arithmetic) {
		return arithmetic[o].function
	}
	return ""
}

type ArithmeticExpression struct {
	Operator    ArithmeticOperator
	Left, Right Expression
}

func (a *ArithmeticExpression) String() string {
	return "(" + a.Left.String() + " " + a.Operator.String() + " " + a.Right.String() + ")"
}

// Cast converts Expression to the type named Type.
type Cast struct {
	Expression Expression
	Type       string
}

func (c *Cast) String() string {
	return "CAST(" + c.Expression.String() + " AS " + c.Type + ")"
}

func (*StringLiteral) expressionNode()           {}
func (*LongLiteral) expressionNode()             {}
func (*DoubleLiteral) expressionNode()           {}
func (*BooleanLiteral) expressionNode()          {}
func (*NullLiteral) expressionNode()             {}
func (*QualifiedNameReference) expressionNode()  {}
func (*FunctionCall) expressionNode()            {}
func (*ParameterExpression) expressionNode()     {}
func (*SearchedCase) expressionNode()            {}
func (*ComparisonExpression) expressionNode()    {}
func (*LogicalBinaryExpression) expressionNode() {}
func (*NotExpression) expressionNode()           {}
func (*IsNullPredicate) expressionNode()         {}
func (*IsNotNullPredicate) expressionNode()      {}
func (*ArithmeticExpression) expressionNode()    {}
func (*Cast) expressionNode()                    {}

// Column is shorthand for a column reference built from dotted parts.
func Column(parts ...string) *QualifiedNameReference {
	return &QualifiedNameReference{Name: NewQualifiedName(parts...)}
}

// Compare is shorthand for a comparison.
func Compare(op ComparisonOperator, left, right Expression) *ComparisonExpression {
	return &ComparisonExpression{Operator: op, Left: left, Right: right}
}

// Call is shorthand for a function call.
func Call(name string, args ...Expression) *FunctionCall {
	return &FunctionCall{Name: ParseQualifiedName(name), Arguments: args}
}
