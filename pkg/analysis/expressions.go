package analysis

import (
	"strings"

	dberror "dexql/pkg/error"
	"dexql/pkg/functions"
	"dexql/pkg/plan"
	"dexql/pkg/sql/tree"
	"dexql/pkg/types"
)

// FieldResolver maps a qualified name to the field it denotes.
type FieldResolver interface {
	Resolve(name tree.QualifiedName) (*plan.Field, error)
}

// ExpressionAnalyzer converts AST expressions to typed plan expressions.
type ExpressionAnalyzer struct {
	functions functions.Resolver
	params    *ParameterContext
}

func NewExpressionAnalyzer(fns functions.Resolver, params *ParameterContext) *ExpressionAnalyzer {
	if params == nil {
		params = EmptyParameters()
	}
	return &ExpressionAnalyzer{functions: fns, params: params}
}

// Parameters returns the context parameter placeholders resolve against.
func (a *ExpressionAnalyzer) Parameters() *ParameterContext { return a.params }

// Analyze types e. Column references resolve through scope.
func (a *ExpressionAnalyzer) Analyze(e tree.Expression, scope FieldResolver) (plan.Expression, error) {
	switch n := e.(type) {
	case *tree.NullLiteral:
		return &plan.Literal{DataType: types.Undefined}, nil
	case *tree.StringLiteral:
		return &plan.Literal{Value: n.Value, DataType: types.String}, nil
	case *tree.LongLiteral:
		return &plan.Literal{Value: n.Value, DataType: types.Long}, nil
	case *tree.DoubleLiteral:
		return &plan.Literal{Value: n.Value, DataType: types.Double}, nil
	case *tree.BooleanLiteral:
		return &plan.Literal{Value: n.Value, DataType: types.Boolean}, nil

	case *tree.QualifiedNameReference:
		return scope.Resolve(n.Name)

	case *tree.ParameterExpression:
		t, err := a.params.Type(n.Position - 1)
		if err != nil {
			return nil, err
		}
		return &plan.Parameter{Index: n.Position - 1, DataType: t}, nil

	case *tree.FunctionCall:
		if n.Distinct {
			return nil, dberror.UnsupportedFeature("DISTINCT inside " + n.String())
		}
		return a.call(n.Name.String(), scope, n.Arguments...)
	case *tree.ComparisonExpression:
		return a.call(n.Operator.FunctionName(), scope, n.Left, n.Right)
	case *tree.LogicalBinaryExpression:
		return a.call(n.Operator.FunctionName(), scope, n.Left, n.Right)
	case *tree.NotExpression:
		return a.call(functions.Not, scope, n.Value)
	case *tree.IsNullPredicate:
		return a.call(functions.IsNull, scope, n.Value)
	case *tree.IsNotNullPredicate:
		isNull, err := a.call(functions.IsNull, scope, n.Value)
		if err != nil {
			return nil, err
		}
		return a.resolve(functions.Not, isNull)
	case *tree.ArithmeticExpression:
		return a.call(n.Operator.FunctionName(), scope, n.Left, n.Right)

	case *tree.SearchedCase:
		return a.searchedCase(n, scope)

	case *tree.Cast:
		operand, err := a.Analyze(n.Expression, scope)
		if err != nil {
			return nil, err
		}
		target, ok := types.OfName(n.Type)
		if !ok {
			return nil, dberror.UnsupportedFeature("cast to unknown type " + n.Type)
		}
		if !operand.Type().IsConvertibleTo(target) {
			return nil, dberror.TypeCoercion(n.Expression.String(), target.Name())
		}
		return &plan.Cast{Operand: operand, Target: target}, nil

	default:
		return nil, dberror.UnsupportedFeature("expression " + e.String())
	}
}

// AnalyzeCondition types e and requires a boolean-convertible result.
func (a *ExpressionAnalyzer) AnalyzeCondition(e tree.Expression, scope FieldResolver) (plan.Expression, error) {
	out, err := a.Analyze(e, scope)
	if err != nil {
		return nil, err
	}
	if !out.Type().IsConvertibleTo(types.Boolean) {
		return nil, dberror.TypeCoercion(e.String(), types.Boolean.Name())
	}
	return out, nil
}

func (a *ExpressionAnalyzer) call(name string, scope FieldResolver, args ...tree.Expression) (plan.Expression, error) {
	typed := make([]plan.Expression, len(args))
	for i, arg := range args {
		t, err := a.Analyze(arg, scope)
		if err != nil {
			return nil, err
		}
		typed[i] = t
	}
	return a.resolve(name, typed...)
}

func (a *ExpressionAnalyzer) resolve(name string, args ...plan.Expression) (plan.Expression, error) {
	argTypes := make(typeList, len(args))
	for i, arg := range args {
		argTypes[i] = arg.Type()
	}
	sig, ok := a.functions.Resolve(name, argTypes)
	if !ok {
		return nil, dberror.UnknownFunction(name, argTypes)
	}
	return &plan.Function{Signature: sig, Arguments: args}, nil
}

func (a *ExpressionAnalyzer) searchedCase(n *tree.SearchedCase, scope FieldResolver) (plan.Expression, error) {
	out := &plan.Case{Whens: make([]plan.When, len(n.WhenClauses))}
	results := make([]tree.Expression, 0, len(n.WhenClauses)+1)
	typed := make([]plan.Expression, 0, len(n.WhenClauses)+1)

	for i, w := range n.WhenClauses {
		cond, err := a.AnalyzeCondition(w.Operand, scope)
		if err != nil {
			return nil, err
		}
		res, err := a.Analyze(w.Result, scope)
		if err != nil {
			return nil, err
		}
		out.Whens[i] = plan.When{Condition: cond, Result: res}
		results = append(results, w.Result)
		typed = append(typed, res)
	}
	if n.Default != nil {
		def, err := a.Analyze(n.Default, scope)
		if err != nil {
			return nil, err
		}
		out.Default = def
		results = append(results, n.Default)
		typed = append(typed, def)
	}

	// The widest result type wins; every other result has to convert to it.
	out.DataType = types.Undefined
	for _, t := range typed {
		if types.Precedence(t.Type()) > types.Precedence(out.DataType) {
			out.DataType = t.Type()
		}
	}
	for i, t := range typed {
		if !t.Type().IsConvertibleTo(out.DataType) {
			return nil, dberror.TypeCoercion(results[i].String(), out.DataType.Name())
		}
	}
	return out, nil
}

type typeList []types.DataType

func (l typeList) String() string {
	names := make([]string, len(l))
	for i, t := range l {
		names[i] = t.Name()
	}
	return strings.Join(names, ", ")
}
