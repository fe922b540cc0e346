package functions

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	dberror "dexql/pkg/error"
	"dexql/pkg/types"
)

var (
	comparableTypes = []types.DataType{
		types.Boolean, types.Byte, types.Short, types.Integer, types.Long,
		types.Float, types.Double, types.Numeric, types.String, types.Timestamp,
	}
	numericTypes = []types.DataType{
		types.Byte, types.Short, types.Integer, types.Long,
		types.Float, types.Double, types.Numeric,
	}
)

var comparisons = map[string]func(int) bool{
	"op_=":  func(c int) bool { return c == 0 },
	"op_<>": func(c int) bool { return c != 0 },
	"op_<":  func(c int) bool { return c < 0 },
	"op_<=": func(c int) bool { return c <= 0 },
	"op_>":  func(c int) bool { return c > 0 },
	"op_>=": func(c int) bool { return c >= 0 },
}

// Names of the operator functions the analyzer lowers syntax to.
const (
	And    = "op_and"
	Or     = "op_or"
	Not    = "op_not"
	IsNull = "op_isnull"
	Equals = "op_="
)

func registerBuiltins(r *Registry) {
	must := func(sig *Signature) {
		if err := r.Register(sig); err != nil {
			panic(err)
		}
	}

	for _, name := range []string{"op_=", "op_<>", "op_<", "op_<=", "op_>", "op_>="} {
		holds := comparisons[name]
		for _, t := range comparableTypes {
			must(&Signature{
				Name: name, Arguments: []types.DataType{t, t}, ReturnType: types.Boolean, Strict: true,
				Eval: func(args []any) (any, error) {
					c, err := t.Compare(args[0], args[1])
					if err != nil {
						return nil, err
					}
					return holds(c), nil
				},
			})
		}
	}

	boolean2 := []types.DataType{types.Boolean, types.Boolean}
	must(&Signature{Name: And, Arguments: boolean2, ReturnType: types.Boolean, Eval: evalAnd})
	must(&Signature{Name: Or, Arguments: boolean2, ReturnType: types.Boolean, Eval: evalOr})
	must(&Signature{
		Name: Not, Arguments: []types.DataType{types.Boolean}, ReturnType: types.Boolean, Strict: true,
		Eval: func(args []any) (any, error) { return !args[0].(bool), nil },
	})
	for _, t := range append(comparableTypes, types.Object) {
		must(&Signature{
			Name: IsNull, Arguments: []types.DataType{t}, ReturnType: types.Boolean,
			Eval: func(args []any) (any, error) { return args[0] == nil, nil },
		})
		must(&Signature{
			Name: "coalesce", Arguments: []types.DataType{t}, ReturnType: t, Variadic: true,
			Eval: func(args []any) (any, error) {
				for _, a := range args {
					if a != nil {
						return a, nil
					}
				}
				return nil, nil
			},
		})
	}

	for _, t := range numericTypes {
		for _, op := range []arithmeticOp{opAdd, opSubtract, opMultiply, opDivide, opModulus} {
			must(&Signature{
				Name: op.String(), Arguments: []types.DataType{t, t}, ReturnType: t, Strict: true,
				Eval: arithmetic(t, op),
			})
		}
		must(&Signature{
			Name: "abs", Arguments: []types.DataType{t}, ReturnType: t, Strict: true,
			Eval: absolute(t),
		})
	}

	str := []types.DataType{types.String}
	must(&Signature{
		Name: "lower", Arguments: str, ReturnType: types.String, Strict: true,
		Eval: func(args []any) (any, error) { return strings.ToLower(args[0].(string)), nil },
	})
	must(&Signature{
		Name: "upper", Arguments: str, ReturnType: types.String, Strict: true,
		Eval: func(args []any) (any, error) { return strings.ToUpper(args[0].(string)), nil },
	})
	must(&Signature{
		Name: "concat", Arguments: str, ReturnType: types.String, Variadic: true,
		Eval: func(args []any) (any, error) {
			var b strings.Builder
			for _, a := range args {
				if a != nil {
					b.WriteString(a.(string))
				}
			}
			return b.String(), nil
		},
	})
}

// evalAnd is three-valued: false wins over null.
func evalAnd(args []any) (any, error) {
	sawNull := false
	for _, a := range args {
		if a == nil {
			sawNull = true
		} else if !a.(bool) {
			return false, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return true, nil
}

// evalOr is three-valued: true wins over null.
func evalOr(args []any) (any, error) {
	sawNull := false
	for _, a := range args {
		if a == nil {
			sawNull = true
		} else if a.(bool) {
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return false, nil
}

type arithmeticOp int

const (
	opAdd arithmeticOp = iota
	opSubtract
	opMultiply
	opDivide
	opModulus
)

func (o arithmeticOp) String() string {
	return [...]string{"add", "subtract", "multiply", "divide", "modulus"}[o]
}

func errDivisionByZero() error {
	return dberror.New(dberror.ErrCategoryData, dberror.CodeExecutionFailed, "division by zero")
}

func errOverflow(t types.DataType) error {
	return dberror.New(dberror.ErrCategoryData, dberror.CodeExecutionFailed, "numeric overflow").
		WithDetail("result out of range for %s", t.Name())
}

func arithmetic(t types.DataType, op arithmeticOp) EvalFunc {
	switch t.ID() {
	case types.FloatID, types.DoubleID:
		return func(args []any) (any, error) {
			a, b := asFloat64(args[0]), asFloat64(args[1])
			var r float64
			switch op {
			case opAdd:
				r = a + b
			case opSubtract:
				r = a - b
			case opMultiply:
				r = a * b
			case opDivide, opModulus:
				if b == 0 {
					return nil, errDivisionByZero()
				}
				if op == opDivide {
					r = a / b
				} else {
					r = math.Mod(a, b)
				}
			}
			return t.Value(r)
		}
	case types.NumericID:
		return func(args []any) (any, error) {
			a, b := args[0].(decimal.Decimal), args[1].(decimal.Decimal)
			switch op {
			case opAdd:
				return a.Add(b), nil
			case opSubtract:
				return a.Sub(b), nil
			case opMultiply:
				return a.Mul(b), nil
			default:
				if b.IsZero() {
					return nil, errDivisionByZero()
				}
				if op == opDivide {
					return a.Div(b), nil
				}
				return a.Mod(b), nil
			}
		}
	default:
		return func(args []any) (any, error) {
			a, b := asInt64(args[0]), asInt64(args[1])
			r, ok := int64(0), true
			switch op {
			case opAdd:
				r = a + b
				ok = (r > a) == (b > 0)
			case opSubtract:
				r = a - b
				ok = (r < a) == (b > 0)
			case opMultiply:
				r = a * b
				ok = a == 0 || (r/a == b && !(a == -1 && b == math.MinInt64))
			default:
				if b == 0 {
					return nil, errDivisionByZero()
				}
				if a == math.MinInt64 && b == -1 {
					if op == opModulus {
						return t.Value(int64(0))
					}
					return nil, errOverflow(t)
				}
				if op == opDivide {
					r = a / b
				} else {
					r = a % b
				}
			}
			if !ok {
				return nil, errOverflow(t)
			}
			v, err := t.Value(r)
			if err != nil {
				return nil, errOverflow(t)
			}
			return v, nil
		}
	}
}

func absolute(t types.DataType) EvalFunc {
	return func(args []any) (any, error) {
		switch x := args[0].(type) {
		case decimal.Decimal:
			return x.Abs(), nil
		case float32, float64:
			return t.Value(math.Abs(asFloat64(x)))
		default:
			n := asInt64(x)
			if n == math.MinInt64 {
				return nil, errOverflow(t)
			}
			if n < 0 {
				n = -n
			}
			v, err := t.Value(n)
			if err != nil {
				return nil, errOverflow(t)
			}
			return v, nil
		}
	}
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	default:
		return x.(int64)
	}
}

func asFloat64(v any) float64 {
	if f, ok := v.(float32); ok {
		return float64(f)
	}
	return v.(float64)
}
