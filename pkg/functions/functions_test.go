package functions

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberror "dexql/pkg/error"
	"dexql/pkg/types"
)

func resolve(t *testing.T, name string, args ...types.DataType) *Signature {
	t.Helper()
	sig, ok := Builtins().Resolve(name, args)
	require.True(t, ok, "no overload for %s%v", name, args)
	return sig
}

func TestResolvePrefersExactMatch(t *testing.T) {
	sig := resolve(t, "add", types.Integer, types.Integer)
	assert.Equal(t, types.Integer, sig.ReturnType)
}

func TestResolvePrefersNarrowestWidening(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []types.DataType
		want types.DataType
	}{
		{"integer and long", "add", []types.DataType{types.Integer, types.Long}, types.Long},
		{"long and double", "multiply", []types.DataType{types.Long, types.Double}, types.Double},
		{"long and string compare as strings", "op_=", []types.DataType{types.Long, types.String}, types.String},
		{"byte and short", "op_<", []types.DataType{types.Byte, types.Short}, types.Short},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := resolve(t, tt.fn, tt.args...)
			assert.Equal(t, tt.want, sig.ArgumentType(0))
			assert.Equal(t, tt.want, sig.ArgumentType(1))
		})
	}
}

func TestResolveFallsBackToWidestConversion(t *testing.T) {
	// String narrows to a number, so only a non-widening candidate exists.
	sig := resolve(t, "add", types.String, types.Long)
	assert.Equal(t, types.Numeric, sig.ReturnType)
}

func TestResolveUndefinedMatchesAnything(t *testing.T) {
	sig := resolve(t, "op_=", types.Undefined, types.Long)
	assert.Equal(t, types.Long, sig.ArgumentType(1))

	sig = resolve(t, "coalesce", types.Undefined, types.String)
	assert.Equal(t, types.String, sig.ReturnType)
}

func TestResolveFailures(t *testing.T) {
	_, ok := Builtins().Resolve("no_such_fn", nil)
	assert.False(t, ok)
	_, ok = Builtins().Resolve("lower", []types.DataType{types.String, types.String})
	assert.False(t, ok, "arity")
	_, ok = Builtins().Resolve("op_and", []types.DataType{types.Timestamp, types.Boolean})
	assert.False(t, ok, "timestamp does not convert to boolean")
	_, ok = Builtins().Resolve("concat", nil)
	assert.False(t, ok, "variadic needs one argument")
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	_, ok := Builtins().Resolve("UPPER", []types.DataType{types.String})
	assert.True(t, ok)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	sig := &Signature{Name: "f", Arguments: []types.DataType{types.Long}, ReturnType: types.Long,
		Eval: func(args []any) (any, error) { return args[0], nil }}
	require.NoError(t, r.Register(sig))
	assert.Error(t, r.Register(sig))
	assert.Error(t, r.Register(&Signature{Name: "g"}), "missing evaluator")
	assert.Error(t, r.Register(&Signature{Name: "h", Variadic: true, Eval: sig.Eval}))
	assert.Equal(t, "f(long) -> long", sig.String())
}

func invoke(t *testing.T, sig *Signature, args ...any) any {
	t.Helper()
	v, err := sig.Invoke(args)
	require.NoError(t, err)
	return v
}

func TestComparisonsCoerceAndPropagateNull(t *testing.T) {
	eq := resolve(t, "op_=", types.Long, types.Long)
	assert.Equal(t, true, invoke(t, eq, int64(2), int32(2)))
	assert.Nil(t, invoke(t, eq, nil, int64(2)))

	ge := resolve(t, "op_>=", types.String, types.String)
	assert.Equal(t, false, invoke(t, ge, "a", "b"))
}

func TestThreeValuedLogic(t *testing.T) {
	and := resolve(t, And, types.Boolean, types.Boolean)
	or := resolve(t, Or, types.Boolean, types.Boolean)
	not := resolve(t, Not, types.Boolean)

	assert.Equal(t, false, invoke(t, and, nil, false))
	assert.Nil(t, invoke(t, and, nil, true))
	assert.Equal(t, true, invoke(t, and, true, true))
	assert.Equal(t, true, invoke(t, or, nil, true))
	assert.Nil(t, invoke(t, or, nil, false))
	assert.Equal(t, false, invoke(t, or, false, false))
	assert.Equal(t, false, invoke(t, not, true))
	assert.Nil(t, invoke(t, not, nil))

	isNull := resolve(t, IsNull, types.Long)
	assert.Equal(t, true, invoke(t, isNull, nil))
	assert.Equal(t, false, invoke(t, isNull, int64(0)))
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		fn   string
		typ  types.DataType
		a, b any
		want any
	}{
		{"add", types.Long, int64(2), int64(3), int64(5)},
		{"subtract", types.Integer, int32(2), int32(5), int32(-3)},
		{"multiply", types.Double, 1.5, 2.0, 3.0},
		{"divide", types.Long, int64(7), int64(2), int64(3)},
		{"modulus", types.Long, int64(7), int64(2), int64(1)},
		{"modulus", types.Double, 7.5, 2.0, 1.5},
		{"add", types.Numeric, decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"), decimal.RequireFromString("0.3")},
	}
	for _, tt := range tests {
		t.Run(tt.fn+"/"+tt.typ.Name(), func(t *testing.T) {
			sig := resolve(t, tt.fn, tt.typ, tt.typ)
			got := invoke(t, sig, tt.a, tt.b)
			if d, ok := tt.want.(decimal.Decimal); ok {
				assert.True(t, d.Equal(got.(decimal.Decimal)), "got %v", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArithmeticErrors(t *testing.T) {
	div := resolve(t, "divide", types.Long, types.Long)
	_, err := div.Invoke([]any{int64(1), int64(0)})
	assert.True(t, dberror.Is(err, dberror.CodeExecutionFailed))

	add := resolve(t, "add", types.Byte, types.Byte)
	_, err = add.Invoke([]any{int8(120), int8(10)})
	assert.Error(t, err, "byte overflow")

	mul := resolve(t, "multiply", types.Long, types.Long)
	_, err = mul.Invoke([]any{int64(1) << 62, int64(4)})
	assert.Error(t, err, "long overflow")

	assert.Nil(t, invoke(t, add, nil, int8(1)))
}

func TestStringFunctions(t *testing.T) {
	assert.Equal(t, "abc", invoke(t, resolve(t, "lower", types.String), "AbC"))
	assert.Equal(t, "ABC", invoke(t, resolve(t, "upper", types.String), "abc"))

	concat := resolve(t, "concat", types.String, types.String, types.Long)
	assert.Equal(t, "ab1", invoke(t, concat, "a", "b", int64(1)))
	assert.Equal(t, "a", invoke(t, concat, "a", nil), "nulls are skipped")

	coalesce := resolve(t, "coalesce", types.Long, types.Long)
	assert.Equal(t, int64(3), invoke(t, coalesce, nil, int32(3)))

	abs := resolve(t, "abs", types.Integer)
	assert.Equal(t, int32(4), invoke(t, abs, int32(-4)))
	assert.Equal(t, 2.5, invoke(t, resolve(t, "abs", types.Double), -2.5))
}
