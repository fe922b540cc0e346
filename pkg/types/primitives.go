package types

import (
	"cmp"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	dberror "dexql/pkg/error"
)

// undefinedType is the placeholder before inference completes. It accepts
// every value unchanged, converts to anything and treats all values as equal.
type undefinedType struct{ base }

func (undefinedType) Value(v any) (any, error)      { return v, nil }
func (undefinedType) Compare(_, _ any) (int, error) { return 0, nil }
func (undefinedType) Streamer() Streamer            { return genericStreamer{} }
func (undefinedType) IsConvertibleTo(DataType) bool { return true }

type notSupportedType struct{ base }

func (t notSupportedType) Value(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return nil, dberror.TypeCoercion(v, t.name)
}

func (t notSupportedType) Compare(a, b any) (int, error) {
	if r, ok := compareNulls(a, b); ok {
		return r, nil
	}
	return 0, dberror.TypeCoercion(a, t.name)
}

func (t notSupportedType) Streamer() Streamer {
	return nullable{
		value: t.Value,
		write: func(_ *StreamOutput, v any) error { return dberror.TypeCoercion(v, t.name) },
		read:  func(*StreamInput) (any, error) { return nil, dberror.TypeCoercion("stream", t.name) },
	}
}

type booleanType struct{ base }

func (booleanType) FixedSize() int { return 8 }

func (t booleanType) Value(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "t", "true":
			return true, nil
		case "f", "false":
			return false, nil
		}
		return nil, dberror.TypeCoercion(v, t.name)
	}
	if d, err := toDecimal(v, t.name); err == nil {
		return d.Sign() > 0, nil
	}
	return nil, dberror.TypeCoercion(v, t.name)
}

func (t booleanType) Compare(a, b any) (int, error) {
	return compareCoerced(a, b, t.Value, func(x, y bool) int {
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	})
}

func (t booleanType) Streamer() Streamer {
	return nullable{
		value: t.Value,
		write: func(out *StreamOutput, v any) error { return out.WriteBool(v.(bool)) },
		read:  func(in *StreamInput) (any, error) { return in.ReadBool() },
	}
}

// integral covers byte, short, integer and long.
type integral[T int8 | int16 | int32 | int64] struct {
	base
	min, max int64
	size     int
}

func newIntegral[T int8 | int16 | int32 | int64](id int, name string, size int) integral[T] {
	t := integral[T]{base: base{id, name}, size: size}
	switch any(T(0)).(type) {
	case int8:
		t.min, t.max = math.MinInt8, math.MaxInt8
	case int16:
		t.min, t.max = math.MinInt16, math.MaxInt16
	case int32:
		t.min, t.max = math.MinInt32, math.MaxInt32
	default:
		t.min, t.max = math.MinInt64, math.MaxInt64
	}
	return t
}

func (t integral[T]) FixedSize() int { return t.size }

func (t integral[T]) Value(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if x, ok := v.(T); ok {
		return x, nil
	}
	n, err := toInt64(v, t.name)
	if err != nil {
		return nil, err
	}
	if n < t.min || n > t.max {
		return nil, dberror.TypeCoercion(v, t.name)
	}
	return T(n), nil
}

func (t integral[T]) Compare(a, b any) (int, error) {
	return compareCoerced(a, b, t.Value, cmp.Compare[T])
}

func (t integral[T]) Streamer() Streamer {
	return nullable{
		value: t.Value,
		write: func(out *StreamOutput, v any) error {
			switch x := any(v.(T)).(type) {
			case int8:
				return out.WriteInt8(x)
			case int16:
				return out.WriteInt16(x)
			case int32:
				return out.WriteInt32(x)
			default:
				return out.WriteInt64(x.(int64))
			}
		},
		read: func(in *StreamInput) (any, error) {
			var zero T
			switch any(zero).(type) {
			case int8:
				return in.ReadInt8()
			case int16:
				return in.ReadInt16()
			case int32:
				return in.ReadInt32()
			default:
				return in.ReadInt64()
			}
		},
	}
}

// floating covers float and double.
type floating[T float32 | float64] struct {
	base
	size int
}

func newFloating[T float32 | float64](id int, name string, size int) floating[T] {
	return floating[T]{base: base{id, name}, size: size}
}

func (t floating[T]) FixedSize() int { return t.size }

func (t floating[T]) Value(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if x, ok := v.(T); ok {
		return x, nil
	}
	f, err := toFloat64(v, t.name)
	if err != nil {
		return nil, err
	}
	return T(f), nil
}

func (t floating[T]) Compare(a, b any) (int, error) {
	return compareCoerced(a, b, t.Value, compareFloats[T])
}

func (t floating[T]) Streamer() Streamer {
	return nullable{
		value: t.Value,
		write: func(out *StreamOutput, v any) error {
			if x, ok := v.(float32); ok {
				return out.WriteFloat32(x)
			}
			return out.WriteFloat64(v.(float64))
		},
		read: func(in *StreamInput) (any, error) {
			var zero T
			if _, ok := any(zero).(float32); ok {
				return in.ReadFloat32()
			}
			return in.ReadFloat64()
		},
	}
}

type stringType struct{ base }

func (t stringType) Value(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		if x {
			return "t", nil
		}
		return "f", nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case decimal.Decimal:
		return x.String(), nil
	}
	n, err := toInt64(v, t.name)
	if err != nil {
		return nil, err
	}
	return strconv.FormatInt(n, 10), nil
}

func (t stringType) Compare(a, b any) (int, error) {
	return compareCoerced(a, b, t.Value, strings.Compare)
}

func (t stringType) Streamer() Streamer {
	return nullable{
		value: t.Value,
		write: func(out *StreamOutput, v any) error { return out.WriteString(v.(string)) },
		read:  func(in *StreamInput) (any, error) { return in.ReadString() },
	}
}

// timestampType stores milliseconds since the Unix epoch as int64.
type timestampType struct{ base }

func (timestampType) FixedSize() int { return 16 }

func (t timestampType) Value(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	ms, err := toEpochMillis(v, t.name)
	if err != nil {
		return nil, err
	}
	return ms, nil
}

func (t timestampType) Compare(a, b any) (int, error) {
	return compareCoerced(a, b, t.Value, cmp.Compare[int64])
}

func (t timestampType) Streamer() Streamer {
	return nullable{
		value: t.Value,
		write: func(out *StreamOutput, v any) error { return out.WriteInt64(v.(int64)) },
		read:  func(in *StreamInput) (any, error) { return in.ReadInt64() },
	}
}

// numericType is an arbitrary precision decimal. It streams its canonical
// string form so scale survives the round trip.
type numericType struct{ base }

func (t numericType) Value(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	d, err := toDecimal(v, t.name)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (t numericType) Compare(a, b any) (int, error) {
	return compareCoerced(a, b, t.Value, decimal.Decimal.Cmp)
}

func (t numericType) Streamer() Streamer {
	return nullable{
		value: t.Value,
		write: func(out *StreamOutput, v any) error { return out.WriteString(v.(decimal.Decimal).String()) },
		read: func(in *StreamInput) (any, error) {
			s, err := in.ReadString()
			if err != nil {
				return nil, err
			}
			return decimal.NewFromString(s)
		},
	}
}
