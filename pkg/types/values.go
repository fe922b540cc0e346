package types

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dberror "dexql/pkg/error"
)

// compareNulls orders nil first. ok is false when both operands are non-nil.
func compareNulls(a, b any) (result int, ok bool) {
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return -1, true
	case b == nil:
		return 1, true
	}
	return 0, false
}

// compareCoerced coerces both operands through value and compares them.
func compareCoerced[T any](a, b any, value func(any) (any, error), compare func(x, y T) int) (int, error) {
	if r, ok := compareNulls(a, b); ok {
		return r, nil
	}
	x, err := value(a)
	if err != nil {
		return 0, err
	}
	y, err := value(b)
	if err != nil {
		return 0, err
	}
	return compare(x.(T), y.(T)), nil
}

func toInt64(v any, typeName string) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, dberror.TypeCoercion(v, typeName)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, dberror.TypeCoercion(v, typeName)
		}
		return int64(x), nil
	case float32:
		return floatToInt64(float64(x), v, typeName)
	case float64:
		return floatToInt64(x, v, typeName)
	case decimal.Decimal:
		if !x.IsInteger() {
			x = x.Truncate(0)
		}
		if x.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || x.LessThan(decimal.NewFromInt(math.MinInt64)) {
			return 0, dberror.TypeCoercion(v, typeName)
		}
		return x.IntPart(), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, dberror.TypeCoercion(v, typeName)
		}
		return n, nil
	default:
		return 0, dberror.TypeCoercion(v, typeName)
	}
}

func floatToInt64(f float64, orig any, typeName string) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, dberror.TypeCoercion(orig, typeName)
	}
	return int64(f), nil
}

func toFloat64(v any, typeName string) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case decimal.Decimal:
		return x.InexactFloat64(), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, dberror.TypeCoercion(v, typeName)
		}
		return f, nil
	}
	n, err := toInt64(v, typeName)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}

func toDecimal(v any, typeName string) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, dberror.TypeCoercion(v, typeName)
		}
		return decimal.NewFromFloat(x), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, dberror.TypeCoercion(v, typeName)
		}
		return d, nil
	}
	n, err := toInt64(v, typeName)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(n), nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toEpochMillis(v any, typeName string) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UnixMilli(), nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UnixMilli(), nil
			}
		}
		return 0, dberror.TypeCoercion(v, typeName)
	}
	return toInt64(v, typeName)
}

func compareFloats[T float32 | float64](a, b T) int {
	return cmp.Compare(a, b)
}
