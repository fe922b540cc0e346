package types

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberror "dexql/pkg/error"
)

// samples holds three ascending non-null values per type.
var samples = []struct {
	t      DataType
	values []any
}{
	{Boolean, []any{false, true}},
	{Byte, []any{int8(-3), int8(0), int8(100)}},
	{Short, []any{int16(-300), int16(1), int16(3000)}},
	{Integer, []any{int32(-70000), int32(1), int32(70000)}},
	{Long, []any{int64(math.MinInt64), int64(0), int64(math.MaxInt64)}},
	{Float, []any{float32(-1.5), float32(0), float32(2.25)}},
	{Double, []any{-1e300, 0.5, 1e300}},
	{String, []any{"", "abc", "abd"}},
	{Timestamp, []any{int64(-1000), int64(0), int64(1700000000000)}},
	{Numeric, []any{decimal.RequireFromString("-12.50"), decimal.Zero, decimal.RequireFromString("3.14159")}},
}

func TestIdentityAndEquality(t *testing.T) {
	seen := map[int]string{}
	for _, dt := range All() {
		if prev, dup := seen[dt.ID()]; dup {
			t.Fatalf("id %d used by %s and %s", dt.ID(), prev, dt.Name())
		}
		seen[dt.ID()] = dt.Name()

		got, ok := OfID(dt.ID())
		require.True(t, ok)
		assert.True(t, Equal(dt, got))
	}

	assert.True(t, Equal(Object, NewRowType([]Column{{"a", Integer}}, Strict)), "row types compare by id")
	assert.False(t, Equal(Integer, Long))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(Integer, nil))
}

func TestOfName(t *testing.T) {
	tests := map[string]DataType{
		"integer": Integer,
		"INT":     Integer,
		"text":    String,
		"bigint":  Long,
		"decimal": Numeric,
		"boolean": Boolean,
	}
	for name, want := range tests {
		got, ok := OfName(name)
		require.True(t, ok, name)
		assert.True(t, Equal(want, got), name)
	}
	_, ok := OfName("geo_shape")
	assert.False(t, ok)
}

func TestCompareIsNullSafe(t *testing.T) {
	for _, s := range samples {
		t.Run(s.t.Name(), func(t *testing.T) {
			r, err := s.t.Compare(nil, nil)
			require.NoError(t, err)
			assert.Equal(t, 0, r)

			for _, v := range s.values {
				r, err = s.t.Compare(nil, v)
				require.NoError(t, err)
				assert.Less(t, r, 0)

				r, err = s.t.Compare(v, nil)
				require.NoError(t, err)
				assert.Greater(t, r, 0)
			}
		})
	}
}

func TestCompareIsAntisymmetricAndTransitive(t *testing.T) {
	for _, s := range samples {
		t.Run(s.t.Name(), func(t *testing.T) {
			for i := range s.values {
				for j := range s.values {
					ij, err := s.t.Compare(s.values[i], s.values[j])
					require.NoError(t, err)
					ji, err := s.t.Compare(s.values[j], s.values[i])
					require.NoError(t, err)

					assert.Equal(t, sign(ij), -sign(ji))
					assert.Equal(t, sign(i-j), sign(ij), "samples are ascending")
				}
			}
		})
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestUndefinedComparesEverythingEqual(t *testing.T) {
	r, err := Undefined.Compare(1, "x")
	require.NoError(t, err)
	assert.Equal(t, 0, r)

	r, err = Undefined.Compare(nil, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, r)

	for _, dt := range All() {
		assert.True(t, Undefined.IsConvertibleTo(dt), dt.Name())
	}
}

func TestStreamRoundTrip(t *testing.T) {
	for _, s := range samples {
		t.Run(s.t.Name(), func(t *testing.T) {
			values := append([]any{nil}, s.values...)

			var buf bytes.Buffer
			out := NewStreamOutput(&buf)
			for _, v := range values {
				require.NoError(t, s.t.Streamer().WriteValue(out, v))
			}

			in := NewStreamInput(&buf)
			for _, want := range values {
				got, err := s.t.Streamer().ReadValue(in)
				require.NoError(t, err)
				if d, ok := want.(decimal.Decimal); ok {
					assert.True(t, d.Equal(got.(decimal.Decimal)))
					continue
				}
				assert.Equal(t, want, got)
			}
			assert.Zero(t, buf.Len())
		})
	}
}

func TestStreamRoundTripComposite(t *testing.T) {
	inner := NewRowType([]Column{{"x", Double}}, Strict)
	rt := NewRowType([]Column{{"id", Long}, {"name", String}, {"pos", inner}}, Dynamic)

	values := []any{
		nil,
		map[string]any{"id": int64(1), "name": "a", "pos": map[string]any{"x": 1.5}},
		map[string]any{"id": nil, "name": "b", "pos": nil, "extra": true, "tags": map[string]any{"k": "v"}},
	}

	var buf bytes.Buffer
	out := NewStreamOutput(&buf)
	for _, v := range values {
		require.NoError(t, rt.Streamer().WriteValue(out, v))
	}
	in := NewStreamInput(&buf)
	for _, want := range values {
		got, err := rt.Streamer().ReadValue(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestGenericStreamer(t *testing.T) {
	values := []any{nil, true, int32(7), int64(-9), 2.5, "s", map[string]any{"a": int64(1)}}

	var buf bytes.Buffer
	out := NewStreamOutput(&buf)
	for _, v := range values {
		require.NoError(t, Undefined.Streamer().WriteValue(out, v))
	}
	in := NewStreamInput(&buf)
	for _, want := range values {
		got, err := Undefined.Streamer().ReadValue(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.Error(t, Undefined.Streamer().WriteValue(out, struct{}{}))
}

func TestGenericStreamerNormalizesValues(t *testing.T) {
	ts := time.UnixMilli(1700000000123).UTC()
	tests := []struct {
		in   any
		want any
	}{
		{ts, int64(1700000000123)},
		{5, int64(5)},
		{uint8(7), int64(7)},
	}

	var buf bytes.Buffer
	out := NewStreamOutput(&buf)
	for _, tt := range tests {
		require.NoError(t, Undefined.Streamer().WriteValue(out, tt.in))
	}
	in := NewStreamInput(&buf)
	for _, tt := range tests {
		got, err := Undefined.Streamer().ReadValue(in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestStreamerCoercesInput(t *testing.T) {
	tests := []struct {
		t    DataType
		in   any
		want any
	}{
		{Long, 5, int64(5)},
		{Long, int32(-4), int64(-4)},
		{Integer, int64(12), int32(12)},
		{Double, float32(1.5), 1.5},
		{Float, 2.25, float32(2.25)},
		{String, int64(42), "42"},
		{Boolean, "true", true},
		{Timestamp, time.UnixMilli(86400000).UTC(), int64(86400000)},
	}
	for _, tt := range tests {
		t.Run(tt.t.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.t.Streamer().WriteValue(NewStreamOutput(&buf), tt.in))
			got, err := tt.t.Streamer().ReadValue(NewStreamInput(&buf))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var buf bytes.Buffer
	out := NewStreamOutput(&buf)
	err := Long.Streamer().WriteValue(out, "abc")
	require.Error(t, err)
	assert.True(t, dberror.Is(err, dberror.CodeTypeCoercion))
	assert.Error(t, Integer.Streamer().WriteValue(out, int64(math.MaxInt64)))
	assert.Zero(t, buf.Len(), "rejected values write nothing")
}

func TestStreamInputRejectsCorruptData(t *testing.T) {
	_, err := Boolean.Streamer().ReadValue(NewStreamInput(bytes.NewReader([]byte{7})))
	assert.ErrorContains(t, err, "invalid boolean marker")

	var buf bytes.Buffer
	require.NoError(t, NewStreamOutput(&buf).WriteVInt(99))
	_, err = Undefined.Streamer().ReadValue(NewStreamInput(&buf))
	assert.ErrorContains(t, err, "unknown type id 99")
}

func TestBooleanValue(t *testing.T) {
	tests := []struct {
		in      any
		want    any
		wantErr bool
	}{
		{nil, nil, false},
		{true, true, false},
		{"t", true, false},
		{"TRUE", true, false},
		{"f", false, false},
		{"False", false, false},
		{int64(3), true, false},
		{0, false, false},
		{-1.5, false, false},
		{"yes", nil, true},
		{"", nil, true},
		{[]int{1}, nil, true},
	}
	for _, tt := range tests {
		got, err := Boolean.Value(tt.in)
		if tt.wantErr {
			require.Error(t, err, "%v", tt.in)
			assert.True(t, dberror.Is(err, dberror.CodeTypeCoercion))
			continue
		}
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestNumericValueCoercion(t *testing.T) {
	tests := []struct {
		name    string
		t       DataType
		in      any
		want    any
		wantErr bool
	}{
		{"int to integer", Integer, 42, int32(42), false},
		{"string to integer", Integer, " 17 ", int32(17), false},
		{"float truncates", Integer, 3.9, int32(3), false},
		{"integer overflow", Integer, int64(math.MaxInt32) + 1, nil, true},
		{"byte overflow", Byte, 200, nil, true},
		{"bad string", Long, "12x", nil, true},
		{"bool not numeric", Long, true, nil, true},
		{"NaN to long", Long, math.NaN(), nil, true},
		{"long to double", Double, int64(2), 2.0, false},
		{"string to float", Float, "1.5", float32(1.5), false},
		{"decimal to long", Long, decimal.RequireFromString("9.99"), int64(9), false},
		{"number to string", String, int32(5), "5", false},
		{"bool to string", String, true, "t", false},
		{"double to string", String, 0.25, "0.25", false},
		{"date to timestamp", Timestamp, "1970-01-02", int64(86400000), false},
		{"time to timestamp", Timestamp, time.UnixMilli(1234).UTC(), int64(1234), false},
		{"bad timestamp", Timestamp, "yesterday", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.t.Value(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dberror.Is(err, dberror.CodeTypeCoercion))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	d, err := Numeric.Value("1.10")
	require.NoError(t, err)
	assert.Equal(t, "1.1", d.(decimal.Decimal).String())
}

func TestCompareCoercesOperands(t *testing.T) {
	r, err := Long.Compare(int32(1), "2")
	require.NoError(t, err)
	assert.Equal(t, -1, r)

	_, err = Long.Compare(int64(1), "nope")
	assert.True(t, dberror.Is(err, dberror.CodeTypeCoercion))

	_, err = NotSupported.Compare(1, 2)
	assert.Error(t, err)
}

func TestIsConvertibleTo(t *testing.T) {
	tests := []struct {
		from, to DataType
		want     bool
	}{
		{Integer, Integer, true},
		{Integer, Long, true},
		{Integer, String, true},
		{Integer, Boolean, true},
		{String, Timestamp, true},
		{Boolean, String, true},
		{Boolean, Integer, false},
		{Object, String, false},
		{NotSupported, Integer, false},
		{Timestamp, Long, true},
		{Timestamp, Boolean, false},
		{Undefined, Object, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.IsConvertibleTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestRowTypePolicies(t *testing.T) {
	cols := []Column{{"a", Integer}, {"b", String}}
	input := map[string]any{"a": int64(1), "b": "x", "c": true}

	_, err := NewRowType(cols, Strict).Value(input)
	assert.True(t, dberror.Is(err, dberror.CodeTypeCoercion))

	got, err := NewRowType(cols, Ignored).Value(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int32(1), "b": "x"}, got)

	got, err = NewRowType(cols, Dynamic).Value(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int32(1), "b": "x", "c": true}, got)

	got, err = NewRowType(cols, Strict).Value([]any{2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int32(2), "b": "3"}, got)

	_, err = NewRowType(cols, Strict).Value([]any{1})
	assert.Error(t, err)
}

func TestRowTypeCompare(t *testing.T) {
	rt := NewRowType([]Column{{"a", Integer}, {"b", String}}, Dynamic)

	r, err := rt.Compare(map[string]any{"a": 1, "b": "x"}, map[string]any{"a": 1, "b": "y"})
	require.NoError(t, err)
	assert.Less(t, r, 0)

	r, err = rt.Compare(map[string]any{"a": 2}, map[string]any{"a": 1, "b": "z"})
	require.NoError(t, err)
	assert.Greater(t, r, 0)

	r, err = rt.Compare(map[string]any{"a": 1, "z": 1}, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Greater(t, r, 0, "extra keys sort after")
}

func TestFixedSizes(t *testing.T) {
	assert.Equal(t, 8, Boolean.(FixedWidth).FixedSize())
	assert.Equal(t, 16, Long.(FixedWidth).FixedSize())
	_, ok := String.(FixedWidth)
	assert.False(t, ok)

	assert.Equal(t, 16+3, EstimateSize("abc"))
	assert.Equal(t, 8, EstimateSize(true))
}

func TestGuess(t *testing.T) {
	tests := []struct {
		in   any
		want DataType
	}{
		{nil, Undefined},
		{true, Boolean},
		{7, Long},
		{int32(7), Integer},
		{1.5, Double},
		{"s", String},
		{decimal.NewFromInt(1), Numeric},
		{map[string]any{}, Object},
		{struct{}{}, NotSupported},
	}
	for _, tt := range tests {
		assert.True(t, Equal(tt.want, Guess(tt.in)), "%T", tt.in)
	}
}
