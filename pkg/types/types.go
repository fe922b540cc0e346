package types

import (
	"sort"
	"strings"
)

// Stable type ids. They are part of the wire encoding and must never change.
const (
	UndefinedID    = 0
	NotSupportedID = 1
	ByteID         = 2
	BooleanID      = 3
	StringID       = 4
	DoubleID       = 6
	FloatID        = 7
	ShortID        = 8
	IntegerID      = 9
	LongID         = 10
	TimestampID    = 11
	ObjectID       = 12
	NumericID      = 22
)

// DataType describes a SQL value type. Two DataTypes are equal iff their ids
// are equal; use Equal rather than ==, since composite types are values.
type DataType interface {
	ID() int
	Name() string

	// Value coerces v to this type's Go representation. nil stays nil.
	// Unconvertible input fails with a TYPE_COERCION error.
	Value(v any) (any, error)

	// Compare orders two values of this type. nil sorts before any
	// non-nil value and nil equals nil. Operands are coerced first.
	Compare(a, b any) (int, error)

	// IsConvertibleTo reports whether values of this type may be cast to
	// other. It is reflexive.
	IsConvertibleTo(other DataType) bool

	Streamer() Streamer

	String() string
}

// FixedWidth is implemented by types whose values have a constant in-memory
// size estimate in bytes.
type FixedWidth interface {
	FixedSize() int
}

// Streamer writes and reads values of one type. ReadValue(WriteValue(v))
// yields v for every representable v, including nil.
type Streamer interface {
	WriteValue(out *StreamOutput, v any) error
	ReadValue(in *StreamInput) (any, error)
}

// Equal compares types by id.
func Equal(a, b DataType) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}

// base carries identity and convertibility for every type.
type base struct {
	id   int
	name string
}

func (b base) ID() int        { return b.id }
func (b base) Name() string   { return b.name }
func (b base) String() string { return b.name }

func (b base) IsConvertibleTo(other DataType) bool {
	return convertible(b.id, other.ID())
}

// Singletons for the primitive types.
var (
	Undefined    DataType = undefinedType{base{UndefinedID, "undefined"}}
	NotSupported DataType = notSupportedType{base{NotSupportedID, "not_supported"}}
	Boolean      DataType = booleanType{base{BooleanID, "boolean"}}
	Byte         DataType = newIntegral[int8](ByteID, "byte", 16)
	Short        DataType = newIntegral[int16](ShortID, "short", 16)
	Integer      DataType = newIntegral[int32](IntegerID, "integer", 16)
	Long         DataType = newIntegral[int64](LongID, "long", 16)
	Float        DataType = newFloating[float32](FloatID, "float", 16)
	Double       DataType = newFloating[float64](DoubleID, "double", 16)
	String       DataType = stringType{base{StringID, "string"}}
	Timestamp    DataType = timestampType{base{TimestampID, "timestamp"}}
	Numeric      DataType = numericType{base{NumericID, "numeric"}}

	// Object is the dynamic row type without declared columns.
	Object DataType = NewRowType(nil, Dynamic)
)

var byID = map[int]DataType{}

var nameAliases = map[string]int{
	"text":     StringID,
	"varchar":  StringID,
	"int":      IntegerID,
	"int4":     IntegerID,
	"bigint":   LongID,
	"int8":     LongID,
	"smallint": ShortID,
	"real":     FloatID,
	"decimal":  NumericID,
	"bool":     BooleanID,
	"row":      ObjectID,
	"null":     UndefinedID,
}

func init() {
	for _, t := range []DataType{
		Undefined, NotSupported, Boolean, Byte, Short, Integer, Long,
		Float, Double, String, Timestamp, Numeric, Object,
	} {
		byID[t.ID()] = t
	}
}

// OfID returns the registered type for id.
func OfID(id int) (DataType, bool) {
	t, ok := byID[id]
	return t, ok
}

// OfName resolves a type name as written in a CAST, case-insensitively.
func OfName(name string) (DataType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if id, ok := nameAliases[name]; ok {
		return byID[id], true
	}
	for _, t := range byID {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// All returns every registered type ordered by id.
func All() []DataType {
	out := make([]DataType, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// List renders types as "integer, string" for error details.
type List []DataType

func (l List) String() string {
	names := make([]string, len(l))
	for i, t := range l {
		names[i] = t.Name()
	}
	return strings.Join(names, ", ")
}
