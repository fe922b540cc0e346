package types

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// Guess infers the DataType of a runtime value.
func Guess(v any) DataType {
	switch v.(type) {
	case nil:
		return Undefined
	case bool:
		return Boolean
	case int8:
		return Byte
	case int16:
		return Short
	case int32:
		return Integer
	case int, int64, uint8, uint16, uint32:
		return Long
	case float32:
		return Float
	case float64:
		return Double
	case string:
		return String
	case decimal.Decimal:
		return Numeric
	case time.Time:
		return Timestamp
	case map[string]any:
		return Object
	default:
		return NotSupported
	}
}

// genericStreamer writes the guessed type id ahead of the value so values of
// the undefined type survive a round trip. Values come back as the canonical
// Go value of their guessed type: int and uint8 read back as int64, and
// time.Time as epoch milliseconds.
type genericStreamer struct{}

func (genericStreamer) WriteValue(out *StreamOutput, v any) error {
	t := Guess(v)
	if t.ID() == NotSupportedID {
		return errors.Newf("cannot stream value of type %T", v)
	}
	if err := out.WriteVInt(t.ID()); err != nil {
		return err
	}
	if t.ID() == UndefinedID {
		return nil
	}
	coerced, err := t.Value(v)
	if err != nil {
		return err
	}
	return t.Streamer().WriteValue(out, coerced)
}

func (genericStreamer) ReadValue(in *StreamInput) (any, error) {
	id, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if id == UndefinedID {
		return nil, nil
	}
	t, ok := OfID(id)
	if !ok {
		return nil, errors.Newf("unknown type id %d in stream", id)
	}
	return t.Streamer().ReadValue(in)
}

// EstimateSize returns an approximate in-memory size of v in bytes.
func EstimateSize(v any) int {
	const overhead = 16
	switch x := v.(type) {
	case nil:
		return 8
	case string:
		return overhead + len(x)
	case map[string]any:
		size := overhead
		for k, val := range x {
			size += overhead + len(k) + EstimateSize(val)
		}
		return size
	case []any:
		size := overhead
		for _, val := range x {
			size += EstimateSize(val)
		}
		return size
	}
	if fw, ok := Guess(v).(FixedWidth); ok {
		return fw.FixedSize()
	}
	return overhead
}
