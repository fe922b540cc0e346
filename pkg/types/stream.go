package types

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
)

// maxStringLen bounds a length prefix read from the wire.
const maxStringLen = 64 << 20

// StreamOutput writes length-prefixed binary values. Counts and lengths are
// unsigned varints, fixed-width numbers are big-endian.
type StreamOutput struct {
	w   io.Writer
	buf [binary.MaxVarintLen64]byte
}

func NewStreamOutput(w io.Writer) *StreamOutput {
	return &StreamOutput{w: w}
}

func (o *StreamOutput) write(b []byte) error {
	_, err := o.w.Write(b)
	return err
}

// WriteVInt writes a non-negative count.
func (o *StreamOutput) WriteVInt(v int) error {
	if v < 0 {
		return errors.Newf("negative vint %d", v)
	}
	n := binary.PutUvarint(o.buf[:], uint64(v))
	return o.write(o.buf[:n])
}

// WriteBool also serves as the presence marker before nullable values.
func (o *StreamOutput) WriteBool(v bool) error {
	if v {
		return o.write([]byte{1})
	}
	return o.write([]byte{0})
}

func (o *StreamOutput) WriteInt8(v int8) error {
	return o.write([]byte{byte(v)})
}

func (o *StreamOutput) WriteInt16(v int16) error {
	binary.BigEndian.PutUint16(o.buf[:2], uint16(v))
	return o.write(o.buf[:2])
}

func (o *StreamOutput) WriteInt32(v int32) error {
	binary.BigEndian.PutUint32(o.buf[:4], uint32(v))
	return o.write(o.buf[:4])
}

func (o *StreamOutput) WriteInt64(v int64) error {
	binary.BigEndian.PutUint64(o.buf[:8], uint64(v))
	return o.write(o.buf[:8])
}

func (o *StreamOutput) WriteFloat32(v float32) error {
	binary.BigEndian.PutUint32(o.buf[:4], math.Float32bits(v))
	return o.write(o.buf[:4])
}

func (o *StreamOutput) WriteFloat64(v float64) error {
	binary.BigEndian.PutUint64(o.buf[:8], math.Float64bits(v))
	return o.write(o.buf[:8])
}

func (o *StreamOutput) WriteString(s string) error {
	if err := o.WriteVInt(len(s)); err != nil {
		return err
	}
	_, err := io.WriteString(o.w, s)
	return err
}

// StreamInput is the reading side of StreamOutput.
type StreamInput struct {
	r   *bufio.Reader
	buf [8]byte
}

func NewStreamInput(r io.Reader) *StreamInput {
	if br, ok := r.(*bufio.Reader); ok {
		return &StreamInput{r: br}
	}
	return &StreamInput{r: bufio.NewReader(r)}
}

func (in *StreamInput) fill(n int) ([]byte, error) {
	if _, err := io.ReadFull(in.r, in.buf[:n]); err != nil {
		return nil, err
	}
	return in.buf[:n], nil
}

func (in *StreamInput) ReadVInt() (int, error) {
	v, err := binary.ReadUvarint(in.r)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, errors.Newf("vint %d out of range", v)
	}
	return int(v), nil
}

func (in *StreamInput) ReadBool() (bool, error) {
	b, err := in.r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.Newf("invalid boolean marker %#x", b)
	}
}

func (in *StreamInput) ReadInt8() (int8, error) {
	b, err := in.r.ReadByte()
	return int8(b), err
}

func (in *StreamInput) ReadInt16() (int16, error) {
	b, err := in.fill(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (in *StreamInput) ReadInt32() (int32, error) {
	b, err := in.fill(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (in *StreamInput) ReadInt64() (int64, error) {
	b, err := in.fill(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (in *StreamInput) ReadFloat32() (float32, error) {
	b, err := in.fill(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func (in *StreamInput) ReadFloat64() (float64, error) {
	b, err := in.fill(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (in *StreamInput) ReadString() (string, error) {
	n, err := in.ReadVInt()
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", errors.Newf("string length %d exceeds limit", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(in.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// nullable wraps a non-null streamer with a presence marker. Values pass
// through the owning type's coercion first, so write only ever sees the
// canonical Go value.
type nullable struct {
	value func(v any) (any, error)
	write func(out *StreamOutput, v any) error
	read  func(in *StreamInput) (any, error)
}

func (s nullable) WriteValue(out *StreamOutput, v any) error {
	if v != nil && s.value != nil {
		coerced, err := s.value(v)
		if err != nil {
			return err
		}
		v = coerced
	}
	if v == nil {
		return out.WriteBool(false)
	}
	if err := out.WriteBool(true); err != nil {
		return err
	}
	return s.write(out, v)
}

func (s nullable) ReadValue(in *StreamInput) (any, error) {
	present, err := in.ReadBool()
	if err != nil || !present {
		return nil, err
	}
	return s.read(in)
}
