package join

import (
	"hash/fnv"

	"github.com/cockroachdb/errors"

	"dexql/pkg/row"
	"dexql/pkg/types"
)

// KeyFunc extracts the equi-join key tuple of an element.
type KeyFunc[T any] func(T) ([]any, error)

// RowKeys extracts the cells at columns as the key tuple.
func RowKeys(columns ...int) KeyFunc[row.Row] {
	return func(r row.Row) ([]any, error) {
		key := make([]any, len(columns))
		for i, c := range columns {
			if c < 0 || c >= r.NumColumns() {
				return nil, errors.Newf("key column %d out of range for %d columns", c, r.NumColumns())
			}
			key[i] = r.Get(c)
		}
		return key, nil
	}
}

// keyCodec normalizes key tuples to the declared key types, hashes them and
// compares them. Two keys are equal iff every component compares equal under
// its key type; a key with a null component equals nothing.
type keyCodec struct {
	types []types.DataType
}

// normalize coerces key in place and reports whether it can ever match.
func (k keyCodec) normalize(key []any) (bool, error) {
	if len(key) != len(k.types) {
		return false, errors.Newf("join key has %d components, expected %d", len(key), len(k.types))
	}
	for i, t := range k.types {
		if key[i] == nil {
			return false, nil
		}
		v, err := t.Value(key[i])
		if err != nil {
			return false, err
		}
		key[i] = v
	}
	return true, nil
}

// hash streams the normalized key into FNV-1a so values that compare equal
// under their type share a bucket.
func (k keyCodec) hash(key []any) (uint64, error) {
	h := fnv.New64a()
	out := types.NewStreamOutput(h)
	for i, t := range k.types {
		if err := t.Streamer().WriteValue(out, key[i]); err != nil {
			return 0, errors.Wrapf(err, "hash key component %d", i)
		}
	}
	return h.Sum64(), nil
}

func (k keyCodec) equal(a, b []any) (bool, error) {
	for i, t := range k.types {
		c, err := t.Compare(a[i], b[i])
		if err != nil || c != 0 {
			return false, err
		}
	}
	return true, nil
}
