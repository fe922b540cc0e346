package join

import (
	"github.com/cockroachdb/errors"

	"dexql/pkg/row"
	"dexql/pkg/types"
)

// Equi describes an equality join between key columns of the left and right
// rows. Right columns are relative to the right row.
type Equi struct {
	LeftColumns  []int
	RightColumns []int
	Types        []types.DataType
	// LeftWidth is the number of left columns in the combined row.
	LeftWidth int
}

func (e Equi) validate() error {
	if len(e.LeftColumns) == 0 {
		return errors.New("equi join needs at least one key column")
	}
	if len(e.LeftColumns) != len(e.RightColumns) || len(e.LeftColumns) != len(e.Types) {
		return errors.Newf("equi join key mismatch: %d left, %d right, %d types",
			len(e.LeftColumns), len(e.RightColumns), len(e.Types))
	}
	return nil
}

// Matches is the predicate that holds when every key pair compares equal.
// A null on either side never matches.
func (e Equi) Matches() Predicate[row.Row] {
	return func(r row.Row) (bool, error) {
		c, null, err := e.compare(r)
		return !null && c == 0 && err == nil, err
	}
}

// RightPassedLeft holds when the right key sorts after the left key, which
// for inputs sorted ascending means the right scan can stop.
func (e Equi) RightPassedLeft() Predicate[row.Row] {
	return func(r row.Row) (bool, error) {
		c, _, err := e.compare(r)
		return c < 0, err
	}
}

// compare orders the left key against the right key lexicographically and
// reports whether a null was met before the keys differed.
func (e Equi) compare(r row.Row) (c int, null bool, err error) {
	for i, t := range e.Types {
		l := r.Get(e.LeftColumns[i])
		rv := r.Get(e.LeftWidth + e.RightColumns[i])
		if l == nil || rv == nil {
			null = true
		}
		c, err = t.Compare(l, rv)
		if err != nil || c != 0 {
			return c, null, err
		}
	}
	return 0, null, nil
}

// And combines predicates, short-circuiting on the first false or error.
// nil predicates are skipped.
func And[C any](predicates ...Predicate[C]) Predicate[C] {
	var active []Predicate[C]
	for _, p := range predicates {
		if p != nil {
			active = append(active, p)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(c C) (bool, error) {
		for _, p := range active {
			ok, err := p(c)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}
