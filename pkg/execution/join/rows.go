package join

import (
	"github.com/cockroachdb/errors"

	"dexql/pkg/iterator"
	"dexql/pkg/row"
)

// RowJoin is a join over rows producing combined rows.
type RowJoin interface {
	iterator.BatchIterator[row.Row]
	Algorithm() Algorithm
	Phase() Phase
}

// RowCondition is the condition of a row join. Equi is optional; Residual
// is evaluated on the combined row after the keys matched.
type RowCondition struct {
	Equi     *Equi
	Residual Predicate[row.Row]
}

// NewRows builds a row join with the given algorithm. Auto is not accepted;
// resolve it with a Strategy first.
func NewRows(
	algorithm Algorithm,
	left, right iterator.BatchIterator[row.Row],
	cond RowCondition,
	opts BlockOptions[row.Row],
) (RowJoin, error) {
	if cond.Equi != nil {
		if err := cond.Equi.validate(); err != nil {
			return nil, err
		}
	}
	combiner := NewCombinedRow()
	switch algorithm {
	case NestedLoop:
		return NewNestedLoop[row.Row, row.Row, row.Row](left, right, combiner, cond.all()), nil
	case BlockNestedLoop:
		return NewBlockNestedLoop[row.Row, row.Row, row.Row](left, right, combiner, cond.all(), opts), nil
	case HashBlock:
		if cond.Equi == nil {
			return nil, errors.New("hash join requires equality keys")
		}
		e := cond.Equi
		return NewHashBlock[row.Row, row.Row, row.Row](left, right, combiner,
			RowKeys(e.LeftColumns...), RowKeys(e.RightColumns...), e.Types, cond.Residual, opts), nil
	case SortedMerge:
		if cond.Equi == nil {
			return nil, errors.New("sorted merge join requires equality keys")
		}
		return NewSortedMerge[row.Row, row.Row, row.Row](left, right, combiner,
			cond.all(), cond.Equi.RightPassedLeft()), nil
	default:
		return nil, errors.Newf("cannot build join algorithm %s", algorithm)
	}
}

func (c RowCondition) all() Predicate[row.Row] {
	var keys Predicate[row.Row]
	if c.Equi != nil {
		keys = c.Equi.Matches()
	}
	return And(keys, c.Residual)
}
