package execution

import (
	"github.com/cockroachdb/errors"

	"dexql/pkg/iterator"
	"dexql/pkg/row"
)

// Project evaluates one expression per output column over each child row.
//
// The current element is a window over a buffer reused for every row;
// consumers that keep rows must Materialize them.
type Project struct {
	iterator.Forwarding[row.Row]
	columns []Evaluator
	cells   []any
	out     *row.RowN
	failure error
}

func NewProject(child iterator.BatchIterator[row.Row], columns []Evaluator) (*Project, error) {
	if child == nil {
		return nil, errors.New("project needs a child iterator")
	}
	if len(columns) == 0 {
		return nil, errors.New("project needs at least one column")
	}
	p := &Project{
		Forwarding: iterator.Forwarding[row.Row]{Child: child},
		columns:    columns,
		cells:      make([]any, len(columns)),
	}
	p.out = row.NewRowN(p.cells...)
	return p, nil
}

func (p *Project) CurrentElement() row.Row { return p.out }

func (p *Project) MoveNext() (bool, error) {
	if p.failure != nil {
		return false, p.failure
	}
	ok, err := p.Child.MoveNext()
	if err != nil || !ok {
		return false, err
	}
	in := p.Child.CurrentElement()
	for i, col := range p.columns {
		v, err := col(in)
		if err != nil {
			p.failure = errors.Wrapf(err, "evaluate output column %d", i)
			return false, p.failure
		}
		p.cells[i] = v
	}
	return true, nil
}

func (p *Project) MoveToStart() error {
	if p.failure != nil {
		return p.failure
	}
	return p.Child.MoveToStart()
}
