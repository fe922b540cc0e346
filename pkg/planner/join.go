package planner

import (
	"fmt"

	dberror "dexql/pkg/error"
	"dexql/pkg/execution"
	"dexql/pkg/execution/join"
	"dexql/pkg/functions"
	"dexql/pkg/logging"
	"dexql/pkg/memory"
	"dexql/pkg/plan"
	"dexql/pkg/row"
)

// join combines the joined prefix left with the next source right under
// conds. Equalities across both sides become keys, the rest a residual.
func (b *builder) join(left, right *pipeline, leftRels []plan.AnalysedRelation, rightRel plan.AnalysedRelation, conds []plan.Expression) (*pipeline, error) {
	leftLayout := execution.NewLayout(leftRels...)
	rightLayout := execution.NewLayout(rightRel)
	rels := append(append([]plan.AnalysedRelation{}, leftRels...), rightRel)
	full := execution.NewLayout(rels...)

	var equi *join.Equi
	var residual []plan.Expression
	for _, c := range conds {
		l, r, ok := equiKey(c, leftLayout, rightLayout)
		if !ok {
			residual = append(residual, c)
			continue
		}
		if equi == nil {
			equi = &join.Equi{LeftWidth: leftLayout.Width()}
		}
		equi.LeftColumns = append(equi.LeftColumns, l)
		equi.RightColumns = append(equi.RightColumns, r)
		equi.Types = append(equi.Types, c.(*plan.Function).Signature.ArgumentType(0))
	}

	cond := join.RowCondition{Equi: equi}
	if len(residual) > 0 {
		pred, err := b.predicate(residual, full)
		if err != nil {
			return nil, err
		}
		cond.Residual = pred
	}

	stats := b.statistics(left, right, equi)
	algorithm, err := b.algorithm(stats, equi != nil)
	if err != nil {
		return nil, err
	}

	opts := join.BlockOptions[row.Row]{LeftSizeHint: b.planner.opts.LeftSizeHint}
	if opts.LeftSizeHint <= 0 {
		opts.LeftSizeHint = left.rows
	}
	if b.planner.opts.MemoryLimitBytes > 0 {
		opts.Accounting = memory.NewAccountant(b.planner.opts.MemoryLimitBytes)
	}
	j, err := join.NewRows(algorithm, left.it, right.it, cond, opts)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.CodeExecutionFailed, "plan join", "planner")
	}
	b.joins = append(b.joins, algorithm)

	keys := 0
	if equi != nil {
		keys = len(equi.LeftColumns)
	}
	logging.WithJoin(algorithm.String()).Info("join planned",
		"right", rightRel.String(), "keys", keys, "residual", len(residual),
		"left_rows", stats.LeftCardinality, "right_rows", stats.RightCardinality)

	label := fmt.Sprintf("Join %s", algorithm)
	if len(conds) > 0 {
		label += " ON " + conjunction(conds)
	}
	rows := left.rows * right.rows
	if equi != nil {
		rows = max(1, int(float64(rows)*stats.Selectivity))
	}
	return &pipeline{
		it:   j,
		node: &Node{Label: label, Children: []*Node{left.node, right.node}},
		rows: rows,
	}, nil
}

// algorithm returns the forced algorithm when the condition supports it,
// otherwise the cheapest one.
func (b *builder) algorithm(stats *join.Statistics, equi bool) (join.Algorithm, error) {
	strategy := join.NewStrategy(stats)
	forced := b.planner.opts.Algorithm
	if forced == join.Auto {
		a, err := strategy.Select(equi)
		if err != nil {
			return join.Auto, dberror.Wrap(err, dberror.CodeUnsupportedFeature, "plan join", "planner")
		}
		return a, nil
	}
	if !strategy.Supports(forced, equi) {
		return join.Auto, dberror.UnsupportedFeature(fmt.Sprintf("join algorithm %s for this join condition", forced)).
			WithHint("hash and merge joins need an equality between both sides; merge joins also need inputs sorted on it")
	}
	return forced, nil
}

func (b *builder) statistics(left, right *pipeline, equi *join.Equi) *join.Statistics {
	stats := join.NewStatistics(left.rows, right.rows)
	if equi != nil && len(equi.LeftColumns) == 1 {
		stats.LeftSorted = left.sortedOn(equi.LeftColumns[0])
		stats.RightSorted = right.sortedOn(equi.RightColumns[0])
	}
	return stats
}

// equiKey recognizes `a = b` where one field belongs to the left layout and
// the other to the right one. It returns the left and right columns.
func equiKey(c plan.Expression, left, right *execution.Layout) (int, int, bool) {
	fn, ok := c.(*plan.Function)
	if !ok || fn.Signature.Name != functions.Equals || len(fn.Arguments) != 2 {
		return 0, 0, false
	}
	a, okA := fn.Arguments[0].(*plan.Field)
	bf, okB := fn.Arguments[1].(*plan.Field)
	if !okA || !okB {
		return 0, 0, false
	}
	if l, ok := left.Column(a); ok {
		if r, ok := right.Column(bf); ok {
			return l, r, true
		}
	}
	if l, ok := left.Column(bf); ok {
		if r, ok := right.Column(a); ok {
			return l, r, true
		}
	}
	return 0, 0, false
}
