// Package planner turns analysed queries into physical batch iterator
// pipelines: table scans, filters, joins, projections and limits.
//
// Planning is left-deep. Sources are joined in FROM order; every WHERE
// conjunct that references a single source is filtered below the joins, and
// conjuncts spanning sources become join conditions as soon as all of their
// sources are joined. Equalities between a field of the joined prefix and a
// field of the next source become join keys.
package planner

import (
	"fmt"
	"strings"

	"dexql/pkg/catalog"
	dberror "dexql/pkg/error"
	"dexql/pkg/execution"
	"dexql/pkg/execution/join"
	"dexql/pkg/iterator"
	"dexql/pkg/logging"
	"dexql/pkg/plan"
	"dexql/pkg/row"
	"dexql/pkg/types"
)

// filterSelectivity is the fraction of rows a pushed down filter is assumed
// to keep when estimating join inputs.
const filterSelectivity = 0.5

// Storage provides table rows and the statistics used to cost joins.
type Storage interface {
	execution.RowSource
	Statistics(desc *catalog.TableDescriptor) (*catalog.TableStatistics, error)
}

// Options tune the physical plan.
type Options struct {
	// PageSize is the number of rows a table scan loads per batch.
	PageSize int
	// LeftSizeHint presizes join buffers; zero uses the left estimate.
	LeftSizeHint int
	// MemoryLimitBytes bounds the left block of block joins; zero is
	// unbounded.
	MemoryLimitBytes int64
	// Algorithm forces a join algorithm. Auto picks the cheapest.
	Algorithm join.Algorithm
}

// Plan is an executable pipeline together with its output shape.
type Plan struct {
	Iterator iterator.BatchIterator[row.Row]
	Columns  []string
	Types    []types.DataType
	// Joins lists the algorithm of every join, innermost first.
	Joins []join.Algorithm
	Root  *Node
}

// Explain renders the operator tree, one operator per line.
func (p *Plan) Explain() string { return p.Root.String() }

// Planner builds plans against one storage.
type Planner struct {
	storage Storage
	opts    Options
}

func New(storage Storage, opts Options) *Planner {
	if opts.PageSize <= 0 {
		opts.PageSize = execution.DefaultPageSize
	}
	return &Planner{storage: storage, opts: opts}
}

// Plan builds the pipeline of stmt. params are bound into the compiled
// expressions, so a plan serves exactly one execution.
func (p *Planner) Plan(stmt plan.AnalysedStatement, params []any) (*Plan, error) {
	q, ok := stmt.(*plan.AnalysedQuery)
	if !ok {
		return nil, dberror.UnsupportedFeature(fmt.Sprintf("planning %T", stmt))
	}
	b := &builder{planner: p, params: params}
	out, err := b.querySpec(q.Spec)
	if err != nil {
		return nil, err
	}
	logging.WithComponent("planner").Debug("query planned",
		"query", q.Spec.String(), "joins", len(b.joins))
	return &Plan{
		Iterator: out.it,
		Columns:  q.Spec.OutputNames(),
		Types:    q.Spec.OutputTypes(),
		Joins:    b.joins,
		Root:     out.node,
	}, nil
}

// pipeline is a partially built plan with the estimates joins are costed
// with.
type pipeline struct {
	it   iterator.BatchIterator[row.Row]
	node *Node
	rows int
	// sorted reports whether a column is ascending in emission order; nil
	// means nothing is known.
	sorted func(col int) bool
}

func (p *pipeline) sortedOn(col int) bool { return p.sorted != nil && p.sorted(col) }

type builder struct {
	planner *Planner
	params  []any
	joins   []join.Algorithm
}

func (b *builder) querySpec(spec *plan.AnalysedQuerySpec) (*pipeline, error) {
	if err := unsupportedClauses(spec); err != nil {
		return nil, err
	}
	if len(spec.Sources) == 0 {
		return b.finish(spec, &pipeline{
			it:   iterator.Rows([][]any{{}}),
			node: &Node{Label: "Values (1 row)"},
			rows: 1,
		}, execution.NewLayout())
	}

	owner := make(map[plan.AnalysedRelation]int, len(spec.Sources))
	for i, src := range spec.Sources {
		owner[src] = i
	}

	pushed := make([][]plan.Expression, len(spec.Sources))
	var pending []plan.Expression
	for _, c := range plan.Conjuncts(spec.Where) {
		if only, ok := singleOwner(c, owner); ok {
			pushed[only] = append(pushed[only], c)
		} else {
			pending = append(pending, c)
		}
	}

	inputs := make([]*pipeline, len(spec.Sources))
	for i, src := range spec.Sources {
		in, err := b.relation(src)
		if err != nil {
			return nil, err
		}
		if inputs[i], err = b.filter(in, pushed[i], execution.NewLayout(src)); err != nil {
			return nil, err
		}
	}

	current := inputs[0]
	for i := 1; i < len(spec.Sources); i++ {
		var conds []plan.Expression
		for _, pair := range spec.Joins {
			if pair.Right == i {
				conds = append(conds, plan.Conjuncts(pair.Criteria)...)
			}
		}
		var rest []plan.Expression
		for _, c := range pending {
			if maxOwner(c, owner) <= i {
				conds = append(conds, c)
			} else {
				rest = append(rest, c)
			}
		}
		pending = rest

		var err error
		current, err = b.join(current, inputs[i], spec.Sources[:i], spec.Sources[i], conds)
		if err != nil {
			return nil, err
		}
	}

	layout := execution.NewLayout(spec.Sources...)
	current, err := b.filter(current, pending, layout)
	if err != nil {
		return nil, err
	}
	return b.finish(spec, current, layout)
}

func unsupportedClauses(spec *plan.AnalysedQuerySpec) error {
	switch {
	case spec.Distinct:
		return dberror.UnsupportedFeature("SELECT DISTINCT")
	case len(spec.GroupBy) > 0:
		return dberror.UnsupportedFeature("GROUP BY")
	case spec.Having != nil:
		return dberror.UnsupportedFeature("HAVING")
	case len(spec.OrderBy) > 0:
		return dberror.UnsupportedFeature("ORDER BY")
	}
	return nil
}

// finish adds the projection and the limit on top of in.
func (b *builder) finish(spec *plan.AnalysedQuerySpec, in *pipeline, layout *execution.Layout) (*pipeline, error) {
	evals := make([]execution.Evaluator, len(spec.Outputs))
	names := make([]string, len(spec.Outputs))
	for i, out := range spec.Outputs {
		ev, err := execution.Compile(out.Expression, layout, b.params)
		if err != nil {
			return nil, err
		}
		evals[i] = ev
		names[i] = out.Expression.String()
	}
	project, err := execution.NewProject(in.it, evals)
	if err != nil {
		return nil, err
	}
	out := &pipeline{
		it:   project,
		node: &Node{Label: "Project [" + strings.Join(names, ", ") + "]", Children: []*Node{in.node}},
		rows: in.rows,
	}

	limit, err := b.bound(spec.Limit, execution.NoLimit)
	if err != nil {
		return nil, err
	}
	offset, err := b.bound(spec.Offset, 0)
	if err != nil {
		return nil, err
	}
	if limit == execution.NoLimit && offset == 0 {
		return out, nil
	}
	limited, err := execution.NewLimit[row.Row](out.it, limit, offset)
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("Limit %d offset %d", limit, offset)
	if limit == execution.NoLimit {
		label = fmt.Sprintf("Offset %d", offset)
	}
	rows := max(0, out.rows-int(offset))
	if limit != execution.NoLimit {
		rows = min(rows, int(limit))
	}
	return &pipeline{it: limited, node: &Node{Label: label, Children: []*Node{out.node}}, rows: rows}, nil
}

// bound evaluates a LIMIT or OFFSET expression. A null bound is def.
func (b *builder) bound(e plan.Expression, def int64) (int64, error) {
	if e == nil {
		return def, nil
	}
	ev, err := execution.Compile(e, execution.NewLayout(), b.params)
	if err != nil {
		return 0, err
	}
	v, err := ev(row.Materialized{})
	if err != nil || v == nil {
		return def, err
	}
	n, err := types.Long.Value(v)
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

func (b *builder) filter(in *pipeline, conds []plan.Expression, layout *execution.Layout) (*pipeline, error) {
	if len(conds) == 0 {
		return in, nil
	}
	pred, err := b.predicate(conds, layout)
	if err != nil {
		return nil, err
	}
	f, err := execution.NewFilter[row.Row](in.it, pred)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		it:     f,
		node:   &Node{Label: "Filter " + conjunction(conds), Children: []*Node{in.node}},
		rows:   max(1, int(float64(in.rows)*filterSelectivity)),
		sorted: in.sorted,
	}, nil
}

func (b *builder) predicate(conds []plan.Expression, layout *execution.Layout) (join.Predicate[row.Row], error) {
	preds := make([]join.Predicate[row.Row], 0, len(conds))
	for _, c := range conds {
		pred, err := execution.CompilePredicate(c, layout, b.params)
		if err != nil {
			return nil, err
		}
		preds = append(preds, join.Predicate[row.Row](pred))
	}
	return join.And(preds...), nil
}

// relation builds the unfiltered input of one FROM source.
func (b *builder) relation(src plan.AnalysedRelation) (*pipeline, error) {
	switch r := src.(type) {
	case *plan.AnalysedTable:
		stats, err := b.planner.storage.Statistics(r.Descriptor)
		if err != nil {
			return nil, err
		}
		logging.WithRelation(r.String()).Debug("table scan planned", "rows", stats.Cardinality)
		return &pipeline{
			it:     execution.NewTableScan(b.planner.storage, r.Descriptor, b.planner.opts.PageSize),
			node:   &Node{Label: fmt.Sprintf("TableScan %s (rows=%d)", r, stats.Cardinality)},
			rows:   stats.Cardinality,
			sorted: stats.IsSortedOn,
		}, nil

	case *plan.AliasedRelation:
		inner, err := b.relation(r.Relation)
		if err != nil {
			return nil, err
		}
		inner.node = &Node{Label: "Alias " + r.Alias, Children: []*Node{inner.node}}
		return inner, nil

	case *plan.AnalysedQuerySpec:
		return b.querySpec(r)

	default:
		return nil, dberror.UnsupportedFeature(fmt.Sprintf("relation %T", src))
	}
}

// singleOwner reports the only source c references. Conjuncts without
// fields have no owner.
func singleOwner(c plan.Expression, owner map[plan.AnalysedRelation]int) (int, bool) {
	found := -1
	for _, f := range plan.Fields(c) {
		i, ok := owner[f.Relation]
		if !ok || (found >= 0 && found != i) {
			return 0, false
		}
		found = i
	}
	return found, found >= 0
}

// maxOwner returns the last source c references, or 0 without fields.
func maxOwner(c plan.Expression, owner map[plan.AnalysedRelation]int) int {
	last := 0
	for _, f := range plan.Fields(c) {
		last = max(last, owner[f.Relation])
	}
	return last
}

func conjunction(conds []plan.Expression) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}
