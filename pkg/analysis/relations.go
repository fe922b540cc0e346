package analysis

import (
	"fmt"

	"dexql/pkg/catalog"
	dberror "dexql/pkg/error"
	"dexql/pkg/functions"
	"dexql/pkg/logging"
	"dexql/pkg/plan"
	"dexql/pkg/sql/tree"
	"dexql/pkg/types"
)

// Session carries the per-session settings analysis depends on.
type Session struct {
	// SearchPath lists the schemas tried for unqualified table names.
	SearchPath       []string
	ColumnResolution ColumnResolution
}

// DefaultSession searches the default schema with strict resolution.
func DefaultSession() Session {
	return Session{SearchPath: []string{catalog.DefaultSchema}}
}

// Analyzer analyses statements against a catalog and a function registry.
type Analyzer struct {
	catalog   catalog.MetaData
	functions functions.Resolver
	session   Session
}

func NewAnalyzer(meta catalog.MetaData, fns functions.Resolver, session Session) *Analyzer {
	if fns == nil {
		fns = functions.Builtins()
	}
	return &Analyzer{catalog: meta, functions: fns, session: session}
}

// Analyze types stmt. params may be nil when the statement has none.
func (a *Analyzer) Analyze(stmt tree.Statement, params *ParameterContext) (plan.AnalysedStatement, error) {
	exprs := NewExpressionAnalyzer(a.functions, params)
	switch s := stmt.(type) {
	case *tree.Query:
		spec, err := a.analyzeQuery(s, exprs)
		if err != nil {
			logging.WithComponent("analyzer").Debug("analysis failed", "statement", s.String(), "error", err)
			return nil, err
		}
		logging.WithComponent("analyzer").Debug("statement analysed",
			"sources", len(spec.Sources), "outputs", len(spec.Outputs))
		return &plan.AnalysedQuery{Spec: spec, ParameterTypes: exprs.Parameters().Types()}, nil
	default:
		return nil, dberror.UnsupportedFeature(fmt.Sprintf("statement %T", stmt))
	}
}

// scope collects the FROM list of one query block.
type scope struct {
	sources []plan.AnalysedRelation
	names   map[string]bool
	joins   []plan.JoinPair
}

func (s *scope) add(rel plan.AnalysedRelation) error {
	if name := rel.Name(); name != "" {
		if s.names[name] {
			return dberror.RelationAmbiguous(name)
		}
		s.names[name] = true
	}
	s.sources = append(s.sources, rel)
	return nil
}

func (a *Analyzer) analyzeQuery(q *tree.Query, exprs *ExpressionAnalyzer) (*plan.AnalysedQuerySpec, error) {
	body := q.Body
	sc := &scope{names: map[string]bool{}}
	for _, rel := range body.From {
		if err := a.addFromItem(rel, sc, exprs); err != nil {
			return nil, err
		}
	}
	resolver := NewResolver(sc.sources, a.session.ColumnResolution)

	spec := &plan.AnalysedQuerySpec{
		Distinct: body.Select.Distinct,
		Sources:  sc.sources,
		Joins:    sc.joins,
	}

	outputs := make([]plan.OutputColumn, 0, len(body.Select.Items))
	for _, item := range body.Select.Items {
		col, ok := item.(*tree.SingleColumn)
		if !ok {
			return nil, dberror.UnsupportedFeature("SELECT " + item.String())
		}
		e, err := exprs.Analyze(col.Expression, resolver)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, plan.OutputColumn{Name: outputName(col), Expression: e})
	}
	spec.SetOutputs(outputs)

	var err error
	if body.Where != nil {
		if spec.Where, err = exprs.AnalyzeCondition(body.Where, resolver); err != nil {
			return nil, err
		}
	}
	for _, g := range body.GroupBy {
		e, err := exprs.Analyze(g, resolver)
		if err != nil {
			return nil, err
		}
		spec.GroupBy = append(spec.GroupBy, e)
	}
	if body.Having != nil {
		if spec.Having, err = exprs.AnalyzeCondition(body.Having, resolver); err != nil {
			return nil, err
		}
	}

	orderScope := &outputFallback{sources: resolver, outputs: spec}
	for _, item := range body.OrderBy {
		e, err := exprs.Analyze(item.SortKey, orderScope)
		if err != nil {
			return nil, err
		}
		spec.OrderBy = append(spec.OrderBy, plan.TypedSortItem{
			Expression: e,
			Descending: item.Ordering == tree.Descending,
			Nulls:      item.NullOrdering,
		})
	}

	if body.Limit != nil {
		if spec.Limit, err = a.analyzeBound(body.Limit, exprs); err != nil {
			return nil, err
		}
	}
	if body.Offset != nil {
		if spec.Offset, err = a.analyzeBound(body.Offset, exprs); err != nil {
			return nil, err
		}
	} else {
		spec.Offset = &plan.Literal{Value: int64(0), DataType: types.Long}
	}
	return spec, nil
}

// addFromItem analyses one FROM entry. Joins are flattened into the source
// list; their criteria see only the sources of the join's own operands.
func (a *Analyzer) addFromItem(rel tree.Relation, sc *scope, exprs *ExpressionAnalyzer) error {
	j, ok := rel.(*tree.Join)
	if !ok {
		analysed, err := a.analyzeRelation(rel, exprs)
		if err != nil {
			return err
		}
		return sc.add(analysed)
	}

	switch j.Type {
	case tree.CrossJoin, tree.InnerJoin:
	default:
		return dberror.UnsupportedFeature(j.Type.String() + " JOIN")
	}
	first := len(sc.sources)
	if err := a.addFromItem(j.Left, sc, exprs); err != nil {
		return err
	}
	if err := a.addFromItem(j.Right, sc, exprs); err != nil {
		return err
	}

	pair := plan.JoinPair{Type: j.Type, Right: len(sc.sources) - 1}
	switch c := j.Criteria.(type) {
	case nil:
		pair.Type = tree.CrossJoin
	case *tree.JoinOn:
		if j.Type == tree.CrossJoin {
			return dberror.UnsupportedFeature("CROSS JOIN with " + c.String())
		}
		criteria, err := exprs.AnalyzeCondition(c.Expression, NewResolver(sc.sources[first:], a.session.ColumnResolution))
		if err != nil {
			return err
		}
		pair.Criteria = criteria
	default:
		return dberror.UnsupportedFeature("JOIN " + c.String())
	}
	sc.joins = append(sc.joins, pair)
	return nil
}

func (a *Analyzer) analyzeRelation(rel tree.Relation, exprs *ExpressionAnalyzer) (plan.AnalysedRelation, error) {
	switch r := rel.(type) {
	case *tree.Table:
		desc, err := a.catalog.Lookup(a.session.SearchPath, r.Name)
		if err != nil {
			return nil, err
		}
		return plan.NewAnalysedTable(desc), nil
	case *tree.TableSubquery:
		return a.analyzeQuery(r.Query, exprs)
	case *tree.AliasedRelation:
		inner, err := a.analyzeRelation(r.Relation, exprs)
		if err != nil {
			return nil, err
		}
		return plan.NewAliasedRelation(r.Alias, inner, r.ColumnNames), nil
	default:
		return nil, dberror.UnsupportedFeature("relation " + rel.String())
	}
}

// analyzeBound types a LIMIT or OFFSET. Column references are not allowed.
func (a *Analyzer) analyzeBound(e tree.Expression, exprs *ExpressionAnalyzer) (plan.Expression, error) {
	out, err := exprs.Analyze(e, NewResolver(nil, a.session.ColumnResolution))
	if err != nil {
		return nil, err
	}
	if !out.Type().IsConvertibleTo(types.Long) {
		return nil, dberror.TypeCoercion(e.String(), types.Long.Name())
	}
	if !types.Equal(out.Type(), types.Long) {
		out = &plan.Cast{Operand: out, Target: types.Long}
	}
	return out, nil
}

// outputName is the alias, or the column name for a bare reference.
func outputName(col *tree.SingleColumn) string {
	if col.Alias != "" {
		return col.Alias
	}
	if ref, ok := col.Expression.(*tree.QualifiedNameReference); ok {
		return ref.Name.Suffix()
	}
	return col.Expression.String()
}

// outputFallback resolves ORDER BY keys against the sources first and then
// against the select list aliases.
type outputFallback struct {
	sources *Resolver
	outputs plan.AnalysedRelation
}

func (o *outputFallback) Resolve(name tree.QualifiedName) (*plan.Field, error) {
	f, err := o.sources.Resolve(name)
	if err == nil || !dberror.Is(err, dberror.CodeColumnUnknown) || len(name.Parts) != 1 {
		return f, err
	}
	if out, ok := o.outputs.Get(name.Parts[0]); ok {
		return out, nil
	}
	return nil, err
}
