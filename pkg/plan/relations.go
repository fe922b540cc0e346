package plan

import (
	"strings"

	"dexql/pkg/catalog"
	"dexql/pkg/sql/tree"
	"dexql/pkg/types"
)

// AnalysedRelation is a typed FROM item.
type AnalysedRelation interface {
	// Name is the qualifier columns of this relation are referenced by.
	Name() string
	// Schema is empty for relations that are not base tables.
	Schema() string
	Fields() []*Field
	// Get returns the output field called name.
	Get(name string) (*Field, bool)
	String() string
}

// fieldList is the output of a relation.
type fieldList []*Field

func (l fieldList) get(name string) (*Field, bool) {
	for _, f := range l {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// AnalysedTable is a base table.
type AnalysedTable struct {
	Descriptor *catalog.TableDescriptor
	fields     fieldList
}

func NewAnalysedTable(desc *catalog.TableDescriptor) *AnalysedTable {
	t := &AnalysedTable{Descriptor: desc}
	t.fields = make(fieldList, len(desc.Columns))
	for i, c := range desc.Columns {
		t.fields[i] = &Field{Relation: t, Name: c.Name, Index: i, DataType: c.Type}
	}
	return t
}

func (t *AnalysedTable) Name() string                   { return t.Descriptor.Name }
func (t *AnalysedTable) Schema() string                 { return t.Descriptor.Schema }
func (t *AnalysedTable) Fields() []*Field               { return t.fields }
func (t *AnalysedTable) Get(name string) (*Field, bool) { return t.fields.get(name) }
func (t *AnalysedTable) String() string                 { return t.Descriptor.String() }

// AliasedRelation renames a relation and, optionally, its columns.
type AliasedRelation struct {
	Alias    string
	Relation AnalysedRelation
	fields   fieldList
}

// NewAliasedRelation renames the first len(columnNames) outputs of inner.
func NewAliasedRelation(alias string, inner AnalysedRelation, columnNames []string) *AliasedRelation {
	a := &AliasedRelation{Alias: alias, Relation: inner}
	innerFields := inner.Fields()
	a.fields = make(fieldList, len(innerFields))
	for i, f := range innerFields {
		name := f.Name
		if i < len(columnNames) {
			name = columnNames[i]
		}
		a.fields[i] = &Field{Relation: a, Name: name, Index: i, DataType: f.DataType}
	}
	return a
}

func (a *AliasedRelation) Name() string                   { return a.Alias }
func (a *AliasedRelation) Schema() string                 { return "" }
func (a *AliasedRelation) Fields() []*Field               { return a.fields }
func (a *AliasedRelation) Get(name string) (*Field, bool) { return a.fields.get(name) }
func (a *AliasedRelation) String() string                 { return a.Relation.String() + " AS " + a.Alias }

// JoinPair records an explicit JOIN between the source at Right and every
// source before it.
type JoinPair struct {
	Type     tree.JoinType
	Right    int        // index into the sources
	Criteria Expression // nil for CROSS
}

// TypedSortItem is one ORDER BY key.
type TypedSortItem struct {
	Expression Expression
	Descending bool
	Nulls      tree.NullOrdering
}

func (s TypedSortItem) String() string {
	var b strings.Builder
	b.WriteString(s.Expression.String())
	if s.Descending {
		b.WriteString(" DESC")
	}
	switch s.Nulls {
	case tree.NullsFirst:
		b.WriteString(" NULLS FIRST")
	case tree.NullsLast:
		b.WriteString(" NULLS LAST")
	}
	return b.String()
}

// OutputColumn is a select list entry.
type OutputColumn struct {
	Name       string
	Expression Expression
}

// AnalysedQuerySpec is an analysed SELECT block. It is itself a relation
// whose fields are the select list.
type AnalysedQuerySpec struct {
	Distinct bool
	Outputs  []OutputColumn
	Sources  []AnalysedRelation
	Joins    []JoinPair
	Where    Expression
	GroupBy  []Expression
	Having   Expression
	OrderBy  []TypedSortItem
	Limit    Expression // nil when unbounded
	Offset   Expression

	fields fieldList
}

// SetOutputs installs the select list and derives the output fields.
func (q *AnalysedQuerySpec) SetOutputs(outputs []OutputColumn) {
	q.Outputs = outputs
	q.fields = make(fieldList, len(outputs))
	for i, o := range outputs {
		q.fields[i] = &Field{Relation: q, Name: o.Name, Index: i, DataType: o.Expression.Type()}
	}
}

func (q *AnalysedQuerySpec) Name() string                   { return "" }
func (q *AnalysedQuerySpec) Schema() string                 { return "" }
func (q *AnalysedQuerySpec) Fields() []*Field               { return q.fields }
func (q *AnalysedQuerySpec) Get(name string) (*Field, bool) { return q.fields.get(name) }

func (q *AnalysedQuerySpec) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, o := range q.Outputs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(o.Expression.String())
	}
	if len(q.Sources) > 0 {
		b.WriteString(" FROM ")
		for i, s := range q.Sources {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.String())
		}
	}
	if q.Where != nil {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where.String())
	}
	return b.String()
}

// OutputTypes returns the types of the select list.
func (q *AnalysedQuerySpec) OutputTypes() []types.DataType {
	out := make([]types.DataType, len(q.Outputs))
	for i, o := range q.Outputs {
		out[i] = o.Expression.Type()
	}
	return out
}

// OutputNames returns the names of the select list.
func (q *AnalysedQuerySpec) OutputNames() []string {
	out := make([]string, len(q.Outputs))
	for i, o := range q.Outputs {
		out[i] = o.Name
	}
	return out
}

// AnalysedStatement is the result of analysing a statement.
type AnalysedStatement interface {
	String() string
	analysedStatement()
}

// AnalysedQuery is an analysed SELECT.
type AnalysedQuery struct {
	Spec *AnalysedQuerySpec
	// ParameterTypes are the guessed types of the parameters referenced.
	ParameterTypes []types.DataType
}

func (q *AnalysedQuery) String() string { return q.Spec.String() }
func (*AnalysedQuery) analysedStatement() {}
