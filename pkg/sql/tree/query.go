package tree

import "fmt"

type Table struct {
	Name QualifiedName
}

func (t *Table) String() string { return t.Name.String() }

// AliasedRelation renames a relation and optionally its columns.
type AliasedRelation struct {
	Relation    Relation
	Alias       string
	ColumnNames []string
}

func (a *AliasedRelation) String() string {
	var b sqlBuilder
	b.WriteString(a.Relation.String())
	b.WriteString(" AS ")
	b.WriteString(a.Alias)
	if len(a.ColumnNames) > 0 {
		b.WriteString(" (")
		for i, c := range a.ColumnNames {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c)
		}
		b.WriteString(")")
	}
	return b.String()
}

type TableSubquery struct {
	Query *Query
}

func (s *TableSubquery) String() string { return "(" + s.Query.String() + ")" }

type JoinType int

const (
	CrossJoin JoinType = iota
	InnerJoin
	LeftJoin
	RightJoin
	FullJoin
)

func (t JoinType) String() string {
	switch t {
	case CrossJoin:
		return "CROSS"
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullJoin:
		return "FULL"
	default:
		return fmt.Sprintf("JoinType(%d)", int(t))
	}
}

// JoinCriteria is JoinOn or JoinUsing.
type JoinCriteria interface {
	Node
	joinCriteria()
}

type JoinOn struct {
	Expression Expression
}

func (j *JoinOn) String() string { return "ON " + j.Expression.String() }

type JoinUsing struct {
	Columns []string
}

func (j *JoinUsing) String() string {
	var b sqlBuilder
	b.WriteString("USING (")
	for i, c := range j.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
	}
	b.WriteString(")")
	return b.String()
}

type Join struct {
	Type     JoinType
	Left     Relation
	Right    Relation
	Criteria JoinCriteria
}

func (j *Join) String() string {
	var b sqlBuilder
	b.WriteString(j.Left.String())
	b.WriteString(" ")
	b.WriteString(j.Type.String())
	b.WriteString(" JOIN ")
	b.WriteString(j.Right.String())
	if j.Criteria != nil {
		b.WriteString(" ")
		b.WriteString(j.Criteria.String())
	}
	return b.String()
}

// SingleColumn is "expr [AS alias]".
type SingleColumn struct {
	Expression Expression
	Alias      string
}

func (c *SingleColumn) String() string {
	if c.Alias == "" {
		return c.Expression.String()
	}
	return c.Expression.String() + " AS " + c.Alias
}

// AllColumns is "*" or "prefix.*".
type AllColumns struct {
	Prefix QualifiedName
}

func (a *AllColumns) String() string {
	if len(a.Prefix.Parts) == 0 {
		return "*"
	}
	return a.Prefix.String() + ".*"
}

type Select struct {
	Distinct bool
	Items    []SelectItem
}

func (s Select) String() string {
	var b sqlBuilder
	b.WriteString("SELECT ")
	b.writeIf(s.Distinct, "DISTINCT ")
	writeList(&b, s.Items, ", ")
	return b.String()
}

type Ordering int

const (
	Ascending Ordering = iota
	Descending
)

type NullOrdering int

const (
	NullsDefault NullOrdering = iota
	NullsFirst
	NullsLast
)

type SortItem struct {
	SortKey      Expression
	Ordering     Ordering
	NullOrdering NullOrdering
}

func (s SortItem) String() string {
	var b sqlBuilder
	b.WriteString(s.SortKey.String())
	b.writeIf(s.Ordering == Descending, " DESC")
	b.writeIf(s.NullOrdering == NullsFirst, " NULLS FIRST")
	b.writeIf(s.NullOrdering == NullsLast, " NULLS LAST")
	return b.String()
}

// QuerySpecification is one SELECT block.
type QuerySpecification struct {
	Select  Select
	From    []Relation
	Where   Expression
	GroupBy []Expression
	Having  Expression
	OrderBy []SortItem
	Limit   Expression
	Offset  Expression
}

func (q *QuerySpecification) String() string {
	var b sqlBuilder
	b.WriteString(q.Select.String())
	if len(q.From) > 0 {
		b.WriteString(" FROM ")
		writeList(&b, q.From, ", ")
	}
	if q.Where != nil {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where.String())
	}
	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		writeList(&b, q.GroupBy, ", ")
	}
	if q.Having != nil {
		b.WriteString(" HAVING ")
		b.WriteString(q.Having.String())
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		writeList(&b, q.OrderBy, ", ")
	}
	if q.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(q.Limit.String())
	}
	if q.Offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(q.Offset.String())
	}
	return b.String()
}

// Query is a SELECT statement.
type Query struct {
	Body *QuerySpecification
}

func (q *Query) String() string { return q.Body.String() }

func (*Table) relationNode()           {}
func (*AliasedRelation) relationNode() {}
func (*TableSubquery) relationNode()   {}
func (*Join) relationNode()            {}

func (*JoinOn) joinCriteria()    {}
func (*JoinUsing) joinCriteria() {}

func (*SingleColumn) selectItemNode() {}
func (*AllColumns) selectItemNode()   {}

func (*Query) statementNode() {}
