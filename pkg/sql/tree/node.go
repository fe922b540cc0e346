// Package tree is the SQL syntax tree handed to the analyzer. Every node
// renders back to SQL through String, which error details use to name the
// offending node. Parsing text into trees is done elsewhere.
package tree

import "strings"

// Node is any syntax tree node.
type Node interface {
	String() string
}

// Expression is a value-producing node.
type Expression interface {
	Node
	expressionNode()
}

// Relation is a FROM item.
type Relation interface {
	Node
	relationNode()
}

// Statement is a top-level statement.
type Statement interface {
	Node
	statementNode()
}

// SelectItem is an entry of a select list.
type SelectItem interface {
	Node
	selectItemNode()
}

// QualifiedName is a dotted identifier such as schema.table.column.
type QualifiedName struct {
	Parts []string
}

func NewQualifiedName(parts ...string) QualifiedName {
	return QualifiedName{Parts: parts}
}

// ParseQualifiedName splits a dotted name. Quoting is not interpreted.
func ParseQualifiedName(name string) QualifiedName {
	return QualifiedName{Parts: strings.Split(name, ".")}
}

func (q QualifiedName) String() string { return strings.Join(q.Parts, ".") }

// Suffix returns the last part.
func (q QualifiedName) Suffix() string {
	if len(q.Parts) == 0 {
		return ""
	}
	return q.Parts[len(q.Parts)-1]
}

// Prefix returns all parts but the last.
func (q QualifiedName) Prefix() QualifiedName {
	if len(q.Parts) <= 1 {
		return QualifiedName{}
	}
	return QualifiedName{Parts: q.Parts[:len(q.Parts)-1]}
}

// sqlBuilder wraps strings.Builder with helpers for the String methods.
type sqlBuilder struct {
	strings.Builder
}

func (b *sqlBuilder) writeIf(cond bool, s string) {
	if cond {
		b.WriteString(s)
	}
}

// writeList writes the nodes separated by sep.
func writeList[T Node](b *sqlBuilder, nodes []T, sep string) {
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(n.String())
	}
}
