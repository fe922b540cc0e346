// Package catalog provides table metadata to the analyzer and row data plus
// statistics to the planner.
package catalog

import (
	"dexql/pkg/row"
	"dexql/pkg/sql/tree"
	"dexql/pkg/types"
)

// DefaultSchema is searched when a session does not set a search path.
const DefaultSchema = "doc"

// MetaData resolves relation names to table descriptors.
type MetaData interface {
	// Lookup resolves name. A one-part name is tried against each schema of
	// searchPath in order; a two-part name is schema.table.
	Lookup(searchPath []string, name tree.QualifiedName) (*TableDescriptor, error)
}

type Column struct {
	Name string
	Type types.DataType
}

// TableDescriptor describes one table.
type TableDescriptor struct {
	Schema  string
	Name    string
	Columns []Column
}

func (t *TableDescriptor) QualifiedName() tree.QualifiedName {
	return tree.NewQualifiedName(t.Schema, t.Name)
}

func (t *TableDescriptor) String() string { return t.Schema + "." + t.Name }

// Column returns the named column and its position.
func (t *TableDescriptor) Column(name string) (Column, int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return c, i, true
		}
	}
	return Column{}, -1, false
}

// Description returns the row description of a full scan.
func (t *TableDescriptor) Description() *row.Description {
	d := &row.Description{
		Names: make([]string, len(t.Columns)),
		Types: make([]types.DataType, len(t.Columns)),
	}
	for i, c := range t.Columns {
		d.Names[i] = c.Name
		d.Types[i] = c.Type
	}
	return d
}
