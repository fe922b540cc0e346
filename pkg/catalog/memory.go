package catalog

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	dberror "dexql/pkg/error"
	"dexql/pkg/logging"
	"dexql/pkg/sql/tree"
)

// table is a registered table with its data.
type table struct {
	desc  *TableDescriptor
	rows  [][]any
	stats *TableStatistics
}

// Memory is an in-memory catalog holding schemas, tables and their rows.
// It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	schemas map[string]map[string]*table
}

var _ MetaData = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{schemas: make(map[string]map[string]*table)}
}

// CreateTable registers desc with no rows.
func (m *Memory) CreateTable(desc *TableDescriptor) error {
	if desc.Schema == "" || desc.Name == "" {
		return dberror.InvalidIdentifier(desc.String())
	}
	if len(desc.Columns) == 0 {
		return fmt.Errorf("table %s needs at least one column", desc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	tables, ok := m.schemas[desc.Schema]
	if !ok {
		tables = make(map[string]*table)
		m.schemas[desc.Schema] = tables
	}
	if _, exists := tables[desc.Name]; exists {
		return fmt.Errorf("table %s already exists", desc)
	}
	tables[desc.Name] = &table{desc: desc, stats: collectStatistics(desc, nil)}
	logging.WithRelation(desc.String()).Debug("table created", "columns", len(desc.Columns))
	return nil
}

// Insert appends rows to a table, coercing every cell to its column type.
// Statistics are recomputed.
func (m *Memory) Insert(schema, name string, rows ...[]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.tableLocked(schema, name)
	if err != nil {
		return err
	}
	d := t.desc.Description()
	coerced := make([][]any, 0, len(rows))
	for i, r := range rows {
		cells := slices.Clone(r)
		if err := d.Coerce(cells); err != nil {
			return fmt.Errorf("insert into %s row %d: %w", t.desc, i, err)
		}
		coerced = append(coerced, cells)
	}
	t.rows = append(t.rows, coerced...)
	t.stats = collectStatistics(t.desc, t.rows)
	return nil
}

func (m *Memory) Lookup(searchPath []string, name tree.QualifiedName) (*TableDescriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.resolveLocked(searchPath, name)
	if err != nil {
		return nil, err
	}
	return t.desc, nil
}

// Rows returns the rows of a table. The slice must not be modified.
func (m *Memory) Rows(desc *TableDescriptor) ([][]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.tableLocked(desc.Schema, desc.Name)
	if err != nil {
		return nil, err
	}
	return t.rows[:len(t.rows):len(t.rows)], nil
}

// Statistics returns the statistics of a table.
func (m *Memory) Statistics(desc *TableDescriptor) (*TableStatistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.tableLocked(desc.Schema, desc.Name)
	if err != nil {
		return nil, err
	}
	return t.stats, nil
}

// Schemas returns the schema names in sorted order.
func (m *Memory) Schemas() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.schemas))
}

// Tables returns the table names of schema in sorted order.
func (m *Memory) Tables(schema string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.schemas[schema]))
}

func (m *Memory) resolveLocked(searchPath []string, name tree.QualifiedName) (*table, error) {
	switch len(name.Parts) {
	case 1:
		if len(searchPath) == 0 {
			searchPath = []string{DefaultSchema}
		}
		for _, schema := range searchPath {
			if t, ok := m.schemas[schema][name.Parts[0]]; ok {
				return t, nil
			}
		}
		return nil, dberror.RelationUnknown(name.String())
	case 2:
		return m.tableLocked(name.Parts[0], name.Parts[1])
	default:
		return nil, dberror.InvalidIdentifier(name.String())
	}
}

func (m *Memory) tableLocked(schema, name string) (*table, error) {
	t, ok := m.schemas[schema][name]
	if !ok {
		return nil, dberror.RelationUnknown(schema + "." + name)
	}
	return t, nil
}
