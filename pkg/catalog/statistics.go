package catalog

import (
	"time"

	"dexql/pkg/memory"
	"dexql/pkg/row"
)

// RowsPerPage converts cardinalities into page counts for cost estimation.
const RowsPerPage = 100

// TableStatistics summarize a table for join planning.
type TableStatistics struct {
	Cardinality  int       // Number of rows in the table
	PageCount    int       // Number of pages the rows would occupy
	AvgRowSize   int       // Average estimated row size in bytes
	LastUpdated  time.Time // When statistics were last collected
	NullCount    []int     // Nulls per column
	SortedColumn []bool    // Column values are ascending in storage order
}

// IsSortedOn reports whether column is ascending in scan order.
func (s *TableStatistics) IsSortedOn(column int) bool {
	return column >= 0 && column < len(s.SortedColumn) && s.SortedColumn[column]
}

func collectStatistics(desc *TableDescriptor, rows [][]any) *TableStatistics {
	n := len(desc.Columns)
	stats := &TableStatistics{
		Cardinality:  len(rows),
		PageCount:    (len(rows) + RowsPerPage - 1) / RowsPerPage,
		LastUpdated:  time.Now(),
		NullCount:    make([]int, n),
		SortedColumn: make([]bool, n),
	}
	for i := range stats.SortedColumn {
		stats.SortedColumn[i] = true
	}

	totalSize := 0
	for r, cells := range rows {
		totalSize += memory.RowSize(row.Materialized(cells))
		for i, c := range desc.Columns {
			if cells[i] == nil {
				stats.NullCount[i]++
			}
			if r == 0 || !stats.SortedColumn[i] {
				continue
			}
			if cmp, err := c.Type.Compare(rows[r-1][i], cells[i]); err != nil || cmp > 0 {
				stats.SortedColumn[i] = false
			}
		}
	}
	if len(rows) > 0 {
		stats.AvgRowSize = totalSize / len(rows)
	}
	return stats
}
