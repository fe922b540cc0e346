package execution

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"dexql/pkg/catalog"
	"dexql/pkg/iterator"
	"dexql/pkg/logging"
	"dexql/pkg/row"
)

// DefaultPageSize is the number of rows a table scan fetches per batch.
const DefaultPageSize = 256

// RowSource serves the rows of a table.
type RowSource interface {
	Rows(desc *catalog.TableDescriptor) ([][]any, error)
}

// NewTableScan scans the rows of desc in batches of pageSize. The snapshot
// of the table is taken by the first load. Scans are replayable, so they
// can feed the inner side of a nested-loop or merge join.
func NewTableScan(source RowSource, desc *catalog.TableDescriptor, pageSize int) *iterator.Paged[row.Row] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return iterator.NewPaged[row.Row](&tablePages{source: source, desc: desc, pageSize: pageSize}, true)
}

type tablePages struct {
	source   RowSource
	desc     *catalog.TableDescriptor
	pageSize int

	once     sync.Once
	snapshot []row.Row
	err      error
}

func (p *tablePages) FetchPage(ctx context.Context, page int) ([]row.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p.once.Do(func() {
		cells, err := p.source.Rows(p.desc)
		if err != nil {
			p.err = errors.Wrapf(err, "scan %s", p.desc)
			return
		}
		p.snapshot = make([]row.Row, len(cells))
		for i, c := range cells {
			p.snapshot[i] = row.Materialized(c)
		}
	})
	if p.err != nil {
		return nil, false, p.err
	}

	start := page * p.pageSize
	end := min(start+p.pageSize, len(p.snapshot))
	if start >= len(p.snapshot) {
		start = end
	}
	logging.WithRelation(p.desc.String()).Debug("page fetched", "page", page, "rows", end-start)
	return p.snapshot[start:end], end == len(p.snapshot), nil
}
