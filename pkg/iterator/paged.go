package iterator

import (
	"context"

	"github.com/cockroachdb/errors"
)

// PageSource fetches the page-th page of a source. last marks the final
// page; it may be empty.
type PageSource[T any] interface {
	FetchPage(ctx context.Context, page int) (items []T, last bool, err error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc[T any] func(ctx context.Context, page int) ([]T, bool, error)

func (f PageSourceFunc[T]) FetchPage(ctx context.Context, page int) ([]T, bool, error) {
	return f(ctx, page)
}

// Paged is a BatchIterator whose batches are pages fetched from a
// PageSource. Nothing is buffered until the first LoadNextBatch.
//
// With replay enabled the fetched pages are kept so MoveToStart can rewind
// without going back to the source. Without it only the current page is held.
type Paged[T any] struct {
	lc     Lifecycle
	source PageSource[T]
	replay bool

	pages    [][]T
	pageIdx  int
	pos      int
	nextPage int
	last     bool

	current T
	state   State
}

// NewPaged creates an iterator that fetches pages on demand.
func NewPaged[T any](source PageSource[T], replay bool) *Paged[T] {
	return &Paged[T]{source: source, replay: replay}
}

// SlicePages serves items in pages of pageSize. It is the in-process
// stand-in for a storage scan.
func SlicePages[T any](items []T, pageSize int) PageSource[T] {
	if pageSize <= 0 {
		pageSize = len(items)
	}
	return PageSourceFunc[T](func(ctx context.Context, page int) ([]T, bool, error) {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		start := page * pageSize
		if start >= len(items) {
			return nil, true, nil
		}
		end := min(start+pageSize, len(items))
		return items[start:end], end == len(items), nil
	})
}

func (it *Paged[T]) CurrentElement() T { return it.current }

func (it *Paged[T]) MoveNext() (bool, error) {
	if err := it.lc.Check(); err != nil {
		return false, err
	}
	for it.pageIdx < len(it.pages) {
		page := it.pages[it.pageIdx]
		if it.pos < len(page) {
			it.current = page[it.pos]
			it.pos++
			it.state = Positioned
			return true, nil
		}
		if it.pageIdx == len(it.pages)-1 {
			break
		}
		it.pageIdx++
		it.pos = 0
	}

	var zero T
	it.current = zero
	if it.last {
		it.state = Exhausted
	} else {
		it.state = Idle
	}
	return false, nil
}

func (it *Paged[T]) MoveToStart() error {
	if err := it.lc.Check(); err != nil {
		return err
	}
	if !it.replay {
		return ErrReplayUnsupported
	}
	var zero T
	it.current = zero
	it.pageIdx, it.pos = 0, 0
	it.state = Idle
	return nil
}

func (it *Paged[T]) LoadNextBatch(ctx context.Context) error {
	if it.last {
		if err := it.lc.Check(); err != nil {
			return err
		}
		return ErrAllLoaded
	}

	loadCtx, done, err := it.lc.BeginLoad(ctx)
	if err != nil {
		return err
	}
	defer done()

	items, last, err := it.source.FetchPage(loadCtx, it.nextPage)
	if err != nil {
		return it.lc.LoadError(errors.Wrapf(err, "fetch page %d", it.nextPage))
	}
	if err := it.lc.Check(); err != nil {
		return err
	}

	if it.replay {
		it.pages = append(it.pages, items)
		if it.pageIdx < len(it.pages)-1 && it.pos >= len(it.pages[it.pageIdx]) {
			it.pageIdx++
			it.pos = 0
		}
	} else {
		it.pages = [][]T{items}
		it.pageIdx, it.pos = 0, 0
	}
	it.nextPage++
	it.last = last
	return nil
}

func (it *Paged[T]) AllLoaded() bool { return it.last }

func (it *Paged[T]) Close() error {
	if it.lc.MarkClosed() {
		it.pages = nil
	}
	return nil
}

func (it *Paged[T]) Kill(cause error) { it.lc.Kill(cause) }

func (it *Paged[T]) State() State { return it.lc.State(it.state) }
