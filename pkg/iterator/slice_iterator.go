package iterator

import "github.com/cockroachdb/errors"

// ErrExhausted is returned by SliceIterator.Next past the last element.
var ErrExhausted = errors.New("slice iterator exhausted")

// SliceIterator is a read position over a slice. InMemory uses it as its
// cursor and the join operators use it to scan their buffered left rows.
//
// It has no lifecycle and is not safe for concurrent use.
//
//	it := NewSliceIterator([]int{1, 2, 3})
//	for it.HasNext() {
//	    v, _ := it.Next()
//	    process(v)
//	}
type SliceIterator[T any] struct {
	data         []T
	currentIndex int
}

func NewSliceIterator[T any](data []T) *SliceIterator[T] {
	return &SliceIterator[T]{data: data}
}

// HasNext reports whether Next would return an element.
func (it *SliceIterator[T]) HasNext() bool {
	return it.currentIndex < len(it.data)
}

// Next returns the next element and advances the position.
func (it *SliceIterator[T]) Next() (T, error) {
	if it.currentIndex >= len(it.data) {
		var zero T
		return zero, ErrExhausted
	}
	element := it.data[it.currentIndex]
	it.currentIndex++
	return element, nil
}

// Rewind resets the position without touching the data.
func (it *SliceIterator[T]) Rewind() {
	it.currentIndex = 0
}

// Append adds elements at the end; the position is unchanged.
func (it *SliceIterator[T]) Append(elements ...T) {
	it.data = append(it.data, elements...)
}

// Reset drops all elements.
func (it *SliceIterator[T]) Reset() {
	clear(it.data)
	it.data = it.data[:0]
	it.currentIndex = 0
}

func (it *SliceIterator[T]) Len() int { return len(it.data) }

// Remaining returns the number of elements left to iterate.
func (it *SliceIterator[T]) Remaining() int {
	return max(0, len(it.data)-it.currentIndex)
}

// CurrentIndex is the index of the element the next call to Next returns.
func (it *SliceIterator[T]) CurrentIndex() int {
	return it.currentIndex
}

// Seek moves the position to index, clamped to the slice bounds.
func (it *SliceIterator[T]) Seek(index int) {
	it.currentIndex = min(max(0, index), len(it.data))
}
