package execution

import (
	"github.com/cockroachdb/errors"

	"dexql/pkg/iterator"
)

// Filter passes through the elements of its child the predicate accepts.
type Filter[T any] struct {
	iterator.Forwarding[T]
	predicate func(T) (bool, error)
	failure   error
}

func NewFilter[T any](child iterator.BatchIterator[T], predicate func(T) (bool, error)) (*Filter[T], error) {
	if child == nil {
		return nil, errors.New("filter needs a child iterator")
	}
	if predicate == nil {
		return nil, errors.New("filter needs a predicate")
	}
	return &Filter[T]{Forwarding: iterator.Forwarding[T]{Child: child}, predicate: predicate}, nil
}

func (f *Filter[T]) CurrentElement() T { return f.Child.CurrentElement() }

func (f *Filter[T]) MoveToStart() error {
	if f.failure != nil {
		return f.failure
	}
	return f.Child.MoveToStart()
}

// MoveNext fails with the same error on every call once the predicate has
// failed.
func (f *Filter[T]) MoveNext() (bool, error) {
	if f.failure != nil {
		return false, f.failure
	}
	for {
		ok, err := f.Child.MoveNext()
		if err != nil || !ok {
			return false, err
		}
		pass, err := f.predicate(f.Child.CurrentElement())
		if err != nil {
			f.failure = errors.Wrap(err, "evaluate filter")
			return false, f.failure
		}
		if pass {
			return true, nil
		}
	}
}
