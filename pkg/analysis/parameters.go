package analysis

import (
	dberror "dexql/pkg/error"
	"dexql/pkg/types"
)

// ParameterContext holds the positional parameters of one statement. Either
// a single vector or a bulk of equally sized vectors is given. The type of
// each index is guessed once and stays fixed for the statement.
type ParameterContext struct {
	params  []any
	bulk    [][]any
	current int
	guessed map[int]types.DataType
}

// NewParameterContext validates that every bulk row has the same arity.
// Bulk rows take precedence over params when both are set.
func NewParameterContext(params []any, bulk ...[]any) (*ParameterContext, error) {
	if len(bulk) > 0 {
		width := len(bulk[0])
		for i, b := range bulk {
			if len(b) != width {
				return nil, dberror.New(dberror.ErrCategoryUser, dberror.CodeParameterIndexOutOfBounds,
					"mixed number of arguments inside bulk arguments").
					WithDetail("bulk row %d has %d arguments, row 0 has %d", i, len(b), width)
			}
		}
	}
	return &ParameterContext{params: params, bulk: bulk, guessed: map[int]types.DataType{}}, nil
}

// EmptyParameters is a context with no parameters.
func EmptyParameters() *ParameterContext {
	return &ParameterContext{guessed: map[int]types.DataType{}}
}

// Len is the number of parameters per execution.
func (p *ParameterContext) Len() int {
	if len(p.bulk) > 0 {
		return len(p.bulk[0])
	}
	return len(p.params)
}

// BulkSize is the number of executions; 1 without bulk parameters.
func (p *ParameterContext) BulkSize() int {
	if len(p.bulk) > 0 {
		return len(p.bulk)
	}
	return 1
}

// SetBulkIndex selects the bulk row Values returns.
func (p *ParameterContext) SetBulkIndex(i int) {
	p.current = i
}

// Values returns the parameters of the current execution.
func (p *ParameterContext) Values() []any {
	if len(p.bulk) > 0 {
		return p.bulk[p.current]
	}
	return p.params
}

// Type returns the guessed type of the 0-based index. In bulk mode the
// first non-null value at that index decides.
func (p *ParameterContext) Type(index int) (types.DataType, error) {
	if index < 0 || index >= p.Len() {
		return nil, dberror.ParameterIndexOutOfBounds(index+1, p.Len())
	}
	if t, ok := p.guessed[index]; ok {
		return t, nil
	}

	sample := p.sample(index)
	t := types.Guess(sample)
	if types.Equal(t, types.NotSupported) {
		return nil, dberror.TypeCoercion(sample, "a supported type")
	}
	p.guessed[index] = t
	return t, nil
}

// sample is the value whose shape decides the type of index.
func (p *ParameterContext) sample(index int) any {
	if len(p.bulk) > 0 {
		for _, b := range p.bulk {
			if b[index] != nil {
				return b[index]
			}
		}
		return nil
	}
	return p.params[index]
}

// Types returns the guessed type for every index seen so far, Undefined
// for the rest.
func (p *ParameterContext) Types() []types.DataType {
	out := make([]types.DataType, p.Len())
	for i := range out {
		if t, ok := p.guessed[i]; ok {
			out[i] = t
		} else {
			out[i] = types.Undefined
		}
	}
	return out
}
