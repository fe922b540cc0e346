package error

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      *DBError
		expected string
	}{
		{
			name:     "code and message",
			err:      New(ErrCategoryUser, CodeColumnUnknown, "column unknown"),
			expected: "[COLUMN_UNKNOWN] column unknown",
		},
		{
			name:     "with detail",
			err:      ColumnUnknown("q"),
			expected: `[COLUMN_UNKNOWN] column unknown: column "q" does not exist in any source relation`,
		},
		{
			name:     "with operation and component",
			err:      RelationUnknown("doc.t").In("Lookup", "MetaData"),
			expected: `[RELATION_UNKNOWN] relation unknown: relation "doc.t" does not exist (operation: Lookup, component: MetaData)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.NotEmpty(t, tt.err.Stack)
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeExecutionFailed, "op", "comp"))

	cause := errors.New("disk gone")
	wrapped := Wrap(cause, CodeExecutionFailed, "FetchPage", "Paged")
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCategorySystem, wrapped.Category)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "caused by: disk gone")

	inner := ColumnUnknown("x")
	again := Wrap(fmt.Errorf("analysing: %w", inner), CodeExecutionFailed, "Analyze", "Analyzer")
	assert.Same(t, inner, again)
	assert.Equal(t, "Analyze", inner.Operation)
}

func TestIsAndCodeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", ParameterIndexOutOfBounds(3, 1))

	assert.True(t, Is(err, CodeParameterIndexOutOfBounds))
	assert.False(t, Is(err, CodeColumnUnknown))
	assert.Equal(t, CodeParameterIndexOutOfBounds, CodeOf(err))
	assert.Equal(t, "", CodeOf(errors.New("plain")))

	chained := Wrap(TypeCoercion("x", "boolean"), CodeExecutionFailed, "", "")
	chained = &DBError{Code: CodeExecutionFailed, Cause: chained}
	assert.True(t, Is(chained, CodeTypeCoercion))
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "cancelled", ErrCategoryCancelled.String())
	assert.Equal(t, "unknown", ErrorCategory(42).String())
}
