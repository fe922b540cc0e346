package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"x", "x"},
		{int64(42), "42"},
		{2.5, "2.5"},
		{true, "t"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCell(tt.in))
	}
}

func TestRenderResult(t *testing.T) {
	r := NewRenderer(NewStyles(DefaultPalette))
	out := r.Result("orders", []string{"name", "amount"},
		[][]any{{"alice", 5.0}, {"carol", nil}}, 3*time.Millisecond)

	for _, want := range []string{"orders", "name", "amount", "alice", "5", "carol", "NULL", "2 rows in 3ms"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, r.Result("empty", []string{"id"}, nil, 0), "0 rows")
	assert.Contains(t, r.Result("one", []string{"id"}, [][]any{{int64(1)}}, 0), "1 row ")
}

func TestRenderPlanAndError(t *testing.T) {
	r := NewRenderer(NewStyles(DefaultPalette))
	out := r.Plan("Project [a]\n  -> TableScan doc.t (rows=1)\n")
	assert.Contains(t, out, "Project [a]")
	assert.Contains(t, out, "-> TableScan doc.t (rows=1)")
	assert.Contains(t, r.Error(errors.New("boom")), "ERROR: boom")
}
