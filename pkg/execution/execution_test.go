package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexql/pkg/catalog"
	dberror "dexql/pkg/error"
	"dexql/pkg/functions"
	"dexql/pkg/iterator"
	"dexql/pkg/iterator/itertest"
	"dexql/pkg/plan"
	"dexql/pkg/row"
	"dexql/pkg/types"
)

func evenPredicate(r row.Row) (bool, error) { return r.Get(0).(int64)%2 == 0, nil }

func doubled(r row.Row) (any, error) { return r.Get(0).(int64) * 2, nil }

func TestFilterConformance(t *testing.T) {
	itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
		f, err := NewFilter[row.Row](itertest.NewBatchSimulating[row.Row](iterator.Range(0, 10), 3, 0, 0), evenPredicate)
		require.NoError(t, err)
		return f
	}, [][]any{{int64(0)}, {int64(2)}, {int64(4)}, {int64(6)}, {int64(8)}})
}

func TestFilterFailureIsSticky(t *testing.T) {
	boom := errors.New("boom")
	f, err := NewFilter[row.Row](iterator.Range(0, 3), func(row.Row) (bool, error) { return false, boom })
	require.NoError(t, err)

	for range 2 {
		_, err := f.MoveNext()
		assert.ErrorIs(t, err, boom)
	}
	assert.ErrorIs(t, f.MoveToStart(), boom)

	_, err = NewFilter[row.Row](nil, evenPredicate)
	assert.Error(t, err)
	_, err = NewFilter[row.Row](iterator.Range(0, 1), nil)
	assert.Error(t, err)
}

func TestProjectConformance(t *testing.T) {
	itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
		p, err := NewProject(iterator.Range(1, 4), []Evaluator{doubled, func(r row.Row) (any, error) { return "x", nil }})
		require.NoError(t, err)
		return p
	}, [][]any{{int64(2), "x"}, {int64(4), "x"}, {int64(6), "x"}})
}

func TestLimit(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int64
		want          [][]any
	}{
		{"limit only", 2, 0, [][]any{{int64(0)}, {int64(1)}}},
		{"offset only", NoLimit, 3, [][]any{{int64(3)}, {int64(4)}}},
		{"limit and offset", 2, 1, [][]any{{int64(1)}, {int64(2)}}},
		{"offset past end", 3, 10, nil},
		{"zero limit", 0, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
				l, err := NewLimit[row.Row](itertest.NewBatchSimulating[row.Row](iterator.Range(0, 5), 2, 0, 0), tt.limit, tt.offset)
				require.NoError(t, err)
				return l
			}, tt.want)
		})
	}
}

func TestLimitStopsLoading(t *testing.T) {
	source := itertest.NewBatchSimulating[row.Row](iterator.Range(0, 100), 5, 0, 0)
	l, err := NewLimit[row.Row](source, 3, 0)
	require.NoError(t, err)

	got, err := iterator.CollectRows(context.Background(), l)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Zero(t, source.Loads(), "the first batch already satisfies the limit")
	assert.ErrorIs(t, l.LoadNextBatch(context.Background()), iterator.ErrAllLoaded)

	_, err = NewLimit[row.Row](source, -2, 0)
	assert.Error(t, err)
	_, err = NewLimit[row.Row](source, 1, -1)
	assert.Error(t, err)
}

func scanCatalog(t *testing.T) (*catalog.Memory, *catalog.TableDescriptor) {
	t.Helper()
	m := catalog.NewMemory()
	desc := &catalog.TableDescriptor{Schema: "doc", Name: "t", Columns: []catalog.Column{
		{Name: "id", Type: types.Long},
		{Name: "label", Type: types.String},
	}}
	require.NoError(t, m.CreateTable(desc))
	require.NoError(t, m.Insert("doc", "t", []any{1, "a"}, []any{2, "b"}, []any{3, "c"}, []any{4, nil}, []any{5, "e"}))
	return m, desc
}

func TestTableScanConformance(t *testing.T) {
	m, desc := scanCatalog(t)
	expected := [][]any{{int64(1), "a"}, {int64(2), "b"}, {int64(3), "c"}, {int64(4), nil}, {int64(5), "e"}}
	for _, pageSize := range []int{1, 2, 5, 0} {
		itertest.Verify(t, func() iterator.BatchIterator[row.Row] {
			return NewTableScan(m, desc, pageSize)
		}, expected)
	}
}

func TestTableScanUnknownTable(t *testing.T) {
	m, _ := scanCatalog(t)
	scan := NewTableScan(m, &catalog.TableDescriptor{Schema: "doc", Name: "gone"}, 2)
	err := scan.LoadNextBatch(context.Background())
	assert.True(t, dberror.Is(err, dberror.CodeRelationUnknown), "got %v", err)
}

func fn(t *testing.T, name string, args ...plan.Expression) *plan.Function {
	t.Helper()
	argTypes := make([]types.DataType, len(args))
	for i, a := range args {
		argTypes[i] = a.Type()
	}
	sig, ok := functions.Builtins().Resolve(name, argTypes)
	require.True(t, ok, name)
	return &plan.Function{Signature: sig, Arguments: args}
}

func TestCompile(t *testing.T) {
	_, desc := scanCatalog(t)
	left := plan.NewAnalysedTable(desc)
	right := plan.NewAliasedRelation("r", plan.NewAnalysedTable(desc), nil)
	layout := NewLayout(left, right)
	assert.Equal(t, 4, layout.Width())

	leftID, _ := left.Get("id")
	rightID, _ := right.Get("id")
	rightLabel, _ := right.Get("label")
	param := &plan.Parameter{Index: 0, DataType: types.Long}
	lit := func(v any, t types.DataType) plan.Expression { return &plan.Literal{Value: v, DataType: t} }

	input := row.Materialized{int64(2), "b", int64(3), nil}
	tests := []struct {
		name string
		expr plan.Expression
		want any
	}{
		{"left field", leftID, int64(2)},
		{"right field", rightID, int64(3)},
		{"arithmetic", fn(t, "add", leftID, rightID), int64(5)},
		{"parameter", fn(t, "multiply", leftID, param), int64(14)},
		{"null propagates", fn(t, "upper", rightLabel), nil},
		{"coalesce", fn(t, "coalesce", rightLabel, lit("none", types.String)), "none"},
		{"cast", &plan.Cast{Operand: leftID, Target: types.String}, "2"},
		{"aliased", &plan.Aliased{Alias: "x", Expression: rightID}, int64(3)},
		{"case first true", &plan.Case{
			Whens: []plan.When{
				{Condition: fn(t, "op_>", leftID, rightID), Result: lit("gt", types.String)},
				{Condition: fn(t, "op_<", leftID, rightID), Result: lit("lt", types.String)},
			},
			DataType: types.String,
		}, "lt"},
		{"case default", &plan.Case{
			Whens:    []plan.When{{Condition: lit(nil, types.Undefined), Result: lit(int64(1), types.Long)}},
			Default:  lit(int32(9), types.Integer),
			DataType: types.Long,
		}, int64(9)},
		{"case without default", &plan.Case{
			Whens:    []plan.When{{Condition: lit(false, types.Boolean), Result: lit(int64(1), types.Long)}},
			DataType: types.Long,
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Compile(tt.expr, layout, []any{int32(7)})
			require.NoError(t, err)
			got, err := ev(input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	_, desc := scanCatalog(t)
	tbl := plan.NewAnalysedTable(desc)
	id, _ := tbl.Get("id")

	_, err := Compile(id, NewLayout(), nil)
	assert.Error(t, err, "field outside the layout")

	_, err = Compile(&plan.Parameter{Index: 1, DataType: types.Long}, NewLayout(), []any{1})
	assert.True(t, dberror.Is(err, dberror.CodeParameterIndexOutOfBounds))

	_, err = Compile(&plan.Parameter{Index: 0, DataType: types.Long}, NewLayout(), []any{"x"})
	assert.True(t, dberror.Is(err, dberror.CodeTypeCoercion))

	ev, err := Compile(fn(t, "divide", id, &plan.Literal{Value: int64(0), DataType: types.Long}), NewLayout(tbl), nil)
	require.NoError(t, err)
	_, err = ev(row.Materialized{int64(1), "a"})
	assert.True(t, dberror.Is(err, dberror.CodeExecutionFailed))
}

func TestCompilePredicateTreatsNullAsFalse(t *testing.T) {
	_, desc := scanCatalog(t)
	tbl := plan.NewAnalysedTable(desc)
	label, _ := tbl.Get("label")
	layout := NewLayout(tbl)

	pred, err := CompilePredicate(fn(t, "op_=", label, &plan.Literal{Value: "a", DataType: types.String}), layout, nil)
	require.NoError(t, err)

	ok, err := pred(row.Materialized{int64(1), "a"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = pred(row.Materialized{int64(1), nil})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScanFilterProjectPipeline(t *testing.T) {
	m, desc := scanCatalog(t)
	tbl := plan.NewAnalysedTable(desc)
	id, _ := tbl.Get("id")
	label, _ := tbl.Get("label")
	layout := NewLayout(tbl)

	where, err := CompilePredicate(fn(t, "op_>=", id, &plan.Parameter{Index: 0, DataType: types.Long}), layout, []any{int64(2)})
	require.NoError(t, err)
	out, err := Compile(fn(t, "concat", label, &plan.Literal{Value: "!", DataType: types.String}), layout, nil)
	require.NoError(t, err)

	filter, err := NewFilter[row.Row](NewTableScan(m, desc, 2), where)
	require.NoError(t, err)
	project, err := NewProject(filter, []Evaluator{out})
	require.NoError(t, err)
	limit, err := NewLimit[row.Row](project, 3, 1)
	require.NoError(t, err)
	defer limit.Close()

	got, err := iterator.CollectRows(context.Background(), limit)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"c!"}, {"!"}, {"e!"}}, got)
}
