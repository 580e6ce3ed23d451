package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/kernel"
	"github.com/ajitpratap0/tabular/pkg/manager"
)

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := New([]Column{
		{Label: "id", Values: buffer.FromInt64s([]int64{1, 2, 3})},
		{Label: "price", Values: buffer.FromFloat64s([]float64{9.5, 20, 4.25})},
		{Label: "name", Values: buffer.FromStrings([]string{"ann", "bob", "cat"})},
	})
	require.NoError(t, err)
	return f
}

func TestNewAndColumns(t *testing.T) {
	f := sampleFrame(t)
	assert.Equal(t, 3, f.NRows())
	assert.Equal(t, 3, f.NCols())
	assert.Equal(t, []string{"id", "price", "name"}, f.Columns())
	assert.Equal(t, []string{"0", "1", "2"}, f.RowLabels())

	s, err := f.Col("price")
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, s.Kind())
	assert.Equal(t, []float64{9.5, 20, 4.25}, s.Values().Float64s())

	byPos, err := f.ColAt(0)
	require.NoError(t, err)
	assert.Equal(t, "id", byPos.Name())
}

func TestAppendDropSet(t *testing.T) {
	f := sampleFrame(t)
	require.NoError(t, f.Append("qty", buffer.FromInt64s([]int64{5, 6, 7})))
	assert.Equal(t, []string{"id", "price", "name", "qty"}, f.Columns())

	require.NoError(t, f.Drop("name"))
	assert.Equal(t, []string{"id", "price", "qty"}, f.Columns())

	require.NoError(t, f.Set("qty", buffer.FromInt64s([]int64{0, 0, 0})))
	q, err := f.Col("qty")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0}, q.Values().Int64s())
}

func TestFilter(t *testing.T) {
	f := sampleFrame(t)
	mask, err := f.Col("price")
	require.NoError(t, err)
	gt, err := mask.Arith(kernel.Gt, 5.0)
	require.NoError(t, err)

	out, err := f.Filter(gt.Values())
	require.NoError(t, err)
	assert.Equal(t, 2, out.NRows())
	names, err := out.Col("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob"}, names.Values().Strings())

	_, err = f.Filter(buffer.FromInt64s([]int64{1, 2, 3}))
	require.Error(t, err, "mask must be bool")
	_, err = f.Filter(buffer.FromBools([]bool{true}))
	require.Error(t, err, "mask must span the rows")
}

func TestSelectLabelsAndTakeRows(t *testing.T) {
	f := sampleFrame(t)
	sub, err := f.SelectLabels([]string{"name", "id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "id"}, sub.Columns())

	rows, err := f.TakeRows([]int{2, 0})
	require.NoError(t, err)
	ids, err := rows.Col("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids.Values().Int64s())
}

func TestArithScalar(t *testing.T) {
	f, err := New([]Column{
		{Label: "i", Values: buffer.FromInt64s([]int64{1, 2})},
		{Label: "f", Values: buffer.FromFloat64s([]float64{1.5, 2.5})},
	})
	require.NoError(t, err)

	out, err := f.Arith(kernel.Mul, 2)
	require.NoError(t, err)
	i, err := out.Col("i")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, i.Values().Int64s())
	fl, err := out.Col("f")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, fl.Values().Float64s())
}

func TestBinOpAlignsColumns(t *testing.T) {
	left, err := New([]Column{
		{Label: "x", Values: buffer.FromFloat64s([]float64{1, 2})},
		{Label: "y", Values: buffer.FromFloat64s([]float64{10, 20})},
	})
	require.NoError(t, err)
	right, err := New([]Column{
		{Label: "y", Values: buffer.FromFloat64s([]float64{1, 1})},
		{Label: "z", Values: buffer.FromFloat64s([]float64{5, 5})},
	})
	require.NoError(t, err)

	out, err := left.BinOp(kernel.Add, right)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, out.Columns())

	y, err := out.Col("y")
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 21}, y.Values().Float64s())

	x, err := out.Col("x")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(x.Values().Float64s()[0]), "one-sided labels yield missing")
	z, err := out.Col("z")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(z.Values().Float64s()[1]))
}

func TestReductions(t *testing.T) {
	f, err := New([]Column{
		{Label: "i", Values: buffer.FromInt64s([]int64{1, 2, 3})},
		{Label: "f", Values: buffer.FromFloat64s([]float64{2, 4, 6})},
	})
	require.NoError(t, err)

	sum, err := f.Sum()
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum["i"])
	assert.Equal(t, 12.0, sum["f"])

	mean, err := f.Mean()
	require.NoError(t, err)
	assert.Equal(t, 2.0, mean["i"])
	assert.Equal(t, 4.0, mean["f"])

	min, err := f.Min()
	require.NoError(t, err)
	assert.Equal(t, int64(1), min["i"])

	max, err := f.Max()
	require.NoError(t, err)
	assert.Equal(t, 6.0, max["f"])
}

func TestRow(t *testing.T) {
	f := sampleFrame(t)
	row, err := f.Row(1)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"id": int64(2), "price": 20.0, "name": "bob",
	}, row)
}

func TestCopySemantics(t *testing.T) {
	f := sampleFrame(t)
	clone := f.Copy(false)
	require.NoError(t, clone.Set("id", buffer.FromInt64s([]int64{7, 8, 9})))

	orig, err := f.Col("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, orig.Values().Int64s())
}

func TestReindexFacade(t *testing.T) {
	f := sampleFrame(t)
	out, err := f.Reindex([]string{"1", "5"}, manager.AxisRows)
	require.NoError(t, err)
	ids, err := out.Col("id")
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, ids.Kind())
	assert.Equal(t, 2.0, ids.Values().Float64s()[0])
	assert.True(t, math.IsNaN(ids.Values().Float64s()[1]))
}

func TestBlockLayoutAndMemory(t *testing.T) {
	f := sampleFrame(t)
	layout := f.BlockLayout()
	assert.Len(t, layout, 3)
	kinds := map[string]bool{}
	for _, bi := range layout {
		kinds[bi.Kind] = true
		assert.Equal(t, 3, bi.Rows)
	}
	assert.True(t, kinds["int64"] && kinds["float64"] && kinds["string"])
	assert.Greater(t, f.MemoryUsage(), int64(0))
}

func TestSeriesOps(t *testing.T) {
	s, err := NewSeries("v", buffer.FromInt64s([]int64{-2, 3}))
	require.NoError(t, err)

	abs, err := s.Abs()
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, abs.Values().Int64s())

	doubled, err := s.Arith(kernel.Mul, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{-4, 6}, doubled.Values().Int64s())

	other, err := NewSeries("w", buffer.FromInt64s([]int64{1, 1}))
	require.NoError(t, err)
	added, err := s.BinOp(kernel.Add, other)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, 4}, added.Values().Int64s())

	sum, err := s.Sum()
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum)
}

func TestBinOpAlignsRows(t *testing.T) {
	left, err := NewWithRowLabels([]string{"r0", "r1"}, 2, []Column{
		{Label: "x", Values: buffer.FromInt64s([]int64{1, 2})},
	})
	require.NoError(t, err)
	right, err := NewWithRowLabels([]string{"r1", "r0"}, 2, []Column{
		{Label: "x", Values: buffer.FromInt64s([]int64{20, 10})},
	})
	require.NoError(t, err)

	out, err := left.BinOp(kernel.Add, right)
	require.NoError(t, err)
	assert.Equal(t, []string{"r0", "r1"}, out.RowLabels())
	x, err := out.Col("x")
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 22}, x.Values().Int64s(), "rows pair by label, not position")
}

func TestBinOpRowUnionIntroducesMissing(t *testing.T) {
	left, err := NewWithRowLabels([]string{"r0", "r1"}, 2, []Column{
		{Label: "x", Values: buffer.FromFloat64s([]float64{1, 2})},
	})
	require.NoError(t, err)
	right, err := NewWithRowLabels([]string{"r1", "r2"}, 2, []Column{
		{Label: "x", Values: buffer.FromFloat64s([]float64{10, 20})},
	})
	require.NoError(t, err)

	out, err := left.BinOp(kernel.Add, right)
	require.NoError(t, err)
	assert.Equal(t, []string{"r0", "r1", "r2"}, out.RowLabels())
	x, err := out.Col("x")
	require.NoError(t, err)
	vals := x.Values().Float64s()
	assert.True(t, math.IsNaN(vals[0]))
	assert.Equal(t, 12.0, vals[1])
	assert.True(t, math.IsNaN(vals[2]))
}

func TestAutoConsolidate(t *testing.T) {
	f := sampleFrame(t)
	f.SetAutoConsolidate(true, 3)
	require.NoError(t, f.Append("qty", buffer.FromInt64s([]int64{5, 6, 7})))
	assert.Len(t, f.BlockLayout(), 3, "new int column merged into the int block")

	lazy := sampleFrame(t)
	require.NoError(t, lazy.Append("qty", buffer.FromInt64s([]int64{5, 6, 7})))
	assert.Len(t, lazy.BlockLayout(), 4, "policy off keeps consolidation lazy")

	clone := f.Copy(false)
	require.NoError(t, clone.Append("n", buffer.FromInt64s([]int64{1, 2, 3})))
	assert.Len(t, clone.BlockLayout(), 3, "copies carry the policy")
}
