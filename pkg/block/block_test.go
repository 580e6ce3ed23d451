package block

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/kernel"
)

func intBlock(t *testing.T, placement []int, cols ...[]int64) *Block {
	t.Helper()
	parts := make([]*buffer.Buffer, len(cols))
	for i, c := range cols {
		parts[i] = buffer.FromInt64s(c)
	}
	buf, err := buffer.ConcatCols(parts...)
	require.NoError(t, err)
	blk, err := New(buf, placement)
	require.NoError(t, err)
	return blk
}

func TestNewPlacementMismatch(t *testing.T) {
	buf := buffer.FromInt64s([]int64{1, 2})
	_, err := New(buf, []int{0, 1})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStructural))
}

func TestValuesIdentityShares(t *testing.T) {
	blk := intBlock(t, []int{0, 1}, []int64{1, 2}, []int64{3, 4})
	v := blk.Values()
	assert.Same(t, &v.Int64s()[0], &blk.buf.Int64s()[0], "full block values are a view")
	assert.True(t, blk.IsShared())
}

func TestSliceColumnsSharesPayload(t *testing.T) {
	blk := intBlock(t, []int{0, 1, 2}, []int64{1, 2}, []int64{3, 4}, []int64{5, 6})
	sub, err := blk.SliceColumns([]int{2, 0}, []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, sub.Placement())

	col, err := sub.Column(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, col.Int64s())
	assert.Same(t, &col.Int64s()[0], &blk.buf.Int64s()[4], "subset shares the payload")

	packed := sub.Values()
	assert.Equal(t, []int64{5, 6, 1, 2}, packed.Int64s(), "non-identity values pack a copy")
	assert.NotSame(t, &packed.Int64s()[0], &blk.buf.Int64s()[4])
}

func TestSetItemSameKindCopiesSharedStorage(t *testing.T) {
	blk := intBlock(t, []int{0, 1}, []int64{1, 2}, []int64{3, 4})
	view, err := blk.SliceColumns([]int{0, 1}, []int{0, 1})
	require.NoError(t, err)

	replaced, err := view.SetItem([]int{0}, buffer.FromInt64s([]int64{9, 9}))
	require.NoError(t, err)
	require.Len(t, replaced, 1)
	assert.Equal(t, dtype.Int64, replaced[0].Kind())

	col, err := replaced[0].Column(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 9}, col.Int64s())

	orig, err := blk.Column(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, orig.Int64s(), "shared storage was copied before the write")
}

func TestSetItemKindChangeSplits(t *testing.T) {
	blk := intBlock(t, []int{0, 1, 2}, []int64{1, 2}, []int64{3, 4}, []int64{5, 6})
	replaced, err := blk.SetItem([]int{1}, buffer.FromStrings([]string{"x", "y"}))
	require.NoError(t, err)
	require.Len(t, replaced, 2)

	remaining, assigned := replaced[0], replaced[1]
	assert.Equal(t, dtype.Int64, remaining.Kind())
	assert.Equal(t, []int{0, 2}, remaining.Placement())
	assert.Equal(t, dtype.String, assigned.Kind())
	assert.Equal(t, []int{1}, assigned.Placement())

	col, err := assigned.Column(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, col.Strings())
}

func TestSetItemWholeBlockKindChange(t *testing.T) {
	blk := intBlock(t, []int{0}, []int64{1, 2})
	replaced, err := blk.SetItem([]int{0}, buffer.FromFloat64s([]float64{1.5, 2.5}))
	require.NoError(t, err)
	require.Len(t, replaced, 1, "nothing remains of the old kind")
	assert.Equal(t, dtype.Float64, replaced[0].Kind())
}

func TestSetItemShapeChecks(t *testing.T) {
	blk := intBlock(t, []int{0}, []int64{1, 2})
	_, err := blk.SetItem([]int{0}, buffer.FromInt64s([]int64{1}))
	require.Error(t, err)
	_, err = blk.SetItem([]int{5}, buffer.FromInt64s([]int64{1, 2}))
	require.Error(t, err)
}

func TestDelete(t *testing.T) {
	blk := intBlock(t, []int{0, 1}, []int64{1, 2}, []int64{3, 4})
	rest, err := blk.Delete([]int{0})
	require.NoError(t, err)
	require.NotNil(t, rest)
	assert.Equal(t, []int{1}, rest.Placement())

	empty, err := rest.Delete([]int{0})
	require.NoError(t, err)
	assert.Nil(t, empty, "deleting the last column empties the block")
}

func TestShiftPlacement(t *testing.T) {
	blk := intBlock(t, []int{1, 3}, []int64{1}, []int64{2})
	blk.ShiftPlacement(2, 1)
	assert.Equal(t, []int{1, 4}, blk.Placement())
	blk.ShiftPlacement(0, -1)
	assert.Equal(t, []int{0, 3}, blk.Placement())
}

func TestTake(t *testing.T) {
	blk := intBlock(t, []int{0}, []int64{10, 20, 30})
	out, err := blk.Take([]int{2, 2, 0})
	require.NoError(t, err)
	col, err := out.Column(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 30, 10}, col.Int64s())

	_, err = blk.Take([]int{7})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStructural))
}

func TestReindexPromotesForMissing(t *testing.T) {
	blk := intBlock(t, []int{0}, []int64{10, 20})
	out, err := blk.Reindex([]int{1, -1})
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, out.Kind(), "ints cannot hold a hole")

	col, err := out.Column(0)
	require.NoError(t, err)
	assert.Equal(t, 20.0, col.Float64s()[0])
	assert.True(t, math.IsNaN(col.Float64s()[1]))
}

func TestReindexWithoutMissingKeepsKind(t *testing.T) {
	blk := intBlock(t, []int{0}, []int64{10, 20})
	out, err := blk.Reindex([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, dtype.Int64, out.Kind())
}

func TestApplyAndBinOp(t *testing.T) {
	blk := intBlock(t, []int{0, 1}, []int64{1, 2}, []int64{3, 4})
	s, err := buffer.Scalar(10)
	require.NoError(t, err)

	out, err := blk.BinOp(kernel.Add, s)
	require.NoError(t, err)
	assert.Equal(t, blk.Placement(), out.Placement())
	assert.Equal(t, []int64{11, 12, 13, 14}, out.Values().Int64s())
}

func TestCopy(t *testing.T) {
	blk := intBlock(t, []int{0}, []int64{1, 2})

	shallow := blk.Copy(false)
	assert.True(t, blk.IsShared())
	assert.True(t, shallow.IsShared())

	deep := blk.Copy(true)
	assert.False(t, deep.IsShared())
	col, err := deep.Column(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, col.Int64s())
}

func TestMerge(t *testing.T) {
	a := intBlock(t, []int{2}, []int64{5, 6})
	b := intBlock(t, []int{0}, []int64{1, 2})
	c := intBlock(t, []int{1}, []int64{3, 4})

	merged, err := Merge([]*Block{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, merged.Placement(), "merge sorts by placement")
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, merged.Values().Int64s())

	_, err = Merge([]*Block{a, mustFloatBlock(t)})
	require.Error(t, err)
}

func mustFloatBlock(t *testing.T) *Block {
	t.Helper()
	blk, err := New(buffer.FromFloat64s([]float64{1, 2}), []int{0})
	require.NoError(t, err)
	return blk
}
