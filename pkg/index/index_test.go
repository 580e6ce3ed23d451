package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/errors"
)

func TestLabelIndexLookup(t *testing.T) {
	ix := NewLabelIndex([]string{"a", "b", "c"})
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, "b", ix.Label(1))
	assert.False(t, ix.HasDuplicates())

	pos, err := ix.GetLoc("c")
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	_, err = ix.GetLoc("z")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestLabelIndexDuplicates(t *testing.T) {
	ix := NewLabelIndex([]string{"a", "b", "a"})
	assert.True(t, ix.HasDuplicates())

	pos, err := ix.GetLoc("a")
	require.NoError(t, err)
	assert.Equal(t, 0, pos, "duplicates resolve to the first occurrence")

	_, err = ix.GetIndexer([]string{"a"})
	require.Error(t, err, "indexer over duplicates is ambiguous")
	assert.True(t, errors.IsType(err, errors.ErrorTypeStructural))
}

func TestLabelIndexGetIndexer(t *testing.T) {
	ix := NewLabelIndex([]string{"a", "b", "c"})
	got, err := ix.GetIndexer([]string{"c", "z", "a"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, -1, 0}, got)
}

func TestLabelIndexEdits(t *testing.T) {
	ix := NewLabelIndex([]string{"a", "c"})

	in, err := ix.Insert(1, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, in.Labels())
	assert.Equal(t, []string{"a", "c"}, ix.Labels(), "edits do not touch the receiver")

	del, err := in.Delete(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, del.Labels())

	_, err = ix.Insert(5, "x")
	require.Error(t, err)
	_, err = ix.Delete(2)
	require.Error(t, err)
}

func TestLabelIndexTake(t *testing.T) {
	ix := NewLabelIndex([]string{"a", "b", "c"})
	got, err := ix.Take([]int{2, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "c"}, got.Labels())

	_, err = ix.Take([]int{3})
	require.Error(t, err)
}

func TestRangeIndex(t *testing.T) {
	ix := NewRangeIndex(3)
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, "2", ix.Label(2))
	assert.Equal(t, []string{"0", "1", "2"}, ix.Labels())
	assert.False(t, ix.HasDuplicates())

	pos, err := ix.GetLoc("1")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	_, err = ix.GetLoc("7")
	require.Error(t, err)
	_, err = ix.GetLoc("x")
	require.Error(t, err)

	got, err := ix.GetIndexer([]string{"2", "9"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, -1}, got)
}

func TestRangeIndexEditsFallBack(t *testing.T) {
	ix := NewRangeIndex(2)
	in, err := ix.Insert(0, "head")
	require.NoError(t, err)
	assert.Equal(t, []string{"head", "0", "1"}, in.Labels())

	tk, err := ix.Take([]int{1})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, tk.Labels())
}

func TestAppend(t *testing.T) {
	ix := NewLabelIndex([]string{"a", "b"})
	ap, err := ix.Append("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ap.Labels())

	r, err := NewRangeIndex(2).Append("tail")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "tail"}, r.Labels())
}
