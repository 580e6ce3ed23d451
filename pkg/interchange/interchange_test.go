package interchange

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/compression"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/frame"
)

func TestReadCSVInference(t *testing.T) {
	in := strings.Join([]string{
		"id,score,active,label,when",
		"1,1.5,true,alpha,2024-01-02T03:04:05Z",
		"2,2.5,false,beta,2024-06-07T08:09:10Z",
	}, "\n")

	f, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.NRows())
	assert.Equal(t, []string{"id", "score", "active", "label", "when"}, f.Columns())

	kinds := map[string]dtype.Kind{}
	for _, l := range f.Columns() {
		s, err := f.Col(l)
		require.NoError(t, err)
		kinds[l] = s.Kind()
	}
	assert.Equal(t, dtype.Int64, kinds["id"])
	assert.Equal(t, dtype.Float64, kinds["score"])
	assert.Equal(t, dtype.Bool, kinds["active"])
	assert.Equal(t, dtype.String, kinds["label"])
	assert.Equal(t, dtype.Timestamp, kinds["when"])

	when, err := f.Col("when")
	require.NoError(t, err)
	v, err := when.At(0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), v)
}

func TestReadCSVNullsPromoteIntegers(t *testing.T) {
	in := "v\n1\n\n3\n"
	f, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)

	s, err := f.Col("v")
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, s.Kind(), "holes push ints to float")
	vals := s.Values().Float64s()
	assert.Equal(t, 1.0, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
	assert.Equal(t, 3.0, vals[2])
}

func TestReadCSVNullTokens(t *testing.T) {
	in := "name\nann\nNA\n"
	f, err := ReadCSV(strings.NewReader(in), CSVOptions{NullTokens: []string{"NA"}})
	require.NoError(t, err)
	s, err := f.Col("name")
	require.NoError(t, err)
	assert.Equal(t, dtype.String, s.Kind())
	assert.False(t, s.Values().IsValid(1))
}

func TestReadCSVMixedNumericWidens(t *testing.T) {
	in := "v\n1\n2.5\n"
	f, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	s, err := f.Col("v")
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, s.Kind())
}

func TestReadCSVNoHeader(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("1,x\n2,y\n"), CSVOptions{NoHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1"}, f.Columns())
}

func TestCSVRoundTrip(t *testing.T) {
	f, err := frame.New([]frame.Column{
		{Label: "id", Values: buffer.FromInt64s([]int64{1, 2})},
		{Label: "score", Values: buffer.FromFloat64s([]float64{0.5, math.NaN()})},
		{Label: "name", Values: buffer.FromStrings([]string{"a", "b"})},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))

	back, err := ReadCSV(&buf, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, f.Columns(), back.Columns())

	id, err := back.Col("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, id.Values().Int64s())
	score, err := back.Col("score")
	require.NoError(t, err)
	assert.Equal(t, 0.5, score.Values().Float64s()[0])
	assert.True(t, math.IsNaN(score.Values().Float64s()[1]), "NaN survives as an empty field")
}

func TestWriteJSON(t *testing.T) {
	f, err := frame.New([]frame.Column{
		{Label: "id", Values: buffer.FromInt64s([]int64{1})},
		{Label: "score", Values: buffer.FromFloat64s([]float64{math.NaN()})},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, f))
	got := buf.String()
	assert.Contains(t, got, `"id":1`)
	assert.Contains(t, got, `"score":null`, "NaN serializes as null")
}

func TestSnapshotRoundTrip(t *testing.T) {
	f, err := frame.NewWithRowLabels([]string{"r0", "r1"}, 2, []frame.Column{
		{Label: "id", Values: buffer.FromInt64s([]int64{1, 2})},
		{Label: "score", Values: buffer.FromFloat64s([]float64{0.5, math.NaN()})},
		{Label: "name", Values: buffer.FromStrings([]string{"a", "b"})},
		{Label: "flag", Values: buffer.FromBools([]bool{true, false})},
		{Label: "when", Values: buffer.FromTimes([]time.Time{time.Unix(1, 0), time.Unix(2, 0)})},
		{Label: "n", Values: buffer.FromNullableInt64s([]int64{7, 0}, []bool{true, false})},
	})
	require.NoError(t, err)

	for _, alg := range []compression.Algorithm{compression.None, compression.Zstd, compression.LZ4, compression.S2} {
		t.Run(string(alg), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteSnapshot(&buf, f, alg))

			back, err := ReadSnapshot(&buf)
			require.NoError(t, err)
			assert.Equal(t, []string{"r0", "r1"}, back.RowLabels())
			assert.Equal(t, f.Columns(), back.Columns())

			for _, label := range f.Columns() {
				want, err := f.Col(label)
				require.NoError(t, err)
				got, err := back.Col(label)
				require.NoError(t, err)
				assert.True(t, want.Values().EqualValues(got.Values()), label)
			}
		})
	}
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewReader([]byte("not a snapshot at all")))
	require.Error(t, err)
}

func TestArrowRoundTrip(t *testing.T) {
	f, err := frame.New([]frame.Column{
		{Label: "id", Values: buffer.FromInt64s([]int64{1, 2})},
		{Label: "score", Values: buffer.FromFloat64s([]float64{0.5, 1.5})},
		{Label: "name", Values: buffer.FromStrings([]string{"a", "b"})},
		{Label: "flag", Values: buffer.FromBools([]bool{true, false})},
		{Label: "when", Values: buffer.FromTimes([]time.Time{time.Unix(1, 0), time.Unix(2, 0)})},
		{Label: "n", Values: buffer.FromNullableInt64s([]int64{7, 0}, []bool{true, false})},
	})
	require.NoError(t, err)

	rec, err := ToArrow(f)
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, int64(6), rec.NumCols())

	back, err := FromArrow(rec)
	require.NoError(t, err)
	assert.Equal(t, f.Columns(), back.Columns())

	id, err := back.Col("id")
	require.NoError(t, err)
	assert.Equal(t, dtype.Int64, id.Kind())
	assert.Equal(t, []int64{1, 2}, id.Values().Int64s())

	n, err := back.Col("n")
	require.NoError(t, err)
	assert.Equal(t, dtype.NullableInt64, n.Kind(), "nulls come back masked")
	assert.True(t, n.Values().IsValid(0))
	assert.False(t, n.Values().IsValid(1))

	when, err := back.Col("when")
	require.NoError(t, err)
	v, err := when.At(0)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1, 0).UTC(), v)
}
