package kernel

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

func TestDispatchIntAdd(t *testing.T) {
	a := buffer.FromInt64s([]int64{1, 2, 3})
	s, err := buffer.Scalar(10)
	require.NoError(t, err)

	out, err := Dispatch(Add, a, s)
	require.NoError(t, err)
	assert.Equal(t, dtype.Int64, out.Kind())
	assert.Equal(t, []int64{11, 12, 13}, out.Int64s())
}

func TestDispatchPromotesIntFloat(t *testing.T) {
	a := buffer.FromInt64s([]int64{1, 2})
	s, err := buffer.Scalar(0.5)
	require.NoError(t, err)

	out, err := Dispatch(Add, a, s)
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, out.Kind(), "int plus float widens")
	assert.Equal(t, []float64{1.5, 2.5}, out.Float64s())
}

func TestDispatchDivisionLeavesIntegers(t *testing.T) {
	a := buffer.FromInt64s([]int64{3, 4})
	s, err := buffer.Scalar(2)
	require.NoError(t, err)

	out, err := Dispatch(Div, a, s)
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, out.Kind())
	assert.Equal(t, []float64{1.5, 2}, out.Float64s())
}

func TestDispatchComparison(t *testing.T) {
	a := buffer.FromInt64s([]int64{1, 5})
	s, err := buffer.Scalar(3.0)
	require.NoError(t, err)

	out, err := Dispatch(Lt, a, s)
	require.NoError(t, err)
	assert.Equal(t, dtype.Bool, out.Kind())
	assert.Equal(t, []bool{true, false}, out.Bools())
}

func TestDispatchStringEquality(t *testing.T) {
	a := buffer.FromStrings([]string{"x", "y"})
	s, err := buffer.Scalar("x")
	require.NoError(t, err)

	out, err := Dispatch(Eq, a, s)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, out.Bools())
}

func TestDispatchIncompatibleIsKernelError(t *testing.T) {
	a := buffer.FromStrings([]string{"x"})
	s, err := buffer.Scalar(1)
	require.NoError(t, err)

	_, err = Dispatch(Add, a, s)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeKernel))
	assert.True(t, errors.IsRecoverable(err), "kernel failures feed the per-column fallback")
}

func TestDispatchShapeErrorIsStructural(t *testing.T) {
	a := buffer.FromInt64s([]int64{1, 2, 3})
	operand := buffer.FromInt64s([]int64{1, 2})

	_, err := Dispatch(Add, a, operand)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStructural))
	assert.False(t, errors.IsRecoverable(err))
}

func TestDispatchColumnBroadcast(t *testing.T) {
	a := buffer.New(dtype.Int64, 2, 2)
	copy(a.Int64s(), []int64{1, 2, 10, 20})
	col := buffer.FromInt64s([]int64{100, 200})

	out, err := Dispatch(Add, a, col)
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 202, 110, 220}, out.Int64s())
}

func TestDispatchMaskPropagation(t *testing.T) {
	a := buffer.FromNullableInt64s([]int64{1, 2}, []bool{true, false})
	s, err := buffer.Scalar(10)
	require.NoError(t, err)

	out, err := Dispatch(Add, a, s)
	require.NoError(t, err)
	assert.Equal(t, dtype.NullableInt64, out.Kind())
	assert.Equal(t, int64(11), out.Int64s()[0])
	assert.True(t, out.IsValid(0))
	assert.False(t, out.IsValid(1), "missing stays missing through arithmetic")
}

func TestDispatchTemporal(t *testing.T) {
	t0 := time.Unix(100, 0)
	ts := buffer.FromTimes([]time.Time{t0, t0.Add(time.Minute)})
	s, err := buffer.Scalar(30 * time.Second)
	require.NoError(t, err)

	out, err := Dispatch(Add, ts, s)
	require.NoError(t, err)
	assert.Equal(t, dtype.Timestamp, out.Kind())
	assert.Equal(t, t0.Add(30*time.Second).UTC(), out.At(0, 0))

	diff, err := Dispatch(Sub, ts, func() *buffer.Buffer {
		b, _ := buffer.Scalar(t0)
		return b
	}())
	require.NoError(t, err)
	assert.Equal(t, dtype.Duration, diff.Kind())
	assert.Equal(t, time.Minute, diff.At(1, 0))
}

func TestDecimalDivisionByZero(t *testing.T) {
	a := buffer.FromDecimals([]decimal.Decimal{decimal.NewFromInt(10)})
	z := buffer.FromDecimals([]decimal.Decimal{decimal.Zero})

	_, err := Dispatch(Div, a, z)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeKernel))
}

func TestDispatchUnary(t *testing.T) {
	a := buffer.FromInt64s([]int64{-3, 4})
	out, err := DispatchUnary(Abs, a)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, out.Int64s())

	neg, err := DispatchUnary(Neg, a)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, -4}, neg.Int64s())

	_, err = DispatchUnary(Neg, buffer.FromStrings([]string{"x"}))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeKernel))
}

func TestReduceSumMinMaxMean(t *testing.T) {
	v := buffer.FromInt64s([]int64{3, 1, 2})

	sum, err := Reduce(Sum, v)
	require.NoError(t, err)
	assert.Equal(t, dtype.Int64, sum.Kind())
	assert.Equal(t, int64(6), sum.Int64s()[0])

	min, err := Reduce(Min, v)
	require.NoError(t, err)
	assert.Equal(t, int64(1), min.Int64s()[0])

	max, err := Reduce(Max, v)
	require.NoError(t, err)
	assert.Equal(t, int64(3), max.Int64s()[0])

	mean, err := Reduce(Mean, v)
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, mean.Kind(), "mean always lands on float")
	assert.Equal(t, 2.0, mean.Float64s()[0])
}

func TestReduceSkipsMissing(t *testing.T) {
	f := buffer.FromFloat64s([]float64{1, math.NaN(), 3})
	sum, err := Reduce(Sum, f)
	require.NoError(t, err)
	assert.Equal(t, 4.0, sum.Float64s()[0], "NaN elements are skipped")

	mean, err := Reduce(Mean, f)
	require.NoError(t, err)
	assert.Equal(t, 2.0, mean.Float64s()[0])

	n := buffer.FromNullableInt64s([]int64{5, 100, 1}, []bool{true, false, true})
	nsum, err := Reduce(Sum, n)
	require.NoError(t, err)
	assert.Equal(t, int64(6), nsum.Int64s()[0], "masked elements are skipped")
}

func TestReducePerColumn(t *testing.T) {
	v := buffer.New(dtype.Float64, 2, 2)
	copy(v.Float64s(), []float64{1, 2, 10, 20})
	sum, err := Reduce(Sum, v)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Rows())
	require.Equal(t, 2, sum.Cols())
	assert.Equal(t, []float64{3, 30}, sum.Float64s())
}

func TestReduceEmptyColumn(t *testing.T) {
	f := buffer.FromFloat64s([]float64{math.NaN()})
	mean, err := Reduce(Mean, f)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(mean.Float64s()[0]))

	n := buffer.FromNullableInt64s([]int64{0}, []bool{false})
	sum, err := Reduce(Sum, n)
	require.NoError(t, err)
	assert.False(t, sum.IsValid(0), "all-missing column reduces to missing")
}

func TestReduceUnsupportedKind(t *testing.T) {
	_, err := Reduce(Sum, buffer.FromStrings([]string{"a"}))
	require.Error(t, err)
	assert.True(t, errors.IsRecoverable(err))
}

func TestReduceDecimal(t *testing.T) {
	v := buffer.FromDecimals([]decimal.Decimal{
		decimal.RequireFromString("0.1"),
		decimal.RequireFromString("0.2"),
	})
	sum, err := Reduce(Sum, v)
	require.NoError(t, err)
	assert.True(t, sum.Decimals()[0].Equal(decimal.RequireFromString("0.3")),
		"decimal sums stay exact")

	mean, err := Reduce(Mean, v)
	require.NoError(t, err)
	assert.Equal(t, dtype.Decimal, mean.Kind())
	assert.True(t, mean.Decimals()[0].Equal(decimal.RequireFromString("0.15")))
}
