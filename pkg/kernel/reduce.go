package kernel

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

// ReduceOp identifies a column-wise reduction.
type ReduceOp string

const (
	Sum  ReduceOp = "sum"
	Min  ReduceOp = "min"
	Max  ReduceOp = "max"
	Mean ReduceOp = "mean"
)

// ReduceFunc collapses every column of v into a single row.
type ReduceFunc func(v *buffer.Buffer) (*buffer.Buffer, error)

var reduceKernels = map[ReduceOp]map[dtype.Kind]ReduceFunc{}

// RegisterReduce installs a reduction kernel for op over a kind.
func RegisterReduce(op ReduceOp, k dtype.Kind, fn ReduceFunc) {
	m, ok := reduceKernels[op]
	if !ok {
		m = map[dtype.Kind]ReduceFunc{}
		reduceKernels[op] = m
	}
	m[k] = fn
}

// Reduce collapses v column-wise into a 1 x cols buffer. Missing elements
// are skipped; a column with no valid elements yields a missing result
// (NaN for floats). Lookup failures surface as kernel errors so callers
// can engage the per-column fallback policy.
func Reduce(op ReduceOp, v *buffer.Buffer) (*buffer.Buffer, error) {
	fn, ok := reduceKernels[op][v.Kind()]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeKernel,
			"no %s kernel for %s", op, v.Kind())
	}
	return fn(v)
}

// numReduce folds each column of a raw numeric payload. Masked elements
// are skipped; empty accepts the fold result for a column with no valid
// elements and reports whether it counts as present.
func numReduce[T int64 | uint64 | float64](
	pay func(*buffer.Buffer) []T, res dtype.Kind,
	fold func(acc T, x T, first bool) T,
	skip func(x T) bool,
) ReduceFunc {
	return func(v *buffer.Buffer) (*buffer.Buffer, error) {
		rows, cols := v.Rows(), v.Cols()
		out := buffer.New(res, 1, cols)
		in, ov := pay(v), pay(out)
		mask := v.ValidMask()
		for c := 0; c < cols; c++ {
			var acc T
			seen := false
			base := c * rows
			for r := 0; r < rows; r++ {
				x := in[base+r]
				if (mask != nil && !mask[base+r]) || (skip != nil && skip(x)) {
					continue
				}
				acc = fold(acc, x, !seen)
				seen = true
			}
			if !seen {
				switch {
				case res == dtype.Float64:
					var nan interface{} = math.NaN()
					ov[c] = nan.(T)
				case res.NullRule() == dtype.NullMask:
					out.EnsureMask()
					out.ValidMask()[c] = false
				default:
					return nil, errors.Newf(errors.ErrorTypeValidation,
						"reduction over column %d with no valid elements", c)
				}
				continue
			}
			ov[c] = acc
		}
		return out, nil
	}
}

func sumFold[T int64 | uint64 | float64](acc, x T, _ bool) T { return acc + x }

func minFold[T int64 | uint64 | float64](acc, x T, first bool) T {
	if first || x < acc {
		return x
	}
	return acc
}

func maxFold[T int64 | uint64 | float64](acc, x T, first bool) T {
	if first || x > acc {
		return x
	}
	return acc
}

// meanReduce averages each column into a Float64 row; conv lifts the
// payload element to float64.
func meanReduce[T int64 | uint64 | float64](pay func(*buffer.Buffer) []T, conv func(T) float64, skip func(T) bool) ReduceFunc {
	return func(v *buffer.Buffer) (*buffer.Buffer, error) {
		rows, cols := v.Rows(), v.Cols()
		out := buffer.New(dtype.Float64, 1, cols)
		in, ov := pay(v), out.Float64s()
		mask := v.ValidMask()
		for c := 0; c < cols; c++ {
			sum, n := 0.0, 0
			base := c * rows
			for r := 0; r < rows; r++ {
				x := in[base+r]
				if (mask != nil && !mask[base+r]) || (skip != nil && skip(x)) {
					continue
				}
				sum += conv(x)
				n++
			}
			if n == 0 {
				ov[c] = math.NaN()
				continue
			}
			ov[c] = sum / float64(n)
		}
		return out, nil
	}
}

// decReduce folds each column of a decimal payload.
func decReduce(fold func(acc, x decimal.Decimal, first bool) decimal.Decimal, mean bool) ReduceFunc {
	return func(v *buffer.Buffer) (*buffer.Buffer, error) {
		rows, cols := v.Rows(), v.Cols()
		out := buffer.New(dtype.Decimal, 1, cols)
		in, ov := v.Decimals(), out.Decimals()
		mask := v.ValidMask()
		for c := 0; c < cols; c++ {
			var acc decimal.Decimal
			n := 0
			base := c * rows
			for r := 0; r < rows; r++ {
				if mask != nil && !mask[base+r] {
					continue
				}
				acc = fold(acc, in[base+r], n == 0)
				n++
			}
			if n == 0 {
				out.EnsureMask()
				out.ValidMask()[c] = false
				continue
			}
			if mean {
				acc = acc.Div(decimal.NewFromInt(int64(n)))
			}
			ov[c] = acc
		}
		return out, nil
	}
}

func isNaN(x float64) bool { return math.IsNaN(x) }

func init() {
	RegisterReduce(Sum, dtype.Int64, numReduce(i64s, dtype.Int64, sumFold[int64], nil))
	RegisterReduce(Min, dtype.Int64, numReduce(i64s, dtype.Int64, minFold[int64], nil))
	RegisterReduce(Max, dtype.Int64, numReduce(i64s, dtype.Int64, maxFold[int64], nil))
	RegisterReduce(Mean, dtype.Int64, meanReduce(i64s, func(x int64) float64 { return float64(x) }, nil))

	RegisterReduce(Sum, dtype.Uint64, numReduce(u64s, dtype.Uint64, sumFold[uint64], nil))
	RegisterReduce(Min, dtype.Uint64, numReduce(u64s, dtype.Uint64, minFold[uint64], nil))
	RegisterReduce(Max, dtype.Uint64, numReduce(u64s, dtype.Uint64, maxFold[uint64], nil))
	RegisterReduce(Mean, dtype.Uint64, meanReduce(u64s, func(x uint64) float64 { return float64(x) }, nil))

	RegisterReduce(Sum, dtype.Float64, numReduce(f64s, dtype.Float64, sumFold[float64], isNaN))
	RegisterReduce(Min, dtype.Float64, numReduce(f64s, dtype.Float64, minFold[float64], isNaN))
	RegisterReduce(Max, dtype.Float64, numReduce(f64s, dtype.Float64, maxFold[float64], isNaN))
	RegisterReduce(Mean, dtype.Float64, meanReduce(f64s, func(x float64) float64 { return x }, isNaN))

	RegisterReduce(Sum, dtype.NullableInt64, numReduce(i64s, dtype.NullableInt64, sumFold[int64], nil))
	RegisterReduce(Min, dtype.NullableInt64, numReduce(i64s, dtype.NullableInt64, minFold[int64], nil))
	RegisterReduce(Max, dtype.NullableInt64, numReduce(i64s, dtype.NullableInt64, maxFold[int64], nil))
	RegisterReduce(Mean, dtype.NullableInt64, meanReduce(i64s, func(x int64) float64 { return float64(x) }, nil))

	RegisterReduce(Sum, dtype.Decimal, decReduce(func(acc, x decimal.Decimal, _ bool) decimal.Decimal { return acc.Add(x) }, false))
	RegisterReduce(Min, dtype.Decimal, decReduce(func(acc, x decimal.Decimal, first bool) decimal.Decimal {
		if first || x.Cmp(acc) < 0 {
			return x
		}
		return acc
	}, false))
	RegisterReduce(Max, dtype.Decimal, decReduce(func(acc, x decimal.Decimal, first bool) decimal.Decimal {
		if first || x.Cmp(acc) > 0 {
			return x
		}
		return acc
	}, false))
	RegisterReduce(Mean, dtype.Decimal, decReduce(func(acc, x decimal.Decimal, _ bool) decimal.Decimal { return acc.Add(x) }, true))

	RegisterReduce(Min, dtype.Timestamp, numReduce(i64s, dtype.Timestamp, minFold[int64], nil))
	RegisterReduce(Max, dtype.Timestamp, numReduce(i64s, dtype.Timestamp, maxFold[int64], nil))
	RegisterReduce(Sum, dtype.Duration, numReduce(i64s, dtype.Duration, sumFold[int64], nil))
	RegisterReduce(Min, dtype.Duration, numReduce(i64s, dtype.Duration, minFold[int64], nil))
	RegisterReduce(Max, dtype.Duration, numReduce(i64s, dtype.Duration, maxFold[int64], nil))
}
