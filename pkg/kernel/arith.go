package kernel

import (
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

// maskValid reports element validity against an optional mask.
func maskValid(x *buffer.Buffer, i int) bool {
	m := x.ValidMask()
	return m == nil || m[i]
}

// propagateValidity intersects the operand masks into out. Only kinds
// carrying a mask participate; NaN propagation is handled by the float
// arithmetic itself.
func propagateValidity(a, b, out *buffer.Buffer, rows int) {
	if a.ValidMask() == nil && b.ValidMask() == nil {
		return
	}
	out.EnsureMask()
	ov := out.ValidMask()
	for i := range ov {
		ov[i] = maskValid(a, i) && maskValid(b, broadcastIndex(i, rows, b))
	}
}

// numArith builds an elementwise arithmetic kernel over a raw numeric
// payload accessor.
func numArith[T int64 | uint64 | float64](pay func(*buffer.Buffer) []T, res dtype.Kind, f func(T, T) T) BinaryFunc {
	return func(a, b *buffer.Buffer) (*buffer.Buffer, error) {
		rows := a.Rows()
		out := buffer.New(res, rows, a.Cols())
		av, bv, ov := pay(a), pay(b), pay(out)
		for i := range av {
			ov[i] = f(av[i], bv[broadcastIndex(i, rows, b)])
		}
		propagateValidity(a, b, out, rows)
		return out, nil
	}
}

// decArith builds an elementwise decimal kernel; f may reject an element
// pair (division by zero).
func decArith(f func(decimal.Decimal, decimal.Decimal) (decimal.Decimal, error)) BinaryFunc {
	return func(a, b *buffer.Buffer) (*buffer.Buffer, error) {
		rows := a.Rows()
		out := buffer.New(dtype.Decimal, rows, a.Cols())
		av, bv, ov := a.Decimals(), b.Decimals(), out.Decimals()
		for i := range av {
			bi := broadcastIndex(i, rows, b)
			if !maskValid(a, i) || !maskValid(b, bi) {
				continue
			}
			v, err := f(av[i], bv[bi])
			if err != nil {
				return nil, err
			}
			ov[i] = v
		}
		propagateValidity(a, b, out, rows)
		return out, nil
	}
}

// numUnary builds an elementwise unary kernel preserving the input kind.
func numUnary[T int64 | uint64 | float64](pay func(*buffer.Buffer) []T, f func(T) T) UnaryFunc {
	return func(v *buffer.Buffer) (*buffer.Buffer, error) {
		out := buffer.New(v.Kind(), v.Rows(), v.Cols())
		in, ov := pay(v), pay(out)
		for i := range in {
			ov[i] = f(in[i])
		}
		if v.ValidMask() != nil {
			out.EnsureMask()
			copy(out.ValidMask(), v.ValidMask())
		}
		return out, nil
	}
}

func i64s(b *buffer.Buffer) []int64   { return b.Int64s() }
func u64s(b *buffer.Buffer) []uint64  { return b.Uint64s() }
func f64s(b *buffer.Buffer) []float64 { return b.Float64s() }

func init() {
	// int64 lattice
	RegisterBinary(Add, dtype.Int64, dtype.Int64, numArith(i64s, dtype.Int64, func(a, b int64) int64 { return a + b }))
	RegisterBinary(Sub, dtype.Int64, dtype.Int64, numArith(i64s, dtype.Int64, func(a, b int64) int64 { return a - b }))
	RegisterBinary(Mul, dtype.Int64, dtype.Int64, numArith(i64s, dtype.Int64, func(a, b int64) int64 { return a * b }))

	RegisterBinary(Add, dtype.Uint64, dtype.Uint64, numArith(u64s, dtype.Uint64, func(a, b uint64) uint64 { return a + b }))
	RegisterBinary(Sub, dtype.Uint64, dtype.Uint64, numArith(u64s, dtype.Uint64, func(a, b uint64) uint64 { return a - b }))
	RegisterBinary(Mul, dtype.Uint64, dtype.Uint64, numArith(u64s, dtype.Uint64, func(a, b uint64) uint64 { return a * b }))

	RegisterBinary(Add, dtype.Float64, dtype.Float64, numArith(f64s, dtype.Float64, func(a, b float64) float64 { return a + b }))
	RegisterBinary(Sub, dtype.Float64, dtype.Float64, numArith(f64s, dtype.Float64, func(a, b float64) float64 { return a - b }))
	RegisterBinary(Mul, dtype.Float64, dtype.Float64, numArith(f64s, dtype.Float64, func(a, b float64) float64 { return a * b }))
	RegisterBinary(Div, dtype.Float64, dtype.Float64, numArith(f64s, dtype.Float64, func(a, b float64) float64 { return a / b }))

	// nullable_int64 shares the int64 payload; validity intersects via mask
	RegisterBinary(Add, dtype.NullableInt64, dtype.NullableInt64, numArith(i64s, dtype.NullableInt64, func(a, b int64) int64 { return a + b }))
	RegisterBinary(Sub, dtype.NullableInt64, dtype.NullableInt64, numArith(i64s, dtype.NullableInt64, func(a, b int64) int64 { return a - b }))
	RegisterBinary(Mul, dtype.NullableInt64, dtype.NullableInt64, numArith(i64s, dtype.NullableInt64, func(a, b int64) int64 { return a * b }))

	// decimal
	RegisterBinary(Add, dtype.Decimal, dtype.Decimal, decArith(func(a, b decimal.Decimal) (decimal.Decimal, error) { return a.Add(b), nil }))
	RegisterBinary(Sub, dtype.Decimal, dtype.Decimal, decArith(func(a, b decimal.Decimal) (decimal.Decimal, error) { return a.Sub(b), nil }))
	RegisterBinary(Mul, dtype.Decimal, dtype.Decimal, decArith(func(a, b decimal.Decimal) (decimal.Decimal, error) { return a.Mul(b), nil }))
	RegisterBinary(Div, dtype.Decimal, dtype.Decimal, decArith(func(a, b decimal.Decimal) (decimal.Decimal, error) {
		if b.IsZero() {
			return decimal.Zero, errors.New(errors.ErrorTypeKernel, "decimal division by zero")
		}
		return a.Div(b), nil
	}))

	// temporal algebra; payload is epoch/span nanoseconds either way
	RegisterBinary(Add, dtype.Timestamp, dtype.Duration, numArith(i64s, dtype.Timestamp, func(a, b int64) int64 { return a + b }))
	RegisterBinary(Add, dtype.Duration, dtype.Timestamp, numArith(i64s, dtype.Timestamp, func(a, b int64) int64 { return a + b }))
	RegisterBinary(Sub, dtype.Timestamp, dtype.Duration, numArith(i64s, dtype.Timestamp, func(a, b int64) int64 { return a - b }))
	RegisterBinary(Sub, dtype.Timestamp, dtype.Timestamp, numArith(i64s, dtype.Duration, func(a, b int64) int64 { return a - b }))
	RegisterBinary(Add, dtype.Duration, dtype.Duration, numArith(i64s, dtype.Duration, func(a, b int64) int64 { return a + b }))
	RegisterBinary(Sub, dtype.Duration, dtype.Duration, numArith(i64s, dtype.Duration, func(a, b int64) int64 { return a - b }))
	RegisterBinary(Mul, dtype.Duration, dtype.Int64, numArith(i64s, dtype.Duration, func(a, b int64) int64 { return a * b }))
	RegisterBinary(Mul, dtype.Int64, dtype.Duration, numArith(i64s, dtype.Duration, func(a, b int64) int64 { return a * b }))

	// unary
	RegisterUnary(Neg, dtype.Int64, numUnary(i64s, func(v int64) int64 { return -v }))
	RegisterUnary(Neg, dtype.Float64, numUnary(f64s, func(v float64) float64 { return -v }))
	RegisterUnary(Neg, dtype.Duration, numUnary(i64s, func(v int64) int64 { return -v }))
	RegisterUnary(Neg, dtype.NullableInt64, numUnary(i64s, func(v int64) int64 { return -v }))
	RegisterUnary(Abs, dtype.Int64, numUnary(i64s, absI64))
	RegisterUnary(Abs, dtype.Float64, numUnary(f64s, absF64))
	RegisterUnary(Abs, dtype.Duration, numUnary(i64s, absI64))
	RegisterUnary(Abs, dtype.NullableInt64, numUnary(i64s, absI64))
	RegisterUnary(Neg, dtype.Decimal, decUnary(decimal.Decimal.Neg))
	RegisterUnary(Abs, dtype.Decimal, decUnary(decimal.Decimal.Abs))
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func absF64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func decUnary(f func(decimal.Decimal) decimal.Decimal) UnaryFunc {
	return func(v *buffer.Buffer) (*buffer.Buffer, error) {
		out := buffer.New(dtype.Decimal, v.Rows(), v.Cols())
		in, ov := v.Decimals(), out.Decimals()
		for i := range in {
			ov[i] = f(in[i])
		}
		if v.ValidMask() != nil {
			out.EnsureMask()
			copy(out.ValidMask(), v.ValidMask())
		}
		return out, nil
	}
}
