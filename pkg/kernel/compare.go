package kernel

import (
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
)

type ordered interface {
	~int64 | ~uint64 | ~float64 | ~string
}

// cmpKernel builds a comparison kernel yielding a Bool buffer. Operand
// masks intersect into the result mask; NaN operands compare false
// through ordinary float semantics.
func cmpKernel[T ordered](pay func(*buffer.Buffer) []T, f func(T, T) bool) BinaryFunc {
	return func(a, b *buffer.Buffer) (*buffer.Buffer, error) {
		rows := a.Rows()
		out := buffer.New(dtype.Bool, rows, a.Cols())
		av, bv, ov := pay(a), pay(b), out.Bools()
		for i := range av {
			ov[i] = f(av[i], bv[broadcastIndex(i, rows, b)])
		}
		propagateValidity(a, b, out, rows)
		return out, nil
	}
}

func makeCmp[T ordered](op Op) func(T, T) bool {
	switch op {
	case Eq:
		return func(a, b T) bool { return a == b }
	case Ne:
		return func(a, b T) bool { return a != b }
	case Lt:
		return func(a, b T) bool { return a < b }
	case Le:
		return func(a, b T) bool { return a <= b }
	case Gt:
		return func(a, b T) bool { return a > b }
	default:
		return func(a, b T) bool { return a >= b }
	}
}

// makeDecCmp adapts an op to decimal.Cmp's three-way result.
func makeDecCmp(op Op) func(decimal.Decimal, decimal.Decimal) bool {
	switch op {
	case Eq:
		return func(a, b decimal.Decimal) bool { return a.Cmp(b) == 0 }
	case Ne:
		return func(a, b decimal.Decimal) bool { return a.Cmp(b) != 0 }
	case Lt:
		return func(a, b decimal.Decimal) bool { return a.Cmp(b) < 0 }
	case Le:
		return func(a, b decimal.Decimal) bool { return a.Cmp(b) <= 0 }
	case Gt:
		return func(a, b decimal.Decimal) bool { return a.Cmp(b) > 0 }
	default:
		return func(a, b decimal.Decimal) bool { return a.Cmp(b) >= 0 }
	}
}

func decCmpKernel(f func(decimal.Decimal, decimal.Decimal) bool) BinaryFunc {
	return func(a, b *buffer.Buffer) (*buffer.Buffer, error) {
		rows := a.Rows()
		out := buffer.New(dtype.Bool, rows, a.Cols())
		av, bv, ov := a.Decimals(), b.Decimals(), out.Bools()
		for i := range av {
			ov[i] = f(av[i], bv[broadcastIndex(i, rows, b)])
		}
		propagateValidity(a, b, out, rows)
		return out, nil
	}
}

func boolCmpKernel(eq bool) BinaryFunc {
	return func(a, b *buffer.Buffer) (*buffer.Buffer, error) {
		rows := a.Rows()
		out := buffer.New(dtype.Bool, rows, a.Cols())
		av, bv, ov := a.Bools(), b.Bools(), out.Bools()
		for i := range av {
			ov[i] = (av[i] == bv[broadcastIndex(i, rows, b)]) == eq
		}
		propagateValidity(a, b, out, rows)
		return out, nil
	}
}

func strs(b *buffer.Buffer) []string { return b.Strings() }

func init() {
	for _, op := range []Op{Eq, Ne, Lt, Le, Gt, Ge} {
		RegisterBinary(op, dtype.Int64, dtype.Int64, cmpKernel(i64s, makeCmp[int64](op)))
		RegisterBinary(op, dtype.Uint64, dtype.Uint64, cmpKernel(u64s, makeCmp[uint64](op)))
		RegisterBinary(op, dtype.Float64, dtype.Float64, cmpKernel(f64s, makeCmp[float64](op)))
		RegisterBinary(op, dtype.String, dtype.String, cmpKernel(strs, makeCmp[string](op)))
		RegisterBinary(op, dtype.Timestamp, dtype.Timestamp, cmpKernel(i64s, makeCmp[int64](op)))
		RegisterBinary(op, dtype.Duration, dtype.Duration, cmpKernel(i64s, makeCmp[int64](op)))
		RegisterBinary(op, dtype.NullableInt64, dtype.NullableInt64, cmpKernel(i64s, makeCmp[int64](op)))
		RegisterBinary(op, dtype.Decimal, dtype.Decimal, decCmpKernel(makeDecCmp(op)))
	}
	RegisterBinary(Eq, dtype.Bool, dtype.Bool, boolCmpKernel(true))
	RegisterBinary(Ne, dtype.Bool, dtype.Bool, boolCmpKernel(false))
}
