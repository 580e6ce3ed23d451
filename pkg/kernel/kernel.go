// Package kernel holds the per-kind compute kernels and the dispatch
// tables that route block operations to them. The storage core never
// branches on dtype at call sites; it asks this package to resolve an
// (operation, kind) pair. New kinds register table entries here.
package kernel

import (
	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

// Op identifies a binary elementwise operation.
type Op string

const (
	Add Op = "add"
	Sub Op = "sub"
	Mul Op = "mul"
	Div Op = "div"
	Eq  Op = "eq"
	Ne  Op = "ne"
	Lt  Op = "lt"
	Le  Op = "le"
	Gt  Op = "gt"
	Ge  Op = "ge"
)

// PromoteOp maps the operation onto the promotion policy's op classes.
func (op Op) PromoteOp() dtype.Op {
	switch op {
	case Div:
		return dtype.OpDiv
	case Eq, Ne, Lt, Le, Gt, Ge:
		return dtype.OpCompare
	default:
		return dtype.OpArith
	}
}

// Comparison reports whether the op yields a boolean result.
func (op Op) Comparison() bool {
	return op.PromoteOp() == dtype.OpCompare
}

// BinaryFunc computes out = a <op> operand. Operand shapes: 1x1 (scalar
// broadcast), rows x 1 (column broadcast across a's columns), or a's exact
// shape. Both arguments arrive pre-cast to the kinds the kernel was
// registered under.
type BinaryFunc func(a, operand *buffer.Buffer) (*buffer.Buffer, error)

// UnaryFunc computes an elementwise transform of a single buffer.
type UnaryFunc func(v *buffer.Buffer) (*buffer.Buffer, error)

type kindPair struct {
	a, b dtype.Kind
}

var binaryKernels = map[Op]map[kindPair]BinaryFunc{}

// UnaryOp identifies a unary elementwise operation.
type UnaryOp string

const (
	Neg UnaryOp = "neg"
	Abs UnaryOp = "abs"
)

var unaryKernels = map[UnaryOp]map[dtype.Kind]UnaryFunc{}

// RegisterBinary installs a kernel for op over an operand-kind pair.
func RegisterBinary(op Op, a, b dtype.Kind, fn BinaryFunc) {
	m, ok := binaryKernels[op]
	if !ok {
		m = map[kindPair]BinaryFunc{}
		binaryKernels[op] = m
	}
	m[kindPair{a, b}] = fn
}

// RegisterUnary installs a kernel for op over a kind.
func RegisterUnary(op UnaryOp, k dtype.Kind, fn UnaryFunc) {
	m, ok := unaryKernels[op]
	if !ok {
		m = map[dtype.Kind]UnaryFunc{}
		unaryKernels[op] = m
	}
	m[k] = fn
}

// Dispatch applies a binary operation between a block's values and an
// operand, resolving promotion, casting operands to their common kind and
// selecting the registered kernel. Promotion or lookup failures surface as
// kernel errors so callers can engage the per-column fallback policy.
func Dispatch(op Op, a, operand *buffer.Buffer) (*buffer.Buffer, error) {
	if err := checkOperandShape(a, operand); err != nil {
		return nil, err
	}

	if _, err := dtype.Promote(a.Kind(), op.PromoteOp(), operand.Kind()); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeKernel,
			"no kernel for operand kinds")
	}

	la, lb := a, operand
	if !a.Kind().IsTemporal() && !operand.Kind().IsTemporal() {
		// Numeric path: cast both sides to the kind the kernel runs in.
		var target dtype.Kind
		var err error
		if op.Comparison() {
			target, err = dtype.Common(a.Kind(), operand.Kind())
		} else {
			target, err = dtype.Promote(a.Kind(), op.PromoteOp(), operand.Kind())
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeKernel,
				"no kernel for operand kinds")
		}
		if la, err = a.Cast(target); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeKernel, "operand cast failed")
		}
		if lb, err = operand.Cast(target); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeKernel, "operand cast failed")
		}
	}

	fn, ok := binaryKernels[op][kindPair{la.Kind(), lb.Kind()}]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeKernel,
			"no %s kernel for %s/%s", op, la.Kind(), lb.Kind())
	}
	return fn(la, lb)
}

// DispatchUnary applies a unary operation through the kernel table.
func DispatchUnary(op UnaryOp, v *buffer.Buffer) (*buffer.Buffer, error) {
	fn, ok := unaryKernels[op][v.Kind()]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeKernel,
			"no %s kernel for %s", op, v.Kind())
	}
	return fn(v)
}

func checkOperandShape(a, operand *buffer.Buffer) error {
	if operand.Len() == 1 {
		return nil
	}
	if operand.Rows() != a.Rows() {
		return errors.Newf(errors.ErrorTypeStructural,
			"operand has %d rows, block has %d", operand.Rows(), a.Rows())
	}
	if operand.Cols() != 1 && operand.Cols() != a.Cols() {
		return errors.Newf(errors.ErrorTypeStructural,
			"operand has %d columns, block has %d", operand.Cols(), a.Cols())
	}
	return nil
}

// broadcastIndex maps element i of the left operand onto the right one.
func broadcastIndex(i, rows int, b *buffer.Buffer) int {
	if b.Len() == 1 {
		return 0
	}
	if b.Cols() == 1 {
		return i % rows
	}
	return i
}
