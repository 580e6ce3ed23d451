// Package buffer implements the contiguous, homogeneously-typed payloads
// that back blocks. A Buffer holds one or more columns of a single kind in
// column-major order. Aliasing between buffers is tracked with an explicit
// shared-storage flag rather than implicit reference semantics: every view
// marks the flag on both sides, and any destructive write must go through
// EnsureOwned first.
package buffer

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/metrics"
)

// sharedFlag is the may-share-storage marker. It is a pointer shared by
// every buffer aliasing the same payload, so marking one view marks all.
type sharedFlag struct {
	v int32
}

func (f *sharedFlag) mark()       { atomic.StoreInt32(&f.v, 1) }
func (f *sharedFlag) isSet() bool { return atomic.LoadInt32(&f.v) == 1 }

// Buffer is a contiguous column-major payload of rows*cols elements of a
// single kind. Exactly one typed slice is populated, selected by the kind's
// storage class. Kinds with a NullMask rule may carry a validity mask of
// the same length; a nil mask means every element is valid.
type Buffer struct {
	kind dtype.Kind
	rows int
	cols int

	i64 []int64 // int64, timestamp (epoch ns), duration (ns), nullable_int64
	u64 []uint64
	f64 []float64
	bls []bool
	str []string
	dec []decimal.Decimal

	valid []bool

	shared *sharedFlag
}

// New returns a zeroed buffer of the given shape.
func New(kind dtype.Kind, rows, cols int) *Buffer {
	b := &Buffer{kind: kind, rows: rows, cols: cols, shared: &sharedFlag{}}
	n := rows * cols
	switch storageClass(kind) {
	case classInt64:
		b.i64 = make([]int64, n)
	case classUint64:
		b.u64 = make([]uint64, n)
	case classFloat64:
		b.f64 = make([]float64, n)
	case classBool:
		b.bls = make([]bool, n)
	case classString:
		b.str = make([]string, n)
	case classDecimal:
		b.dec = make([]decimal.Decimal, n)
	}
	return b
}

type class int

const (
	classInt64 class = iota
	classUint64
	classFloat64
	classBool
	classString
	classDecimal
)

func storageClass(k dtype.Kind) class {
	switch k {
	case dtype.Uint64:
		return classUint64
	case dtype.Float64:
		return classFloat64
	case dtype.Bool:
		return classBool
	case dtype.String:
		return classString
	case dtype.Decimal:
		return classDecimal
	default:
		// Int64, Timestamp, Duration, NullableInt64
		return classInt64
	}
}

// FromInt64s wraps values as a single int64 column. The slice is owned by
// the buffer afterwards.
func FromInt64s(values []int64) *Buffer {
	return &Buffer{kind: dtype.Int64, rows: len(values), cols: 1, i64: values, shared: &sharedFlag{}}
}

// FromUint64s wraps values as a single uint64 column.
func FromUint64s(values []uint64) *Buffer {
	return &Buffer{kind: dtype.Uint64, rows: len(values), cols: 1, u64: values, shared: &sharedFlag{}}
}

// FromFloat64s wraps values as a single float64 column.
func FromFloat64s(values []float64) *Buffer {
	return &Buffer{kind: dtype.Float64, rows: len(values), cols: 1, f64: values, shared: &sharedFlag{}}
}

// FromBools wraps values as a single bool column.
func FromBools(values []bool) *Buffer {
	return &Buffer{kind: dtype.Bool, rows: len(values), cols: 1, bls: values, shared: &sharedFlag{}}
}

// FromStrings wraps values as a single string column.
func FromStrings(values []string) *Buffer {
	return &Buffer{kind: dtype.String, rows: len(values), cols: 1, str: values, shared: &sharedFlag{}}
}

// FromDecimals wraps values as a single decimal column.
func FromDecimals(values []decimal.Decimal) *Buffer {
	return &Buffer{kind: dtype.Decimal, rows: len(values), cols: 1, dec: values, shared: &sharedFlag{}}
}

// FromTimes converts instants to a single timestamp column (epoch ns).
func FromTimes(values []time.Time) *Buffer {
	ns := make([]int64, len(values))
	for i, t := range values {
		ns[i] = t.UnixNano()
	}
	return &Buffer{kind: dtype.Timestamp, rows: len(values), cols: 1, i64: ns, shared: &sharedFlag{}}
}

// FromDurations wraps spans as a single duration column.
func FromDurations(values []time.Duration) *Buffer {
	ns := make([]int64, len(values))
	for i, d := range values {
		ns[i] = int64(d)
	}
	return &Buffer{kind: dtype.Duration, rows: len(values), cols: 1, i64: ns, shared: &sharedFlag{}}
}

// FromNullableInt64s wraps values plus a validity mask as a single
// nullable_int64 column. A nil mask means all values are valid.
func FromNullableInt64s(values []int64, valid []bool) *Buffer {
	return &Buffer{kind: dtype.NullableInt64, rows: len(values), cols: 1, i64: values, valid: valid, shared: &sharedFlag{}}
}

// Scalar builds a 1x1 buffer from a Go value, inferring its kind.
func Scalar(v interface{}) (*Buffer, error) {
	switch x := v.(type) {
	case int:
		return FromInt64s([]int64{int64(x)}), nil
	case int64:
		return FromInt64s([]int64{x}), nil
	case uint64:
		return FromUint64s([]uint64{x}), nil
	case float64:
		return FromFloat64s([]float64{x}), nil
	case bool:
		return FromBools([]bool{x}), nil
	case string:
		return FromStrings([]string{x}), nil
	case time.Time:
		return FromTimes([]time.Time{x}), nil
	case time.Duration:
		return FromDurations([]time.Duration{x}), nil
	case decimal.Decimal:
		return FromDecimals([]decimal.Decimal{x}), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported scalar type %T", v)
	}
}

// Kind returns the logical element type.
func (b *Buffer) Kind() dtype.Kind { return b.kind }

// Rows returns the number of rows.
func (b *Buffer) Rows() int { return b.rows }

// Cols returns the number of columns.
func (b *Buffer) Cols() int { return b.cols }

// Len returns the number of elements (rows * cols).
func (b *Buffer) Len() int { return b.rows * b.cols }

// Int64s exposes the raw column-major int64 payload. Valid for the int64,
// timestamp, duration and nullable_int64 kinds.
func (b *Buffer) Int64s() []int64 { return b.i64 }

// Uint64s exposes the raw uint64 payload.
func (b *Buffer) Uint64s() []uint64 { return b.u64 }

// Float64s exposes the raw float64 payload.
func (b *Buffer) Float64s() []float64 { return b.f64 }

// Bools exposes the raw bool payload.
func (b *Buffer) Bools() []bool { return b.bls }

// Strings exposes the raw string payload.
func (b *Buffer) Strings() []string { return b.str }

// Decimals exposes the raw decimal payload.
func (b *Buffer) Decimals() []decimal.Decimal { return b.dec }

// ValidMask exposes the validity mask; nil means all elements are valid.
func (b *Buffer) ValidMask() []bool { return b.valid }

// IsValid reports whether element i (column-major) holds a value.
func (b *Buffer) IsValid(i int) bool {
	if b.valid != nil {
		return b.valid[i]
	}
	if b.kind == dtype.Float64 {
		return !math.IsNaN(b.f64[i])
	}
	return true
}

// IsShared reports whether the payload may be aliased by another buffer.
func (b *Buffer) IsShared() bool { return b.shared.isSet() }

// MarkShared sets the may-share-storage flag for this buffer and every
// buffer aliasing the same payload.
func (b *Buffer) MarkShared() { b.shared.mark() }

// View returns a buffer aliasing the whole payload. Both sides are marked
// as possibly sharing storage.
func (b *Buffer) View() *Buffer {
	b.shared.mark()
	v := *b
	return &v
}

// Column returns a single-column view of column c. The view shares the
// payload; both sides are marked shared.
func (b *Buffer) Column(c int) *Buffer {
	b.shared.mark()
	lo, hi := c*b.rows, (c+1)*b.rows
	v := &Buffer{kind: b.kind, rows: b.rows, cols: 1, shared: b.shared}
	switch storageClass(b.kind) {
	case classInt64:
		v.i64 = b.i64[lo:hi]
	case classUint64:
		v.u64 = b.u64[lo:hi]
	case classFloat64:
		v.f64 = b.f64[lo:hi]
	case classBool:
		v.bls = b.bls[lo:hi]
	case classString:
		v.str = b.str[lo:hi]
	case classDecimal:
		v.dec = b.dec[lo:hi]
	}
	if b.valid != nil {
		v.valid = b.valid[lo:hi]
	}
	return v
}

// Copy returns a deep copy with a fresh, unshared flag.
func (b *Buffer) Copy() *Buffer {
	c := &Buffer{kind: b.kind, rows: b.rows, cols: b.cols, shared: &sharedFlag{}}
	switch storageClass(b.kind) {
	case classInt64:
		c.i64 = append([]int64(nil), b.i64...)
	case classUint64:
		c.u64 = append([]uint64(nil), b.u64...)
	case classFloat64:
		c.f64 = append([]float64(nil), b.f64...)
	case classBool:
		c.bls = append([]bool(nil), b.bls...)
	case classString:
		c.str = append([]string(nil), b.str...)
	case classDecimal:
		c.dec = append([]decimal.Decimal(nil), b.dec...)
	}
	if b.valid != nil {
		c.valid = append([]bool(nil), b.valid...)
	}
	return c
}

// EnsureOwned returns a buffer guaranteed not to alias another table's
// storage: the receiver itself when unshared, otherwise a deep copy. This
// is the check-then-copy discipline every in-place mutation goes through.
func (b *Buffer) EnsureOwned() *Buffer {
	if b.IsShared() {
		metrics.CopyOnWrite.Inc()
		return b.Copy()
	}
	return b
}

// At returns the boxed value at (row, col), or nil for a missing element.
func (b *Buffer) At(row, col int) interface{} {
	i := col*b.rows + row
	if b.valid != nil && !b.valid[i] {
		return nil
	}
	switch b.kind {
	case dtype.Int64, dtype.NullableInt64:
		return b.i64[i]
	case dtype.Uint64:
		return b.u64[i]
	case dtype.Float64:
		return b.f64[i]
	case dtype.Bool:
		return b.bls[i]
	case dtype.String:
		return b.str[i]
	case dtype.Timestamp:
		return time.Unix(0, b.i64[i]).UTC()
	case dtype.Duration:
		return time.Duration(b.i64[i])
	case dtype.Decimal:
		return b.dec[i]
	default:
		return nil
	}
}

// Set stores a Go value at (row, col), coercing compatible scalar types.
// The caller is responsible for ownership; Set does not check the shared
// flag.
func (b *Buffer) Set(row, col int, v interface{}) error {
	i := col*b.rows + row
	if v == nil {
		return b.setMissing(i)
	}
	switch b.kind {
	case dtype.Int64, dtype.NullableInt64:
		switch x := v.(type) {
		case int:
			b.i64[i] = int64(x)
		case int64:
			b.i64[i] = x
		default:
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in %s buffer", v, b.kind)
		}
	case dtype.Uint64:
		switch x := v.(type) {
		case uint64:
			b.u64[i] = x
		case int:
			if x < 0 {
				return errors.Newf(errors.ErrorTypeData, "cannot store negative value in uint64 buffer")
			}
			b.u64[i] = uint64(x)
		default:
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in %s buffer", v, b.kind)
		}
	case dtype.Float64:
		switch x := v.(type) {
		case float64:
			b.f64[i] = x
		case int:
			b.f64[i] = float64(x)
		case int64:
			b.f64[i] = float64(x)
		default:
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in %s buffer", v, b.kind)
		}
	case dtype.Bool:
		x, ok := v.(bool)
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in %s buffer", v, b.kind)
		}
		b.bls[i] = x
	case dtype.String:
		x, ok := v.(string)
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in %s buffer", v, b.kind)
		}
		b.str[i] = x
	case dtype.Timestamp:
		switch x := v.(type) {
		case time.Time:
			b.i64[i] = x.UnixNano()
		case int64:
			b.i64[i] = x
		default:
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in %s buffer", v, b.kind)
		}
	case dtype.Duration:
		switch x := v.(type) {
		case time.Duration:
			b.i64[i] = int64(x)
		case int64:
			b.i64[i] = x
		default:
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in %s buffer", v, b.kind)
		}
	case dtype.Decimal:
		x, ok := v.(decimal.Decimal)
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in %s buffer", v, b.kind)
		}
		b.dec[i] = x
	default:
		return errors.Newf(errors.ErrorTypeInternal, "buffer has invalid kind")
	}
	if b.valid != nil {
		b.valid[i] = true
	}
	return nil
}

// setMissing records element i as missing per the kind's null rule.
func (b *Buffer) setMissing(i int) error {
	switch b.kind.NullRule() {
	case dtype.NullNaN:
		b.f64[i] = math.NaN()
	case dtype.NullMask:
		b.ensureMask()
		b.valid[i] = false
	default:
		return errors.Newf(errors.ErrorTypeData,
			"kind %s cannot represent a missing value", b.kind)
	}
	return nil
}

// EnsureMask materializes an all-valid mask if none exists yet. Kernels
// producing masked kinds use this before writing per-element validity.
func (b *Buffer) EnsureMask() { b.ensureMask() }

func (b *Buffer) ensureMask() {
	if b.valid == nil {
		b.valid = make([]bool, b.Len())
		for i := range b.valid {
			b.valid[i] = true
		}
	}
}

// MemoryUsage returns the approximate payload size in bytes.
func (b *Buffer) MemoryUsage() int64 {
	var total int64
	switch storageClass(b.kind) {
	case classInt64, classUint64, classFloat64:
		total = int64(b.Len() * 8)
	case classBool:
		total = int64(b.Len())
	case classString:
		for _, s := range b.str {
			total += int64(len(s)) + 16
		}
	case classDecimal:
		total = int64(b.Len() * 24)
	}
	if b.valid != nil {
		total += int64(len(b.valid))
	}
	return total
}
