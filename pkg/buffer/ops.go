package buffer

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

// SetColumn copies the single-column buffer src into column c. Kinds and
// row counts must match exactly; promotion is decided above this layer.
// The caller must hold exclusive ownership (EnsureOwned).
func (b *Buffer) SetColumn(c int, src *Buffer) error {
	if src.kind != b.kind {
		return errors.IncompatibleKind(b.kind.String(), src.kind.String())
	}
	if src.cols != 1 || src.rows != b.rows {
		return errors.Newf(errors.ErrorTypeStructural,
			"cannot set column: shape %dx%d into %d rows", src.rows, src.cols, b.rows)
	}
	lo := c * b.rows
	switch storageClass(b.kind) {
	case classInt64:
		copy(b.i64[lo:], src.i64)
	case classUint64:
		copy(b.u64[lo:], src.u64)
	case classFloat64:
		copy(b.f64[lo:], src.f64)
	case classBool:
		copy(b.bls[lo:], src.bls)
	case classString:
		copy(b.str[lo:], src.str)
	case classDecimal:
		copy(b.dec[lo:], src.dec)
	}
	if src.valid != nil {
		b.ensureMask()
		copy(b.valid[lo:], src.valid)
	} else if b.valid != nil {
		for i := lo; i < lo+b.rows; i++ {
			b.valid[i] = true
		}
	}
	return nil
}

// Gather builds a new buffer whose rows are taken from the receiver per
// the indexer: out[r] = in[indexer[r]] for every column. An indexer entry
// of -1 introduces a missing value, which is only legal when allowMissing
// is set and the kind can represent one; kinds under the promote rule must
// be cast before gathering.
func (b *Buffer) Gather(indexer []int, allowMissing bool) (*Buffer, error) {
	out := New(b.kind, len(indexer), b.cols)
	if b.valid != nil {
		out.ensureMask()
	}
	for c := 0; c < b.cols; c++ {
		srcBase := c * b.rows
		dstBase := c * len(indexer)
		for r, idx := range indexer {
			if idx == -1 {
				if !allowMissing {
					return nil, errors.New(errors.ErrorTypeStructural,
						"indexer contains missing positions")
				}
				if err := out.setMissing(dstBase + r); err != nil {
					return nil, err
				}
				continue
			}
			if idx < 0 || idx >= b.rows {
				return nil, errors.OutOfRange(idx, b.rows)
			}
			si, di := srcBase+idx, dstBase+r
			switch storageClass(b.kind) {
			case classInt64:
				out.i64[di] = b.i64[si]
			case classUint64:
				out.u64[di] = b.u64[si]
			case classFloat64:
				out.f64[di] = b.f64[si]
			case classBool:
				out.bls[di] = b.bls[si]
			case classString:
				out.str[di] = b.str[si]
			case classDecimal:
				out.dec[di] = b.dec[si]
			}
			if b.valid != nil {
				out.valid[di] = b.valid[si]
			} else if out.valid != nil {
				out.valid[di] = true
			}
		}
	}
	return out, nil
}

// Cast converts the buffer to another kind. Identical kinds return the
// receiver unchanged. Only widening numeric conversions are supported;
// anything else is a structural error, never a silent coercion.
func (b *Buffer) Cast(to dtype.Kind) (*Buffer, error) {
	if to == b.kind {
		return b, nil
	}
	out := New(to, b.rows, b.cols)
	n := b.Len()

	switch {
	case b.kind == dtype.Int64 && to == dtype.Float64:
		for i := 0; i < n; i++ {
			out.f64[i] = float64(b.i64[i])
		}
	case b.kind == dtype.Int64 && to == dtype.NullableInt64:
		copy(out.i64, b.i64)
	case b.kind == dtype.Int64 && to == dtype.Decimal:
		for i := 0; i < n; i++ {
			out.dec[i] = decimal.NewFromInt(b.i64[i])
		}
	case b.kind == dtype.Uint64 && to == dtype.Float64:
		for i := 0; i < n; i++ {
			out.f64[i] = float64(b.u64[i])
		}
	case b.kind == dtype.Uint64 && to == dtype.Decimal:
		for i := 0; i < n; i++ {
			out.dec[i] = decimal.NewFromUint64(b.u64[i])
		}
	case b.kind == dtype.NullableInt64 && to == dtype.Float64:
		for i := 0; i < n; i++ {
			if b.valid != nil && !b.valid[i] {
				out.f64[i] = math.NaN()
			} else {
				out.f64[i] = float64(b.i64[i])
			}
		}
	case b.kind == dtype.NullableInt64 && to == dtype.Decimal:
		for i := 0; i < n; i++ {
			out.dec[i] = decimal.NewFromInt(b.i64[i])
		}
		if b.valid != nil {
			out.valid = append([]bool(nil), b.valid...)
		}
	case b.kind == dtype.Float64 && to == dtype.Decimal:
		out.ensureMask()
		for i := 0; i < n; i++ {
			if math.IsNaN(b.f64[i]) {
				out.valid[i] = false
			} else {
				out.dec[i] = decimal.NewFromFloat(b.f64[i])
			}
		}
	case b.kind == dtype.Decimal && to == dtype.Float64:
		for i := 0; i < n; i++ {
			if b.valid != nil && !b.valid[i] {
				out.f64[i] = math.NaN()
			} else {
				out.f64[i] = b.dec[i].InexactFloat64()
			}
		}
	default:
		return nil, errors.IncompatibleKind(to.String(), b.kind.String())
	}
	return out, nil
}

// ConcatCols horizontally concatenates same-kind, same-row-count buffers
// into one freshly owned payload. Kind mismatch is fatal.
func ConcatCols(parts ...*Buffer) (*Buffer, error) {
	if len(parts) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "nothing to concatenate")
	}
	kind, rows := parts[0].kind, parts[0].rows
	total := 0
	hasMask := false
	for _, p := range parts {
		if p.kind != kind {
			return nil, errors.IncompatibleKind(kind.String(), p.kind.String())
		}
		if p.rows != rows {
			return nil, errors.Newf(errors.ErrorTypeStructural,
				"row count mismatch: %d vs %d", rows, p.rows)
		}
		total += p.cols
		if p.valid != nil {
			hasMask = true
		}
	}

	out := New(kind, rows, total)
	if hasMask {
		out.ensureMask()
	}
	off := 0
	for _, p := range parts {
		n := p.Len()
		switch storageClass(kind) {
		case classInt64:
			copy(out.i64[off:], p.i64)
		case classUint64:
			copy(out.u64[off:], p.u64)
		case classFloat64:
			copy(out.f64[off:], p.f64)
		case classBool:
			copy(out.bls[off:], p.bls)
		case classString:
			copy(out.str[off:], p.str)
		case classDecimal:
			copy(out.dec[off:], p.dec)
		}
		if hasMask {
			if p.valid != nil {
				copy(out.valid[off:], p.valid)
			} // New left the freshly ensured mask all-true otherwise
		}
		off += n
	}
	return out, nil
}

// EqualValues reports element-wise equality. Two missing elements compare
// equal; NaN compares equal to NaN so round-trip tests can use it.
func (b *Buffer) EqualValues(o *Buffer) bool {
	if b.kind != o.kind || b.rows != o.rows || b.cols != o.cols {
		return false
	}
	n := b.Len()
	for i := 0; i < n; i++ {
		bv, ov := b.IsValid(i), o.IsValid(i)
		if bv != ov {
			return false
		}
		if !bv {
			continue
		}
		switch storageClass(b.kind) {
		case classInt64:
			if b.i64[i] != o.i64[i] {
				return false
			}
		case classUint64:
			if b.u64[i] != o.u64[i] {
				return false
			}
		case classFloat64:
			if b.f64[i] != o.f64[i] && !(math.IsNaN(b.f64[i]) && math.IsNaN(o.f64[i])) {
				return false
			}
		case classBool:
			if b.bls[i] != o.bls[i] {
				return false
			}
		case classString:
			if b.str[i] != o.str[i] {
				return false
			}
		case classDecimal:
			if !b.dec[i].Equal(o.dec[i]) {
				return false
			}
		}
	}
	return true
}
