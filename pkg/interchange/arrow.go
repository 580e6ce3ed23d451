package interchange

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/frame"
)

func arrowType(k dtype.Kind) (arrow.DataType, error) {
	switch k {
	case dtype.Int64, dtype.NullableInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case dtype.Uint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case dtype.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case dtype.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case dtype.String, dtype.Decimal:
		// decimals cross as strings to keep full precision
		return arrow.BinaryTypes.String, nil
	case dtype.Timestamp:
		return &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}, nil
	case dtype.Duration:
		return &arrow.DurationType{Unit: arrow.Nanosecond}, nil
	}
	return nil, errors.IncompatibleKind("arrow-mappable kind", k.String())
}

// ToArrow converts the frame to an Arrow record. The caller releases
// the record when done.
func ToArrow(f *frame.Frame) (arrow.Record, error) {
	fields := make([]arrow.Field, f.NCols())
	cols := make([]*buffer.Buffer, f.NCols())
	for c := 0; c < f.NCols(); c++ {
		s, err := f.ColAt(c)
		if err != nil {
			return nil, err
		}
		cols[c] = s.Values()
		at, err := arrowType(s.Kind())
		if err != nil {
			return nil, err
		}
		fields[c] = arrow.Field{Name: s.Name(), Type: at, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	for c, col := range cols {
		fb := b.Field(c)
		for r := 0; r < col.Rows(); r++ {
			if !col.IsValid(r) {
				fb.AppendNull()
				continue
			}
			switch col.Kind() {
			case dtype.Int64, dtype.NullableInt64:
				fb.(*array.Int64Builder).Append(col.Int64s()[r])
			case dtype.Uint64:
				fb.(*array.Uint64Builder).Append(col.Uint64s()[r])
			case dtype.Float64:
				fb.(*array.Float64Builder).Append(col.Float64s()[r])
			case dtype.Bool:
				fb.(*array.BooleanBuilder).Append(col.Bools()[r])
			case dtype.String:
				fb.(*array.StringBuilder).Append(col.Strings()[r])
			case dtype.Decimal:
				fb.(*array.StringBuilder).Append(col.Decimals()[r].String())
			case dtype.Timestamp:
				fb.(*array.TimestampBuilder).Append(arrow.Timestamp(col.Int64s()[r]))
			case dtype.Duration:
				fb.(*array.DurationBuilder).Append(arrow.Duration(col.Int64s()[r]))
			}
		}
	}
	return b.NewRecord(), nil
}

// FromArrow converts an Arrow record into a frame. Int64 arrays with
// nulls come back as nullable integers; other nullable arrays map onto
// each kind's missing representation.
func FromArrow(rec arrow.Record) (*frame.Frame, error) {
	ncols := int(rec.NumCols())
	nrows := int(rec.NumRows())
	cols := make([]frame.Column, ncols)
	for c := 0; c < ncols; c++ {
		name := rec.Schema().Field(c).Name
		buf, err := fromArrowColumn(rec.Column(c), nrows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "arrow column "+name)
		}
		cols[c] = frame.Column{Label: name, Values: buf}
	}
	return frame.New(cols)
}

func fromArrowColumn(col arrow.Array, nrows int) (*buffer.Buffer, error) {
	switch a := col.(type) {
	case *array.Int64:
		if a.NullN() == 0 {
			// copy out of arrow-owned memory
			return buffer.FromInt64s(append([]int64(nil), a.Int64Values()...)), nil
		}
		valid := make([]bool, nrows)
		vals := make([]int64, nrows)
		for i := 0; i < nrows; i++ {
			if a.IsValid(i) {
				valid[i] = true
				vals[i] = a.Value(i)
			}
		}
		return buffer.FromNullableInt64s(vals, valid), nil
	case *array.Uint64:
		return buffer.FromUint64s(append([]uint64(nil), a.Uint64Values()...)), nil
	case *array.Float64:
		out := buffer.New(dtype.Float64, nrows, 1)
		vals := out.Float64s()
		for i := 0; i < nrows; i++ {
			if a.IsValid(i) {
				vals[i] = a.Value(i)
			} else {
				vals[i] = math.NaN()
			}
		}
		return out, nil
	case *array.Boolean:
		out := buffer.New(dtype.Bool, nrows, 1)
		for i := 0; i < nrows; i++ {
			if a.IsValid(i) {
				out.Bools()[i] = a.Value(i)
			} else {
				out.EnsureMask()
				out.ValidMask()[i] = false
			}
		}
		return out, nil
	case *array.String:
		out := buffer.New(dtype.String, nrows, 1)
		for i := 0; i < nrows; i++ {
			if a.IsValid(i) {
				out.Strings()[i] = a.Value(i)
			} else {
				out.EnsureMask()
				out.ValidMask()[i] = false
			}
		}
		return out, nil
	case *array.Timestamp:
		out := buffer.New(dtype.Timestamp, nrows, 1)
		for i := 0; i < nrows; i++ {
			if a.IsValid(i) {
				out.Int64s()[i] = int64(a.Value(i))
			} else {
				out.EnsureMask()
				out.ValidMask()[i] = false
			}
		}
		return out, nil
	case *array.Duration:
		out := buffer.New(dtype.Duration, nrows, 1)
		for i := 0; i < nrows; i++ {
			if a.IsValid(i) {
				out.Int64s()[i] = int64(a.Value(i))
			} else {
				out.EnsureMask()
				out.ValidMask()[i] = false
			}
		}
		return out, nil
	}
	return nil, errors.IncompatibleKind("supported arrow array", col.DataType().String())
}
