// Package interchange moves frames across process boundaries: CSV and
// JSON for text interchange, Arrow records for columnar interop, and a
// compressed binary snapshot format for persistence.
package interchange

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/frame"
)

// CSVOptions controls CSV reading.
type CSVOptions struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// NoHeader treats the first record as data and synthesizes c0..cN
	// column labels.
	NoHeader bool
	// NullTokens are treated as missing values, in addition to the
	// empty field.
	NullTokens []string
}

func (o CSVOptions) isNull(field string) bool {
	if field == "" {
		return true
	}
	for _, t := range o.NullTokens {
		if field == t {
			return true
		}
	}
	return false
}

// ReadCSV parses CSV into a frame, inferring a kind per column. The
// inference ladder is int64, float64, bool, RFC3339 timestamp, string;
// a numeric column containing missing fields lands on float64 so the
// holes become NaN.
func ReadCSV(r io.Reader, opts CSVOptions) (*frame.Frame, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "csv parse")
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "empty csv input")
	}

	var labels []string
	if opts.NoHeader {
		labels = make([]string, len(records[0]))
		for i := range labels {
			labels[i] = "c" + strconv.Itoa(i)
		}
	} else {
		labels = records[0]
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "csv input has no data rows")
	}

	cols := make([]frame.Column, len(labels))
	for c := range labels {
		fields := make([]string, len(records))
		for r, rec := range records {
			if c >= len(rec) {
				return nil, errors.Newf(errors.ErrorTypeData,
					"row %d has %d fields, want %d", r, len(rec), len(labels))
			}
			fields[r] = rec[c]
		}
		buf, err := inferColumn(fields, opts)
		if err != nil {
			return nil, err
		}
		cols[c] = frame.Column{Label: labels[c], Values: buf}
	}
	return frame.New(cols)
}

func inferColumn(fields []string, opts CSVOptions) (*buffer.Buffer, error) {
	kind := dtype.Invalid
	hasNull := false
	for _, f := range fields {
		if opts.isNull(f) {
			hasNull = true
			continue
		}
		kind = combine(kind, fieldKind(f))
	}
	if kind == dtype.Invalid {
		// all fields missing
		kind = dtype.Float64
	}
	if hasNull && kind.NullRule() == dtype.NullPromote {
		kind = dtype.PromoteForMissing(kind)
	}

	out := buffer.New(kind, len(fields), 1)
	for i, f := range fields {
		if opts.isNull(f) {
			if kind == dtype.Float64 {
				out.Float64s()[i] = math.NaN()
				continue
			}
			out.EnsureMask()
			out.ValidMask()[i] = false
			continue
		}
		switch kind {
		case dtype.Int64:
			v, _ := strconv.ParseInt(f, 10, 64)
			out.Int64s()[i] = v
		case dtype.Float64:
			v, _ := strconv.ParseFloat(f, 64)
			out.Float64s()[i] = v
		case dtype.Bool:
			v, _ := strconv.ParseBool(f)
			out.Bools()[i] = v
		case dtype.Timestamp:
			t, err := time.Parse(time.RFC3339, f)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "timestamp parse")
			}
			out.Int64s()[i] = t.UnixNano()
		default:
			out.Strings()[i] = f
		}
	}
	return out, nil
}

// fieldKind returns the most specific kind that parses the field.
func fieldKind(field string) dtype.Kind {
	if field == "true" || field == "false" {
		return dtype.Bool
	}
	if _, err := strconv.ParseInt(field, 10, 64); err == nil {
		return dtype.Int64
	}
	if _, err := strconv.ParseFloat(field, 64); err == nil {
		return dtype.Float64
	}
	if _, err := time.Parse(time.RFC3339, field); err == nil {
		return dtype.Timestamp
	}
	return dtype.String
}

// combine folds field kinds across a column. Integers widen to floats;
// anything else mixed falls back to string.
func combine(a, b dtype.Kind) dtype.Kind {
	if a == dtype.Invalid || a == b {
		return b
	}
	numeric := func(k dtype.Kind) bool { return k == dtype.Int64 || k == dtype.Float64 }
	if numeric(a) && numeric(b) {
		return dtype.Float64
	}
	return dtype.String
}

// WriteCSV writes the frame as CSV with a header row. Missing values
// serialize as empty fields.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "csv write")
	}
	nrows, ncols := f.NRows(), f.NCols()
	bufs := make([]*buffer.Buffer, ncols)
	for c := 0; c < ncols; c++ {
		s, err := f.ColAt(c)
		if err != nil {
			return err
		}
		bufs[c] = s.Values()
	}
	record := make([]string, ncols)
	for r := 0; r < nrows; r++ {
		for c := 0; c < ncols; c++ {
			record[c] = formatCell(bufs[c].At(r, 0))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "csv write")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "csv write")
	}
	return nil
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case decimal.Decimal:
		return x.String()
	}
	return fmt.Sprint(v)
}
