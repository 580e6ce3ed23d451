package interchange

import (
	"io"
	"math"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/frame"
)

// WriteJSON streams the frame as an array of row objects keyed by
// column label. Missing values serialize as null; decimals keep full
// precision through their own marshaler.
func WriteJSON(w io.Writer, f *frame.Frame) error {
	enc := json.NewEncoder(w)
	rows := make([]map[string]interface{}, f.NRows())
	for i := range rows {
		row, err := f.Row(i)
		if err != nil {
			return err
		}
		for k, v := range row {
			// JSON has no NaN; missing floats serialize as null
			if x, ok := v.(float64); ok && math.IsNaN(x) {
				row[k] = nil
			}
		}
		rows[i] = row
	}
	if err := enc.Encode(rows); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "json encode")
	}
	return nil
}

// WriteLayoutJSON writes the frame's physical block layout, for
// diagnostics and the CLI inspect command.
func WriteLayoutJSON(w io.Writer, f *frame.Frame) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f.BlockLayout()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "json encode")
	}
	return nil
}
