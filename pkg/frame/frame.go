// Package frame is the user-facing table API over the block manager.
// A Frame owns a manager and exposes labeled column access, structural
// edits, alignment, elementwise arithmetic and reductions. All
// derived frames rely on copy-on-write: sharing is free until someone
// writes.
package frame

import (
	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/index"
	"github.com/ajitpratap0/tabular/pkg/kernel"
	"github.com/ajitpratap0/tabular/pkg/manager"
	"github.com/ajitpratap0/tabular/pkg/pool"
)

// Frame is a labeled 2D table of typed columns.
type Frame struct {
	mgr *manager.BlockManager

	// autoConsolidate, when on, merges same-kind blocks after a
	// structural edit leaves more than consolidateThreshold blocks.
	autoConsolidate      bool
	consolidateThreshold int
}

// Column pairs a label with its values for construction.
type Column struct {
	Label  string
	Values *buffer.Buffer
}

// New builds a frame from labeled columns over a default positional row
// axis. Same-kind columns are grouped into consolidated blocks.
func New(cols []Column) (*Frame, error) {
	if len(cols) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "frame needs at least one column")
	}
	rows := cols[0].Values.Rows()
	return NewWithRowLabels(nil, rows, cols)
}

// NewWithRowLabels builds a frame with explicit row labels; pass nil
// labels for a positional axis of the given length.
func NewWithRowLabels(rowLabels []string, rows int, cols []Column) (*Frame, error) {
	var rowIx index.Index
	if rowLabels != nil {
		rowIx = index.NewLabelIndex(rowLabels)
	} else {
		rowIx = index.NewRangeIndex(rows)
	}
	labels := make([]string, len(cols))
	bufs := make([]*buffer.Buffer, len(cols))
	for i, c := range cols {
		labels[i] = c.Label
		bufs[i] = c.Values
	}
	mgr, err := manager.FromBuffers(rowIx, index.NewLabelIndex(labels), bufs)
	if err != nil {
		return nil, err
	}
	return &Frame{mgr: mgr}, nil
}

// FromManager wraps an existing manager.
func FromManager(m *manager.BlockManager) *Frame { return &Frame{mgr: m} }

// Manager exposes the underlying block manager.
func (f *Frame) Manager() *manager.BlockManager { return f.mgr }

func (f *Frame) NRows() int { return f.mgr.NRows() }
func (f *Frame) NCols() int { return f.mgr.NCols() }

// Columns returns the column labels in table order.
func (f *Frame) Columns() []string { return f.mgr.ColIndex().Labels() }

// RowLabels returns the row labels in order.
func (f *Frame) RowLabels() []string { return f.mgr.RowIndex().Labels() }

// Col returns the labeled column as a Series sharing storage.
func (f *Frame) Col(label string) (*Series, error) {
	s, err := f.mgr.GetColumn(label)
	if err != nil {
		return nil, err
	}
	return &Series{single: s}, nil
}

// ColAt returns the column at position pos.
func (f *Frame) ColAt(pos int) (*Series, error) {
	s, err := f.mgr.ColumnAt(pos)
	if err != nil {
		return nil, err
	}
	return &Series{single: s}, nil
}

// SetAutoConsolidate turns on consolidation after structural edits that
// leave more than threshold blocks. A zero threshold consolidates on
// every edit. The default is off: consolidation stays lazy.
func (f *Frame) SetAutoConsolidate(enabled bool, threshold int) {
	f.autoConsolidate = enabled
	f.consolidateThreshold = threshold
}

func (f *Frame) maybeConsolidate() error {
	if !f.autoConsolidate || f.mgr.NBlocks() <= f.consolidateThreshold {
		return nil
	}
	return f.mgr.Consolidate()
}

// Insert adds a column at position pos.
func (f *Frame) Insert(pos int, label string, values *buffer.Buffer) error {
	if err := f.mgr.Insert(pos, label, values); err != nil {
		return err
	}
	return f.maybeConsolidate()
}

// Append adds a column at the end of the table.
func (f *Frame) Append(label string, values *buffer.Buffer) error {
	return f.Insert(f.mgr.NCols(), label, values)
}

// Drop removes the labeled column.
func (f *Frame) Drop(label string) error {
	if err := f.mgr.Delete(label); err != nil {
		return err
	}
	return f.maybeConsolidate()
}

// DropAt removes the column at position pos.
func (f *Frame) DropAt(pos int) error {
	if err := f.mgr.DeleteAt(pos); err != nil {
		return err
	}
	return f.maybeConsolidate()
}

// Set assigns values to the labeled column, splitting its block when
// the kind changes.
func (f *Frame) Set(label string, values *buffer.Buffer) error {
	if err := f.mgr.SetItem(label, values); err != nil {
		return err
	}
	return f.maybeConsolidate()
}

// SelectLabels projects the frame onto the given columns, in the given
// order, sharing storage with the receiver.
func (f *Frame) SelectLabels(labels []string) (*Frame, error) {
	positions := make([]int, len(labels))
	for i, l := range labels {
		pos, err := f.mgr.ColIndex().GetLoc(l)
		if err != nil {
			return nil, err
		}
		positions[i] = pos
	}
	m, err := f.mgr.Take(positions, manager.AxisCols)
	if err != nil {
		return nil, err
	}
	return &Frame{mgr: m}, nil
}

// TakeRows selects rows by position; duplicates are allowed.
func (f *Frame) TakeRows(positions []int) (*Frame, error) {
	m, err := f.mgr.Take(positions, manager.AxisRows)
	if err != nil {
		return nil, err
	}
	return &Frame{mgr: m}, nil
}

// Filter keeps the rows where mask is true and valid. The mask must be
// a Bool column spanning the row axis.
func (f *Frame) Filter(mask *buffer.Buffer) (*Frame, error) {
	if mask.Kind() != dtype.Bool || mask.Cols() != 1 {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"filter mask must be a single bool column, got %s", mask.Kind())
	}
	if mask.Rows() != f.NRows() {
		return nil, errors.Newf(errors.ErrorTypeStructural,
			"mask spans %d rows, frame has %d", mask.Rows(), f.NRows())
	}
	positions := pool.IntSlice.Get()
	vals := mask.Bools()
	for i, keep := range vals {
		if keep && mask.IsValid(i) {
			positions = append(positions, i)
		}
	}
	out, err := f.TakeRows(positions)
	pool.IntSlice.Put(positions)
	return out, err
}

// Reindex conforms an axis to target labels. Absent labels introduce
// missing values; integer columns come back as floats with NaN holes.
func (f *Frame) Reindex(target []string, axis manager.Axis) (*Frame, error) {
	m, err := f.mgr.Reindex(target, axis)
	if err != nil {
		return nil, err
	}
	return &Frame{mgr: m}, nil
}

// Arith applies op between every column and a scalar. Columns without a
// kernel for the pairing fail individually, not collectively.
func (f *Frame) Arith(op kernel.Op, scalar interface{}) (*Frame, error) {
	operand, err := buffer.Scalar(scalar)
	if err != nil {
		return nil, err
	}
	if err := f.mgr.Consolidate(); err != nil {
		return nil, err
	}
	m, err := f.mgr.BinOp(op, operand)
	if err != nil {
		return nil, err
	}
	return &Frame{mgr: m}, nil
}

// BinOpSeries applies op between every column and a column operand
// aligned by row position.
func (f *Frame) BinOpSeries(op kernel.Op, s *Series) (*Frame, error) {
	if err := f.mgr.Consolidate(); err != nil {
		return nil, err
	}
	m, err := f.mgr.BinOp(op, s.single.Values())
	if err != nil {
		return nil, err
	}
	return &Frame{mgr: m}, nil
}

// BinOp applies op between this frame and another, aligning both axes
// first: rows and columns each cover the union of labels in this
// frame's order, and labels missing on either side yield missing
// results.
func (f *Frame) BinOp(op kernel.Op, other *Frame) (*Frame, error) {
	if err := f.mgr.Consolidate(); err != nil {
		return nil, err
	}
	if err := other.mgr.Consolidate(); err != nil {
		return nil, err
	}
	rowUnion := unionLabels(f.RowLabels(), other.RowLabels())
	colUnion := unionLabels(f.Columns(), other.Columns())
	left, err := f.alignTo(rowUnion, colUnion)
	if err != nil {
		return nil, err
	}
	right, err := other.alignTo(rowUnion, colUnion)
	if err != nil {
		return nil, err
	}
	out := make([]Column, len(colUnion))
	for i, l := range colUnion {
		lc, err := left.Col(l)
		if err != nil {
			return nil, err
		}
		rc, err := right.Col(l)
		if err != nil {
			return nil, err
		}
		res, err := kernel.Dispatch(op, lc.single.Values(), rc.single.Values())
		if err != nil {
			return nil, err
		}
		out[i] = Column{Label: l, Values: res}
	}
	return NewWithRowLabels(rowUnion, len(rowUnion), out)
}

// alignTo conforms both axes to the target labels, skipping any axis
// that already matches.
func (f *Frame) alignTo(rowLabels, colLabels []string) (*Frame, error) {
	out := f
	if !equalLabels(out.RowLabels(), rowLabels) {
		aligned, err := out.Reindex(rowLabels, manager.AxisRows)
		if err != nil {
			return nil, err
		}
		out = aligned
	}
	if !equalLabels(out.Columns(), colLabels) {
		aligned, err := out.Reindex(colLabels, manager.AxisCols)
		if err != nil {
			return nil, err
		}
		out = aligned
	}
	return out, nil
}

func unionLabels(a, b []string) []string {
	out := append([]string(nil), a...)
	have := make(map[string]bool, len(a))
	for _, l := range a {
		have[l] = true
	}
	for _, l := range b {
		if !have[l] {
			out = append(out, l)
		}
	}
	return out
}

func equalLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Sum reduces every column; see Reduce.
func (f *Frame) Sum() (map[string]interface{}, error) { return f.Reduce(kernel.Sum) }

// Mean reduces every column; see Reduce.
func (f *Frame) Mean() (map[string]interface{}, error) { return f.Reduce(kernel.Mean) }

// Min reduces every column; see Reduce.
func (f *Frame) Min() (map[string]interface{}, error) { return f.Reduce(kernel.Min) }

// Max reduces every column; see Reduce.
func (f *Frame) Max() (map[string]interface{}, error) { return f.Reduce(kernel.Max) }

// Reduce collapses every column to one value keyed by label.
func (f *Frame) Reduce(op kernel.ReduceOp) (map[string]interface{}, error) {
	red, err := f.mgr.Reduce(op)
	if err != nil {
		return nil, err
	}
	row, err := red.Row(0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(row))
	for pos, v := range row {
		out[red.ColIndex().Label(pos)] = v
	}
	return out, nil
}

// Row materializes row i keyed by column label.
func (f *Frame) Row(i int) (map[string]interface{}, error) {
	vals, err := f.mgr.Row(i)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(vals))
	for pos, v := range vals {
		out[f.mgr.ColIndex().Label(pos)] = v
	}
	return out, nil
}

// Copy clones the frame and its consolidation policy. Deep copies own
// all storage; shallow copies share under copy-on-write.
func (f *Frame) Copy(deep bool) *Frame {
	return &Frame{
		mgr:                  f.mgr.Copy(deep),
		autoConsolidate:      f.autoConsolidate,
		consolidateThreshold: f.consolidateThreshold,
	}
}

// Consolidate merges same-kind blocks into one block per kind.
func (f *Frame) Consolidate() error { return f.mgr.Consolidate() }

// BlockLayout reports the physical block layout.
func (f *Frame) BlockLayout() []manager.BlockInfo { return f.mgr.BlockLayout() }

// MemoryUsage approximates payload bytes held by the frame.
func (f *Frame) MemoryUsage() int64 { return f.mgr.MemoryUsage() }
