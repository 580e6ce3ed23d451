package manager

import (
	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/index"
	"github.com/ajitpratap0/tabular/pkg/kernel"
)

// Single is the one-column counterpart of BlockManager: a single buffer
// bound to a row axis and a name. Columns pulled out of a table arrive
// here sharing the table's storage.
type Single struct {
	rowIndex index.Index
	buf      *buffer.Buffer
	name     string
}

// NewSingle binds a single-column buffer to a row axis.
func NewSingle(rowIx index.Index, buf *buffer.Buffer, name string) (*Single, error) {
	if buf.Cols() != 1 {
		return nil, errors.Newf(errors.ErrorTypeStructural,
			"single manager needs one column, got %d", buf.Cols())
	}
	if buf.Rows() != rowIx.Len() {
		return nil, errors.Newf(errors.ErrorTypeStructural,
			"buffer spans %d rows, axis has %d", buf.Rows(), rowIx.Len())
	}
	return &Single{rowIndex: rowIx, buf: buf, name: name}, nil
}

func (s *Single) Len() int              { return s.buf.Rows() }
func (s *Single) Kind() dtype.Kind      { return s.buf.Kind() }
func (s *Single) Name() string          { return s.name }
func (s *Single) RowIndex() index.Index { return s.rowIndex }

// Values returns a shared view of the column payload.
func (s *Single) Values() *buffer.Buffer { return s.buf.View() }

// At returns the boxed value at row i, or nil when missing.
func (s *Single) At(i int) (interface{}, error) {
	if i < 0 || i >= s.buf.Rows() {
		return nil, errors.OutOfRange(i, s.buf.Rows())
	}
	return s.buf.At(i, 0), nil
}

// Get returns the value at the given row label.
func (s *Single) Get(label string) (interface{}, error) {
	pos, err := s.rowIndex.GetLoc(label)
	if err != nil {
		return nil, err
	}
	return s.At(pos)
}

// Set assigns a value at row i, copying shared storage first so no
// other holder of the payload observes the write.
func (s *Single) Set(i int, v interface{}) error {
	if i < 0 || i >= s.buf.Rows() {
		return errors.OutOfRange(i, s.buf.Rows())
	}
	s.buf = s.buf.EnsureOwned()
	return s.buf.Set(i, 0, v)
}

// Take selects rows by position.
func (s *Single) Take(positions []int) (*Single, error) {
	rowIx, err := s.rowIndex.Take(positions)
	if err != nil {
		return nil, err
	}
	gathered, err := s.buf.Gather(positions, false)
	if err != nil {
		return nil, err
	}
	return NewSingle(rowIx, gathered, s.name)
}

// Reindex conforms the column to target labels, promoting the kind if
// absent labels force missing values in.
func (s *Single) Reindex(target []string) (*Single, error) {
	indexer, err := s.rowIndex.GetIndexer(target)
	if err != nil {
		return nil, err
	}
	v := s.buf
	for _, idx := range indexer {
		if idx == -1 && v.Kind().NullRule() == dtype.NullPromote {
			cast, err := v.Cast(dtype.PromoteForMissing(v.Kind()))
			if err != nil {
				return nil, err
			}
			v = cast
			break
		}
	}
	gathered, err := v.Gather(indexer, true)
	if err != nil {
		return nil, err
	}
	return NewSingle(index.NewLabelIndex(target), gathered, s.name)
}

// BinOp applies a binary kernel against an operand.
func (s *Single) BinOp(op kernel.Op, operand *buffer.Buffer) (*Single, error) {
	res, err := kernel.Dispatch(op, s.buf.View(), operand)
	if err != nil {
		return nil, err
	}
	return NewSingle(s.rowIndex, res, s.name)
}

// UnaryOp applies a unary kernel elementwise.
func (s *Single) UnaryOp(op kernel.UnaryOp) (*Single, error) {
	res, err := kernel.DispatchUnary(op, s.buf.View())
	if err != nil {
		return nil, err
	}
	return NewSingle(s.rowIndex, res, s.name)
}

// Reduce collapses the column to a single boxed value.
func (s *Single) Reduce(op kernel.ReduceOp) (interface{}, error) {
	res, err := kernel.Reduce(op, s.buf.View())
	if err != nil {
		return nil, err
	}
	return res.At(0, 0), nil
}

// Copy clones the column. Deep copies own fresh storage.
func (s *Single) Copy(deep bool) *Single {
	b := s.buf.View()
	if deep {
		b = s.buf.Copy()
	}
	return &Single{rowIndex: s.rowIndex, buf: b, name: s.name}
}
