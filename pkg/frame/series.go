package frame

import (
	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/index"
	"github.com/ajitpratap0/tabular/pkg/kernel"
	"github.com/ajitpratap0/tabular/pkg/manager"
)

// Series is a labeled 1D column. Columns taken from a Frame share its
// storage; writes through either side copy first.
type Series struct {
	single *manager.Single
}

// NewSeries builds a standalone series over a positional row axis.
func NewSeries(name string, values *buffer.Buffer) (*Series, error) {
	s, err := manager.NewSingle(
		index.NewRangeIndex(values.Rows()), values, name)
	if err != nil {
		return nil, err
	}
	return &Series{single: s}, nil
}

func (s *Series) Len() int         { return s.single.Len() }
func (s *Series) Kind() dtype.Kind { return s.single.Kind() }
func (s *Series) Name() string     { return s.single.Name() }

// Values returns a shared view of the payload.
func (s *Series) Values() *buffer.Buffer { return s.single.Values() }

// At returns the boxed value at row i, nil when missing.
func (s *Series) At(i int) (interface{}, error) { return s.single.At(i) }

// Get returns the value at a row label.
func (s *Series) Get(label string) (interface{}, error) { return s.single.Get(label) }

// Set writes a value at row i under the copy-on-write discipline.
func (s *Series) Set(i int, v interface{}) error { return s.single.Set(i, v) }

// Take selects rows by position.
func (s *Series) Take(positions []int) (*Series, error) {
	n, err := s.single.Take(positions)
	if err != nil {
		return nil, err
	}
	return &Series{single: n}, nil
}

// Reindex conforms the series to target row labels.
func (s *Series) Reindex(target []string) (*Series, error) {
	n, err := s.single.Reindex(target)
	if err != nil {
		return nil, err
	}
	return &Series{single: n}, nil
}

// Arith applies op against a scalar.
func (s *Series) Arith(op kernel.Op, scalar interface{}) (*Series, error) {
	operand, err := buffer.Scalar(scalar)
	if err != nil {
		return nil, err
	}
	n, err := s.single.BinOp(op, operand)
	if err != nil {
		return nil, err
	}
	return &Series{single: n}, nil
}

// BinOp applies op against another series by row position.
func (s *Series) BinOp(op kernel.Op, other *Series) (*Series, error) {
	n, err := s.single.BinOp(op, other.single.Values())
	if err != nil {
		return nil, err
	}
	return &Series{single: n}, nil
}

// Neg negates the series elementwise.
func (s *Series) Neg() (*Series, error) { return s.unary(kernel.Neg) }

// Abs takes elementwise absolute values.
func (s *Series) Abs() (*Series, error) { return s.unary(kernel.Abs) }

func (s *Series) unary(op kernel.UnaryOp) (*Series, error) {
	n, err := s.single.UnaryOp(op)
	if err != nil {
		return nil, err
	}
	return &Series{single: n}, nil
}

// Sum reduces the series to one value.
func (s *Series) Sum() (interface{}, error) { return s.single.Reduce(kernel.Sum) }

// Mean reduces the series to its average.
func (s *Series) Mean() (interface{}, error) { return s.single.Reduce(kernel.Mean) }

// Min reduces the series to its minimum.
func (s *Series) Min() (interface{}, error) { return s.single.Reduce(kernel.Min) }

// Max reduces the series to its maximum.
func (s *Series) Max() (interface{}, error) { return s.single.Reduce(kernel.Max) }

// Copy clones the series; deep copies own fresh storage.
func (s *Series) Copy(deep bool) *Series {
	return &Series{single: s.single.Copy(deep)}
}
