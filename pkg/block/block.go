// Package block implements the typed storage unit of the engine: a
// contiguous 2D buffer of one kind plus the placement that says which
// table columns it holds. Blocks never know about labels; the manager
// layers axes on top.
package block

import (
	"sort"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/kernel"
)

// Block binds a buffer to table-column positions. placement[i] is the
// table position of local column i; cols[i] is its physical column in
// buf, so column subsets can share a payload without repacking.
type Block struct {
	buf       *buffer.Buffer
	cols      []int
	placement []int
}

// New wraps a buffer whose physical columns map one to one onto
// placement. Placement length must match the buffer's column count.
func New(buf *buffer.Buffer, placement []int) (*Block, error) {
	if len(placement) != buf.Cols() {
		return nil, errors.Newf(errors.ErrorTypeStructural,
			"placement has %d entries for a %d-column buffer", len(placement), buf.Cols())
	}
	cols := make([]int, buf.Cols())
	for i := range cols {
		cols[i] = i
	}
	return &Block{buf: buf, cols: cols, placement: append([]int(nil), placement...)}, nil
}

func (b *Block) Kind() dtype.Kind { return b.buf.Kind() }
func (b *Block) Rows() int        { return b.buf.Rows() }
func (b *Block) NCols() int       { return len(b.cols) }

// Placement returns a copy of the block's table-column positions.
func (b *Block) Placement() []int {
	return append([]int(nil), b.placement...)
}

// IsShared reports whether the block's payload may alias other storage.
func (b *Block) IsShared() bool { return b.buf.IsShared() }

func (b *Block) identity() bool {
	if len(b.cols) != b.buf.Cols() {
		return false
	}
	for i, c := range b.cols {
		if c != i {
			return false
		}
	}
	return true
}

// Values returns the block's columns in local order. When the block
// covers its whole buffer this is a shared view; otherwise the columns
// are packed into a fresh buffer.
func (b *Block) Values() *buffer.Buffer {
	if b.identity() {
		return b.buf.View()
	}
	packed, _ := b.packed()
	return packed
}

// packed materializes the block's local columns into one fresh buffer.
func (b *Block) packed() (*buffer.Buffer, error) {
	parts := make([]*buffer.Buffer, len(b.cols))
	for i, c := range b.cols {
		parts[i] = b.buf.Column(c)
	}
	return buffer.ConcatCols(parts...)
}

// Column returns a single-column shared view of local column i.
func (b *Block) Column(i int) (*buffer.Buffer, error) {
	if i < 0 || i >= len(b.cols) {
		return nil, errors.OutOfRange(i, len(b.cols))
	}
	return b.buf.Column(b.cols[i]), nil
}

// SliceColumns builds a block over a subset of local columns, sharing the
// payload. newPlacement gives the table positions of the kept columns.
func (b *Block) SliceColumns(locals, newPlacement []int) (*Block, error) {
	if len(locals) != len(newPlacement) {
		return nil, errors.Newf(errors.ErrorTypeStructural,
			"%d columns selected with %d placements", len(locals), len(newPlacement))
	}
	cols := make([]int, len(locals))
	for i, l := range locals {
		if l < 0 || l >= len(b.cols) {
			return nil, errors.OutOfRange(l, len(b.cols))
		}
		cols[i] = b.cols[l]
	}
	b.buf.MarkShared()
	return &Block{
		buf:       b.buf.View(),
		cols:      cols,
		placement: append([]int(nil), newPlacement...),
	}, nil
}

// Apply runs fn over the block's packed values and wraps the result in a
// block carrying the same placement. fn decides the result kind; the row
// count must be preserved or collapsed to one (reductions).
func (b *Block) Apply(fn func(*buffer.Buffer) (*buffer.Buffer, error)) (*Block, error) {
	res, err := fn(b.Values())
	if err != nil {
		return nil, err
	}
	if res.Cols() != len(b.cols) {
		return nil, errors.Newf(errors.ErrorTypeInternal,
			"apply returned %d columns for a %d-column block", res.Cols(), len(b.cols))
	}
	return New(res, b.placement)
}

// BinOp applies a binary kernel between the block and an operand.
func (b *Block) BinOp(op kernel.Op, operand *buffer.Buffer) (*Block, error) {
	return b.Apply(func(v *buffer.Buffer) (*buffer.Buffer, error) {
		return kernel.Dispatch(op, v, operand)
	})
}

// SetItem assigns value into the block's local columns listed in locals
// and returns the blocks that replace the receiver. A value of the
// block's kind lands in place after the copy-on-write ownership check;
// an incompatible value splits off a new block of the value's kind for
// the assigned columns, leaving the rest of the receiver intact.
func (b *Block) SetItem(locals []int, value *buffer.Buffer) ([]*Block, error) {
	for _, l := range locals {
		if l < 0 || l >= len(b.cols) {
			return nil, errors.OutOfRange(l, len(b.cols))
		}
	}
	if value.Rows() != b.Rows() {
		return nil, errors.Newf(errors.ErrorTypeStructural,
			"value has %d rows, block has %d", value.Rows(), b.Rows())
	}
	if value.Cols() != 1 && value.Cols() != len(locals) {
		return nil, errors.Newf(errors.ErrorTypeStructural,
			"value has %d columns for %d assigned positions", value.Cols(), len(locals))
	}

	if value.Kind() == b.Kind() {
		owned := b.buf.EnsureOwned()
		for i, l := range locals {
			src := value
			if value.Cols() != 1 {
				src = value.Column(i)
			}
			if err := owned.SetColumn(b.cols[l], src); err != nil {
				return nil, err
			}
		}
		return []*Block{{buf: owned, cols: b.cols, placement: b.placement}}, nil
	}

	// Kind mismatch: the assigned columns leave for a block of the
	// value's kind and the remainder keeps its storage.
	assignedPlacement := make([]int, len(locals))
	for i, l := range locals {
		assignedPlacement[i] = b.placement[l]
	}
	parts := make([]*buffer.Buffer, len(locals))
	for i := range locals {
		if value.Cols() == 1 {
			parts[i] = value.Column(0)
		} else {
			parts[i] = value.Column(i)
		}
	}
	packed, err := buffer.ConcatCols(parts...)
	if err != nil {
		return nil, err
	}
	newBlock, err := New(packed, assignedPlacement)
	if err != nil {
		return nil, err
	}

	remaining := b.without(locals)
	if remaining == nil {
		return []*Block{newBlock}, nil
	}
	return []*Block{remaining, newBlock}, nil
}

// without returns a shared-payload block of the local columns NOT listed
// in drop, or nil when nothing remains.
func (b *Block) without(drop []int) *Block {
	dropped := make(map[int]bool, len(drop))
	for _, l := range drop {
		dropped[l] = true
	}
	var keepLocals, keepPlacement []int
	for i := range b.cols {
		if !dropped[i] {
			keepLocals = append(keepLocals, i)
			keepPlacement = append(keepPlacement, b.placement[i])
		}
	}
	if len(keepLocals) == 0 {
		return nil
	}
	kept, _ := b.SliceColumns(keepLocals, keepPlacement)
	return kept
}

// Delete removes the listed local columns, returning a shared-payload
// block of the remainder or nil when the block empties.
func (b *Block) Delete(locals []int) (*Block, error) {
	for _, l := range locals {
		if l < 0 || l >= len(b.cols) {
			return nil, errors.OutOfRange(l, len(b.cols))
		}
	}
	return b.without(locals), nil
}

// ShiftPlacement adjusts table positions at or past pos by delta. Used
// when the manager inserts or deletes a column elsewhere in the table.
func (b *Block) ShiftPlacement(pos, delta int) {
	for i, p := range b.placement {
		if p >= pos {
			b.placement[i] = p + delta
		}
	}
}

// Take builds a block whose rows are selected by positions. All
// positions must be in range; row selection never introduces missing
// values.
func (b *Block) Take(positions []int) (*Block, error) {
	gathered, err := b.Values().Gather(positions, false)
	if err != nil {
		return nil, err
	}
	return New(gathered, b.placement)
}

// Reindex builds a block whose rows follow indexer, where -1 introduces
// a missing value. Kinds that cannot hold a missing value are promoted
// first, so an integer block reindexed against absent labels comes back
// as floats with NaN holes.
func (b *Block) Reindex(indexer []int) (*Block, error) {
	v := b.Values()
	needsMissing := false
	for _, idx := range indexer {
		if idx == -1 {
			needsMissing = true
			break
		}
	}
	if needsMissing && v.Kind().NullRule() == dtype.NullPromote {
		cast, err := v.Cast(dtype.PromoteForMissing(v.Kind()))
		if err != nil {
			return nil, err
		}
		v = cast
	}
	gathered, err := v.Gather(indexer, true)
	if err != nil {
		return nil, err
	}
	return New(gathered, b.placement)
}

// Copy clones the block. A deep copy owns fresh storage; a shallow copy
// shares the payload and marks both sides.
func (b *Block) Copy(deep bool) *Block {
	if !deep {
		b.buf.MarkShared()
		return &Block{
			buf:       b.buf.View(),
			cols:      append([]int(nil), b.cols...),
			placement: append([]int(nil), b.placement...),
		}
	}
	packed, _ := b.packed()
	nb, _ := New(packed, b.placement)
	return nb
}

// MemoryUsage approximates the payload bytes attributable to the
// block. Subset blocks report their share of the physical buffer
// without touching the shared-storage flag.
func (b *Block) MemoryUsage() int64 {
	total := b.buf.MemoryUsage()
	if b.buf.Cols() == 0 || len(b.cols) == b.buf.Cols() {
		return total
	}
	return total * int64(len(b.cols)) / int64(b.buf.Cols())
}

// Merge packs same-kind blocks into one consolidated block with sorted
// placement. Each contributing column is copied, so the result owns its
// storage outright.
func Merge(blocks []*Block) (*Block, error) {
	if len(blocks) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "nothing to merge")
	}
	kind := blocks[0].Kind()
	type col struct {
		src   *Block
		local int
		place int
	}
	var all []col
	for _, blk := range blocks {
		if blk.Kind() != kind {
			return nil, errors.IncompatibleKind(kind.String(), blk.Kind().String())
		}
		for i, p := range blk.placement {
			all = append(all, col{src: blk, local: i, place: p})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].place < all[j].place })

	parts := make([]*buffer.Buffer, len(all))
	placement := make([]int, len(all))
	for i, c := range all {
		cv, err := c.src.Column(c.local)
		if err != nil {
			return nil, err
		}
		parts[i] = cv
		placement[i] = c.place
	}
	packed, err := buffer.ConcatCols(parts...)
	if err != nil {
		return nil, err
	}
	return New(packed, placement)
}
