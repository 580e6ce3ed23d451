// Package manager implements the block manager: the axis-aware
// collection of typed blocks behind every table. It owns the
// placement partition, column lookup, structural edits, consolidation
// and the copy-on-write discipline across table boundaries.
package manager

import (
	"math"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabular/pkg/block"
	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/index"
	"github.com/ajitpratap0/tabular/pkg/kernel"
	"github.com/ajitpratap0/tabular/pkg/logger"
	"github.com/ajitpratap0/tabular/pkg/metrics"
)

// BlockManager holds a table's blocks plus the row and column axes.
// Every table column lives in exactly one block; blockFor resolves a
// column position through a lazily rebuilt location cache.
type BlockManager struct {
	rowIndex index.Index
	colIndex index.Index
	blocks   []*block.Block

	// blknos[pos] is the block holding table column pos, blklocs[pos]
	// its local column there. Nil until needed, dropped on every
	// structural edit.
	blknos  []int
	blklocs []int

	consolidated bool
	log          *zap.Logger
}

// New assembles a manager and verifies the block placements partition
// the column axis exactly.
func New(rowIx, colIx index.Index, blocks []*block.Block) (*BlockManager, error) {
	m := &BlockManager{
		rowIndex: rowIx,
		colIndex: colIx,
		blocks:   blocks,
		log:      logger.WithComponent("manager"),
	}
	if err := m.checkShape(); err != nil {
		return nil, err
	}
	m.consolidated = m.isConsolidatedNow()
	metrics.BlocksCreated.Add(float64(len(blocks)))
	return m, nil
}

// FromBuffers builds a manager from one single-column buffer per column
// position, grouping same-kind columns into consolidated blocks.
func FromBuffers(rowIx, colIx index.Index, cols []*buffer.Buffer) (*BlockManager, error) {
	if len(cols) != colIx.Len() {
		return nil, errors.Newf(errors.ErrorTypeStructural,
			"%d column buffers for a %d-label axis", len(cols), colIx.Len())
	}
	byKind := map[dtype.Kind][]int{}
	order := []dtype.Kind{}
	for pos, c := range cols {
		if c.Rows() != rowIx.Len() || c.Cols() != 1 {
			return nil, errors.Newf(errors.ErrorTypeStructural,
				"column %d has shape %dx%d, want %dx1", pos, c.Rows(), c.Cols(), rowIx.Len())
		}
		if _, seen := byKind[c.Kind()]; !seen {
			order = append(order, c.Kind())
		}
		byKind[c.Kind()] = append(byKind[c.Kind()], pos)
	}

	var blocks []*block.Block
	for _, k := range order {
		positions := byKind[k]
		parts := make([]*buffer.Buffer, len(positions))
		for i, pos := range positions {
			parts[i] = cols[pos]
		}
		packed, err := buffer.ConcatCols(parts...)
		if err != nil {
			return nil, err
		}
		blk, err := block.New(packed, positions)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}
	return New(rowIx, colIx, blocks)
}

func (m *BlockManager) NRows() int            { return m.rowIndex.Len() }
func (m *BlockManager) NCols() int            { return m.colIndex.Len() }
func (m *BlockManager) NBlocks() int          { return len(m.blocks) }
func (m *BlockManager) RowIndex() index.Index { return m.rowIndex }
func (m *BlockManager) ColIndex() index.Index { return m.colIndex }
func (m *BlockManager) IsConsolidated() bool  { return m.consolidated }

// Blocks returns the manager's blocks. The slice is a copy; the blocks
// are not.
func (m *BlockManager) Blocks() []*block.Block {
	return append([]*block.Block(nil), m.blocks...)
}

func (m *BlockManager) invalidate() {
	m.blknos, m.blklocs = nil, nil
}

func (m *BlockManager) rebuildLocs() {
	n := m.colIndex.Len()
	m.blknos = make([]int, n)
	m.blklocs = make([]int, n)
	for bi, blk := range m.blocks {
		for li, pos := range blk.Placement() {
			m.blknos[pos] = bi
			m.blklocs[pos] = li
		}
	}
}

// blockFor resolves a column position to its block and local column.
func (m *BlockManager) blockFor(pos int) (*block.Block, int, error) {
	if pos < 0 || pos >= m.colIndex.Len() {
		return nil, 0, errors.OutOfRange(pos, m.colIndex.Len())
	}
	if m.blknos == nil {
		m.rebuildLocs()
	}
	return m.blocks[m.blknos[pos]], m.blklocs[pos], nil
}

// ColumnAt returns column pos as a Single sharing the block's storage.
func (m *BlockManager) ColumnAt(pos int) (*Single, error) {
	blk, local, err := m.blockFor(pos)
	if err != nil {
		return nil, err
	}
	col, err := blk.Column(local)
	if err != nil {
		return nil, err
	}
	return NewSingle(m.rowIndex, col, m.colIndex.Label(pos))
}

// GetColumn returns the column with the given label.
func (m *BlockManager) GetColumn(label string) (*Single, error) {
	pos, err := m.colIndex.GetLoc(label)
	if err != nil {
		return nil, err
	}
	return m.ColumnAt(pos)
}

// Insert adds a column at table position pos. Existing placements shift
// by one through the block list, so the edit costs a pass over blocks
// rather than a pass over data. The new column lands in its own block;
// consolidation folds it in later.
func (m *BlockManager) Insert(pos int, label string, col *buffer.Buffer) error {
	if col.Rows() != m.rowIndex.Len() || col.Cols() != 1 {
		return errors.Newf(errors.ErrorTypeStructural,
			"column has shape %dx%d, want %dx1", col.Rows(), col.Cols(), m.rowIndex.Len())
	}
	colIx, err := m.colIndex.Insert(pos, label)
	if err != nil {
		return err
	}
	for _, blk := range m.blocks {
		blk.ShiftPlacement(pos, 1)
	}
	nb, err := block.New(col, []int{pos})
	if err != nil {
		return err
	}
	m.blocks = append(m.blocks, nb)
	m.colIndex = colIx
	m.consolidated = false
	m.invalidate()
	metrics.ColumnInserts.Inc()
	metrics.BlocksCreated.Inc()
	m.log.Debug("inserted column",
		zap.String("label", label), zap.Int("pos", pos), zap.Int("blocks", len(m.blocks)))
	return nil
}

// DeleteAt removes the column at table position pos.
func (m *BlockManager) DeleteAt(pos int) error {
	blk, local, err := m.blockFor(pos)
	if err != nil {
		return err
	}
	colIx, err := m.colIndex.Delete(pos)
	if err != nil {
		return err
	}
	remaining, err := blk.Delete([]int{local})
	if err != nil {
		return err
	}
	out := m.blocks[:0]
	for _, b := range m.blocks {
		if b == blk {
			if remaining != nil {
				out = append(out, remaining)
			}
			continue
		}
		out = append(out, b)
	}
	m.blocks = out
	for _, b := range m.blocks {
		b.ShiftPlacement(pos+1, -1)
	}
	m.colIndex = colIx
	m.invalidate()
	metrics.ColumnDeletes.Inc()
	return nil
}

// Delete removes the column with the given label.
func (m *BlockManager) Delete(label string) error {
	pos, err := m.colIndex.GetLoc(label)
	if err != nil {
		return err
	}
	return m.DeleteAt(pos)
}

// SetItemAt assigns value to the column at pos. A same-kind value lands
// in place under the copy-on-write ownership check; a kind-changing
// value splits the column out into its own block of the new kind.
func (m *BlockManager) SetItemAt(pos int, value *buffer.Buffer) error {
	blk, local, err := m.blockFor(pos)
	if err != nil {
		return err
	}
	replacements, err := blk.SetItem([]int{local}, value)
	if err != nil {
		return err
	}
	out := m.blocks[:0]
	for _, b := range m.blocks {
		if b == blk {
			out = append(out, replacements...)
			continue
		}
		out = append(out, b)
	}
	m.blocks = out
	m.invalidate()
	if len(replacements) > 1 || replacements[0].Kind() != blk.Kind() {
		m.consolidated = m.isConsolidatedNow()
		metrics.BlockSplits.Inc()
		metrics.BlocksCreated.Add(float64(len(replacements)))
		m.log.Debug("block split by assignment",
			zap.Int("pos", pos), zap.String("kind", value.Kind().String()))
	}
	return nil
}

// SetItem assigns value to the labeled column.
func (m *BlockManager) SetItem(label string, value *buffer.Buffer) error {
	pos, err := m.colIndex.GetLoc(label)
	if err != nil {
		return err
	}
	return m.SetItemAt(pos, value)
}

// Axis selects which axis a structural operation works along.
type Axis int

const (
	AxisRows Axis = iota
	AxisCols
)

// Take builds a new manager selecting positions along the axis.
// Positions must be in range; duplicates are allowed.
func (m *BlockManager) Take(positions []int, axis Axis) (*BlockManager, error) {
	if axis == AxisRows {
		rowIx, err := m.rowIndex.Take(positions)
		if err != nil {
			return nil, err
		}
		blocks := make([]*block.Block, len(m.blocks))
		for i, blk := range m.blocks {
			nb, err := blk.Take(positions)
			if err != nil {
				return nil, err
			}
			blocks[i] = nb
		}
		return New(rowIx, m.colIndex, blocks)
	}

	colIx, err := m.colIndex.Take(positions)
	if err != nil {
		return nil, err
	}
	return m.selectColumns(positions, colIx)
}

// selectColumns builds a manager over the given source column positions,
// slicing shared-payload blocks per source block.
func (m *BlockManager) selectColumns(positions []int, colIx index.Index) (*BlockManager, error) {
	if m.blknos == nil {
		m.rebuildLocs()
	}
	type sel struct {
		locals []int
		places []int
	}
	picked := map[int]*sel{}
	var blockOrder []int
	for newPos, src := range positions {
		if src < 0 || src >= m.colIndex.Len() {
			return nil, errors.OutOfRange(src, m.colIndex.Len())
		}
		bi := m.blknos[src]
		s, ok := picked[bi]
		if !ok {
			s = &sel{}
			picked[bi] = s
			blockOrder = append(blockOrder, bi)
		}
		s.locals = append(s.locals, m.blklocs[src])
		s.places = append(s.places, newPos)
	}
	blocks := make([]*block.Block, 0, len(blockOrder))
	for _, bi := range blockOrder {
		s := picked[bi]
		nb, err := m.blocks[bi].SliceColumns(s.locals, s.places)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, nb)
	}
	return New(m.rowIndex, colIx, blocks)
}

// Reindex conforms the axis to the target labels. Labels absent from the
// current axis introduce missing values, promoting kinds that cannot
// hold one. Duplicate source labels make the mapping ambiguous and fail.
func (m *BlockManager) Reindex(target []string, axis Axis) (*BlockManager, error) {
	if axis == AxisRows {
		indexer, err := m.rowIndex.GetIndexer(target)
		if err != nil {
			return nil, err
		}
		blocks := make([]*block.Block, len(m.blocks))
		for i, blk := range m.blocks {
			nb, err := blk.Reindex(indexer)
			if err != nil {
				return nil, err
			}
			blocks[i] = nb
		}
		return New(index.NewLabelIndex(target), m.colIndex, blocks)
	}

	indexer, err := m.colIndex.GetIndexer(target)
	if err != nil {
		return nil, err
	}
	var present, presentNew, absentNew []int
	var presentLabels []string
	for newPos, src := range indexer {
		if src == -1 {
			absentNew = append(absentNew, newPos)
		} else {
			present = append(present, src)
			presentNew = append(presentNew, newPos)
			presentLabels = append(presentLabels, target[newPos])
		}
	}
	// Slice out the kept columns over a dense temporary axis, then
	// rewrite their placements onto the target positions and add one
	// all-missing float block for the absent labels.
	sub, err := m.selectColumns(present, index.NewLabelIndex(presentLabels))
	if err != nil {
		return nil, err
	}
	blocks, err := remapPlacements(sub.blocks, presentNew)
	if err != nil {
		return nil, err
	}
	if len(absentNew) > 0 {
		fill := buffer.New(dtype.Float64, m.rowIndex.Len(), len(absentNew))
		vals := fill.Float64s()
		for i := range vals {
			vals[i] = math.NaN()
		}
		nb, err := block.New(fill, absentNew)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, nb)
	}
	return New(m.rowIndex, index.NewLabelIndex(target), blocks)
}

// remapPlacements rewrites every placement p to mapTo[p], returning
// shared-payload blocks.
func remapPlacements(blocks []*block.Block, mapTo []int) ([]*block.Block, error) {
	out := make([]*block.Block, len(blocks))
	for bi, blk := range blocks {
		pl := blk.Placement()
		locals := make([]int, len(pl))
		places := make([]int, len(pl))
		for j, p := range pl {
			locals[j] = j
			places[j] = mapTo[p]
		}
		nb, err := blk.SliceColumns(locals, places)
		if err != nil {
			return nil, err
		}
		out[bi] = nb
	}
	return out, nil
}

// ApplyOptions controls block-wise application.
type ApplyOptions struct {
	// ColumnFallback retries a failed block column by column, keeping
	// per-column results and errors independent. Only kernel-class
	// failures are retried; structural errors abort either way.
	ColumnFallback bool
}

// Apply maps fn over every block and assembles the results into a new
// manager. With ColumnFallback set, a block whose kernel fails is
// re-applied per column so one bad column cannot sink its block mates.
func (m *BlockManager) Apply(fn func(*buffer.Buffer) (*buffer.Buffer, error), opts ApplyOptions) (*BlockManager, error) {
	var out []*block.Block
	for _, blk := range m.blocks {
		nb, err := blk.Apply(fn)
		if err == nil {
			out = append(out, nb)
			continue
		}
		if !opts.ColumnFallback || !errors.IsRecoverable(err) {
			return nil, err
		}
		metrics.KernelFallbacks.Inc()
		m.log.Debug("block apply failed, retrying per column", zap.Error(err))
		placement := blk.Placement()
		for local := range placement {
			colBlk, err := blk.SliceColumns([]int{local}, []int{placement[local]})
			if err != nil {
				return nil, err
			}
			nb, err := colBlk.Apply(fn)
			if err != nil {
				return nil, err
			}
			out = append(out, nb)
		}
	}
	return New(m.rowIndex, m.colIndex, out)
}

// BinOp applies a binary kernel against every block with per-column
// fallback, so mixed-kind tables degrade gracefully when one kind has
// no kernel for the operation.
func (m *BlockManager) BinOp(op kernel.Op, operand *buffer.Buffer) (*BlockManager, error) {
	return m.Apply(func(v *buffer.Buffer) (*buffer.Buffer, error) {
		return kernel.Dispatch(op, v, operand)
	}, ApplyOptions{ColumnFallback: true})
}

// Reduce collapses every column with the reduction, yielding a one-row
// manager labeled by the operation. A block whose kind has no kernel
// for the reduction is retried column by column like Apply, so mixed
// tables reduce what they can and fail only on truly irreducible
// columns.
func (m *BlockManager) Reduce(op kernel.ReduceOp) (*BlockManager, error) {
	fn := func(v *buffer.Buffer) (*buffer.Buffer, error) {
		return kernel.Reduce(op, v)
	}
	var out []*block.Block
	for _, blk := range m.blocks {
		nb, err := blk.Apply(fn)
		if err == nil {
			out = append(out, nb)
			continue
		}
		if !errors.IsRecoverable(err) {
			return nil, err
		}
		metrics.KernelFallbacks.Inc()
		placement := blk.Placement()
		for local, pos := range placement {
			colBlk, err := blk.SliceColumns([]int{local}, []int{pos})
			if err != nil {
				return nil, err
			}
			nb, err := colBlk.Apply(fn)
			if err != nil {
				return nil, err
			}
			out = append(out, nb)
		}
	}
	return New(index.NewLabelIndex([]string{string(op)}), m.colIndex, out)
}

// Row materializes row i across all columns in table order. The hot
// path walks the location cache instead of searching blocks.
func (m *BlockManager) Row(i int) ([]interface{}, error) {
	if i < 0 || i >= m.rowIndex.Len() {
		return nil, errors.OutOfRange(i, m.rowIndex.Len())
	}
	if m.blknos == nil {
		m.rebuildLocs()
	}
	out := make([]interface{}, m.colIndex.Len())
	for pos := range out {
		blk := m.blocks[m.blknos[pos]]
		col, err := blk.Column(m.blklocs[pos])
		if err != nil {
			return nil, err
		}
		out[pos] = col.At(i, 0)
	}
	return out, nil
}

// Copy clones the manager. A deep copy owns all storage; a shallow copy
// shares payloads and relies on copy-on-write for safety.
func (m *BlockManager) Copy(deep bool) *BlockManager {
	blocks := make([]*block.Block, len(m.blocks))
	for i, blk := range m.blocks {
		blocks[i] = blk.Copy(deep)
	}
	c := &BlockManager{
		rowIndex:     m.rowIndex,
		colIndex:     m.colIndex,
		blocks:       blocks,
		consolidated: m.consolidated,
		log:          m.log,
	}
	if deep {
		metrics.BlocksCreated.Add(float64(len(blocks)))
	}
	return c
}

// MemoryUsage sums the payload bytes across blocks. Shared payloads
// count once per block holding a view of them.
func (m *BlockManager) MemoryUsage() int64 {
	var total int64
	for _, blk := range m.blocks {
		total += blk.MemoryUsage()
	}
	return total
}
