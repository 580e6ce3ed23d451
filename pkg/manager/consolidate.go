package manager

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabular/pkg/block"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/metrics"
)

// checkShape verifies the structural invariants: every block spans the
// row axis, and block placements partition the column axis with no gap
// and no overlap.
func (m *BlockManager) checkShape() error {
	n := m.colIndex.Len()
	seen := make([]bool, n)
	covered := 0
	for _, blk := range m.blocks {
		if blk.Rows() != m.rowIndex.Len() {
			return errors.Newf(errors.ErrorTypeStructural,
				"block spans %d rows, axis has %d", blk.Rows(), m.rowIndex.Len())
		}
		for _, pos := range blk.Placement() {
			if pos < 0 || pos >= n {
				return errors.OutOfRange(pos, n)
			}
			if seen[pos] {
				return errors.Newf(errors.ErrorTypeStructural,
					"column %d claimed by two blocks", pos)
			}
			seen[pos] = true
			covered++
		}
	}
	if covered != n {
		return errors.Newf(errors.ErrorTypeStructural,
			"blocks cover %d of %d columns", covered, n)
	}
	return nil
}

func (m *BlockManager) isConsolidatedNow() bool {
	seen := map[dtype.Kind]bool{}
	for _, blk := range m.blocks {
		if seen[blk.Kind()] {
			return false
		}
		seen[blk.Kind()] = true
	}
	return true
}

// Consolidate merges same-kind blocks into one block per kind with
// placement-sorted columns. Already consolidated managers return
// immediately, so repeated calls are free.
func (m *BlockManager) Consolidate() error {
	if m.consolidated {
		return nil
	}
	byKind := map[dtype.Kind][]*block.Block{}
	var order []dtype.Kind
	for _, blk := range m.blocks {
		if _, ok := byKind[blk.Kind()]; !ok {
			order = append(order, blk.Kind())
		}
		byKind[blk.Kind()] = append(byKind[blk.Kind()], blk)
	}

	merged := false
	out := make([]*block.Block, 0, len(order))
	for _, k := range order {
		group := byKind[k]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		nb, err := block.Merge(group)
		if err != nil {
			return err
		}
		out = append(out, nb)
		merged = true
	}

	before := len(m.blocks)
	m.blocks = out
	m.consolidated = true
	m.invalidate()
	if merged {
		metrics.Consolidations.Inc()
		m.log.Debug("consolidated blocks",
			zap.Int("before", before), zap.Int("after", len(out)))
	}
	return nil
}

// BlockInfo describes one block for layout introspection.
type BlockInfo struct {
	Kind      string `json:"kind"`
	Placement []int  `json:"placement"`
	Rows      int    `json:"rows"`
	Shared    bool   `json:"shared"`
}

// BlockLayout reports the physical layout without exposing the blocks
// themselves. Diagnostics and the CLI inspect command build on this.
func (m *BlockManager) BlockLayout() []BlockInfo {
	out := make([]BlockInfo, len(m.blocks))
	for i, blk := range m.blocks {
		out[i] = BlockInfo{
			Kind:      blk.Kind().String(),
			Placement: blk.Placement(),
			Rows:      blk.Rows(),
			Shared:    blk.IsShared(),
		}
	}
	return out
}
