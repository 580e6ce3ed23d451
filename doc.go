// Package tabular is a block-based two-dimensional columnar storage engine.
//
// A logical table is presented as a uniform 2D grid addressed by row and
// column labels, while columns are physically stored in contiguous,
// homogeneously-typed buffers grouped into blocks. Column insertion,
// deletion, slicing and reindexing manipulate block placement rather than
// data, so they stay cheap regardless of table size. Aliasing between
// tables is tracked explicitly and resolved with copy-on-write before any
// in-place mutation.
//
// The packages layer bottom-up: pkg/buffer owns typed payloads, pkg/block
// pairs a payload with the column positions it supplies, pkg/manager owns
// the block collection and both axes, and pkg/frame is the user-facing
// table facade. pkg/interchange bridges to CSV, Arrow, JSON and compressed
// binary snapshots.
package tabular
