// Package metrics exposes Prometheus collectors for the storage engine.
// Counters cover the structural operations whose frequency matters for
// tuning (consolidation, block splits); gauges track the live block
// population. Registration happens at init through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Consolidations counts full consolidation passes that actually
	// merged blocks. No-op passes on already consolidated managers are
	// not counted.
	Consolidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "manager",
		Name:      "consolidations_total",
		Help:      "Number of consolidation passes that merged blocks",
	})

	// BlockSplits counts blocks split by incompatible-kind assignment.
	BlockSplits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "manager",
		Name:      "block_splits_total",
		Help:      "Number of blocks split by kind-changing assignment",
	})

	// ColumnInserts counts column insertions.
	ColumnInserts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "manager",
		Name:      "column_inserts_total",
		Help:      "Number of columns inserted",
	})

	// ColumnDeletes counts column deletions.
	ColumnDeletes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "manager",
		Name:      "column_deletes_total",
		Help:      "Number of columns deleted",
	})

	// KernelFallbacks counts block operations that fell back to
	// per-column application after a kernel failure.
	KernelFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "kernel",
		Name:      "column_fallbacks_total",
		Help:      "Number of block operations retried column by column",
	})

	// CopyOnWrite counts payload copies triggered by mutation of shared
	// storage.
	CopyOnWrite = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "buffer",
		Name:      "copy_on_write_total",
		Help:      "Number of payload copies forced by shared-storage mutation",
	})

	// BlocksCreated counts blocks materialized by construction, column
	// insertion, kind-change splits and deep copies. Managers have no
	// deregistration hook, so block lifetime is not tracked; pair this
	// with the consolidation and delete counters to see churn.
	BlocksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "manager",
		Name:      "blocks_created_total",
		Help:      "Number of blocks created by construction, inserts, splits and copies",
	})
)
