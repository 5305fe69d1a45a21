package writer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch outcomes recorded in progsnap2_batches_total.
const (
	outcomeCommitted  = "committed"
	outcomeRolledBack = "rolled_back"
	outcomeAborted    = "aborted"
	outcomeFailed     = "failed"
)

var (
	// batchesTotal counts batches by outcome
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progsnap2_batches_total",
		Help: "Batches written, by outcome",
	}, []string{"outcome"})

	// eventsInserted counts MainTable rows committed
	eventsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "progsnap2_events_inserted_total",
		Help: "MainTable rows committed",
	})

	// codestatesResolved counts CodeStates handed to the CodeState store
	codestatesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progsnap2_codestates_resolved_total",
		Help: "CodeStates stored, by id mode",
	}, []string{"mode"})

	// batchWarnings counts warnings reported in batch results
	batchWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "progsnap2_batch_warnings_total",
		Help: "Warnings reported by batch writes",
	})
)
