package resourcequery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeFound       = "found"
	outcomeUnavailable = "unavailable"
	outcomeRejected    = "rejected"
	outcomeFailed      = "failed"
)

// Reasons a partition is skipped.
const (
	skipDeleted      = "deleted"
	skipNoNodes      = "no_nodes"
	skipNoProcs      = "no_procs"
	skipNotRequested = "not_requested"
	skipCoAllocation = "co_allocation"
)

var queriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resourcequery_queries_total",
		Help: "Number of resource queries evaluated, split by outcome.",
	},
	[]string{"outcome"},
)

var queryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "resourcequery_query_duration_seconds",
		Help:    "Time taken to evaluate a resource query.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
	},
)

var partitionsSkipped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resourcequery_partitions_skipped_total",
		Help: "Number of partitions skipped by resource queries, split by reason.",
	},
	[]string{"reason"},
)

var slotsReported = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resourcequery_slots_reported_total",
		Help: "Number of slots reported by resource queries, split by partition.",
	},
	[]string{"partition"},
)
