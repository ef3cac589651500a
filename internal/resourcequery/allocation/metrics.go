package allocation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var allocationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resourcequery_allocations_total",
		Help: "Number of node allocations attempted, split by node allocation policy and outcome.",
	},
	[]string{"policy", "outcome"},
)

var nodesSelected = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "resourcequery_allocation_nodes_selected",
		Help:    "Number of nodes selected by successful allocations, split by node allocation policy.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	},
	[]string{"policy"},
)
