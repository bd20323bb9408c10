package feedindex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var refreshesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feedindex_refreshes_processed_total",
	Help: "The total number of repository refreshes processed",
}, []string{"status"})

var entriesIndexed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "feedindex_entries_indexed_total",
	Help: "The total number of log entries written to the index",
})
