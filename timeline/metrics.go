package timeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var entriesReconstructed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "timeline_entries_reconstructed_total",
	Help: "The total number of log entries reconstructed, by entry type",
}, []string{"type"})

var commitsSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "timeline_commits_skipped_total",
	Help: "The total number of commits skipped as unprocessable during replay",
})

var listsDiffed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "timeline_list_snapshots_diffed_total",
	Help: "The total number of list snapshot commits diffed against their predecessors",
})
