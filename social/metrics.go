package social

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var logCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "social_log_cache_hits_total",
	Help: "Number of GetLogs calls served from the result cache.",
})

var logCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "social_log_cache_misses_total",
	Help: "Number of GetLogs calls that fell through to reconstruction.",
})
