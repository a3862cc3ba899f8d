package registry

import "github.com/prometheus/client_golang/prometheus"

var PublishResults = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "binmeta",
	Subsystem: "registry",
	Name:      "publish_results",
	Help:      "TryPublish outcomes: ok, stale or error",
}, []string{"result"})

var PublishRetries = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "binmeta",
	Subsystem: "registry",
	Name:      "publish_retries",
	Help:      "Merges redone because another session published first",
})

var PublishConflicts = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "binmeta",
	Subsystem: "registry",
	Name:      "publish_conflicts",
	Help:      "Publishes aborted by a conflicting concurrent definition",
})

var PublishAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "binmeta",
	Subsystem: "registry",
	Name:      "publish_attempts",
	Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
})

// Collectors lists the registry metrics for prometheus.MustRegister.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{PublishResults, PublishRetries, PublishConflicts, PublishAttempts}
}
