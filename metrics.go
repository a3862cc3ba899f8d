package binmeta

import (
	"github.com/drpcorg/binmeta/registry"
	"github.com/prometheus/client_golang/prometheus"
)

var Sessions = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "binmeta",
	Subsystem: "handler",
	Name:      "sessions",
	Help:      "Write sessions started",
})

var FieldsDiscovered = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "binmeta",
	Subsystem: "handler",
	Name:      "fields_discovered",
	Help:      "Fields written that the session origin did not know",
})

var FieldConflicts = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "binmeta",
	Subsystem: "handler",
	Name:      "field_conflicts",
	Help:      "Fields written with a name or type contradicting the known one",
})

// Collectors lists every binmeta metric for prometheus.MustRegister.
func Collectors() []prometheus.Collector {
	return append([]prometheus.Collector{Sessions, FieldsDiscovered, FieldConflicts}, registry.Collectors()...)
}
