package inventory

import "github.com/prometheus/client_golang/prometheus"

var RecordsScanned = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "invbot",
	Subsystem: "index",
	Name:      "records_scanned_total",
})

var RecordsRejected = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "invbot",
	Subsystem: "index",
	Name:      "records_rejected_total",
})

var Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "invbot",
	Subsystem: "query",
	Name:      "lookups_total",
}, []string{"result"})

func init() {
	prometheus.MustRegister(RecordsScanned, RecordsRejected, Lookups)
}
