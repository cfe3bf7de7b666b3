package flow

import "github.com/prometheus/client_golang/prometheus"

var SessionEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "invbot",
	Subsystem: "flow",
	Name:      "sessions_total",
}, []string{"event"})

func init() {
	prometheus.MustRegister(SessionEvents)
}
