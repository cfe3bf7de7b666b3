package scheduler

import "github.com/prometheus/client_golang/prometheus"

var RefreshRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "invbot",
	Subsystem: "refresh",
	Name:      "runs_total",
}, []string{"trigger", "result"})

var RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "invbot",
	Subsystem: "refresh",
	Name:      "duration_seconds",
	Buckets:   prometheus.DefBuckets,
})

var RefreshInflight = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "invbot",
	Subsystem: "refresh",
	Name:      "inflight",
})

func init() {
	prometheus.MustRegister(RefreshRuns, RefreshDuration, RefreshInflight)
}
