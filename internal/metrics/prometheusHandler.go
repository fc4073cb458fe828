package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var documentsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "documents_ingested_total",
	Help: "Documents accepted for processing, labelled by source kind",
}, []string{"source_kind"})

var reconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reconcile_records_total",
	Help: "Per-record reconciliation outcomes",
}, []string{"outcome"})

var reconcilePassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "reconcile_pass_duration_seconds",
	Help:    "Wall time of one reconciliation pass.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
})

var activeMonitorSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_monitor_sessions",
	Help: "Number of live client status monitoring sessions",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func CountIngested(sourceKind string) {
	documentsIngested.WithLabelValues(sourceKind).Inc()
}

func CountReconcileOutcome(outcome string) {
	reconcileOutcomes.WithLabelValues(outcome).Inc()
}

func CaptureReconcilePass(elapsed time.Duration) {
	reconcilePassDuration.Observe(elapsed.Seconds())
}

func IncrementMonitorSessions() {
	activeMonitorSessions.Inc()
}

func DecrementMonitorSessions() {
	activeMonitorSessions.Dec()
}
