package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelgate_requests_total",
		Help: "Resource requests by terminal outcome",
	}, []string{"resource", "action", "outcome"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panelgate_latency_seconds",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	Throttled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelgate_ratelimit_throttled_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"scope"})

	AuditSinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelgate_audit_sink_errors_total",
		Help: "Audit records a sink failed to persist",
	}, []string{"sink"})
)
