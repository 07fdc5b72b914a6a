package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	decisionsTotal  *prometheus.CounterVec
	approvedAmount  *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opd",
			Subsystem: "worker",
			Name:      "claim_process_total",
			Help:      "Total processed claims by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opd",
			Subsystem: "worker",
			Name:      "claim_process_duration_seconds",
			Help:      "Claim processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "opd",
			Subsystem: "worker",
			Name:      "claim_process_in_flight",
			Help:      "Number of in-flight claim processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opd",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between claim submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	decisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opd",
			Subsystem: "claims",
			Name:      "decisions_total",
			Help:      "Total adjudication decisions by outcome.",
		},
		[]string{"service", "decision"},
	)
	approvedAmount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opd",
			Subsystem: "claims",
			Name:      "approved_amount",
			Help:      "Distribution of approved amounts per decided claim.",
			Buckets:   []float64{0, 500, 1000, 2000, 5000, 10000, 15000, 25000, 50000},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		queueLag,
		decisionsTotal,
		approvedAmount,
	)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		decisionsTotal:  decisionsTotal,
		approvedAmount:  approvedAmount,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartClaim() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishClaim(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordDecision(service, decision string, approvedAmount float64) {
	if decision == "" {
		decision = "unknown"
	}
	m.decisionsTotal.WithLabelValues(service, decision).Inc()
	m.approvedAmount.WithLabelValues(service).Observe(approvedAmount)
}
