package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the gateway's Prometheus series on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	responses *prometheus.CounterVec
	failures  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	backendUp *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "requests_total",
				Help:      "Inbound requests matched to a route.",
			},
			[]string{"route"},
		),
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "responses_total",
				Help:      "Backend responses relayed to callers by status code.",
			},
			[]string{"route", "code"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "upstream_failures_total",
				Help:      "Outbound calls that failed, by failure kind.",
			},
			[]string{"route", "kind"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Name:      "upstream_duration_seconds",
				Help:      "Duration of outbound calls, failed ones included.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		backendUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gateway",
				Name:      "backend_up",
				Help:      "Whether the last health check reached the backend (1) or not (0).",
			},
			[]string{"service"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.responses,
		m.failures,
		m.latency,
		m.backendUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) IncrementRequests(route string) {
	m.requests.WithLabelValues(route).Inc()
}

func (m *Metrics) RecordResponse(route string, duration time.Duration, statusCode int) {
	m.responses.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RecordFailure(route string, duration time.Duration, kind string) {
	m.failures.WithLabelValues(route, kind).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) UpdateHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	m.backendUp.WithLabelValues(service).Set(value)
}

// RegisterInFlight exposes fn as the gateway_upstream_in_flight gauge.
func (m *Metrics) RegisterInFlight(fn func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "gateway",
			Name:      "upstream_in_flight",
			Help:      "Outbound calls currently holding a connection slot.",
		},
		func() float64 { return float64(fn()) },
	))
}

// Registry returns the registry every series is registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
