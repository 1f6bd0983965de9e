// Package metrics exposes Prometheus collectors for the data service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// Metrics groups the service collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	authTotal      *prometheus.CounterVec
	mutationTotal  *prometheus.CounterVec
	listeners      prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "efarina",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "efarina",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "efarina",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Authentication attempts by action and result",
		}, []string{"action", "result"}),
		mutationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "efarina",
			Subsystem: "tables",
			Name:      "mutations_total",
			Help:      "Collection writes by collection, operation and result",
		}, []string{"collection", "op", "result"}),
		listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "efarina",
			Subsystem: "realtime",
			Name:      "listeners",
			Help:      "Open session-event streams",
		}),
	}

	collectors := []prometheus.Collector{m.requestTotal, m.requestLatency, m.authTotal, m.mutationTotal, m.listeners}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				m.adopt(collector, are.ExistingCollector)
			}
		}
	}
	return m
}

func (m *Metrics) adopt(mine, existing prometheus.Collector) {
	switch v := existing.(type) {
	case *prometheus.CounterVec:
		switch mine {
		case m.requestTotal:
			m.requestTotal = v
		case m.authTotal:
			m.authTotal = v
		case m.mutationTotal:
			m.mutationTotal = v
		}
	case *prometheus.HistogramVec:
		m.requestLatency = v
	case prometheus.Gauge:
		m.listeners = v
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(d.Seconds())
}

// Auth counts an authentication action such as signin or refresh.
func (m *Metrics) Auth(action string, err error) {
	m.authTotal.WithLabelValues(action, result(err)).Inc()
}

func (m *Metrics) Mutation(collection, op string, err error) {
	m.mutationTotal.WithLabelValues(collection, op, result(err)).Inc()
}

func (m *Metrics) ListenerOpened() { m.listeners.Inc() }

func (m *Metrics) ListenerClosed() { m.listeners.Dec() }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
