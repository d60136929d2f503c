// Package metrics exposes the tracker's prometheus collectors. All recording
// methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prodline"

// Metrics owns the tracker's prometheus registry. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	events  *prometheus.CounterVec
	serials *prometheus.CounterVec
	alerts  *prometheus.CounterVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	constLabels := prometheus.Labels{"service": service}
	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: constLabels,
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request duration in seconds",
				ConstLabels: constLabels,
				Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "events_total",
				Help:        "Stage start/stop events by outcome",
				ConstLabels: constLabels,
			},
			[]string{"kind", "outcome"},
		),
		serials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "serial_associations_total",
				Help:        "Serial association attempts by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "alerts_total",
				Help:        "Alert open/resolve operations by outcome",
				ConstLabels: constLabels,
			},
			[]string{"action", "outcome"},
		),
	}
	registry.MustRegister(m.httpRequests, m.httpDuration, m.events, m.serials, m.alerts)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) EventProcessed(kind, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SerialAssociated(outcome string) {
	if m == nil {
		return
	}
	m.serials.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AlertChanged(action, outcome string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(action, outcome).Inc()
}
