// Package metrics exposes Prometheus counters for HTTP traffic, membership
// transitions and realtime delivery.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service reports. A nil *Metrics is valid
// and records nothing, which keeps handler tests free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	Requests            *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	Transitions         *prometheus.CounterVec
	MessagesSent        prometheus.Counter
	RealtimeConnections prometheus.Gauge
	RealtimeDropped     prometheus.Counter
}

// New builds the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hearth_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hearth_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hearth_membership_transitions_total",
				Help: "Group membership transitions by operation and outcome code",
			},
			[]string{"operation", "outcome"},
		),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearth_messages_sent_total",
			Help: "Total number of direct messages persisted",
		}),
		RealtimeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hearth_realtime_connections",
			Help: "Open WebSocket connections on this instance",
		}),
		RealtimeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearth_realtime_dropped_events_total",
			Help: "Events dropped because a connection's send buffer was full",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.RequestDuration,
		m.Transitions,
		m.MessagesSent,
		m.RealtimeConnections,
		m.RealtimeDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern, so /groups/{id} is one
// series no matter how many groups exist.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Transition records one membership operation and its outcome
// ("ok" or the error code).
func (m *Metrics) Transition(operation, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(operation, outcome).Inc()
}

// MessageSent increments the persisted-message counter.
func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.MessagesSent.Inc()
}

// ConnectionOpened and ConnectionClosed track live sockets.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.RealtimeConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.RealtimeConnections.Dec()
}

// EventDropped counts an event discarded on a full send buffer.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.RealtimeDropped.Inc()
}
