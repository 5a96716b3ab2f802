package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	wsConnections     prometheus.Gauge
	wsSubscriptions   prometheus.Gauge
	telemetryWrites   prometheus.Counter
	dashboardSaves    prometheus.Counter
	commandsForwarded *prometheus.CounterVec
}

// NewMetrics builds and registers the collectors on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_ws_connections",
			Help: "Open telemetry websocket connections.",
		}),
		wsSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_ws_subscriptions",
			Help: "Active telemetry websocket subscriptions.",
		}),
		telemetryWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_telemetry_writes_total",
			Help: "Ingested telemetry write requests.",
		}),
		dashboardSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_saves_total",
			Help: "Persisted dashboard documents.",
		}),
		commandsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_commands_forwarded_total",
			Help: "Device commands forwarded, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.wsConnections,
		m.wsSubscriptions,
		m.telemetryWrites,
		m.dashboardSaves,
		m.commandsForwarded,
	)
	return m
}
