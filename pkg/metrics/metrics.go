// Package metrics provides Prometheus metrics for the live-session
// core. A Metrics value is constructed explicitly and injected, so each
// test can use its own registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chessarena"

// Metrics holds every collector exported by the server.
type Metrics struct {
	registry *prometheus.Registry

	QueueDepth     *prometheus.GaugeVec
	MatchesCreated *prometheus.CounterVec
	ActiveRooms    prometheus.Gauge
	MovesApplied   prometheus.Counter
	GamesCompleted *prometheus.CounterVec
	Connections    prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Metrics{
		registry: registry,

		QueueDepth: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "matchmaking",
			Name:      "queue_depth",
			Help:      "Pending match requests by match type",
		}, []string{"match_type"}),

		MatchesCreated: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matchmaking",
			Name:      "matches_created_total",
			Help:      "Total matches created by match type",
		}, []string{"match_type"}),

		ActiveRooms: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),

		MovesApplied: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "moves_applied_total",
			Help:      "Total moves applied across all rooms",
		}),

		GamesCompleted: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "games_completed_total",
			Help:      "Total games reaching a terminal state, by winning side",
		}, []string{"winner"}),

		Connections: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connections",
			Help:      "Currently registered websocket connections",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
