// Package metrics provides Prometheus instrumentation for the signaling
// server. It exposes gauges for connection, queue, and session counts, plus
// counters for matches, relayed payloads, reports, and ejections.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairwire_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// WaitingTotal tracks how many participants currently sit on waiting queues.
	WaitingTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairwire_waiting_total",
		Help: "Current number of participants on waiting queues",
	})

	// ActiveSessions tracks the current number of active sessions.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairwire_active_sessions",
		Help: "Current number of active signaling sessions",
	})

	// MatchesTotal counts successful pairings.
	MatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairwire_matches_total",
		Help: "Total number of successful pairings",
	})

	// RelayedTotal counts forwarded payloads, labeled by kind: "signal" or "text".
	RelayedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairwire_relayed_total",
		Help: "Total number of relayed payloads",
	}, []string{"kind"})

	// ReportsTotal counts abuse reports accepted into scoring.
	ReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairwire_reports_total",
		Help: "Total number of abuse reports scored",
	})

	// EjectionsTotal counts participants force-disconnected for abuse.
	EjectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairwire_ejections_total",
		Help: "Total number of participants ejected for abuse",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		WaitingTotal,
		ActiveSessions,
		MatchesTotal,
		RelayedTotal,
		ReportsTotal,
		EjectionsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
