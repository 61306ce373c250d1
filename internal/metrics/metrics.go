// Package metrics holds Prometheus instruments used across the frontend.
// All collectors are registered with the global registry, so importing this
// package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BackendRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Latency of calls to the recipe API by endpoint and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "status"})

	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Route gate outcomes by decision.",
		}, []string{"decision"})

	AuthEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Authentication operations by operation and outcome.",
		}, []string{"op", "outcome"})

	QueryCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_lookups_total",
			Help: "Query cache lookups by result (hit, miss, shared).",
		}, []string{"result"})

	IdempotentReplaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotent_replays_total",
			Help: "Duplicate form submissions answered from a recorded result.",
		})

	CheckoutTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_transitions_total",
			Help: "Checkout state machine transitions by target state.",
		}, []string{"state"})

	RealtimeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Open notification websockets.",
		})

	RealtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Payment events published to the hub by status.",
		}, []string{"status"})

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ratelimited_requests_total",
			Help: "Requests rejected by the per-IP limiter.",
		})
)

func init() {
	prometheus.MustRegister(
		BackendRequestSeconds,
		GateDecisionsTotal,
		AuthEventsTotal,
		QueryCacheLookupsTotal,
		IdempotentReplaysTotal,
		CheckoutTransitionsTotal,
		RealtimeConnections,
		RealtimeEventsTotal,
		RateLimitedTotal,
	)
}
