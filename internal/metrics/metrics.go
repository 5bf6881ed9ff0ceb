// Package metrics defines the Prometheus instrumentation for the SSE
// fan-out pipeline. All collectors are registered on the default registry
// via promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SSE connection metrics
var (
	// SSEActiveConnections tracks currently open event streams on this instance
	SSEActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_active_connections",
			Help: "Currently open SSE connections on this instance",
		},
	)

	// SSEConnectionsTotal tracks accepted subscriptions by project
	SSEConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_connections_total",
			Help: "Total SSE subscriptions accepted",
		},
	)

	// SSEConnectionsRejected tracks subscriptions refused by the per-project cap
	SSEConnectionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_connections_rejected_total",
			Help: "Total SSE subscriptions rejected due to the per-project limit",
		},
	)
)

// Broadcast metrics
var (
	// BroadcastEventsDelivered tracks frames successfully written to sinks
	BroadcastEventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_events_delivered_total",
			Help: "Total event frames delivered to local SSE sinks",
		},
	)

	// BroadcastDeliveryFailures tracks sink writes that failed and evicted the connection
	BroadcastDeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_delivery_failures_total",
			Help: "Total failed sink writes (connection evicted)",
		},
	)

	// BroadcastDuration tracks end-to-end broadcast latency in seconds
	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_duration_seconds",
			Help:    "Broadcast fan-out duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)
)

// Registry metrics
var (
	// RegistryOpsTotal tracks registry operations by operation and status
	RegistryOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_operations_total",
			Help: "Total connection registry operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RegistryOpDuration tracks registry operation latency in seconds
	RegistryOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_operation_duration_seconds",
			Help:    "Connection registry operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RegistryFallbackActive is 1 when the in-memory fallback backend is active
	RegistryFallbackActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_fallback_active",
			Help: "1 when the in-memory registry fallback is active, 0 when Redis is used",
		},
	)

	// RegistrySweepRemovals tracks entries removed by the expiry sweep
	RegistrySweepRemovals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_sweep_removals_total",
			Help: "Total expired registry entries removed by the cleanup sweep",
		},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)
)

// Webhook metrics
var (
	// WebhooksReceivedTotal tracks inbound fragment webhooks by outcome
	WebhooksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Total fragment webhooks received by outcome (accepted/rejected)",
		},
		[]string{"outcome"},
	)
)
