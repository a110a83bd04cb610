// Package metrics exposes Prometheus collectors for the fleet manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks the number of servers currently connected.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mcp_fleet_connections_active",
		Help: "Number of worker servers currently connected",
	})

	// ConnectAttemptsTotal counts connect attempts by outcome.
	ConnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_fleet_connect_attempts_total",
		Help: "Total connect attempts by outcome",
	}, []string{"server", "outcome"})

	// ToolCallsTotal counts tool invocations by outcome.
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_fleet_tool_calls_total",
		Help: "Total tool calls by outcome",
	}, []string{"server", "outcome"})

	// ToolCallDuration observes tool call latency in seconds.
	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcp_fleet_tool_call_duration_seconds",
		Help:    "Tool call duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
	}, []string{"server"})

	// SchemaFetchesTotal counts remote tool discovery calls (cache misses).
	SchemaFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_fleet_schema_fetches_total",
		Help: "Total remote tool discovery calls",
	}, []string{"server"})
)

// Outcome labels for counters.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
