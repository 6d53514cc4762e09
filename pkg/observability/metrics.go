package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the small set of Prometheus series this system needs:
// tool execution counts/latency and per-task turn counts. The only
// externally observable loops here are tool scheduling and reasoning
// turns, so that's the whole surface.
type Metrics struct {
	registry *prometheus.Registry

	toolExecutions    *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	toolErrors        *prometheus.CounterVec
	taskTurns         *prometheus.CounterVec
	taskTurnsDuration *prometheus.HistogramVec
}

var globalMetrics *Metrics

// NewMetrics builds a Metrics instance under its own registry; namespace
// prefixes every series (e.g. "orca").
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "orca"
	}
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.toolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "executions_total",
			Help:      "Total number of tool executions by tool name and outcome.",
		},
		[]string{"tool_name", "success"},
	)
	m.toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "execution_duration_seconds",
			Help:      "Tool execution duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"tool_name"},
	)
	m.toolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "errors_total",
			Help:      "Total number of tool execution errors by tool name and error type.",
		},
		[]string{"tool_name", "error_type"},
	)
	m.taskTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "turns_total",
			Help:      "Total number of reasoning turns consumed across task executions.",
		},
		[]string{"agent_name"},
	)
	m.taskTurnsDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "turn_duration_seconds",
			Help:      "Duration of a single reasoning turn in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"agent_name"},
	)

	m.registry.MustRegister(m.toolExecutions, m.toolDuration, m.toolErrors, m.taskTurns, m.taskTurnsDuration)
	return m
}

// InitGlobalMetrics installs m as the process-wide metrics instance used
// by callers that don't carry a *Metrics reference of their own.
func InitGlobalMetrics(m *Metrics) { globalMetrics = m }

// GetGlobalMetrics returns the installed global metrics, or nil if none
// was installed (callers must treat nil as "metrics disabled").
func GetGlobalMetrics() *Metrics { return globalMetrics }

// RecordToolExecution records one tool invocation's outcome and latency.
func (m *Metrics) RecordToolExecution(_ context.Context, toolName string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	success := "true"
	if err != nil {
		success = "false"
		m.toolErrors.WithLabelValues(toolName, errorType(err)).Inc()
	}
	m.toolExecutions.WithLabelValues(toolName, success).Inc()
	m.toolDuration.WithLabelValues(toolName).Observe(duration.Seconds())
}

// RecordTaskTurn records one reasoning turn for an agent.
func (m *Metrics) RecordTaskTurn(agentName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskTurns.WithLabelValues(agentName).Inc()
	m.taskTurnsDuration.WithLabelValues(agentName).Observe(duration.Seconds())
}

// Handler exposes the metrics registry over HTTP in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func errorType(err error) string {
	if err == nil {
		return ""
	}
	return "error"
}
