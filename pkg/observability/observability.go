// Package observability wires a global tracer and a Prometheus metrics
// registry used across the scheduler, task execution, and orchestrator
// packages.
package observability

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	AttrToolName    = "tool.name"
	AttrAgentName   = "agent.name"
	AttrTaskStepID  = "task.step_id"
	AttrErrorType   = "error.type"
	SpanToolExec    = "orca.tool_execution"
	SpanAgentTurn   = "orca.agent_turn"
	SpanTaskExecute = "orca.task_execute"

	DefaultServiceName = "orca"
)

// TracerConfig controls whether a real sampling tracer provider is
// installed or whether tracing calls become no-ops.
type TracerConfig struct {
	Enabled      bool
	SamplingRate float64
	ServiceName  string
}

var tracerProvider trace.TracerProvider = noop.NewTracerProvider()

// InitTracerProvider installs the process-wide tracer provider. No OTLP
// exporter is wired: nothing ships spans to a collector yet, so an
// in-process sampling provider with no exporter is enough.
func InitTracerProvider(_ context.Context, cfg TracerConfig) trace.TracerProvider {
	if !cfg.Enabled {
		tracerProvider = noop.NewTracerProvider()
		return tracerProvider
	}

	rate := cfg.SamplingRate
	if rate <= 0 {
		rate = 1.0
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(rate)),
	)
	tracerProvider = tp
	return tp
}

// GetTracer returns a named tracer from the installed provider.
func GetTracer(name string) trace.Tracer {
	return tracerProvider.Tracer(name)
}
