// Package scheduler executes the tool calls an agent's reasoning turn
// produces: validating and coercing arguments against each tool's
// parameter metadata, running the tool, truncating oversized string
// output, and recording an otel span plus Prometheus metrics per call.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amberloop/orca/pkg/observability"
	"github.com/amberloop/orca/pkg/tools"
)

// MaxOutputLen is the truncation boundary applied to string tool output,
// to keep a single tool call from saturating an agent's context window.
const MaxOutputLen = 4000

// ToolScheduler executes tool calls against a tools.ToolRegistry.
type ToolScheduler struct {
	registry *tools.ToolRegistry
}

func NewToolScheduler(registry *tools.ToolRegistry) *ToolScheduler {
	return &ToolScheduler{registry: registry}
}

// ExecuteTools runs each call in order, never letting one call's failure
// stop the rest: execution continues and each result records its own
// success/failure. This mirrors the agent's single-tool-per-turn loop,
// which typically sends exactly one call at a time, but the scheduler
// accepts a batch for callers (like tests) that want to run several.
func (s *ToolScheduler) ExecuteTools(ctx context.Context, calls []tools.ToolCall) []tools.ToolResult {
	results := make([]tools.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, s.executeOne(ctx, call))
	}
	return results
}

func (s *ToolScheduler) executeOne(ctx context.Context, call tools.ToolCall) tools.ToolResult {
	start := time.Now()

	tracer := observability.GetTracer("orca.scheduler")
	ctx, span := tracer.Start(ctx, observability.SpanToolExec,
		trace.WithAttributes(attribute.String(observability.AttrToolName, call.Name)))
	defer span.End()

	result := s.runTool(ctx, call)
	result.ExecutionTime = time.Since(start)
	result.ToolCallID = call.ID

	if !result.Success {
		span.RecordError(fmt.Errorf("%s", result.Error))
		span.SetStatus(codes.Error, result.Error)
	} else {
		span.SetStatus(codes.Ok, "success")
	}

	var recordErr error
	if !result.Success {
		recordErr = fmt.Errorf("%s", result.Error)
	}
	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordToolExecution(ctx, call.Name, result.ExecutionTime, recordErr)
	}

	return result
}

func (s *ToolScheduler) runTool(ctx context.Context, call tools.ToolCall) tools.ToolResult {
	tool, err := s.registry.GetTool(call.Name)
	if err != nil {
		return tools.ToolResult{
			Success:  false,
			Error:    fmt.Sprintf("Tool Error: %v", err),
			ToolName: call.Name,
		}
	}

	validated, err := coerceArgs(call.Parameters, tool.GetInfo().Parameters)
	if err != nil {
		return tools.ToolResult{
			Success:  false,
			Error:    fmt.Sprintf("Argument Error: %v", err),
			ToolName: call.Name,
		}
	}

	result, execErr := runWithRecover(ctx, tool, validated)
	if execErr != nil {
		// A tool that built its own failed result (a nonzero exit, a
		// missing file) keeps it: the output is what the LLM needs to
		// see. The wrap below is only for a panic or a tool that bailed
		// without producing a result at all.
		if result.ToolName == "" && result.Error == "" && result.Content == "" {
			return tools.ToolResult{
				Success:  false,
				Error:    fmt.Sprintf("System Error executing '%s': %v", call.Name, execErr),
				ToolName: call.Name,
			}
		}
		result.Success = false
		if result.Error == "" {
			result.Error = execErr.Error()
		}
	}

	result.ToolName = call.Name
	if len(result.Content) > MaxOutputLen {
		result.Content = result.Content[:MaxOutputLen] +
			fmt.Sprintf("\n... [Output truncated. Total length: %d chars]", len(result.Content))
	}
	return result
}

// runWithRecover insulates the scheduler from a tool implementation that
// panics instead of returning an error, so one bad tool can't take down a
// whole task execution.
func runWithRecover(ctx context.Context, tool tools.Tool, args map[string]interface{}) (result tools.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Execute(ctx, args)
}

// coerceArgs validates raw arguments against a tool's declared parameters:
// digit-only strings become ints, "true"/"false" strings become bools,
// undocumented arguments are dropped, and missing required arguments
// either receive their declared default or fail validation.
func coerceArgs(raw map[string]interface{}, params []tools.ToolParameter) (map[string]interface{}, error) {
	paramByName := make(map[string]tools.ToolParameter, len(params))
	for _, p := range params {
		paramByName[p.Name] = p
	}

	validated := make(map[string]interface{}, len(raw))
	for key, value := range raw {
		param, known := paramByName[key]
		if !known {
			continue
		}
		validated[key] = coerceValue(value, param.Type)
	}

	for _, param := range params {
		if _, present := validated[param.Name]; present {
			continue
		}
		if param.Required {
			if param.Default != nil {
				validated[param.Name] = param.Default
			} else {
				return nil, fmt.Errorf("missing required argument: '%s'", param.Name)
			}
		} else if param.Default != nil {
			validated[param.Name] = param.Default
		}
	}

	return validated, nil
}

func coerceValue(value interface{}, expectedType string) interface{} {
	str, isString := value.(string)
	if !isString {
		return value
	}
	switch expectedType {
	case "int":
		if isDigits(str) {
			if n, err := strconv.Atoi(str); err == nil {
				return n
			}
		}
	case "bool":
		switch strings.ToLower(str) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return value
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
