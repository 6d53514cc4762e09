// Package tools defines the Tool contract agents execute against and a
// registry of concrete tool implementations.
package tools

import (
	"context"
	"time"
)

// ToolParameter describes one argument a tool accepts, rendered into both
// the LLM-facing schema and used by the scheduler for type coercion and
// default-injection.
type ToolParameter struct {
	Name        string
	Type        string // "string", "int", "bool", "object"
	Description string
	Required    bool
	Default     interface{}
	Enum        []string
}

// ToolInfo is the catalog entry for a tool: everything needed to describe
// it to an LLM and to a human. Dangerous is advisory: the registry and
// scheduler never block on it, the execution loop's confirmation gate
// does.
type ToolInfo struct {
	Name        string
	Description string
	Parameters  []ToolParameter
	Category    string
	Dangerous   bool
}

// ToolCall is a single invocation request: a tool name plus its
// arguments. ID correlates the call with its ToolResult; callers that
// don't need correlation (most scheduler tests) may leave it empty.
type ToolCall struct {
	ID         string
	Name       string
	Parameters map[string]interface{}
}

// ToolResult is what a tool invocation produces. Output carries the raw
// value (string or map) a tool produced; Content is the string form after
// truncation has been applied by the scheduler. ToolCallID echoes the
// originating ToolCall.ID so callers can correlate a batch of results
// back to their calls.
type ToolResult struct {
	ToolCallID    string
	Success       bool
	Content       string
	Output        interface{}
	Error         string
	ToolName      string
	ExecutionTime time.Duration
	Metadata      map[string]interface{}
}

// Tool is the contract every built-in and control tool implements.
type Tool interface {
	GetInfo() ToolInfo
	Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error)
	GetName() string
	GetDescription() string
}
