package execution

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amberloop/orca/pkg/domain"
	"github.com/amberloop/orca/pkg/llm"
	"github.com/amberloop/orca/pkg/observability"
	"github.com/amberloop/orca/pkg/promptctx"
	"github.com/amberloop/orca/pkg/scheduler"
	"github.com/amberloop/orca/pkg/tools"
)

// Control tool names the reasoning loop short-circuits on.
const (
	ToolTaskSuccess    = "task_success"
	ToolTaskError      = "task_error"
	ToolTasksCompleted = "tasks_completed"
)

// Error codes surfaced on AgentOutput.Error.
const (
	ErrEmptyLLMResponse   = "empty_llm_response"
	ErrMaxRetriesExceeded = "max_retries_exceeded"
	ErrUserDenied         = "user_denied"
	ErrToolException      = "tool_exception"
	ErrAgentDeclaredError = "agent_declared_error"
	ErrUserInterrupted    = "user_interrupted"
)

// AgentOutput is the result of one TaskExecution.Run call.
type AgentOutput struct {
	Response string
	Success  bool
	Error    string
	Cmd      string
	Args     map[string]interface{}
	Log      string
	Metadata map[string]interface{}
	// Halt signals tasks_completed: the caller (the tasks manager) should
	// stop the entire workflow, not just this task.
	Halt bool
}

// AgentHandle is the minimal view TaskExecution needs of an agent. It's
// an interface, not a concrete agent type, so this package never imports
// the package that constructs agents: that package imports this one to
// run them, and a cycle would otherwise follow.
type AgentHandle interface {
	Identity() domain.AgentIdentity
	Capabilities() domain.AgentCapabilities
}

// InteractionHandler confirms a dangerous tool call before it runs.
// Returning false denies the call.
type InteractionHandler func(toolName string, args map[string]interface{}) bool

// ConsoleInteractionHandler prompts on stdin/stdout. It's the default
// used when a TaskExecution is built without one, matching an unattended
// embedding's safest option: an operator present at a terminal gets
// asked; one that isn't never silently permits a dangerous call, because
// reading from a closed stdin returns an empty line, which this treats
// as "no".
func ConsoleInteractionHandler(toolName string, args map[string]interface{}) bool {
	fmt.Printf("\n[CONFIRMATION REQUIRED] Agent wants to call '%s' with arguments: %v\n", toolName, args)
	fmt.Print("Allow this action? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

var dangerousBashRegex = regexp.MustCompile(`(?i)(^|[;\s|&])(rm|del|rmdir|mv|rename)(\s+|$)`)

// TaskExecution is the per-agent think-act-observe loop: one LLM call
// and at most one tool call per turn, with a bounded retry against
// malformed-JSON LLM output and a confirmation gate in front of
// dangerous tool calls.
type TaskExecution struct {
	llm                llm.Client
	scheduler          *scheduler.ToolScheduler
	contextManager     *promptctx.ContextManager
	dangerousTools     map[string]struct{}
	interactionHandler InteractionHandler
}

func NewTaskExecution(
	llmClient llm.Client,
	toolScheduler *scheduler.ToolScheduler,
	contextManager *promptctx.ContextManager,
	dangerousTools map[string]struct{},
	interactionHandler InteractionHandler,
) *TaskExecution {
	if interactionHandler == nil {
		interactionHandler = ConsoleInteractionHandler
	}
	return &TaskExecution{
		llm:                llmClient,
		scheduler:          toolScheduler,
		contextManager:     contextManager,
		dangerousTools:     dangerousTools,
		interactionHandler: interactionHandler,
	}
}

// Run executes at most maxRetries+1 LLM/tool turns for one task. Each
// turn is one LLM call; a turn only loops back (consuming a retry) when
// the LLM's reply contains stray braces that failed to parse as JSON.
// Every other outcome (empty response, valid direct text, a tool call,
// whether it succeeds or not) returns immediately.
func (e *TaskExecution) Run(ctx context.Context, agent AgentHandle, systemPrompt, userPrompt string, maxRetries int) AgentOutput {
	identity := agent.Identity()
	capabilities := agent.Capabilities()

	messages := e.contextManager.BuildMessages(identity.AgentID, systemPrompt, capabilities.MaxMemoryTurns)
	if userPrompt != "" {
		messages = append(messages, llm.Message{Role: "user", Content: userPrompt})
	}

	temperature := capabilities.LLMTemperature
	maxTokens := capabilities.LLMMaxTokens
	responseFormat := string(capabilities.LLMResponseFormat)
	if responseFormat == string(domain.ResponseFormatDefault) {
		responseFormat = ""
	}
	llmTimeout := time.Duration(capabilities.LLMTimeoutSeconds) * time.Second

	tracer := observability.GetTracer("orca.execution")
	for attempt := 0; attempt <= maxRetries; attempt++ {
		turnStart := time.Now()
		turnCtx, span := tracer.Start(ctx, observability.SpanAgentTurn,
			trace.WithAttributes(attribute.String(observability.AttrAgentName, identity.AgentName)))

		out, retry := e.runTurn(turnCtx, identity, &messages, temperature, maxTokens, responseFormat, llmTimeout)

		if !retry && !out.Success && out.Error != "" {
			span.SetStatus(codes.Error, out.Error)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		if metrics := observability.GetGlobalMetrics(); metrics != nil {
			metrics.RecordTaskTurn(identity.AgentName, time.Since(turnStart))
		}

		if !retry {
			return out
		}
	}

	return AgentOutput{
		Response: "Failed to generate valid JSON command after exhausting retries.",
		Success:  false,
		Error:    ErrMaxRetriesExceeded,
		Cmd:      "json_error",
	}
}

// runTurn is one think-act turn: one LLM call and, when the reply parses
// to a tool command, one tool dispatch. retry is true only for the
// malformed-JSON case, after the corrective messages have been appended
// for the next attempt. A positive llmTimeout bounds the LLM call only.
func (e *TaskExecution) runTurn(
	ctx context.Context,
	identity domain.AgentIdentity,
	messages *[]llm.Message,
	temperature float64,
	maxTokens int,
	responseFormat string,
	llmTimeout time.Duration,
) (AgentOutput, bool) {
	chatCtx := ctx
	if llmTimeout > 0 {
		var cancel context.CancelFunc
		chatCtx, cancel = context.WithTimeout(ctx, llmTimeout)
		defer cancel()
	}
	response, err := e.llm.Chat(chatCtx, *messages, llm.ChatOptions{
		Temperature:    &temperature,
		MaxTokens:      &maxTokens,
		ResponseFormat: responseFormat,
	})
	if err != nil {
		return AgentOutput{
			Response: fmt.Sprintf("Error: LLM call failed: %v", err),
			Success:  false,
			Error:    ErrEmptyLLMResponse,
			Cmd:      "error",
		}, false
	}

	content := response.Content()
	if strings.TrimSpace(content) == "" {
		return AgentOutput{
			Response: "Error: Empty response from LLM",
			Success:  false,
			Error:    ErrEmptyLLMResponse,
			Cmd:      "error",
		}, false
	}

	cmd, raw, ok := parseToolCommand(content)
	if !ok {
		if strings.Contains(content, "{") && strings.Contains(content, "}") {
			*messages = append(*messages,
				llm.Message{Role: "assistant", Content: content},
				llm.Message{Role: "user", Content: "System Error: Invalid JSON format. Return ONLY raw JSON."},
			)
			return AgentOutput{}, true
		}
		return AgentOutput{
			Response: content,
			Success:  true,
			Cmd:      ToolTaskSuccess,
			Log:      "Direct conversational response, no tool call.",
		}, false
	}

	if cmd.ToolName == "" {
		pretty, _ := json.MarshalIndent(raw, "", "  ")
		return AgentOutput{
			Response: string(pretty),
			Success:  true,
			Cmd:      ToolTaskSuccess,
			Log:      "Structured JSON response with no tool_name (treated as final data).",
		}, false
	}

	if e.isDangerous(cmd.ToolName, cmd.Arguments) {
		if !e.interactionHandler(cmd.ToolName, cmd.Arguments) {
			return AgentOutput{
				Response: fmt.Sprintf("Action '%s' denied by user.", cmd.ToolName),
				Success:  false,
				Error:    ErrUserDenied,
				Cmd:      cmd.ToolName,
				Args:     cmd.Arguments,
			}, false
		}
	}

	toolCall := tools.ToolCall{
		ID:         fmt.Sprintf("%s-%s", cmd.ToolName, identity.AgentID),
		Name:       cmd.ToolName,
		Parameters: cmd.Arguments,
	}
	results := e.scheduler.ExecuteTools(ctx, []tools.ToolCall{toolCall})
	return e.toAgentOutput(cmd, results[0]), false
}

// isDangerous: a tool named in dangerousTools is always gated, and
// execute_command/bash additionally gate on the shell-metacharacter-aware
// regex even for a caller that left them out of dangerousTools.
func (e *TaskExecution) isDangerous(toolName string, args map[string]interface{}) bool {
	if _, ok := e.dangerousTools[toolName]; ok {
		return true
	}
	if toolName == "execute_command" || toolName == "bash" {
		if cmdStr, ok := args["command"].(string); ok && dangerousBashRegex.MatchString(cmdStr) {
			return true
		}
	}
	return false
}

// toAgentOutput turns a ToolResult into an AgentOutput, special-casing
// the three control tools (whose Output carries a status/message or
// status/error_message pair, see pkg/tools/builtin/control.go) and
// tagging a scheduler-level execution failure as a tool_exception.
func (e *TaskExecution) toAgentOutput(cmd ToolCommand, result tools.ToolResult) AgentOutput {
	businessSuccess := result.Success
	var outputMap map[string]interface{}
	if m, isMap := result.Output.(map[string]interface{}); isMap {
		outputMap = m
		if v, ok := m["success"].(bool); ok {
			businessSuccess = v
		}
	}

	switch cmd.ToolName {
	case ToolTaskSuccess:
		message := stringField(outputMap, "message", result.Content, "Task completed successfully.")
		return AgentOutput{
			Response: message,
			Success:  true,
			Cmd:      ToolTaskSuccess,
			Args:     cmd.Arguments,
			Log:      "Objective reached via tool execution.",
		}

	case ToolTaskError:
		errMsg := stringField(outputMap, "error_message", result.Error, "Task failed as declared by the agent.")
		return AgentOutput{
			Response: errMsg,
			Success:  false,
			Error:    ErrAgentDeclaredError,
			Cmd:      ToolTaskError,
			Args:     cmd.Arguments,
			Log:      fmt.Sprintf("Agent declared task error: %s", errMsg),
		}

	case ToolTasksCompleted:
		message := stringField(outputMap, "message", result.Content, "All tasks completed successfully.")
		return AgentOutput{
			Response: message,
			Success:  true,
			Cmd:      ToolTasksCompleted,
			Args:     cmd.Arguments,
			Halt:     true,
			Log:      "Entire workflow objective reached.",
		}
	}

	if !result.Success && strings.Contains(result.Error, "System Error executing") {
		return AgentOutput{
			Response: fmt.Sprintf("Internal Tool Error: %s", result.Error),
			Success:  false,
			Error:    ErrToolException,
			Cmd:      cmd.ToolName,
			Args:     cmd.Arguments,
		}
	}

	response := result.Content
	if response == "" && result.Output != nil {
		response = fmt.Sprintf("%v", result.Output)
	}

	return AgentOutput{
		Response: response,
		Success:  businessSuccess,
		Error:    result.Error,
		Cmd:      cmd.ToolName,
		Args:     cmd.Arguments,
		Log:      fmt.Sprintf("Tool %s executed. Success: %v", cmd.ToolName, businessSuccess),
	}
}

func stringField(m map[string]interface{}, key, fallback, defaultValue string) string {
	if m != nil {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	if fallback != "" {
		return fallback
	}
	return defaultValue
}
