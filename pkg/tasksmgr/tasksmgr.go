// Package tasksmgr implements the linear task-list pipeline a planning
// agent's decomposition feeds into: one specialized agent invocation per
// task, in order, with a rolling execution history carried from each
// step into the next.
package tasksmgr

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/amberloop/orca/pkg/agent"
	"github.com/amberloop/orca/pkg/agentrepo"
	"github.com/amberloop/orca/pkg/execution"
	"github.com/amberloop/orca/pkg/observability"
	"github.com/amberloop/orca/pkg/promptctx"
	"github.com/amberloop/orca/pkg/tools"
)

const (
	// ExecAgentName and DefaultAgentName are the registered-agent names
	// this manager looks up by. The orchestrator registers its default
	// agent roster under these same names.
	ExecAgentName    = "ExecAgent"
	DefaultAgentName = "DefaultAgent"

	// maxStepResponseLen is the response-size ceiling past which a
	// step's output is treated as a context-poisoning failure rather
	// than a legitimate result.
	maxStepResponseLen = 1000
)

// TasksManager iterates the task list a planning agent produced,
// dispatching each task in turn to an ExecAgent (falling back to a
// single DefaultAgent call when the task list is empty), accumulating a
// compact rolling history passed as context to every subsequent step.
type TasksManager struct {
	toolRegistry    *tools.ToolRegistry
	contextManager  *promptctx.ContextManager
	agentFactory    *agent.Factory
	agentRepository agentrepo.AgentRepository
	workingDir      string
}

func New(
	toolRegistry *tools.ToolRegistry,
	contextManager *promptctx.ContextManager,
	agentFactory *agent.Factory,
	agentRepository agentrepo.AgentRepository,
	workingDir string,
) *TasksManager {
	return &TasksManager{
		toolRegistry:    toolRegistry,
		contextManager:  contextManager,
		agentFactory:    agentFactory,
		agentRepository: agentRepository,
		workingDir:      workingDir,
	}
}

// Execute runs the workflow described by analyse/tasks against userPrompt.
// Each entry in tasks is either a string (treated as the objective with a
// generic definition-of-done) or a map with "step"/"expected_outcome"
// keys, matching the planner's JSON task-list schema. An empty tasks list
// falls back to a single direct DefaultAgent call.
func (m *TasksManager) Execute(ctx context.Context, userPrompt, analyse string, tasks []interface{}) (execution.AgentOutput, error) {
	if len(tasks) == 0 {
		return m.executeDirect(ctx, userPrompt)
	}

	var calledAgents []string
	executionContext := ""

	tracer := observability.GetTracer("orca.tasksmgr")
	for i, taskData := range tasks {
		stepNum := i + 1
		objective, outcome := extractTaskData(taskData)
		taskPrompt := buildTaskPrompt(analyse, objective, outcome)

		taskCtx, span := tracer.Start(ctx, observability.SpanTaskExecute,
			trace.WithAttributes(attribute.String(observability.AttrTaskStepID, strconv.Itoa(stepNum))))
		result, activeAgent, err := m.executeTask(taskCtx, taskPrompt, executionContext)
		span.End()
		if err != nil {
			return execution.AgentOutput{}, fmt.Errorf("tasksmgr: step %d: %w", stepNum, err)
		}
		calledAgents = append(calledAgents, activeAgent.Identity().AgentName)

		executionContext = appendStepHistory(executionContext, stepNum, result)

		if result.Halt {
			return successOutput(executionContext, calledAgents), nil
		}

		tooBig := len(result.Response) > maxStepResponseLen
		if !result.Success || tooBig {
			suffix := ""
			if tooBig {
				suffix = "\nresponse is too voluminous"
			}
			return execution.AgentOutput{
				Response: fmt.Sprintf("Execution failed at step %d: %s\n\n%s%s", stepNum, result.Response, executionContext, suffix),
				Success:  false,
				Error:    fmt.Sprintf("task_%d_failed", stepNum),
				Metadata: map[string]interface{}{"called_agents": calledAgents},
			}, nil
		}
	}

	return successOutput(executionContext, calledAgents), nil
}

// executeDirect handles the fallback path: no tasks were decomposed, so
// the user's prompt goes straight to a single DefaultAgent invocation.
func (m *TasksManager) executeDirect(ctx context.Context, userPrompt string) (execution.AgentOutput, error) {
	registered, ok := m.agentRepository.FindByName(DefaultAgentName)
	if !ok {
		return execution.AgentOutput{}, fmt.Errorf("tasksmgr: %s not registered", DefaultAgentName)
	}
	ag, err := m.agentFactory.CreateAgent(registered, false)
	if err != nil {
		return execution.AgentOutput{}, fmt.Errorf("tasksmgr: create %s: %w", DefaultAgentName, err)
	}

	result, err := ag.Run(ctx, userPrompt, "", "")
	if err != nil {
		return execution.AgentOutput{}, err
	}
	result.Metadata = map[string]interface{}{"called_agents": []string{ag.Identity().AgentName}}
	return result, nil
}

// executeTask dispatches one task to a (possibly freshly created)
// ExecAgent, with a system prompt built from the canonical exec-agent
// prompt plus that agent's system-context block (tools/env/tree).
func (m *TasksManager) executeTask(ctx context.Context, task, tasksContext string) (execution.AgentOutput, *agent.Agent, error) {
	registered, ok := m.agentRepository.FindByName(ExecAgentName)
	if !ok {
		return execution.AgentOutput{}, nil, fmt.Errorf("%s not registered", ExecAgentName)
	}
	ag, err := m.agentFactory.CreateAgent(registered, false)
	if err != nil {
		return execution.AgentOutput{}, nil, fmt.Errorf("create %s: %w", ExecAgentName, err)
	}

	builder := promptctx.NewPromptBuilder()
	builder.AddBlock(promptctx.PromptRoleSystem, promptctx.GetPromptByID(promptctx.PromptIDExecAgent))
	systemContext := m.contextManager.GetSystemContext(ag.Capabilities().AuthorizedTools, m.toolRegistry, m.workingDir)
	builder.AddBlock(promptctx.PromptRoleSystem, systemContext)
	systemPrompt := builder.GetPrompt(promptctx.PromptRoleSystem)

	result, err := ag.Run(ctx, task, systemPrompt, tasksContext)
	if err != nil {
		return execution.AgentOutput{}, nil, err
	}
	return result, ag, nil
}

// extractTaskData normalizes one task-list entry into an
// (objective, definition-of-done) pair.
func extractTaskData(taskData interface{}) (objective, outcome string) {
	switch v := taskData.(type) {
	case map[string]interface{}:
		objective, _ = v["step"].(string)
		if objective == "" {
			objective = "Unknown step"
		}
		outcome, _ = v["expected_outcome"].(string)
		if outcome == "" {
			outcome = "Execute successfully"
		}
		return objective, outcome
	case string:
		return v, "Complete the task successfully."
	default:
		return fmt.Sprintf("%v", v), "Complete the task successfully."
	}
}

// buildTaskPrompt assembles the per-task user prompt: global analysis,
// objective, and definition of done.
func buildTaskPrompt(analyse, objective, outcome string) string {
	builder := promptctx.NewPromptBuilder()
	builder.AddBlock(promptctx.PromptRoleUser, fmt.Sprintf("# GLOBAL CONTEXT\n%s", analyse))
	builder.AddBlock(promptctx.PromptRoleUser, fmt.Sprintf("# CURRENT ASSIGNMENT\n## OBJECTIVE\n%s", objective))
	builder.AddBlock(promptctx.PromptRoleUser, fmt.Sprintf("## DEFINITION OF DONE\n%s", outcome))
	return builder.GetPrompt(promptctx.PromptRoleUser)
}

// appendStepHistory appends a compact "### STEP N <response>" record to
// the rolling execution history, keeping the per-step context handed to
// later agents small.
func appendStepHistory(current string, stepNum int, result execution.AgentOutput) string {
	if current == "" {
		current = "\n## EXECUTION HISTORY:"
	}
	return current + fmt.Sprintf("\n### STEP %d %s", stepNum, result.Response)
}

func successOutput(executionContext string, calledAgents []string) execution.AgentOutput {
	return execution.AgentOutput{
		Response: fmt.Sprintf("Workflow completed successfully.\n%s", executionContext),
		Success:  true,
		Metadata: map[string]interface{}{"called_agents": calledAgents},
	}
}
