package state

import (
	"context"
	"fmt"

	"github.com/amberloop/orca/pkg/agent"
	"github.com/amberloop/orca/pkg/agentrepo"
	"github.com/amberloop/orca/pkg/execution"
	"github.com/amberloop/orca/pkg/promptctx"
	"github.com/amberloop/orca/pkg/tools"
)

// Registered-agent names the Executor dispatches to.
const (
	TodoListAgentName = "TodoListAgent"
	execAgentName     = "ExecAgent"
	defaultAgentName  = "DefaultAgent"
)

// DefaultMaxIterations bounds an Executor.Execute run when the caller
// doesn't supply its own ceiling.
const DefaultMaxIterations = 50

// Error codes Execute can surface on AgentOutput.Error, beyond the ones
// execution.TaskExecution and tasksmgr.TasksManager already define.
const (
	ErrMaxIterationsReached = "max_iterations_reached"
	ErrDependencyNotMet     = "dependency_not_met"
	ErrIncompleteWorkflow   = "incomplete_workflow"
)

// Executor drives a Manager's dynamic todolist to completion: generate
// the list via a TodoListAgent call, then loop GetNextStep/
// UpdateFromResult against an ExecAgent until the list is complete, a
// step fails, no runnable step remains, or maxIterations is exhausted.
// This is the alternative to tasksmgr.TasksManager's fixed linear plan:
// here the list can mutate itself mid-run via the todo_update sentinel
// a step's own response may embed (see Manager.UpdateFromResult).
type Executor struct {
	toolRegistry    *tools.ToolRegistry
	contextManager  *promptctx.ContextManager
	agentFactory    *agent.Factory
	agentRepository agentrepo.AgentRepository
	workingDir      string
}

func NewExecutor(
	toolRegistry *tools.ToolRegistry,
	contextManager *promptctx.ContextManager,
	agentFactory *agent.Factory,
	agentRepository agentrepo.AgentRepository,
	workingDir string,
) *Executor {
	return &Executor{
		toolRegistry:    toolRegistry,
		contextManager:  contextManager,
		agentFactory:    agentFactory,
		agentRepository: agentRepository,
		workingDir:      workingDir,
	}
}

// Execute runs the autonomous todolist workflow for userInput, with
// tasksContext as any carried-over conversation context. maxIterations
// bounds the loop; a value <= 0 uses DefaultMaxIterations. When the
// todolist agent fails to produce a
// usable todolist at all, Execute falls back to a single direct
// DefaultAgent call, matching tasksmgr.TasksManager's own fallback for
// an empty task list.
func (e *Executor) Execute(ctx context.Context, userInput, tasksContext string, maxIterations int) (execution.AgentOutput, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	todoAgent, err := e.createAgent(TodoListAgentName)
	if err != nil {
		return execution.AgentOutput{}, err
	}

	manager := NewManager()
	systemPrompt := e.systemPromptFor(promptctx.PromptIDTodoList, todoAgent)
	if !manager.InitTodoList(&agentRunnerAdapter{ctx: ctx, agent: todoAgent}, systemPrompt, userInput, tasksContext) {
		return e.executeDirect(ctx, userInput)
	}

	var calledAgents []string
	iteration := 0
	for !manager.IsComplete() && iteration < maxIterations {
		iteration++

		step, ok := manager.GetNextStep()
		if !ok {
			return e.abortUnmet(manager, calledAgents), nil
		}

		result, execAgent, err := e.executeStep(ctx, step)
		if err != nil {
			return execution.AgentOutput{}, err
		}
		calledAgents = append(calledAgents, execAgent.Identity().AgentName)

		if !result.Success {
			return execution.AgentOutput{
				Response: fmt.Sprintf("Execution failed at step %s: %s", step.StepID, result.Response),
				Success:  false,
				Error:    fmt.Sprintf("step_%s_failed", step.StepID),
				Metadata: map[string]interface{}{"called_agents": calledAgents},
			}, nil
		}

		manager.UpdateFromResult(step.StepID, result.Response)
	}

	if !manager.IsComplete() && iteration >= maxIterations {
		return execution.AgentOutput{
			Response: fmt.Sprintf("Max iterations (%d) reached without completion", maxIterations),
			Success:  false,
			Error:    ErrMaxIterationsReached,
			Metadata: map[string]interface{}{"called_agents": calledAgents},
		}, nil
	}

	if !manager.IsComplete() {
		return execution.AgentOutput{
			Response: "Workflow ended without completion",
			Success:  false,
			Error:    ErrIncompleteWorkflow,
			Metadata: map[string]interface{}{"called_agents": calledAgents},
		}, nil
	}

	return execution.AgentOutput{
		Response: "Workflow ended with success",
		Success:  true,
		Metadata: map[string]interface{}{"called_agents": calledAgents},
	}, nil
}

// abortUnmet distinguishes the genuinely-stuck case GetNextStep(false)
// signals mid-loop: a pending step remains in the list, but every such
// step is blocked on a depends_on that never made it into the completed
// set. That's dependency_not_met, not the generic incomplete_workflow
// that covers a todolist reaching this point some other way.
func (e *Executor) abortUnmet(manager *Manager, calledAgents []string) execution.AgentOutput {
	blocked := false
	for _, step := range manager.GetTodoList() {
		if step.Status == StatusPending {
			blocked = true
			break
		}
	}
	if blocked {
		return execution.AgentOutput{
			Response: "Workflow aborted: a pending step's dependency was never satisfied",
			Success:  false,
			Error:    ErrDependencyNotMet,
			Metadata: map[string]interface{}{"called_agents": calledAgents},
		}
	}
	return execution.AgentOutput{
		Response: "Workflow ended without completion",
		Success:  false,
		Error:    ErrIncompleteWorkflow,
		Metadata: map[string]interface{}{"called_agents": calledAgents},
	}
}

// executeDirect handles the fallback path: the todolist agent's
// response never parsed into a usable todolist, so userInput goes
// straight to a single DefaultAgent invocation.
func (e *Executor) executeDirect(ctx context.Context, userInput string) (execution.AgentOutput, error) {
	ag, err := e.createAgent(defaultAgentName)
	if err != nil {
		return execution.AgentOutput{}, err
	}
	result, err := ag.Run(ctx, userInput, "", "")
	if err != nil {
		return execution.AgentOutput{}, err
	}
	result.Metadata = map[string]interface{}{"called_agents": []string{ag.Identity().AgentName}}
	return result, nil
}

// executeStep dispatches one todolist step to an ExecAgent, the same
// specialized-executor role tasksmgr.TasksManager uses for its own
// per-task dispatch.
func (e *Executor) executeStep(ctx context.Context, step Step) (execution.AgentOutput, *agent.Agent, error) {
	ag, err := e.createAgent(execAgentName)
	if err != nil {
		return execution.AgentOutput{}, nil, err
	}

	systemPrompt := e.systemPromptFor(promptctx.PromptIDExecAgent, ag)
	result, err := ag.Run(ctx, step.Description, systemPrompt, "")
	if err != nil {
		return execution.AgentOutput{}, nil, err
	}
	return result, ag, nil
}

// systemPromptFor assembles the canonical prompt named by id plus the
// running agent's own tools/env/tree system-context block.
func (e *Executor) systemPromptFor(id promptctx.PromptID, ag *agent.Agent) string {
	builder := promptctx.NewPromptBuilder()
	builder.AddBlock(promptctx.PromptRoleSystem, promptctx.GetPromptByID(id))
	builder.AddBlock(promptctx.PromptRoleSystem, e.contextManager.GetSystemContext(ag.Capabilities().AuthorizedTools, e.toolRegistry, e.workingDir))
	return builder.GetPrompt(promptctx.PromptRoleSystem)
}

func (e *Executor) createAgent(name string) (*agent.Agent, error) {
	registered, ok := e.agentRepository.FindByName(name)
	if !ok {
		return nil, fmt.Errorf("state: %s not registered", name)
	}
	ag, err := e.agentFactory.CreateAgent(registered, false)
	if err != nil {
		return nil, fmt.Errorf("state: create %s: %w", name, err)
	}
	return ag, nil
}

// agentRunnerAdapter binds an *agent.Agent and a context together to
// satisfy the AgentRunner interface Manager.InitTodoList expects: one
// LLM/tool turn given a system and user prompt.
type agentRunnerAdapter struct {
	ctx   context.Context
	agent *agent.Agent
}

func (a *agentRunnerAdapter) Run(systemPrompt, userPrompt string) (string, bool) {
	result, err := a.agent.Run(a.ctx, userPrompt, systemPrompt, "")
	if err != nil {
		return "", false
	}
	return result.Response, result.Success
}
