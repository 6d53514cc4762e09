// Package orchestrator wires every other package into the single entry
// point a CLI (or any other caller) drives: it bootstraps the tool
// registry, the default agent roster, and the tasks manager, then
// exposes ProcessUserInput as the one call that turns a user's prompt
// into a finished AgentOutput.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/amberloop/orca/pkg/agent"
	"github.com/amberloop/orca/pkg/agentrepo"
	"github.com/amberloop/orca/pkg/domain"
	"github.com/amberloop/orca/pkg/execution"
	"github.com/amberloop/orca/pkg/llm"
	"github.com/amberloop/orca/pkg/memory"
	"github.com/amberloop/orca/pkg/memrepo"
	"github.com/amberloop/orca/pkg/promptctx"
	"github.com/amberloop/orca/pkg/scheduler"
	"github.com/amberloop/orca/pkg/state"
	"github.com/amberloop/orca/pkg/tasksmgr"
	"github.com/amberloop/orca/pkg/tools"
	"github.com/amberloop/orca/pkg/tools/builtin"
)

// orchestratorAgentID is the memory key the orchestrator's own turns
// (the user's raw prompt, its final response) are recorded under,
// kept separate from any agent's own conversation history.
const orchestratorAgentID = "orchestrator"

const plannerAgentName = "TasksAgent"

// Orchestrator is the top-level object a CLI or any other embedder
// builds once per process and drives through ProcessUserInput.
type Orchestrator struct {
	llmClient       llm.Client
	toolRegistry    *tools.ToolRegistry
	toolScheduler   *scheduler.ToolScheduler
	memoryRepo      memrepo.MemoryRepository
	memoryManager   *memory.Manager
	memoryFormatter *memory.Formatter
	contextManager  *promptctx.ContextManager
	agentFactory    *agent.Factory
	agentRepository agentrepo.AgentRepository
	tasksManager    *tasksmgr.TasksManager
	stateExecutor   *state.Executor
	workingDir      string
}

// Options configures a new Orchestrator beyond the required LLM client.
type Options struct {
	WorkingDir         string
	InteractionHandler execution.InteractionHandler
	MemoryCacheSize    int
}

// New bootstraps a complete Orchestrator over llmClient: the builtin
// tool catalog plus control tools, the default four-agent roster
// (TasksAgent the planner, ExecAgent the per-step executor, DefaultAgent
// the direct-answer fallback, TodoListAgent the todolist generator for
// ExecuteAutonomous), the TasksManager, and the state Executor. Callers
// build llmClient themselves (llm.NewHTTPClient(cfg, nil) in
// production, a fake in tests) so the orchestrator never
// depends on the transport.
func New(llmClient llm.Client, opts Options) (*Orchestrator, error) {
	workingDir := opts.WorkingDir
	if workingDir == "" {
		workingDir = "."
	}

	registry := tools.NewToolRegistry()
	if err := registerBuiltinTools(registry, workingDir); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	toolScheduler := scheduler.NewToolScheduler(registry)

	memRepo := memrepo.NewInMemoryMemoryRepository()
	contextManager := promptctx.NewContextManager(memRepo)
	memManager, err := memory.NewManager(memRepo, opts.MemoryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	memFormatter := memory.NewFormatter(memRepo)

	taskExecution := execution.NewTaskExecution(llmClient, toolScheduler, contextManager, builtin.DangerousTools, opts.InteractionHandler)
	agentFactory := agent.NewFactory(llmClient, toolScheduler, registry, memManager, taskExecution)

	agentRepo := agentrepo.NewInMemoryAgentRepository()
	if err := registerDefaultAgents(agentRepo); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	tasksManager := tasksmgr.New(registry, contextManager, agentFactory, agentRepo, workingDir)
	stateExecutor := state.NewExecutor(registry, contextManager, agentFactory, agentRepo, workingDir)

	return &Orchestrator{
		llmClient:       llmClient,
		toolRegistry:    registry,
		toolScheduler:   toolScheduler,
		memoryRepo:      memRepo,
		memoryManager:   memManager,
		memoryFormatter: memFormatter,
		contextManager:  contextManager,
		agentFactory:    agentFactory,
		agentRepository: agentRepo,
		tasksManager:    tasksManager,
		stateExecutor:   stateExecutor,
		workingDir:      workingDir,
	}, nil
}

func registerBuiltinTools(registry *tools.ToolRegistry, workingDir string) error {
	regular := []tools.Tool{
		builtin.NewReadFileTool(workingDir),
		builtin.NewWriteFileTool(workingDir),
		builtin.NewGrepSearchTool(workingDir),
		builtin.NewExecuteCommandTool(workingDir),
		builtin.NewGitStatusTool(workingDir),
		builtin.NewFetchURLTool(),
	}
	for _, t := range regular {
		if err := registry.RegisterTool(t); err != nil {
			return err
		}
	}

	control := []tools.Tool{
		builtin.TaskSuccessTool{},
		builtin.TaskErrorTool{},
		builtin.TasksCompletedTool{},
	}
	for _, t := range control {
		if err := registry.RegisterControlTool(t); err != nil {
			return err
		}
	}
	return nil
}

// registerDefaultAgents registers the planner, the per-step executor,
// the direct-answer fallback, and the todolist agent. None of the four
// restricts its tool
// whitelist: an empty AuthorizedTools set means "all tools permitted",
// and each of these roles may legitimately need any registered tool.
func registerDefaultAgents(repo agentrepo.AgentRepository) error {
	specs := []struct {
		name         string
		description  string
		systemPrompt string
		responseFmt  domain.ResponseFormat
	}{
		{
			name:         plannerAgentName,
			description:  "Decomposes a user request into an ordered task list, or decides it can be answered directly.",
			systemPrompt: promptctx.GetPromptByID(promptctx.PromptIDPlanner),
			responseFmt:  domain.ResponseFormatJSON,
		},
		{
			name:         tasksmgr.ExecAgentName,
			description:  "Executes a single assigned task end to end using the available tools.",
			systemPrompt: promptctx.GetPromptByID(promptctx.PromptIDExecAgent),
			responseFmt:  domain.ResponseFormatDefault,
		},
		{
			name:         tasksmgr.DefaultAgentName,
			description:  "Answers a user request directly when no task decomposition is needed.",
			systemPrompt: promptctx.GetPromptByID(promptctx.PromptIDDefault),
			responseFmt:  domain.ResponseFormatDefault,
		},
		{
			name:         state.TodoListAgentName,
			description:  "Generates and mutates the dynamic todolist the state Executor drives to completion.",
			systemPrompt: promptctx.GetPromptByID(promptctx.PromptIDTodoList),
			responseFmt:  domain.ResponseFormatJSON,
		},
	}

	for _, s := range specs {
		identity, err := domain.NewAgentIdentityWithName(s.name)
		if err != nil {
			return fmt.Errorf("register %s: %w", s.name, err)
		}
		capabilities, err := domain.NewAgentCapabilities(domain.AgentCapabilities{
			Description:       s.description,
			SystemPrompt:      s.systemPrompt,
			MaxReasoningTurns: 15,
			MaxMemoryTurns:    20,
			LLMTemperature:    0.1,
			LLMMaxTokens:      4000,
			LLMResponseFormat: s.responseFmt,
		})
		if err != nil {
			return fmt.Errorf("register %s: %w", s.name, err)
		}
		registered, err := domain.NewRegisteredAgent(identity, capabilities)
		if err != nil {
			return fmt.Errorf("register %s: %w", s.name, err)
		}
		if _, err := repo.Save(*registered); err != nil {
			return fmt.Errorf("register %s: %w", s.name, err)
		}
	}
	return nil
}

// plannerPlan is the JSON shape the planner agent is asked to reply
// with: an explanation plus zero or more decomposed tasks.
type plannerPlan struct {
	Analyse string        `json:"analyse"`
	Tasks   []interface{} `json:"tasks"`
}

// ProcessUserInput is the orchestrator's single entry point: it runs the
// planner over userPrompt, executes the resulting task list (or falls
// straight through to a direct answer), and records both the prompt and
// the final response against the orchestrator's own conversation memory.
func (o *Orchestrator) ProcessUserInput(ctx context.Context, userPrompt string) (execution.AgentOutput, error) {
	conversationID := uuid.NewString()

	if err := o.memoryManager.SaveConversationTurn(orchestratorAgentID, domain.RoleUser, userPrompt,
		map[string]any{"conversation_id": conversationID}); err != nil {
		return execution.AgentOutput{}, fmt.Errorf("orchestrator: record user turn: %w", err)
	}

	plan, err := o.plan(ctx, userPrompt)
	if out, interrupted := o.interruptedOutput(ctx, conversationID); interrupted {
		return out, nil
	}
	if err != nil {
		return execution.AgentOutput{}, fmt.Errorf("orchestrator: %w", err)
	}

	result, err := o.tasksManager.Execute(ctx, userPrompt, plan.Analyse, plan.Tasks)
	if out, interrupted := o.interruptedOutput(ctx, conversationID); interrupted {
		return out, nil
	}
	if err != nil {
		return execution.AgentOutput{}, fmt.Errorf("orchestrator: %w", err)
	}

	calledAgents, _ := result.Metadata["called_agents"].([]string)
	if result.Response != "" {
		if err := o.memoryManager.SaveConversationTurn(orchestratorAgentID, domain.RoleAssistant, result.Response,
			map[string]any{"conversation_id": conversationID, "called_agents": calledAgents}); err != nil {
			return result, fmt.Errorf("orchestrator: record assistant turn: %w", err)
		}
	}

	return result, nil
}

// ExecuteAutonomous runs the dynamic-todolist workflow (pkg/state.Executor)
// instead of the fixed linear task list ProcessUserInput drives: the
// todolist agent proposes steps, each dispatched to an ExecAgent, and the
// list can mutate itself mid-run via a step's own todo_update sentinel.
// maxIterations <= 0 uses state.DefaultMaxIterations. Like
// ProcessUserInput, both the prompt and the final response are recorded
// against the orchestrator's own conversation memory, and a canceled ctx
// is surfaced as a user_interrupted AgentOutput rather than an error.
func (o *Orchestrator) ExecuteAutonomous(ctx context.Context, userPrompt string, maxIterations int) (execution.AgentOutput, error) {
	conversationID := uuid.NewString()

	if err := o.memoryManager.SaveConversationTurn(orchestratorAgentID, domain.RoleUser, userPrompt,
		map[string]any{"conversation_id": conversationID}); err != nil {
		return execution.AgentOutput{}, fmt.Errorf("orchestrator: record user turn: %w", err)
	}

	result, err := o.stateExecutor.Execute(ctx, userPrompt, "", maxIterations)
	if out, interrupted := o.interruptedOutput(ctx, conversationID); interrupted {
		return out, nil
	}
	if err != nil {
		return execution.AgentOutput{}, fmt.Errorf("orchestrator: %w", err)
	}

	calledAgents, _ := result.Metadata["called_agents"].([]string)
	if result.Response != "" {
		if err := o.memoryManager.SaveConversationTurn(orchestratorAgentID, domain.RoleAssistant, result.Response,
			map[string]any{"conversation_id": conversationID, "called_agents": calledAgents}); err != nil {
			return result, fmt.Errorf("orchestrator: record assistant turn: %w", err)
		}
	}

	return result, nil
}

// interruptedOutput checks whether ctx was canceled out from under an
// in-flight plan/execute call (a keyboard interrupt at the CLI
// level). When it was, it records a system turn noting the
// interruption (without disturbing any memory already recorded) and
// returns a failed AgentOutput tagged user_interrupted instead of the
// generic error the cancellation would otherwise surface as.
func (o *Orchestrator) interruptedOutput(ctx context.Context, conversationID string) (execution.AgentOutput, bool) {
	if !errors.Is(ctx.Err(), context.Canceled) {
		return execution.AgentOutput{}, false
	}
	_ = o.memoryManager.SaveConversationTurn(orchestratorAgentID, domain.RoleSystem, "Workflow interrupted by user.",
		map[string]any{"conversation_id": conversationID})
	return execution.AgentOutput{
		Response: "Interrupted by user.",
		Success:  false,
		Error:    execution.ErrUserInterrupted,
		Cmd:      "error",
	}, true
}

// plan runs the planner agent and decodes its JSON reply into a
// plannerPlan. A planner failure (LLM error, malformed JSON, no tasks)
// degrades gracefully to an empty plan, which TasksManager.Execute
// treats as "answer this directly".
func (o *Orchestrator) plan(ctx context.Context, userPrompt string) (plannerPlan, error) {
	registered, ok := o.agentRepository.FindByName(plannerAgentName)
	if !ok {
		return plannerPlan{}, fmt.Errorf("%s not registered", plannerAgentName)
	}
	plannerAgent, err := o.agentFactory.CreateAgent(registered, false)
	if err != nil {
		return plannerPlan{}, fmt.Errorf("create %s: %w", plannerAgentName, err)
	}

	out, err := plannerAgent.Run(ctx, userPrompt, "", "")
	if err != nil {
		return plannerPlan{}, err
	}

	var plan plannerPlan
	if jsonErr := json.Unmarshal([]byte(extractJSONObject(out.Response)), &plan); jsonErr != nil {
		// The planner didn't reply with the expected shape; fall back to
		// direct execution rather than failing the whole request.
		return plannerPlan{Analyse: out.Response}, nil
	}
	return plan, nil
}

// extractJSONObject returns the outermost {...} substring of s, or s
// unchanged if it contains no braces. The planner's reply usually is
// already a bare JSON object, but may arrive fenced in markdown.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// GetMemoryStats reports cache occupancy and agent-memory counts.
func (o *Orchestrator) GetMemoryStats() memory.Stats {
	return o.memoryManager.GetMemoryStats()
}

// GetConversations renders every recorded orchestrator-level
// conversation for CLI display.
func (o *Orchestrator) GetConversations() []string {
	return o.memoryFormatter.FormatConversations(orchestratorAgentID)
}

// GetAgentSummaries renders a one-paragraph summary of every agent that
// holds conversation memory, excluding the orchestrator itself.
func (o *Orchestrator) GetAgentSummaries() []string {
	return o.memoryFormatter.FormatAgents()
}

// GetAgentDetail renders the full turn-by-turn history of one agent.
func (o *Orchestrator) GetAgentDetail(agentID string) (string, bool) {
	return o.memoryFormatter.GetAgentDetail(agentID)
}

// ResetConversation clears every agent's stored memory (including the
// orchestrator's own) and drops the agent factory's cached instances, so
// the next ProcessUserInput call starts from a clean slate.
func (o *Orchestrator) ResetConversation() {
	o.memoryRepo.ClearAll()
	o.agentFactory.ClearCache("")
}

// GetToolInfo returns the catalog entry for every registered tool.
func (o *Orchestrator) GetToolInfo() []tools.ToolInfo {
	return o.toolRegistry.ListTools()
}
