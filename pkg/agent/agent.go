// Package agent implements the executable Agent built from a
// domain.RegisteredAgent, and a Factory that caches one Agent instance
// per agent ID. There is exactly one Agent type in this system: what an
// agent does differently from another is entirely a function of its
// domain.AgentCapabilities data, not a different Go type.
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/amberloop/orca/pkg/domain"
	"github.com/amberloop/orca/pkg/execution"
	"github.com/amberloop/orca/pkg/llm"
	"github.com/amberloop/orca/pkg/memory"
	"github.com/amberloop/orca/pkg/scheduler"
	"github.com/amberloop/orca/pkg/tools"
)

// Agent is one runnable identity: its immutable identity and capability
// data, plus the shared infrastructure (LLM client, tool scheduler,
// memory) every agent in the system draws from.
type Agent struct {
	identity     domain.AgentIdentity
	capabilities domain.AgentCapabilities

	llm       llm.Client
	scheduler *scheduler.ToolScheduler
	registry  *tools.ToolRegistry
	memory    *memory.Manager
	execution *execution.TaskExecution
}

// New constructs an Agent. execution is shared across every agent built
// from the same factory; it carries no per-agent state itself.
func New(
	identity domain.AgentIdentity,
	capabilities domain.AgentCapabilities,
	llmClient llm.Client,
	toolScheduler *scheduler.ToolScheduler,
	toolRegistry *tools.ToolRegistry,
	memoryManager *memory.Manager,
	taskExecution *execution.TaskExecution,
) *Agent {
	return &Agent{
		identity:     identity,
		capabilities: capabilities,
		llm:          llmClient,
		scheduler:    toolScheduler,
		registry:     toolRegistry,
		memory:       memoryManager,
		execution:    taskExecution,
	}
}

func (a *Agent) Identity() domain.AgentIdentity         { return a.identity }
func (a *Agent) Capabilities() domain.AgentCapabilities { return a.capabilities }

// Run executes one task through TaskExecution.Run with one malformed-JSON
// retry allowed, so at most two LLM turns. task is the instruction being
// executed right now; userPrompt, when non-empty, is prior accumulated
// context (e.g. a tasks manager's rolling execution history) prepended
// ahead of it. An empty systemPrompt falls back to the agent's own
// capabilities.SystemPrompt. Run records the combined prompt and the
// resulting response in memory, so the next call sees this turn in its
// context.
func (a *Agent) Run(ctx context.Context, task, systemPrompt, userPrompt string) (execution.AgentOutput, error) {
	if systemPrompt == "" {
		systemPrompt = a.capabilities.SystemPrompt
	}

	combinedPrompt := task
	if userPrompt != "" {
		combinedPrompt = userPrompt + "\n\n" + task
	}

	// TaskExecution.Run builds its message list from whatever is already
	// in memory and appends combinedPrompt itself; the turn is recorded
	// here only afterward, so this call's own prompt doesn't appear
	// twice in the messages sent to the LLM.
	maxRetries := 1
	output := a.execution.Run(ctx, a, systemPrompt, combinedPrompt, maxRetries)

	if combinedPrompt != "" {
		if err := a.memory.SaveConversationTurn(a.identity.AgentID, domain.RoleUser, combinedPrompt, nil); err != nil {
			return output, fmt.Errorf("agent: record user turn: %w", err)
		}
	}
	if output.Response != "" {
		if err := a.memory.SaveConversationTurn(a.identity.AgentID, domain.RoleAssistant, output.Response, nil); err != nil {
			return output, fmt.Errorf("agent: record assistant turn: %w", err)
		}
	}

	return output, nil
}

// Factory builds Agent instances from domain.RegisteredAgent records,
// caching one instance per agent ID so repeated lookups (e.g. across
// tasks in the same workflow) reuse the same Agent rather than
// reconstructing it.
type Factory struct {
	llm       llm.Client
	scheduler *scheduler.ToolScheduler
	registry  *tools.ToolRegistry
	memory    *memory.Manager
	execution *execution.TaskExecution

	mu        sync.Mutex
	instances map[string]*Agent
}

func NewFactory(
	llmClient llm.Client,
	toolScheduler *scheduler.ToolScheduler,
	toolRegistry *tools.ToolRegistry,
	memoryManager *memory.Manager,
	taskExecution *execution.TaskExecution,
) *Factory {
	return &Factory{
		llm:       llmClient,
		scheduler: toolScheduler,
		registry:  toolRegistry,
		memory:    memoryManager,
		execution: taskExecution,
		instances: make(map[string]*Agent),
	}
}

// CreateAgent builds (or returns a cached) Agent for registered. An
// inactive agent is always rejected, even when a cached instance exists,
// because deactivation must take effect immediately.
func (f *Factory) CreateAgent(registered domain.RegisteredAgent, forceRecreate bool) (*Agent, error) {
	if !registered.IsActive {
		return nil, fmt.Errorf("agent: %q is inactive", registered.Identity.AgentName)
	}

	agentID := registered.Identity.AgentID

	f.mu.Lock()
	defer f.mu.Unlock()

	if !forceRecreate {
		if cached, ok := f.instances[agentID]; ok {
			return cached, nil
		}
	}

	instance := New(registered.Identity, registered.Capabilities, f.llm, f.scheduler, f.registry, f.memory, f.execution)
	f.instances[agentID] = instance
	return instance, nil
}

// GetCachedAgent returns the cached instance for agentID, if any.
func (f *Factory) GetCachedAgent(agentID string) (*Agent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agent, ok := f.instances[agentID]
	return agent, ok
}

// ClearCache drops the cached instance for agentID, or every cached
// instance when agentID is empty.
func (f *Factory) ClearCache(agentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if agentID == "" {
		f.instances = make(map[string]*Agent)
		return
	}
	delete(f.instances, agentID)
}

// CacheStats summarizes the factory's instance cache.
type CacheStats struct {
	CachedAgentsCount int
	CachedAgentIDs    []string
}

func (f *Factory) CacheStats() CacheStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.instances))
	for id := range f.instances {
		ids = append(ids, id)
	}
	return CacheStats{CachedAgentsCount: len(f.instances), CachedAgentIDs: ids}
}
