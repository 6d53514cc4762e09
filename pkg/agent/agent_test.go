package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amberloop/orca/pkg/domain"
	"github.com/amberloop/orca/pkg/execution"
	"github.com/amberloop/orca/pkg/llm"
	"github.com/amberloop/orca/pkg/memory"
	"github.com/amberloop/orca/pkg/memrepo"
	"github.com/amberloop/orca/pkg/promptctx"
	"github.com/amberloop/orca/pkg/scheduler"
	"github.com/amberloop/orca/pkg/tools"
	"github.com/amberloop/orca/pkg/tools/builtin"
)

type scriptedLLMClient struct {
	responses []string
	calls     int
}

func (c *scriptedLLMClient) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (llm.ChatResponse, error) {
	idx := c.calls
	c.calls++
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return llm.ChatResponse{
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: c.responses[idx]}}},
	}, nil
}
func (c *scriptedLLMClient) Embedding(ctx context.Context, input []string) (llm.EmbeddingResponse, error) {
	return llm.EmbeddingResponse{}, nil
}
func (c *scriptedLLMClient) ListModels(ctx context.Context) (llm.ModelsResponse, error) {
	return llm.ModelsResponse{}, nil
}

func newTestRig(t *testing.T, client llm.Client) (*scheduler.ToolScheduler, *memory.Manager, *execution.TaskExecution, *tools.ToolRegistry) {
	t.Helper()
	reg := tools.NewToolRegistry()
	require.NoError(t, reg.RegisterControlTool(builtin.TaskSuccessTool{}))
	require.NoError(t, reg.RegisterControlTool(builtin.TaskErrorTool{}))
	require.NoError(t, reg.RegisterControlTool(builtin.TasksCompletedTool{}))

	toolScheduler := scheduler.NewToolScheduler(reg)
	repo := memrepo.NewInMemoryMemoryRepository()
	contextManager := promptctx.NewContextManager(repo)
	memManager, err := memory.NewManager(repo, 0)
	require.NoError(t, err)

	taskExecution := execution.NewTaskExecution(client, toolScheduler, contextManager, builtin.DangerousTools, func(string, map[string]interface{}) bool { return true })
	return toolScheduler, memManager, taskExecution, reg
}

func newTestAgent(t *testing.T, client llm.Client) *Agent {
	t.Helper()
	toolScheduler, memManager, taskExecution, reg := newTestRig(t, client)

	identity, err := domain.NewAgentIdentityWithName("TestAgent")
	require.NoError(t, err)
	capabilities, err := domain.NewAgentCapabilities(domain.AgentCapabilities{
		Description:       "an agent used only in tests",
		MaxReasoningTurns: 5,
		MaxMemoryTurns:    10,
		LLMTemperature:    0.2,
		LLMMaxTokens:      256,
	})
	require.NoError(t, err)

	return New(identity, capabilities, client, toolScheduler, reg, memManager, taskExecution)
}

func TestAgentRun_RecordsUserAndAssistantTurns(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{`{"tool_name": "task_success", "arguments": {"message": "done"}}`}}
	a := newTestAgent(t, client)

	out, err := a.Run(context.Background(), "do the thing", "system prompt", "")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "done", out.Response)

	history := a.memory.GetConversationContext(a.identity, 0)
	require.Len(t, history.History, 2)
	assert.Equal(t, domain.RoleUser, history.History[0].Role)
	assert.Equal(t, domain.RoleAssistant, history.History[1].Role)
}

func TestAgentRun_SecondCallSeesFirstCallInContext(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{
		`{"tool_name": "task_success", "arguments": {"message": "first done"}}`,
		`{"tool_name": "task_success", "arguments": {"message": "second done"}}`,
	}}
	a := newTestAgent(t, client)

	_, err := a.Run(context.Background(), "first task", "system", "")
	require.NoError(t, err)
	_, err = a.Run(context.Background(), "second task", "system", "")
	require.NoError(t, err)

	history := a.memory.GetConversationContext(a.identity, 0)
	assert.Len(t, history.History, 4)
}

func TestFactory_CachesAgentByID(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{`{"tool_name": "task_success", "arguments": {}}`}}
	_, memManager, taskExecution, reg := newTestRig(t, client)
	toolScheduler := scheduler.NewToolScheduler(reg)
	factory := NewFactory(client, toolScheduler, reg, memManager, taskExecution)

	identity, err := domain.NewAgentIdentityWithName("CachedAgent")
	require.NoError(t, err)
	capabilities, err := domain.NewAgentCapabilities(domain.AgentCapabilities{
		Description:       "an agent used only in tests",
		MaxReasoningTurns: 5,
		LLMTemperature:    0.1,
		LLMMaxTokens:      256,
		SystemPrompt:      "You are a helpful test agent.",
	})
	require.NoError(t, err)
	registered, err := domain.NewRegisteredAgent(identity, capabilities)
	require.NoError(t, err)

	first, err := factory.CreateAgent(*registered, false)
	require.NoError(t, err)
	second, err := factory.CreateAgent(*registered, false)
	require.NoError(t, err)
	assert.Same(t, first, second)

	stats := factory.CacheStats()
	assert.Equal(t, 1, stats.CachedAgentsCount)
}

func TestFactory_ForceRecreateReplacesCachedInstance(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{`{"tool_name": "task_success", "arguments": {}}`}}
	_, memManager, taskExecution, reg := newTestRig(t, client)
	toolScheduler := scheduler.NewToolScheduler(reg)
	factory := NewFactory(client, toolScheduler, reg, memManager, taskExecution)

	identity, err := domain.NewAgentIdentityWithName("RecreateAgent")
	require.NoError(t, err)
	capabilities, err := domain.NewAgentCapabilities(domain.AgentCapabilities{
		Description:       "an agent used only in tests",
		MaxReasoningTurns: 5,
		LLMTemperature:    0.1,
		LLMMaxTokens:      256,
		SystemPrompt:      "You are a helpful test agent.",
	})
	require.NoError(t, err)
	registered, err := domain.NewRegisteredAgent(identity, capabilities)
	require.NoError(t, err)

	first, err := factory.CreateAgent(*registered, false)
	require.NoError(t, err)
	second, err := factory.CreateAgent(*registered, true)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestFactory_RejectsInactiveAgent(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{`{"tool_name": "task_success", "arguments": {}}`}}
	_, memManager, taskExecution, reg := newTestRig(t, client)
	toolScheduler := scheduler.NewToolScheduler(reg)
	factory := NewFactory(client, toolScheduler, reg, memManager, taskExecution)

	identity, err := domain.NewAgentIdentityWithName("InactiveAgent")
	require.NoError(t, err)
	capabilities, err := domain.NewAgentCapabilities(domain.AgentCapabilities{
		Description:       "an agent used only in tests",
		MaxReasoningTurns: 5,
		LLMTemperature:    0.1,
		LLMMaxTokens:      256,
		SystemPrompt:      "You are a helpful test agent.",
	})
	require.NoError(t, err)
	registered, err := domain.NewRegisteredAgent(identity, capabilities)
	require.NoError(t, err)
	registered.Deactivate()

	_, err = factory.CreateAgent(*registered, false)
	assert.Error(t, err)
}

func TestFactory_ClearCache(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{`{"tool_name": "task_success", "arguments": {}}`}}
	_, memManager, taskExecution, reg := newTestRig(t, client)
	toolScheduler := scheduler.NewToolScheduler(reg)
	factory := NewFactory(client, toolScheduler, reg, memManager, taskExecution)

	identity, err := domain.NewAgentIdentityWithName("ClearableAgent")
	require.NoError(t, err)
	capabilities, err := domain.NewAgentCapabilities(domain.AgentCapabilities{
		Description:       "an agent used only in tests",
		MaxReasoningTurns: 5,
		LLMTemperature:    0.1,
		LLMMaxTokens:      256,
		SystemPrompt:      "You are a helpful test agent.",
	})
	require.NoError(t, err)
	registered, err := domain.NewRegisteredAgent(identity, capabilities)
	require.NoError(t, err)

	_, err = factory.CreateAgent(*registered, false)
	require.NoError(t, err)
	factory.ClearCache(registered.Identity.AgentID)

	_, ok := factory.GetCachedAgent(registered.Identity.AgentID)
	assert.False(t, ok)
}
