package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amberloop/orca/pkg/execution"
	"github.com/amberloop/orca/pkg/llm"
)

// scriptedLLMClient replies with one fixed response per Chat call, in
// order, so a test can script a planner turn followed by whatever
// exec/default agent turns the plan calls for.
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

func TestProcessUserInput_NoDecompositionAnswersDirectly(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{
		`{"analyse": "this is simple, answer directly", "tasks": []}`,
		"The capital of France is Paris.",
	}}
	orc, err := New(client, Options{})
	require.NoError(t, err)

	out, err := orc.ProcessUserInput(context.Background(), "what is the capital of France?")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Contains(t, out.Response, "Paris")
}

func TestProcessUserInput_DecomposesIntoTasks(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{
		`{"analyse": "two steps needed", "tasks": [{"step": "first", "expected_outcome": "first done"}, {"step": "second", "expected_outcome": "second done"}]}`,
		`{"tool_name": "task_success", "arguments": {"message": "first step finished"}}`,
		`{"tool_name": "task_success", "arguments": {"message": "second step finished"}}`,
	}}
	orc, err := New(client, Options{})
	require.NoError(t, err)

	out, err := orc.ProcessUserInput(context.Background(), "do two things")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Contains(t, out.Response, "first step finished")
	assert.Contains(t, out.Response, "second step finished")
}

func TestProcessUserInput_MalformedPlannerJSONFallsBackToDirect(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{
		"not valid json at all",
		"Here is a direct answer anyway.",
	}}
	orc, err := New(client, Options{})
	require.NoError(t, err)

	out, err := orc.ProcessUserInput(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Contains(t, out.Response, "direct answer")
}

func TestProcessUserInput_RecordsOrchestratorConversation(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{
		`{"analyse": "simple", "tasks": []}`,
		"42 is the answer.",
	}}
	orc, err := New(client, Options{})
	require.NoError(t, err)

	_, err = orc.ProcessUserInput(context.Background(), "what is the answer?")
	require.NoError(t, err)

	conversations := orc.GetConversations()
	require.Len(t, conversations, 1)
	assert.Contains(t, conversations[0], "what is the answer?")
	assert.Contains(t, conversations[0], "42 is the answer")
}

func TestResetConversation_ClearsMemoryAndCache(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{
		`{"analyse": "simple", "tasks": []}`,
		"first answer",
	}}
	orc, err := New(client, Options{})
	require.NoError(t, err)

	_, err = orc.ProcessUserInput(context.Background(), "first question")
	require.NoError(t, err)
	require.Len(t, orc.GetConversations(), 1)

	orc.ResetConversation()
	assert.Empty(t, orc.GetConversations())
}

// cancelingLLMClient cancels its own context on the first Chat call, then
// behaves like scriptedLLMClient, so a test can simulate a SIGINT landing
// while a plan/execute call is in flight.
type cancelingLLMClient struct {
	scriptedLLMClient
	cancel context.CancelFunc
}

func (c *cancelingLLMClient) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (llm.ChatResponse, error) {
	c.cancel()
	return c.scriptedLLMClient.Chat(ctx, messages, opts)
}

func TestProcessUserInput_CanceledContextSurfacesUserInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &cancelingLLMClient{
		scriptedLLMClient: scriptedLLMClient{responses: []string{`{"analyse": "simple", "tasks": []}`}},
		cancel:            cancel,
	}
	orc, err := New(client, Options{})
	require.NoError(t, err)

	out, err := orc.ProcessUserInput(ctx, "what is the capital of France?")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, execution.ErrUserInterrupted, out.Error)

	conversations := orc.GetConversations()
	require.NotEmpty(t, conversations)
	assert.Contains(t, conversations[len(conversations)-1], "interrupted")
}

func TestExecuteAutonomous_HappyPathRunsTodoList(t *testing.T) {
	client := &scriptedLLMClient{responses: []string{
		`{"todo_list": [{"step_id": "1", "description": "do it"}]}`,
		`{"tool_name": "task_success", "arguments": {"message": "done"}}`,
	}}
	orc, err := New(client, Options{})
	require.NoError(t, err)

	out, err := orc.ExecuteAutonomous(context.Background(), "do the thing", 10)
	require.NoError(t, err)
	assert.True(t, out.Success)
}

func TestExecuteAutonomous_CanceledContextSurfacesUserInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &cancelingLLMClient{
		scriptedLLMClient: scriptedLLMClient{responses: []string{`{"todo_list": [{"step_id": "1", "description": "do it"}]}`}},
		cancel:            cancel,
	}
	orc, err := New(client, Options{})
	require.NoError(t, err)

	out, err := orc.ExecuteAutonomous(ctx, "do the thing", 10)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, execution.ErrUserInterrupted, out.Error)
}

func TestGetToolInfo_ListsRegisteredTools(t *testing.T) {
	client := &scriptedLLMClient{}
	orc, err := New(client, Options{})
	require.NoError(t, err)

	infos := orc.GetToolInfo()
	names := make(map[string]bool)
	for _, info := range infos {
		names[info.Name] = true
	}
	assert.True(t, names["read_file"])
	assert.True(t, names["task_success"])
	assert.True(t, names["tasks_completed"])
}
