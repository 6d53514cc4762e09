package scheduler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amberloop/orca/pkg/tools"
)

type echoArgsTool struct{}

func (echoArgsTool) GetName() string        { return "echo_args" }
func (echoArgsTool) GetDescription() string { return "echoes its validated arguments" }
func (echoArgsTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name: "echo_args",
		Parameters: []tools.ToolParameter{
			{Name: "count", Type: "int", Required: true},
			{Name: "flag", Type: "bool", Required: false, Default: false},
			{Name: "label", Type: "string", Required: false, Default: "unset"},
		},
	}
}
func (echoArgsTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	return tools.ToolResult{Success: true, Output: args}, nil
}

type bigOutputTool struct{}

func (bigOutputTool) GetName() string        { return "big_output" }
func (bigOutputTool) GetDescription() string { return "returns an oversized string" }
func (bigOutputTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{Name: "big_output"}
}
func (bigOutputTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	return tools.ToolResult{Success: true, Content: strings.Repeat("x", MaxOutputLen+500)}, nil
}

type panicTool struct{}

func (panicTool) GetName() string        { return "panic_tool" }
func (panicTool) GetDescription() string { return "always panics" }
func (panicTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{Name: "panic_tool"}
}
func (panicTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	panic("boom")
}

func newSchedulerWith(t *testing.T, tool tools.Tool) *ToolScheduler {
	t.Helper()
	reg := tools.NewToolRegistry()
	require.NoError(t, reg.RegisterTool(tool))
	return NewToolScheduler(reg)
}

func TestExecuteTools_CoercesDigitStringToInt(t *testing.T) {
	s := newSchedulerWith(t, echoArgsTool{})
	results := s.ExecuteTools(context.Background(), []tools.ToolCall{
		{Name: "echo_args", Parameters: map[string]interface{}{"count": "42"}},
	})
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	out := results[0].Output.(map[string]interface{})
	assert.Equal(t, 42, out["count"])
}

func TestExecuteTools_CoercesTrueFalseStringsToBool(t *testing.T) {
	s := newSchedulerWith(t, echoArgsTool{})
	results := s.ExecuteTools(context.Background(), []tools.ToolCall{
		{Name: "echo_args", Parameters: map[string]interface{}{"count": "1", "flag": "TRUE"}},
	})
	out := results[0].Output.(map[string]interface{})
	assert.Equal(t, true, out["flag"])
}

func TestExecuteTools_DropsUndocumentedArgs(t *testing.T) {
	s := newSchedulerWith(t, echoArgsTool{})
	results := s.ExecuteTools(context.Background(), []tools.ToolCall{
		{Name: "echo_args", Parameters: map[string]interface{}{"count": "1", "mystery": "x"}},
	})
	out := results[0].Output.(map[string]interface{})
	_, present := out["mystery"]
	assert.False(t, present)
}

func TestExecuteTools_InjectsDefaultForMissingOptional(t *testing.T) {
	s := newSchedulerWith(t, echoArgsTool{})
	results := s.ExecuteTools(context.Background(), []tools.ToolCall{
		{Name: "echo_args", Parameters: map[string]interface{}{"count": "1"}},
	})
	out := results[0].Output.(map[string]interface{})
	assert.Equal(t, "unset", out["label"])
	assert.Equal(t, false, out["flag"])
}

func TestExecuteTools_MissingRequiredWithoutDefaultFails(t *testing.T) {
	s := newSchedulerWith(t, echoArgsTool{})
	results := s.ExecuteTools(context.Background(), []tools.ToolCall{
		{Name: "echo_args", Parameters: map[string]interface{}{}},
	})
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "Argument Error")
}

func TestExecuteTools_UnknownToolProducesErrorResult(t *testing.T) {
	s := newSchedulerWith(t, echoArgsTool{})
	results := s.ExecuteTools(context.Background(), []tools.ToolCall{
		{Name: "does_not_exist", Parameters: map[string]interface{}{}},
	})
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "Tool Error")
}

func TestExecuteTools_TruncatesOversizedStringOutput(t *testing.T) {
	s := newSchedulerWith(t, bigOutputTool{})
	results := s.ExecuteTools(context.Background(), []tools.ToolCall{{Name: "big_output"}})
	require.Len(t, results, 1)
	assert.LessOrEqual(t, len(results[0].Content), MaxOutputLen+100)
	assert.Contains(t, results[0].Content, "[Output truncated. Total length:")
}

func TestExecuteTools_ContinuesAfterOneCallFails(t *testing.T) {
	reg := tools.NewToolRegistry()
	require.NoError(t, reg.RegisterTool(echoArgsTool{}))
	s := NewToolScheduler(reg)

	results := s.ExecuteTools(context.Background(), []tools.ToolCall{
		{Name: "does_not_exist"},
		{Name: "echo_args", Parameters: map[string]interface{}{"count": "1"}},
	})
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)
}

func TestExecuteTools_RecoversFromToolPanic(t *testing.T) {
	s := newSchedulerWith(t, panicTool{})
	results := s.ExecuteTools(context.Background(), []tools.ToolCall{{Name: "panic_tool"}})
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "System Error")
}

func TestExecuteTools_ResultsMatchCallOrderAndID(t *testing.T) {
	s := newSchedulerWith(t, echoArgsTool{})
	calls := []tools.ToolCall{
		{ID: "call-1", Name: "echo_args", Parameters: map[string]interface{}{"count": "1"}},
		{ID: "call-2", Name: "does_not_exist"},
		{ID: "call-3", Name: "echo_args", Parameters: map[string]interface{}{"count": "3"}},
	}
	results := s.ExecuteTools(context.Background(), calls)
	require.Len(t, results, len(calls))
	for i, call := range calls {
		assert.Equal(t, call.ID, results[i].ToolCallID)
	}
}
