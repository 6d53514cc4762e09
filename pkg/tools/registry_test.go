package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name string
}

func (s *stubTool) GetInfo() ToolInfo {
	return ToolInfo{Name: s.name, Description: "stub tool " + s.name}
}
func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	return ToolResult{Success: true, ToolName: s.name, Content: "ok"}, nil
}
func (s *stubTool) GetName() string        { return s.name }
func (s *stubTool) GetDescription() string { return "stub tool " + s.name }

func TestToolRegistry_RegisterAndGet(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(&stubTool{name: "read_file"}))

	tool, err := r.GetTool("read_file")
	require.NoError(t, err)
	assert.Equal(t, "read_file", tool.GetName())
}

func TestToolRegistry_DuplicateWarnsAndOverwrites(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(&stubTool{name: "read_file"}))
	require.NoError(t, r.RegisterTool(&stubTool{name: "read_file"}))

	assert.Equal(t, 1, r.Count())
}

func TestToolRegistry_ControlToolsBypassWhitelist(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(&stubTool{name: "read_file"}))
	require.NoError(t, r.RegisterControlTool(&stubTool{name: "task_success"}))

	authorized := map[string]struct{}{"read_file": {}}
	tools := r.ListAuthorizedTools(authorized)

	names := map[string]bool{}
	for _, info := range tools {
		names[info.Name] = true
	}
	assert.True(t, names["read_file"])
	assert.True(t, names["task_success"], "control tools must bypass the authorized_tools whitelist")
}

func TestToolRegistry_EmptyAuthorizedMeansAll(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(&stubTool{name: "read_file"}))
	require.NoError(t, r.RegisterTool(&stubTool{name: "write_file"}))

	tools := r.ListAuthorizedTools(nil)
	assert.Len(t, tools, 2)
}

func TestToolRegistry_ListToolsSortedByName(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(&stubTool{name: "zeta"}))
	require.NoError(t, r.RegisterTool(&stubTool{name: "alpha"}))

	tools := r.ListTools()
	require.Len(t, tools, 2)
	assert.Equal(t, "alpha", tools[0].Name)
	assert.Equal(t, "zeta", tools[1].Name)
}

type categorizedTool struct {
	name      string
	category  string
	dangerous bool
}

func (c *categorizedTool) GetInfo() ToolInfo {
	return ToolInfo{Name: c.name, Category: c.category, Dangerous: c.dangerous}
}
func (c *categorizedTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	return ToolResult{Success: true, ToolName: c.name}, nil
}
func (c *categorizedTool) GetName() string        { return c.name }
func (c *categorizedTool) GetDescription() string { return c.name }

func TestToolRegistry_ListToolsFiltered(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(&categorizedTool{name: "read_file", category: "filesystem"}))
	require.NoError(t, r.RegisterTool(&categorizedTool{name: "write_file", category: "filesystem", dangerous: true}))
	require.NoError(t, r.RegisterTool(&categorizedTool{name: "fetch_url", category: "web"}))

	safe := r.ListToolsFiltered("filesystem", false)
	require.Len(t, safe, 1)
	assert.Equal(t, "read_file", safe[0].Name)

	all := r.ListToolsFiltered("filesystem", true)
	assert.Len(t, all, 2)

	everything := r.ListToolsFiltered("", true)
	assert.Len(t, everything, 3)
}

func TestToolRegistry_GetMissingToolErrors(t *testing.T) {
	r := NewToolRegistry()
	_, err := r.GetTool("missing")
	assert.Error(t, err)
}
