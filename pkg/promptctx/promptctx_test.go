package promptctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amberloop/orca/pkg/domain"
	"github.com/amberloop/orca/pkg/memrepo"
	"github.com/amberloop/orca/pkg/tools"
	"github.com/amberloop/orca/pkg/tools/builtin"
)

func TestContextManager_BuildMessagesAndFormat(t *testing.T) {
	repo := memrepo.NewInMemoryMemoryRepository()
	cm := NewContextManager(repo)

	userTurn, err := domain.NewConversationTurn(domain.RoleUser, "hello")
	require.NoError(t, err)
	require.NoError(t, repo.SaveTurn("agent-1", userTurn))

	messages := cm.BuildMessages("agent-1", "you are helpful", 0)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "you are helpful", messages[0].Content)
	assert.Equal(t, "user", messages[1].Role)

	formatted := cm.FormatContextAsString("agent-1", 0)
	assert.Contains(t, formatted, "hello")
}

func TestContextManager_GetLastTurn(t *testing.T) {
	repo := memrepo.NewInMemoryMemoryRepository()
	cm := NewContextManager(repo)

	_, ok := cm.GetLastTurn("missing")
	assert.False(t, ok)

	turn, err := domain.NewConversationTurn(domain.RoleAssistant, "done")
	require.NoError(t, err)
	require.NoError(t, repo.SaveTurn("agent-1", turn))

	last, ok := cm.GetLastTurn("agent-1")
	require.True(t, ok)
	assert.Equal(t, "done", last.Content)
}

func TestPromptBuilder_AddClearGet(t *testing.T) {
	builder := NewPromptBuilder()
	builder.AddBlock(PromptRoleUser, "# GLOBAL CONTEXT\nsomething")
	builder.AddBlock(PromptRoleUser, "# CURRENT ASSIGNMENT\ndo it")

	prompt := builder.GetPrompt(PromptRoleUser)
	assert.Contains(t, prompt, "GLOBAL CONTEXT")
	assert.Contains(t, prompt, "CURRENT ASSIGNMENT")

	builder.ClearPrompt(PromptRoleUser)
	assert.Empty(t, builder.GetPrompt(PromptRoleUser))
}

func TestGetPromptByID_KnownAndUnknown(t *testing.T) {
	assert.NotEmpty(t, GetPromptByID(PromptIDExecAgent))
	assert.NotEmpty(t, GetPromptByID(PromptIDPlanner))
	assert.Empty(t, GetPromptByID(PromptID("bogus")))
}

func TestProjectStructureBlock_HonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\nbuild/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.go"), []byte("package x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noise.log"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build"), 0o755))

	block := projectStructureBlock(dir)
	assert.Contains(t, block, "keep.go")
	assert.NotContains(t, block, "noise.log")
	assert.NotContains(t, block, "build/")
}

func TestContextManager_GetSystemContext_AlwaysIncludesControlTools(t *testing.T) {
	repo := memrepo.NewInMemoryMemoryRepository()
	cm := NewContextManager(repo)

	registry := tools.NewToolRegistry()
	require.NoError(t, registry.RegisterTool(&builtin.ReadFileTool{WorkingDirectory: "."}))
	require.NoError(t, registry.RegisterControlTool(builtin.TaskSuccessTool{}))
	require.NoError(t, registry.RegisterControlTool(builtin.TaskErrorTool{}))
	require.NoError(t, registry.RegisterControlTool(builtin.TasksCompletedTool{}))

	authorized := map[string]struct{}{"read_file": {}}
	block := cm.GetSystemContext(authorized, registry, ".")

	assert.Contains(t, block, "AVAILABLE TOOLS")
	assert.Contains(t, block, "read_file")
	assert.Contains(t, block, "task_success")
	assert.Contains(t, block, "task_error")
	assert.Contains(t, block, "tasks_completed")
	assert.Contains(t, block, "ENVIRONMENT CONTEXT")
	assert.Contains(t, block, "PROJECT STRUCTURE")
}
