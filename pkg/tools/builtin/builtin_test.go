package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileTool_ReadsWholeFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\ntwo\nthree"), 0o644))

	tool := NewReadFileTool(dir)
	result, err := tool.Execute(context.Background(), map[string]interface{}{"path": "a.txt", "line_numbers": false})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "one\ntwo\nthree\n", result.Content)
}

func TestReadFileTool_RespectsLineRange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\ntwo\nthree"), 0o644))

	tool := NewReadFileTool(dir)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "a.txt", "start_line": 2, "end_line": 2, "line_numbers": false,
	})
	require.NoError(t, err)
	assert.Equal(t, "two\n", result.Content)
}

func TestReadFileTool_MissingPathErrors(t *testing.T) {
	tool := NewReadFileTool(t.TempDir())
	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestWriteFileTool_CreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteFileTool(dir)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "nested/out.txt", "content": "hello",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	data, err := os.ReadFile(filepath.Join(dir, "nested/out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestGrepSearchTool_FindsMatches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("func Foo() {}\nfunc Bar() {}\n"), 0o644))

	tool := NewGrepSearchTool(dir)
	result, err := tool.Execute(context.Background(), map[string]interface{}{"pattern": "func Foo"})
	require.NoError(t, err)
	assert.Contains(t, result.Content, "func Foo")
	assert.NotContains(t, result.Content, "func Bar")
}

func TestGrepSearchTool_InvalidPatternErrors(t *testing.T) {
	tool := NewGrepSearchTool(t.TempDir())
	_, err := tool.Execute(context.Background(), map[string]interface{}{"pattern": "["})
	assert.Error(t, err)
}

func TestExecuteCommandTool_RunsAllowedCommand(t *testing.T) {
	tool := NewExecuteCommandTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]interface{}{"command": "echo hi"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "hi")
}

func TestExecuteCommandTool_BlocksDangerousBaseCommand(t *testing.T) {
	tool := NewExecuteCommandTool(t.TempDir())
	_, err := tool.Execute(context.Background(), map[string]interface{}{"command": "rm -rf /tmp/whatever"})
	assert.Error(t, err)
}

func TestExtractBaseCommand_StopsAtFirstPipelineSegment(t *testing.T) {
	assert.Equal(t, "echo", extractBaseCommand("echo hi | rm -rf /"))
}

func TestFetchURLTool_MissingURLErrors(t *testing.T) {
	tool := NewFetchURLTool()
	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestControlTools_TaskSuccess(t *testing.T) {
	result, err := TaskSuccessTool{}.Execute(context.Background(), map[string]interface{}{"message": "done"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "done", result.Content)
}

func TestControlTools_TaskSuccess_DefaultMessage(t *testing.T) {
	result, err := TaskSuccessTool{}.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "Task completed successfully.", result.Content)
}

func TestControlTools_TaskError_RequiresMessage(t *testing.T) {
	_, err := TaskErrorTool{}.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestControlTools_TaskError(t *testing.T) {
	result, err := TaskErrorTool{}.Execute(context.Background(), map[string]interface{}{"error_message": "boom"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
}

func TestControlTools_TasksCompleted(t *testing.T) {
	result, err := TasksCompletedTool{}.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "All tasks completed successfully.", result.Content)
}

func TestDangerousTools_ContainsExpectedSet(t *testing.T) {
	for _, name := range []string{"write_file", "edit_file", "execute_command", "git_add", "git_commit"} {
		_, ok := DangerousTools[name]
		assert.True(t, ok, "%s should be a dangerous tool", name)
	}
	_, ok := DangerousTools["read_file"]
	assert.False(t, ok)
}
