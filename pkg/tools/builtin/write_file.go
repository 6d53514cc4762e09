package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amberloop/orca/pkg/tools"
)

// WriteFileTool writes (or overwrites) a file's contents, creating parent
// directories as needed. This is one of the tools the execution loop gates
// behind a dangerous-command confirmation (see builtin.DangerousTools).
type WriteFileTool struct {
	WorkingDirectory string
}

func NewWriteFileTool(workingDir string) *WriteFileTool {
	if workingDir == "" {
		workingDir = "./"
	}
	return &WriteFileTool{WorkingDirectory: workingDir}
}

func (t *WriteFileTool) GetName() string { return "write_file" }

func (t *WriteFileTool) GetDescription() string {
	return "Write content to a file, creating it (and parent directories) if needed"
}

func (t *WriteFileTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Category:    "filesystem",
		Dangerous:   true,
		Parameters: []tools.ToolParameter{
			{Name: "path", Type: "string", Description: "File path to write (relative to working directory)", Required: true},
			{Name: "content", Type: "string", Description: "Content to write to the file", Required: true},
		},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	start := time.Now()

	path, ok := args["path"].(string)
	if !ok || path == "" {
		err := fmt.Errorf("path parameter is required")
		return t.errorResult(err.Error(), start), err
	}
	content, ok := args["content"].(string)
	if !ok {
		err := fmt.Errorf("content parameter is required")
		return t.errorResult(err.Error(), start), err
	}

	full := joinWorkingDir(t.WorkingDirectory, path)
	if dir := filepath.Dir(full); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return t.errorResult(err.Error(), start), err
		}
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return t.errorResult(err.Error(), start), err
	}

	return tools.ToolResult{
		Success:       true,
		Content:       fmt.Sprintf("wrote %d bytes to %s", len(content), path),
		ToolName:      t.GetName(),
		ExecutionTime: time.Since(start),
		Metadata:      map[string]interface{}{"path": path, "bytes_written": len(content)},
	}, nil
}

func (t *WriteFileTool) errorResult(msg string, start time.Time) tools.ToolResult {
	return tools.ToolResult{Success: false, Error: msg, ToolName: t.GetName(), ExecutionTime: time.Since(start)}
}

func joinWorkingDir(workingDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workingDir, path)
}
