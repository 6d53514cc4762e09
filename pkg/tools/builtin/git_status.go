package builtin

import (
	"context"
	"os/exec"
	"time"

	"github.com/amberloop/orca/pkg/tools"
)

// GitStatusTool runs "git status --short --branch" under a working
// directory. It is read-only and therefore not in DangerousTools.
type GitStatusTool struct {
	WorkingDirectory string
}

func NewGitStatusTool(workingDir string) *GitStatusTool {
	if workingDir == "" {
		workingDir = "./"
	}
	return &GitStatusTool{WorkingDirectory: workingDir}
}

func (t *GitStatusTool) GetName() string { return "git_status" }

func (t *GitStatusTool) GetDescription() string {
	return "Show the working tree status of the git repository"
}

func (t *GitStatusTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Category:    "git",
		Parameters:  nil,
	}
}

func (t *GitStatusTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, "git", "status", "--short", "--branch")
	cmd.Dir = t.WorkingDirectory

	output, err := cmd.CombinedOutput()
	result := tools.ToolResult{
		Content:       string(output),
		Success:       err == nil,
		ToolName:      t.GetName(),
		ExecutionTime: time.Since(start),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}
