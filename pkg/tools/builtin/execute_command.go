package builtin

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/amberloop/orca/pkg/tools"
)

// ExecuteCommandTool runs a shell command via "sh -c". Base-command
// blacklisting against DangerousShellCommands is always applied; an
// additional allowlist can be supplied to further restrict what runs.
type ExecuteCommandTool struct {
	WorkingDirectory string
	MaxExecutionTime time.Duration
	AllowedCommands  map[string]struct{} // nil/empty = any command not blacklisted
}

func NewExecuteCommandTool(workingDir string) *ExecuteCommandTool {
	if workingDir == "" {
		workingDir = "./"
	}
	return &ExecuteCommandTool{WorkingDirectory: workingDir, MaxExecutionTime: 30 * time.Second}
}

func (t *ExecuteCommandTool) GetName() string { return "execute_command" }

func (t *ExecuteCommandTool) GetDescription() string {
	return "Execute shell commands for file operations, system tasks, and development workflows"
}

func (t *ExecuteCommandTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Category:    "system",
		Dangerous:   true,
		Parameters: []tools.ToolParameter{
			{Name: "command", Type: "string", Description: "Shell command to execute", Required: true},
			{Name: "working_dir", Type: "string", Description: "Working directory (optional)", Required: false},
		},
	}
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	start := time.Now()

	command, ok := args["command"].(string)
	if !ok || command == "" {
		err := fmt.Errorf("command parameter is required")
		return t.errorResult(err.Error(), start), err
	}

	workingDir := t.WorkingDirectory
	if v, ok := args["working_dir"].(string); ok && v != "" {
		workingDir = v
	}

	if err := t.validateCommand(command); err != nil {
		return t.errorResult(err.Error(), start), err
	}

	execCtx := ctx
	var cancel context.CancelFunc
	if t.MaxExecutionTime > 0 {
		execCtx, cancel = context.WithTimeout(ctx, t.MaxExecutionTime)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workingDir

	output, err := cmd.CombinedOutput()
	result := tools.ToolResult{
		Content:       string(output),
		Success:       err == nil,
		ToolName:      t.GetName(),
		ExecutionTime: time.Since(start),
		Metadata:      map[string]interface{}{"command": command, "working_dir": workingDir},
	}
	if err != nil {
		result.Error = err.Error()
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.Metadata["exit_code"] = exitErr.ExitCode()
		}
	}
	return result, err
}

// validateCommand rejects a command whose base executable is blacklisted,
// or (when an allowlist is configured) is not on the allowlist.
func (t *ExecuteCommandTool) validateCommand(command string) error {
	base := extractBaseCommand(command)
	if _, dangerous := DangerousShellCommands[base]; dangerous {
		return fmt.Errorf("command not allowed: %s is blacklisted", base)
	}
	if len(t.AllowedCommands) == 0 {
		return nil
	}
	if _, ok := t.AllowedCommands[base]; !ok {
		return fmt.Errorf("command not allowed: %s (not in allowlist)", base)
	}
	return nil
}

func extractBaseCommand(command string) string {
	parts := strings.FieldsFunc(command, func(r rune) bool {
		return r == '|' || r == '>' || r == '<' || r == ';'
	})
	if len(parts) == 0 {
		return ""
	}
	fields := strings.Fields(strings.TrimSpace(parts[0]))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (t *ExecuteCommandTool) errorResult(msg string, start time.Time) tools.ToolResult {
	return tools.ToolResult{Success: false, Error: msg, ToolName: t.GetName(), ExecutionTime: time.Since(start)}
}
