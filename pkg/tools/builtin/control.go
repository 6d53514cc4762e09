package builtin

import (
	"context"
	"fmt"

	"github.com/amberloop/orca/pkg/tools"
)

// The control tools let an agent declare a task's outcome from inside the
// reasoning loop rather than the loop inferring it from prose. They are
// registered as control tools (tools.ToolRegistry.RegisterControlTool) so
// every agent can call them regardless of its authorized_tools whitelist.

// TaskSuccessTool signals that the current task's objective is achieved.
type TaskSuccessTool struct{}

func (TaskSuccessTool) GetName() string        { return "task_success" }
func (TaskSuccessTool) GetDescription() string { return "Call this when the current task's objective is achieved." }

func (TaskSuccessTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        "task_success",
		Description: "Call this when the current task's objective is achieved.",
		Category:    "control",
		Parameters: []tools.ToolParameter{
			{Name: "message", Type: "string", Description: "Final summary of what was achieved", Required: false, Default: "Task completed successfully."},
		},
	}
}

func (TaskSuccessTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	message := "Task completed successfully."
	if v, ok := args["message"].(string); ok && v != "" {
		message = v
	}
	return tools.ToolResult{
		Success:  true,
		Content:  message,
		ToolName: "task_success",
		Output:   map[string]interface{}{"status": "success", "message": message},
	}, nil
}

// TaskErrorTool signals that the current task's objective cannot be
// achieved due to an error the agent encountered.
type TaskErrorTool struct{}

func (TaskErrorTool) GetName() string { return "task_error" }
func (TaskErrorTool) GetDescription() string {
	return "Call this when the current task's objective cannot be achieved due to an error."
}

func (TaskErrorTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        "task_error",
		Description: "Call this when the current task's objective cannot be achieved due to an error.",
		Category:    "control",
		Parameters: []tools.ToolParameter{
			{Name: "error_message", Type: "string", Description: "Detailed description of the error", Required: true},
		},
	}
}

func (TaskErrorTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	errMsg, ok := args["error_message"].(string)
	if !ok || errMsg == "" {
		return tools.ToolResult{}, fmt.Errorf("error_message parameter is required")
	}
	return tools.ToolResult{
		Success:  false,
		Error:    errMsg,
		ToolName: "task_error",
		Output:   map[string]interface{}{"status": "error", "error_message": errMsg},
	}, nil
}

// TasksCompletedTool signals that the ENTIRE user objective, not just
// the current task, has been achieved.
type TasksCompletedTool struct{}

func (TasksCompletedTool) GetName() string { return "tasks_completed" }
func (TasksCompletedTool) GetDescription() string {
	return "Call this when the ENTIRE user query/objective is achieved, not just the current task."
}

func (TasksCompletedTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        "tasks_completed",
		Description: "Call this when the ENTIRE user query/objective is achieved, not just the current task.",
		Category:    "control",
		Parameters: []tools.ToolParameter{
			{Name: "message", Type: "string", Description: "Final summary of what was achieved", Required: false, Default: "All tasks completed successfully."},
		},
	}
}

func (TasksCompletedTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	message := "All tasks completed successfully."
	if v, ok := args["message"].(string); ok && v != "" {
		message = v
	}
	return tools.ToolResult{
		Success:  true,
		Content:  message,
		ToolName: "tasks_completed",
		Output:   map[string]interface{}{"status": "completed", "message": message},
	}, nil
}
