package builtin

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amberloop/orca/pkg/tools"
)

// ReadFileTool reads a file's contents, optionally windowed by line range
// and optionally prefixed with line numbers.
type ReadFileTool struct {
	WorkingDirectory string
	MaxFileSize      int64
}

func NewReadFileTool(workingDir string) *ReadFileTool {
	if workingDir == "" {
		workingDir = "./"
	}
	return &ReadFileTool{WorkingDirectory: workingDir, MaxFileSize: 10 * 1024 * 1024}
}

func (t *ReadFileTool) GetName() string { return "read_file" }

func (t *ReadFileTool) GetDescription() string {
	return "Read file contents with optional line numbers and range selection"
}

func (t *ReadFileTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        t.GetName(),
		Description: "Read the contents of a file with optional line numbers and range selection. Use to understand code structure before making edits.",
		Category:    "filesystem",
		Parameters: []tools.ToolParameter{
			{Name: "path", Type: "string", Description: "File path to read (relative to working directory)", Required: true},
			{Name: "start_line", Type: "int", Description: "Starting line number (1-indexed, optional)", Required: false},
			{Name: "end_line", Type: "int", Description: "Ending line number (inclusive, optional)", Required: false},
			{Name: "line_numbers", Type: "bool", Description: "Include line numbers in output", Required: false, Default: true},
		},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	start := time.Now()

	path, ok := args["path"].(string)
	if !ok || path == "" {
		err := fmt.Errorf("path parameter is required")
		return t.errorResult(err.Error(), start), err
	}

	data, err := os.ReadFile(joinWorkingDir(t.WorkingDirectory, path))
	if err != nil {
		return t.errorResult(err.Error(), start), err
	}
	if t.MaxFileSize > 0 && int64(len(data)) > t.MaxFileSize {
		err := fmt.Errorf("file %s exceeds max size of %d bytes", path, t.MaxFileSize)
		return t.errorResult(err.Error(), start), err
	}

	lines := strings.Split(string(data), "\n")
	startLine, endLine := 1, len(lines)
	if v, ok := args["start_line"]; ok {
		if n, err := toInt(v); err == nil && n > 0 {
			startLine = n
		}
	}
	if v, ok := args["end_line"]; ok {
		if n, err := toInt(v); err == nil && n > 0 {
			endLine = n
		}
	}
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return tools.ToolResult{
			Success:       true,
			Content:       "",
			ToolName:      t.GetName(),
			ExecutionTime: time.Since(start),
		}, nil
	}

	showLineNumbers := true
	if v, ok := args["line_numbers"].(bool); ok {
		showLineNumbers = v
	}

	var b strings.Builder
	for i := startLine; i <= endLine; i++ {
		if showLineNumbers {
			b.WriteString(strconv.Itoa(i))
			b.WriteString(": ")
		}
		b.WriteString(lines[i-1])
		b.WriteString("\n")
	}

	return tools.ToolResult{
		Success:       true,
		Content:       b.String(),
		ToolName:      t.GetName(),
		ExecutionTime: time.Since(start),
		Metadata: map[string]interface{}{
			"path":       path,
			"start_line": startLine,
			"end_line":   endLine,
		},
	}, nil
}

func (t *ReadFileTool) errorResult(msg string, start time.Time) tools.ToolResult {
	return tools.ToolResult{
		Success:       false,
		Error:         msg,
		ToolName:      t.GetName(),
		ExecutionTime: time.Since(start),
	}
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}
