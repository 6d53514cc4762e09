package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/amberloop/orca/pkg/tools"
)

// GrepSearchTool recursively searches files under a root for a regular
// expression, returning matches as "path:line: text".
type GrepSearchTool struct {
	WorkingDirectory string
	MaxResults       int
	MaxFileSize      int64
}

func NewGrepSearchTool(workingDir string) *GrepSearchTool {
	if workingDir == "" {
		workingDir = "./"
	}
	return &GrepSearchTool{WorkingDirectory: workingDir, MaxResults: 1000, MaxFileSize: 10 * 1024 * 1024}
}

func (t *GrepSearchTool) GetName() string { return "grep_search" }

func (t *GrepSearchTool) GetDescription() string {
	return "Search file contents for a regular expression pattern under a directory"
}

func (t *GrepSearchTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Category:    "search",
		Parameters: []tools.ToolParameter{
			{Name: "pattern", Type: "string", Description: "Regular expression to search for", Required: true},
			{Name: "path", Type: "string", Description: "Directory to search under (default: working directory)", Required: false, Default: "."},
		},
	}
}

func (t *GrepSearchTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	start := time.Now()

	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		err := fmt.Errorf("pattern parameter is required")
		return t.errorResult(err.Error(), start), err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return t.errorResult(fmt.Sprintf("invalid pattern: %v", err), start), err
	}

	root := "."
	if v, ok := args["path"].(string); ok && v != "" {
		root = v
	}
	searchRoot := joinWorkingDir(t.WorkingDirectory, root)

	var matches []string
	walkErr := filepath.Walk(searchRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if info.Size() > t.MaxFileSize {
			return nil
		}
		if len(matches) >= t.MaxResults {
			return filepath.SkipDir
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", path, i+1, line))
				if len(matches) >= t.MaxResults {
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return t.errorResult(walkErr.Error(), start), walkErr
	}

	return tools.ToolResult{
		Success:       true,
		Content:       strings.Join(matches, "\n"),
		ToolName:      t.GetName(),
		ExecutionTime: time.Since(start),
		Metadata:      map[string]interface{}{"match_count": len(matches)},
	}, nil
}

func (t *GrepSearchTool) errorResult(msg string, start time.Time) tools.ToolResult {
	return tools.ToolResult{Success: false, Error: msg, ToolName: t.GetName(), ExecutionTime: time.Since(start)}
}
