package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amberloop/orca/pkg/tools"
)

// FetchURLTool performs a GET request against an http(s) URL and returns
// the response body as text, capped at MaxResponseBytes.
type FetchURLTool struct {
	Client           *http.Client
	MaxResponseBytes int64
}

func NewFetchURLTool() *FetchURLTool {
	return &FetchURLTool{
		Client:           &http.Client{Timeout: 10 * time.Second},
		MaxResponseBytes: 1 << 20,
	}
}

func (t *FetchURLTool) GetName() string { return "fetch_url" }

func (t *FetchURLTool) GetDescription() string {
	return "Fetch the contents of a URL via HTTP GET"
}

func (t *FetchURLTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Category:    "web",
		Parameters: []tools.ToolParameter{
			{Name: "url", Type: "string", Description: "The URL to fetch", Required: true},
		},
	}
}

func (t *FetchURLTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	start := time.Now()

	rawURL, ok := args["url"].(string)
	if !ok || rawURL == "" {
		err := fmt.Errorf("url parameter is required")
		return t.errorResult(err.Error(), start), err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return t.errorResult(err.Error(), start), err
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return t.errorResult(err.Error(), start), err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.MaxResponseBytes))
	if err != nil {
		return t.errorResult(err.Error(), start), err
	}

	return tools.ToolResult{
		Success:       resp.StatusCode < 400,
		Content:       string(body),
		ToolName:      t.GetName(),
		ExecutionTime: time.Since(start),
		Metadata:      map[string]interface{}{"status_code": resp.StatusCode, "url": rawURL},
	}, nil
}

func (t *FetchURLTool) errorResult(msg string, start time.Time) tools.ToolResult {
	return tools.ToolResult{Success: false, Error: msg, ToolName: t.GetName(), ExecutionTime: time.Since(start)}
}
