// Package execution implements the per-agent think-act-observe loop:
// one LLM call plus at most one tool call per turn, with a bounded
// retry against a chatty LLM's malformed JSON and a confirmation gate
// in front of dangerous tool calls.
package execution

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var codeFenceRegex = regexp.MustCompile("(?m)^```(json)?|```$")

// ToolCommand is the decoded shape of one LLM turn's command: either the
// native {"tool_name": "...", "arguments": {...}} or the OpenAI-style
// function-call shape {"function": {"name": "...", "arguments": ...}}.
type ToolCommand struct {
	ToolName  string                 `mapstructure:"tool_name"`
	Arguments map[string]interface{} `mapstructure:"arguments"`
}

// parseToolCommand aggressively recovers a tool command from a chatty
// LLM response: strip markdown code fences, isolate the outermost
// brace-balanced substring, and decode it.
//
// ok is false when no JSON object could be isolated, when the isolated
// text is not valid JSON, or when a tool_name or function payload fails
// to decode (the caller then decides, by checking for stray braces,
// whether this was a failed JSON attempt worth retrying or plain
// conversational text). When
// ok is true but the returned ToolCommand.ToolName is empty, the content
// was valid JSON without a tool_name: a "structured data" response
// (e.g. a planner's task list) the caller returns as-is.
func parseToolCommand(content string) (cmd ToolCommand, raw map[string]interface{}, ok bool) {
	cleaned := strings.TrimSpace(codeFenceRegex.ReplaceAllString(strings.TrimSpace(content), ""))

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return ToolCommand{}, nil, false
	}

	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &raw); err != nil {
		return ToolCommand{}, nil, false
	}

	if _, hasToolName := raw["tool_name"]; hasToolName {
		if err := mapstructure.Decode(raw, &cmd); err != nil {
			return ToolCommand{}, raw, false
		}
		return cmd, raw, true
	}

	if fn, isMap := raw["function"].(map[string]interface{}); isMap {
		if name, _ := fn["name"].(string); name != "" {
			args, err := decodeFunctionArguments(fn["arguments"])
			if err != nil {
				return ToolCommand{}, raw, false
			}
			return ToolCommand{ToolName: name, Arguments: args}, raw, true
		}
	}

	return ToolCommand{}, raw, true
}

// decodeFunctionArguments handles the OpenAI function-call convention
// that "arguments" may be a JSON-encoded string rather than an object.
func decodeFunctionArguments(v interface{}) (map[string]interface{}, error) {
	switch args := v.(type) {
	case map[string]interface{}:
		return args, nil
	case string:
		var decoded map[string]interface{}
		if args == "" {
			return map[string]interface{}{}, nil
		}
		if err := json.Unmarshal([]byte(args), &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	default:
		return map[string]interface{}{}, nil
	}
}
