// Package promptctx turns stored conversation history and a registry of
// tools into the message lists and system-context blocks an LLM call
// needs: ContextManager builds those from memory, PromptBuilder
// assembles named prompt blocks per role.
package promptctx

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/amberloop/orca/pkg/domain"
	"github.com/amberloop/orca/pkg/llm"
	"github.com/amberloop/orca/pkg/memrepo"
	"github.com/amberloop/orca/pkg/tools"
)

// safeEnvVars is the allowlist of environment variables the environment
// context block is permitted to surface; anything else is left out to
// avoid leaking secrets into a prompt.
var safeEnvVars = []string{"HOME", "LANG", "TERM", "USER", "SHELL"}

const maxEnvValueLen = 200

// ContextManager serves conversation context for both the orchestrator
// and individual agents, built from a shared memrepo.MemoryRepository.
type ContextManager struct {
	repo memrepo.MemoryRepository
}

func NewContextManager(repo memrepo.MemoryRepository) *ContextManager {
	return &ContextManager{repo: repo}
}

// GetContext retrieves agentID's conversation history, capped at
// maxTurns (0 means "all"). Returns nil if the agent has no memory.
func (c *ContextManager) GetContext(agentID string, maxTurns int) []domain.ConversationTurn {
	if !c.repo.Exists(agentID) {
		return nil
	}
	return c.repo.GetConversationHistory(agentID, maxTurns)
}

// BuildMessages turns an agent's history into an llm.Message list ready
// for a chat-completion call, optionally prepending a system prompt.
func (c *ContextManager) BuildMessages(agentID, systemPrompt string, maxTurns int) []llm.Message {
	var messages []llm.Message
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	}

	for _, turn := range c.GetContext(agentID, maxTurns) {
		messages = append(messages, llm.Message{Role: string(turn.Role), Content: turn.Content})
	}
	return messages
}

// FormatContextAsString renders an agent's history as one line per turn,
// timestamped, for logging or inclusion in another prompt.
func (c *ContextManager) FormatContextAsString(agentID string, maxTurns int) string {
	turns := c.GetContext(agentID, maxTurns)
	if len(turns) == 0 {
		return ""
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", turn.Timestamp.Format("15:04:05"), turn.Role, turn.Content))
	}
	return strings.Join(lines, "\n")
}

// GetLastTurn returns the most recent turn recorded for agentID.
func (c *ContextManager) GetLastTurn(agentID string) (domain.ConversationTurn, bool) {
	return c.repo.GetLastTurn(agentID)
}

// GetSystemContext renders the block of ambient information appended to
// an agent's system prompt: its available tools (always including the
// control tools), the host environment, and the project's directory
// structure.
func (c *ContextManager) GetSystemContext(authorizedTools map[string]struct{}, registry *tools.ToolRegistry, workingDir string) string {
	return strings.Join([]string{
		availableToolsBlock(authorizedTools, registry),
		environmentBlock(),
		projectStructureBlock(workingDir),
	}, "\n\n")
}

// availableToolsBlock renders the catalog entry for every tool an agent
// may call: ListAuthorizedTools already always includes the control
// tools (task_success, task_error, tasks_completed) regardless of the
// agent's whitelist, so no extra merging is needed here. Each tool's
// arguments render as a JSON-Schema fragment (see toolArgumentsSchema),
// not a hand-rolled bullet list.
func availableToolsBlock(authorizedTools map[string]struct{}, registry *tools.ToolRegistry) string {
	infos := registry.ListAuthorizedTools(authorizedTools)
	if len(infos) == 0 {
		return "No tools available."
	}

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "\n### Tool: `%s`\n", info.Name)
		fmt.Fprintf(&b, "Description: %s\n", info.Description)

		if len(info.Parameters) > 0 {
			b.WriteString("Arguments (JSON Schema):\n")
			if schema, err := toolArgumentsSchema(info.Parameters); err == nil {
				if schemaJSON, err := json.MarshalIndent(schema, "", "  "); err == nil {
					fmt.Fprintf(&b, "```json\n%s\n```\n", schemaJSON)
				}
			}
		}

		switch info.Name {
		case "tasks_completed":
			b.WriteString("NOTE: Use this tool immediately when the **USER QUERY is COMPLETE**.\n")
		case "task_success":
			b.WriteString("NOTE: Use this tool **IMMEDIATELY** when the **CURRENT TASK's OBJECTIVE is FULLY ACHIEVED**.\n")
		case "task_error":
			b.WriteString("NOTE: Use this tool **IMMEDIATELY** when an unrecoverable **ERROR PREVENTS TASK COMPLETION**.\n")
		}
	}

	return "## AVAILABLE TOOLS\n" + b.String()
}

func environmentBlock() string {
	var b strings.Builder
	b.WriteString("## ENVIRONMENT CONTEXT\n")
	b.WriteString("### System Information\n")
	fmt.Fprintf(&b, "- **OS:** %s (%s)\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "- **Runtime:** Go %s\n", runtime.Version())
	if cwd, err := os.Getwd(); err == nil {
		fmt.Fprintf(&b, "- **CWD:** %s\n", cwd)
	}

	var envLines []string
	for _, key := range safeEnvVars {
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		if len(value) > maxEnvValueLen {
			value = value[:maxEnvValueLen-3] + "..."
		}
		envLines = append(envLines, fmt.Sprintf("- `%s`: `%s`", key, value))
	}
	if len(envLines) > 0 {
		b.WriteString("\n### Active Environment Variables\n")
		b.WriteString(strings.Join(envLines, "\n"))
	}

	return b.String()
}

var alwaysIgnoreDirs = map[string]struct{}{
	".git": {}, "__pycache__": {}, ".idea": {}, ".vscode": {}, ".DS_Store": {}, "venv": {}, ".venv": {}, ".env": {},
}

const maxProjectStructureDepth = 2

// projectStructureBlock walks workingDir up to maxProjectStructureDepth
// levels deep, skipping dotfiles, the always-ignored directories, and
// anything the repository's .gitignore patterns match, to give an agent
// a rough map of the repository it's operating in.
func projectStructureBlock(workingDir string) string {
	if workingDir == "" {
		workingDir = "."
	}

	var lines []string
	if abs, err := absPath(workingDir); err == nil {
		lines = append(lines, fmt.Sprintf("(Root: %s)", abs))
	}

	walkDir(workingDir, workingDir, 0, loadGitignorePatterns(workingDir), &lines)
	return "## PROJECT STRUCTURE\n" + strings.Join(lines, "\n")
}
