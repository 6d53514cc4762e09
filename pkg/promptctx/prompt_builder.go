package promptctx

import "strings"

// PromptRole names which slot a block of prompt text belongs to.
type PromptRole string

const (
	PromptRoleSystem    PromptRole = "system"
	PromptRoleUser      PromptRole = "user"
	PromptRoleAssistant PromptRole = "assistant"
)

// PromptID identifies one of the canonical prompts built into the
// system, retrievable via GetPromptByID regardless of any PromptBuilder
// instance's current state.
type PromptID string

const (
	// PromptIDExecAgent is the system prompt given to the specialized
	// agent TasksManager dispatches each workflow step to.
	PromptIDExecAgent PromptID = "exec_agent"
	// PromptIDPlanner is the system prompt given to the agent that
	// decomposes a user request into a task list.
	PromptIDPlanner PromptID = "planner"
	// PromptIDDefault is the system prompt given to the fallback agent
	// used when a request doesn't decompose into any tasks.
	PromptIDDefault PromptID = "default_agent"
	// PromptIDTodoList is the system prompt given to the agent that
	// generates and mutates the dynamic todolist state.Executor drives.
	PromptIDTodoList PromptID = "todolist_agent"
)

var canonicalPrompts = map[PromptID]string{
	PromptIDExecAgent: strings.TrimSpace(`
You are an autonomous execution agent. You receive one objective at a
time and must accomplish it using the tools available to you.

Think step by step. On each turn, decide on exactly one tool call that
makes progress toward the objective, then respond with a single JSON
object of the form:

{"tool_name": "<tool_name>", "arguments": {...}}

When the objective is fully achieved, call the task_success tool with a
summary of what you did. If you hit an unrecoverable error, call
task_error with an explanation. Never call more than one tool per turn.
`),
	PromptIDPlanner: strings.TrimSpace(`
You are a planning agent. Given a user request, decide whether it needs
to be broken down into a sequence of tasks for specialized agents, or
whether it is simple enough to answer directly.

If decomposition is needed, respond with a JSON object:

{"analyse": "<your reasoning>", "tasks": [{"step": "<what to do>", "expected_outcome": "<definition of done>"}, ...]}

If no decomposition is needed, respond with:

{"analyse": "<your reasoning>", "tasks": []}
`),
	PromptIDDefault: strings.TrimSpace(`
You are a general-purpose assistant. Answer the user's request directly
and concisely, using tools only when the request genuinely requires
inspecting or modifying the filesystem or environment.
`),
	PromptIDTodoList: strings.TrimSpace(`
You generate and maintain a dynamic todolist for an autonomous workflow.

Given a user query, respond with a JSON object of the form:

{"query": "<restated query>", "todo_list": [{"step_id": "1", "description": "<what to do>", "depends_on": "<step_id>"}, ...]}

"depends_on" is optional and must name a step_id earlier in the list.
Keep steps small and independently actionable by a single agent call.

After each step executes, you may embed a todo_update sentinel anywhere
in your response text to mutate the list in flight:

todo_update: {"add": [{"step_id": "...", "description": "..."}], "remove": ["step_id", ...], "modify": [{"step_id": "...", "description": "...", "depends_on": "..."}]}

Only include a todo_update when the step's outcome actually changes what
remains to be done.
`),
}

// GetPromptByID returns the canonical text for id, or "" if id is
// unknown.
func GetPromptByID(id PromptID) string {
	return canonicalPrompts[id]
}

// PromptBuilder assembles a prompt out of named blocks appended per
// role, joined with a blank line between blocks when the prompt is
// retrieved.
type PromptBuilder struct {
	blocks map[PromptRole][]string
}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{blocks: make(map[PromptRole][]string)}
}

// AddBlock appends text as a new block for role.
func (b *PromptBuilder) AddBlock(role PromptRole, text string) {
	b.blocks[role] = append(b.blocks[role], text)
}

// ClearPrompt discards every block accumulated for role.
func (b *PromptBuilder) ClearPrompt(role PromptRole) {
	delete(b.blocks, role)
}

// GetPrompt joins role's accumulated blocks with a blank line between
// each.
func (b *PromptBuilder) GetPrompt(role PromptRole) string {
	return strings.Join(b.blocks[role], "\n\n")
}
