// Package state implements the dynamic todolist a workflow executes
// against: generated once by an agent call, then mutated turn by turn as
// each step's result is folded back in via an embedded todo_update
// sentinel.
package state

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Step is one entry in a TodoList.
type Step struct {
	StepID      string `json:"step_id" mapstructure:"step_id"`
	Description string `json:"description" mapstructure:"description"`
	Status      string `json:"status" mapstructure:"status"`
	DependsOn   string `json:"depends_on,omitempty" mapstructure:"depends_on"`
}

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// ActionStep is a single tool invocation within an ExecutionStep, the
// optional multi-action-per-step representation a StateManager may use
// instead of one tool per todolist step.
type ActionStep struct {
	ToolName    string
	Arguments   map[string]interface{}
	Description string
}

// ExecutionStep groups one or more ActionStep under a single dependency
// slot, mirroring core/domain/execution_plan.py's ExecutionStep.
type ExecutionStep struct {
	StepNumber  int
	Description string
	Actions     []ActionStep
	DependsOn   *int
}

// ExecutionPlan is the complete multi-action plan an LLM can produce in
// one call, as an alternative to the incremental one-step-at-a-time
// todolist flow.
type ExecutionPlan struct {
	PlanID               string
	UserQuery            string
	Steps                []ExecutionStep
	EstimatedDuration    string
	RequiresConfirmation bool
	Metadata             map[string]interface{}
}

// IsDangerous reports whether any action in the plan names a tool in
// dangerousTools.
func (p ExecutionPlan) IsDangerous(dangerousTools map[string]struct{}) bool {
	for _, step := range p.Steps {
		for _, action := range step.Actions {
			if _, ok := dangerousTools[action.ToolName]; ok {
				return true
			}
		}
	}
	return false
}

var codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

const todoUpdateSentinel = "todo_update:"

// todoUpdate is the sentinel payload an agent can embed in its response
// text to mutate the todolist in flight: add new steps, remove stale
// ones, or modify an existing step's description/dependency.
type todoUpdate struct {
	Add    []Step                   `mapstructure:"add"`
	Remove []string                 `mapstructure:"remove"`
	Modify []map[string]interface{} `mapstructure:"modify"`
}

// AgentRunner is the minimal contract the state manager needs to
// generate a todolist: one LLM/tool turn given a system and user prompt.
// Executor satisfies it with agentRunnerAdapter, which binds an
// *agent.Agent's Run to a context.
type AgentRunner interface {
	Run(systemPrompt, userPrompt string) (response string, success bool)
}

// Manager tracks a single workflow's todolist: its steps, which are
// complete, and the raw text result recorded for each completed step.
type Manager struct {
	query        string
	todoList     []Step
	completed    []string
	stepResults  map[string]string
	iteration    int
}

func NewManager() *Manager {
	return &Manager{stepResults: make(map[string]string)}
}

// InitTodoList calls runner to generate a todolist for userQuery, then
// parses and stores the result. Returns false if the agent call failed
// or its response couldn't be parsed into a valid todolist.
func (m *Manager) InitTodoList(runner AgentRunner, systemPrompt, userQuery, context string) bool {
	userPrompt := fmt.Sprintf("Generate todolist for: %s", userQuery)
	if context != "" {
		userPrompt = fmt.Sprintf("%s\n\nGenerate todolist for: %s", context, userQuery)
	}

	response, success := runner.Run(systemPrompt, userPrompt)
	if !success {
		return false
	}
	return m.parseAndStoreTodoList(response, userQuery)
}

func (m *Manager) parseAndStoreTodoList(response, userQuery string) bool {
	cleaned := strings.TrimSpace(response)
	if match := codeFenceRegex.FindStringSubmatch(cleaned); match != nil {
		cleaned = strings.TrimSpace(match[1])
	}

	var parsed struct {
		Query    string                   `json:"query"`
		TodoList []map[string]interface{} `json:"todo_list"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return false
	}
	if len(parsed.TodoList) == 0 {
		return false
	}

	steps := make([]Step, 0, len(parsed.TodoList))
	for _, raw := range parsed.TodoList {
		var step Step
		if err := mapstructure.Decode(raw, &step); err != nil {
			return false
		}
		if step.StepID == "" || step.Description == "" {
			return false
		}
		if step.Status == "" {
			step.Status = StatusPending
		}
		steps = append(steps, step)
	}

	query := parsed.Query
	if query == "" {
		query = userQuery
	}

	m.query = query
	m.todoList = steps
	return true
}

// GetNextStep returns the first pending step whose dependency (if any)
// is already in the completed set. Returns (Step{}, false) when no step
// is currently runnable (every step done, or the only pending steps are
// blocked on an unsatisfied dependency).
func (m *Manager) GetNextStep() (Step, bool) {
	completedSet := make(map[string]struct{}, len(m.completed))
	for _, id := range m.completed {
		completedSet[id] = struct{}{}
	}

	for _, step := range m.todoList {
		if step.Status != StatusPending {
			continue
		}
		if step.DependsOn != "" {
			if _, ok := completedSet[step.DependsOn]; !ok {
				continue
			}
		}
		return step, true
	}
	return Step{}, false
}

// UpdateFromResult marks stepID completed, records its result text, and
// applies any todo_update sentinel embedded in that text.
func (m *Manager) UpdateFromResult(stepID, resultText string) {
	m.markStepCompleted(stepID)
	m.stepResults[stepID] = resultText
	m.completed = append(m.completed, stepID)
	m.parseAndApplyUpdates(resultText)
	m.iteration++
}

func (m *Manager) markStepCompleted(stepID string) {
	for i := range m.todoList {
		if m.todoList[i].StepID == stepID {
			m.todoList[i].Status = StatusCompleted
			return
		}
	}
}

func (m *Manager) parseAndApplyUpdates(resultText string) {
	payload, found := extractTodoUpdatePayload(resultText)
	if !found {
		return
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return
	}

	var update todoUpdate
	if err := mapstructure.Decode(raw, &update); err != nil {
		return
	}

	m.applyAdditions(update.Add)
	m.applyRemovals(update.Remove)
	m.applyModifications(update.Modify)
}

// extractTodoUpdatePayload isolates the brace-balanced JSON object that
// follows the todo_update sentinel. A regex can't do this: add/modify
// payloads nest objects, so the match has to track brace depth (and skip
// braces inside JSON strings) to find the object's real closing brace.
func extractTodoUpdatePayload(text string) (string, bool) {
	idx := strings.Index(text, todoUpdateSentinel)
	if idx == -1 {
		return "", false
	}
	rest := text[idx+len(todoUpdateSentinel):]
	start := strings.Index(rest, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(rest); i++ {
		ch := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[start : i+1], true
			}
		}
	}
	return "", false
}

func (m *Manager) applyAdditions(additions []Step) int {
	count := 0
	for _, step := range additions {
		if step.StepID == "" || step.Description == "" {
			continue
		}
		step.Status = StatusPending
		m.todoList = append(m.todoList, step)
		count++
	}
	return count
}

func (m *Manager) applyRemovals(removals []string) int {
	if len(removals) == 0 {
		return 0
	}
	remove := make(map[string]struct{}, len(removals))
	for _, id := range removals {
		remove[id] = struct{}{}
	}

	initialLen := len(m.todoList)
	kept := m.todoList[:0]
	for _, step := range m.todoList {
		if _, drop := remove[step.StepID]; drop {
			continue
		}
		kept = append(kept, step)
	}
	m.todoList = kept
	return initialLen - len(kept)
}

func (m *Manager) applyModifications(modifications []map[string]interface{}) int {
	count := 0
	for _, mod := range modifications {
		stepID, _ := mod["step_id"].(string)
		if stepID == "" {
			continue
		}
		for i := range m.todoList {
			if m.todoList[i].StepID != stepID {
				continue
			}
			if description, ok := mod["description"].(string); ok {
				m.todoList[i].Description = description
			}
			if dependsOn, ok := mod["depends_on"].(string); ok {
				m.todoList[i].DependsOn = dependsOn
			}
			count++
			break
		}
	}
	return count
}

// IsComplete reports whether every step in the todolist is completed. A
// todolist that was never initialized (empty) is not complete.
func (m *Manager) IsComplete() bool {
	if len(m.todoList) == 0 {
		return false
	}
	for _, step := range m.todoList {
		if step.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// GetStepResults returns a copy of the recorded result text per step ID.
func (m *Manager) GetStepResults() map[string]string {
	out := make(map[string]string, len(m.stepResults))
	for k, v := range m.stepResults {
		out[k] = v
	}
	return out
}

// GetTodoList returns a copy of the current todolist.
func (m *Manager) GetTodoList() []Step {
	out := make([]Step, len(m.todoList))
	copy(out, m.todoList)
	return out
}

// GetCompletedSteps returns a copy of the completed step ID list.
func (m *Manager) GetCompletedSteps() []string {
	out := make([]string, len(m.completed))
	copy(out, m.completed)
	return out
}

// Query returns the stored user query the todolist was generated for.
func (m *Manager) Query() string { return m.query }

// Iteration returns the number of UpdateFromResult calls recorded.
func (m *Manager) Iteration() int { return m.iteration }

// DisplayTodoList renders the todolist as an indented progress report,
// suitable for terminal output.
func (m *Manager) DisplayTodoList() string {
	if len(m.todoList) == 0 {
		return "No todolist"
	}

	total := len(m.todoList)
	completed := len(m.completed)

	var b strings.Builder
	fmt.Fprintf(&b, "TodoList Progress: %d/%d steps completed (iteration %d)\n\n", completed, total, m.iteration)

	for _, step := range m.todoList {
		icon := "○"
		if step.Status == StatusCompleted {
			icon = "✓"
		}
		fmt.Fprintf(&b, "  %s %s: %s\n", icon, step.StepID, step.Description)
		if step.DependsOn != "" {
			fmt.Fprintf(&b, "      depends_on: %s\n", step.DependsOn)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m *Manager) String() string {
	return fmt.Sprintf("StateManager(%d/%d completed)", len(m.completed), len(m.todoList))
}
