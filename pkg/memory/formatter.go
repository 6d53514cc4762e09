package memory

import (
	"fmt"
	"strings"

	"github.com/amberloop/orca/pkg/domain"
	"github.com/amberloop/orca/pkg/memrepo"
)

const (
	orchestratorAgentID = "orchestrator"
	separator           = "============================================================"
)

// Formatter renders stored conversation memory into the human-readable
// text the CLI's /memory commands print. It reads directly from a
// memrepo.MemoryRepository rather than through Manager, since formatting
// wants the full, uncapped history and has no use for the context cache.
type Formatter struct {
	repo memrepo.MemoryRepository
}

func NewFormatter(repo memrepo.MemoryRepository) *Formatter {
	return &Formatter{repo: repo}
}

// ConversationStats summarizes the orchestrator's recorded conversations.
type ConversationStats struct {
	Size    int
	IsEmpty bool
}

// GetConversationStats counts user turns recorded against orchestratorID,
// each one marking the start of a conversation.
func (f *Formatter) GetConversationStats(orchestratorID string) ConversationStats {
	if orchestratorID == "" {
		orchestratorID = orchestratorAgentID
	}
	if !f.repo.Exists(orchestratorID) {
		return ConversationStats{IsEmpty: true}
	}

	turns := f.repo.GetConversationHistory(orchestratorID, 0)
	userTurns := 0
	for _, t := range turns {
		if t.Role == domain.RoleUser {
			userTurns++
		}
	}
	return ConversationStats{Size: userTurns, IsEmpty: userTurns == 0}
}

// AgentStats summarizes how many non-orchestrator agents hold memory.
type AgentStats struct {
	Size    int
	IsEmpty bool
}

// GetAgentStats counts the agents (excluding the orchestrator) that have
// at least one recorded turn.
func (f *Formatter) GetAgentStats() AgentStats {
	ids := f.agentIDsWithMemory()
	return AgentStats{Size: len(ids), IsEmpty: len(ids) == 0}
}

func (f *Formatter) agentIDsWithMemory() []string {
	all := f.repo.GetAllAgentIDs()
	out := make([]string, 0, len(all))
	for _, id := range all {
		if id == orchestratorAgentID {
			continue
		}
		if f.repo.GetTurnCount(id) > 0 {
			out = append(out, id)
		}
	}
	return out
}

// FormatConversations renders every orchestrator conversation (a user
// turn followed by the orchestrator's reply) as a display-ready string.
func (f *Formatter) FormatConversations(orchestratorID string) []string {
	if orchestratorID == "" {
		orchestratorID = orchestratorAgentID
	}
	if !f.repo.Exists(orchestratorID) {
		return nil
	}

	turns := f.repo.GetConversationHistory(orchestratorID, 0)
	var formatted []string
	conversationNum := 1
	idx := 0

	for idx < len(turns) {
		turn := turns[idx]
		if turn.Role != domain.RoleUser {
			idx++
			continue
		}

		userInput := turn.Content
		timestamp := turn.Timestamp.Format("2006-01-02 15:04:05")
		calledAgents := calledAgentsFrom(turn.Metadata)

		nextIdx := idx + 1
		var output string
		if nextIdx < len(turns) && turns[nextIdx].Role == domain.RoleAssistant {
			output = turns[nextIdx].Content
			calledAgents = append(calledAgents, calledAgentsFrom(turns[nextIdx].Metadata)...)
		}

		formatted = append(formatted, formatSingleConversation(conversationNum, timestamp, userInput, calledAgents, output))
		conversationNum++
		if output != "" {
			idx = nextIdx + 1
		} else {
			idx++
		}
	}

	return formatted
}

func calledAgentsFrom(metadata map[string]any) []string {
	if metadata == nil {
		return nil
	}
	raw, ok := metadata["called_agents"]
	if !ok {
		return nil
	}
	list, ok := raw.([]string)
	if ok {
		return list
	}
	anyList, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(anyList))
	for _, v := range anyList {
		if s, ok := v.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}

func formatSingleConversation(num int, timestamp, userInput string, calledAgents []string, output string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", separator)
	fmt.Fprintf(&b, "CONVERSATION %d\n", num)
	fmt.Fprintf(&b, "%s\n", separator)
	fmt.Fprintf(&b, "Timestamp: %s\n", timestamp)
	b.WriteString("\n--- USER INPUT ---\n")
	b.WriteString(userInput)

	if len(calledAgents) > 0 {
		b.WriteString("\n\n--- AGENTS CALLED ---\n")
		for i, agent := range calledAgents {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, agent)
		}
	}

	if output != "" {
		b.WriteString("\n--- ORCHESTRATOR OUTPUT ---\n")
		b.WriteString(output)
	}

	return b.String()
}

// FormatAgents renders a one-paragraph summary per agent with stored
// memory, excluding the orchestrator.
func (f *Formatter) FormatAgents() []string {
	agentIDs := f.agentIDsWithMemory()
	if len(agentIDs) == 0 {
		return nil
	}

	formatted := make([]string, 0, len(agentIDs))
	for idx, agentID := range agentIDs {
		turns := f.repo.GetConversationHistory(agentID, 0)

		conversationRef, query, response, timestamp := "N/A", "N/A", "N/A", "N/A"
		for _, t := range turns {
			switch t.Role {
			case domain.RoleUser:
				query = t.Content
				timestamp = t.Timestamp.Format("2006-01-02 15:04:05")
				if t.Metadata != nil {
					if ref, ok := t.Metadata["conversation_id"].(string); ok {
						conversationRef = ref
					}
				}
			case domain.RoleAssistant:
				response = t.Content
			}
		}

		formatted = append(formatted, formatSingleAgent(idx+1, agentID, conversationRef, timestamp, query, response, len(turns)))
	}

	return formatted
}

func formatSingleAgent(num int, agentID, conversationRef, timestamp, query, response string, totalTurns int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", separator)
	fmt.Fprintf(&b, "AGENT %d: %s\n", num, agentID)
	fmt.Fprintf(&b, "%s\n", separator)
	fmt.Fprintf(&b, "Conversation ID: %s\n", conversationRef)
	fmt.Fprintf(&b, "Timestamp: %s\n", timestamp)
	fmt.Fprintf(&b, "Total Turns: %d\n", totalTurns)
	b.WriteString("\n--- QUERY SENT TO LLM ---\n")
	b.WriteString(truncate(query, 500))
	b.WriteString("\n--- RESPONSE FROM LLM ---\n")
	b.WriteString(truncate(response, 500))
	return b.String()
}

// GetAgentDetail renders the full turn-by-turn history of one agent, or
// ("", false) if the agent has no stored memory.
func (f *Formatter) GetAgentDetail(agentID string) (string, bool) {
	if !f.repo.Exists(agentID) {
		return "", false
	}

	turns := f.repo.GetConversationHistory(agentID, 0)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", separator)
	fmt.Fprintf(&b, "AGENT DETAIL: %s\n", agentID)
	fmt.Fprintf(&b, "%s\n", separator)
	fmt.Fprintf(&b, "Total Turns: %d\n", len(turns))
	b.WriteString("\n--- FULL CONVERSATION HISTORY ---\n")

	for idx, t := range turns {
		fmt.Fprintf(&b, "\n[%d] %s - %s\n", idx+1, strings.ToUpper(string(t.Role)), t.Timestamp.Format("2006-01-02 15:04:05"))
		if len(t.Metadata) > 0 {
			fmt.Fprintf(&b, "Metadata: %v\n", t.Metadata)
		}
		b.WriteString(truncate(t.Content, 300))
		b.WriteString("\n" + strings.Repeat("-", 40) + "\n")
	}

	return b.String(), true
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
