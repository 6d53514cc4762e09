package domain

import (
	"fmt"
	"time"
)

// Role identifies who authored a ConversationTurn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ConversationTurn is a single exchange recorded in an agent's memory.
// Metadata carries free-form bookkeeping a caller wants attached to the
// turn (e.g. a conversation_id or the agents a task delegated to); it is
// nil unless a caller sets it.
type ConversationTurn struct {
	Role      Role
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
}

// NewConversationTurn validates and constructs a ConversationTurn.
func NewConversationTurn(role Role, content string) (ConversationTurn, error) {
	turn := ConversationTurn{Role: role, Content: content, Timestamp: time.Now()}
	if err := turn.validate(); err != nil {
		return ConversationTurn{}, err
	}
	return turn, nil
}

// NewConversationTurnWithMetadata is NewConversationTurn plus attached
// metadata, used by callers (the orchestrator, memory formatter) that
// need to tag a turn with a conversation_id or similar bookkeeping.
func NewConversationTurnWithMetadata(role Role, content string, metadata map[string]any) (ConversationTurn, error) {
	turn, err := NewConversationTurn(role, content)
	if err != nil {
		return ConversationTurn{}, err
	}
	turn.Metadata = metadata
	return turn, nil
}

func (t ConversationTurn) validate() error {
	switch t.Role {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
	default:
		return fmt.Errorf("domain: invalid turn role %q", t.Role)
	}
	if t.Content == "" {
		return fmt.Errorf("domain: turn content cannot be empty")
	}
	return nil
}

// ContextMetadata carries the bookkeeping a ConversationContext snapshot is
// built with: whose history it is, how many turns it holds, and what cap
// (if any) was applied when it was pulled from memory.
type ContextMetadata struct {
	AgentID         string
	AgentName       string
	TotalTurns      int
	MaxTurnsApplied int // 0 means "no cap was requested"
}

// ConversationContext is an immutable snapshot of an agent's conversation
// history at a point in time, used to build LLM prompts.
type ConversationContext struct {
	Identity  AgentIdentity
	History   []ConversationTurn
	Metadata  ContextMetadata
	CreatedAt time.Time
}

// NewConversationContext builds an immutable snapshot from a slice of
// turns that the caller owns; the slice is copied so later mutation by the
// caller cannot corrupt the snapshot.
func NewConversationContext(identity AgentIdentity, history []ConversationTurn, maxTurnsApplied int) ConversationContext {
	owned := make([]ConversationTurn, len(history))
	copy(owned, history)
	return ConversationContext{
		Identity: identity,
		History:  owned,
		Metadata: ContextMetadata{
			AgentID:         identity.AgentID,
			AgentName:       identity.AgentName,
			TotalTurns:      len(owned),
			MaxTurnsApplied: maxTurnsApplied,
		},
		CreatedAt: time.Now(),
	}
}

// TurnCount returns the number of turns held in this snapshot.
func (c ConversationContext) TurnCount() int {
	return len(c.History)
}

// LastTurn returns the most recent turn, or the zero value and false if
// the snapshot is empty.
func (c ConversationContext) LastTurn() (ConversationTurn, bool) {
	if len(c.History) == 0 {
		return ConversationTurn{}, false
	}
	return c.History[len(c.History)-1], true
}

// UserTurns filters the snapshot down to turns authored by the user.
func (c ConversationContext) UserTurns() []ConversationTurn {
	return c.turnsWithRole(RoleUser)
}

// AssistantTurns filters the snapshot down to turns authored by the agent.
func (c ConversationContext) AssistantTurns() []ConversationTurn {
	return c.turnsWithRole(RoleAssistant)
}

func (c ConversationContext) turnsWithRole(role Role) []ConversationTurn {
	out := make([]ConversationTurn, 0, len(c.History))
	for _, t := range c.History {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}

// IsEmpty reports whether the snapshot holds no history.
func (c ConversationContext) IsEmpty() bool {
	return len(c.History) == 0
}
