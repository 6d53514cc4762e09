package domain

import (
	"fmt"
	"time"
)

// RegisteredAgent is the mutable entity combining identity, capabilities,
// and operational state. Unlike AgentIdentity and AgentCapabilities, a
// RegisteredAgent has a lifecycle: it can be activated, deactivated, and
// have its capabilities replaced without changing identity.
type RegisteredAgent struct {
	Identity     AgentIdentity
	Capabilities AgentCapabilities
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Metadata     map[string]any
}

// NewRegisteredAgent validates and constructs a RegisteredAgent. CreatedAt
// and UpdatedAt are both stamped to now.
func NewRegisteredAgent(identity AgentIdentity, capabilities AgentCapabilities) (*RegisteredAgent, error) {
	now := time.Now()
	a := &RegisteredAgent{
		Identity:     identity,
		Capabilities: capabilities,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     make(map[string]any),
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *RegisteredAgent) validate() error {
	if len(a.Capabilities.SystemPrompt) > 0 {
		if len(a.Capabilities.SystemPrompt) < 10 {
			return fmt.Errorf("domain: system_prompt too short: %d chars (minimum 10)", len(a.Capabilities.SystemPrompt))
		}
		if len(a.Capabilities.SystemPrompt) > 5000 {
			return fmt.Errorf("domain: system_prompt too long: %d chars (maximum 5000)", len(a.Capabilities.SystemPrompt))
		}
	} else {
		return fmt.Errorf("domain: system_prompt cannot be empty")
	}
	if a.UpdatedAt.Before(a.CreatedAt) {
		return fmt.Errorf("domain: updated_at cannot be before created_at")
	}
	return nil
}

// UpdateCapabilities replaces the agent's capabilities and bumps UpdatedAt.
func (a *RegisteredAgent) UpdateCapabilities(c AgentCapabilities) error {
	prev := a.Capabilities
	a.Capabilities = c
	if err := a.validate(); err != nil {
		a.Capabilities = prev
		return err
	}
	a.UpdatedAt = time.Now()
	return nil
}

// UpdateSystemPrompt replaces SystemPrompt on the embedded capabilities.
func (a *RegisteredAgent) UpdateSystemPrompt(prompt string) error {
	if len(prompt) < 10 {
		return fmt.Errorf("domain: new system_prompt too short: %d chars (minimum 10)", len(prompt))
	}
	if len(prompt) > 5000 {
		return fmt.Errorf("domain: new system_prompt too long: %d chars (maximum 5000)", len(prompt))
	}
	a.Capabilities.SystemPrompt = prompt
	a.UpdatedAt = time.Now()
	return nil
}

// Activate makes the agent available for execution.
func (a *RegisteredAgent) Activate() {
	a.IsActive = true
	a.UpdatedAt = time.Now()
}

// Deactivate prevents the agent from being executed.
func (a *RegisteredAgent) Deactivate() {
	a.IsActive = false
	a.UpdatedAt = time.Now()
}

// SetMetadata stores a key-value pair in the agent's free-form metadata.
func (a *RegisteredAgent) SetMetadata(key string, value any) {
	if a.Metadata == nil {
		a.Metadata = make(map[string]any)
	}
	a.Metadata[key] = value
	a.UpdatedAt = time.Now()
}

// CanUseTool delegates to the embedded capabilities.
func (a *RegisteredAgent) CanUseTool(toolID string) bool {
	return a.Capabilities.IsToolAuthorized(toolID)
}

// Clone returns a deep-enough copy suitable for handing to a caller without
// risking mutation of repository-held state (maps are copied, not shared).
func (a *RegisteredAgent) Clone() *RegisteredAgent {
	clone := *a
	clone.Capabilities.AuthorizedTools = copyStringSet(a.Capabilities.AuthorizedTools)
	clone.Capabilities.SpecializationTags = copyStringSet(a.Capabilities.SpecializationTags)
	clone.Metadata = make(map[string]any, len(a.Metadata))
	for k, v := range a.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}

func copyStringSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}
