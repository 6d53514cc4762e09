// Package domain holds the immutable value objects and mutable entities
// that describe an agent: identity, capabilities, and the registry record
// built from the two.
package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var agentNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{2,49}$`)

// AgentIdentity is the immutable identity of an agent: a uuid-v4 id paired
// with a unique, human-readable name.
type AgentIdentity struct {
	AgentID           string
	AgentName         string
	CreationTimestamp time.Time
}

// NewAgentIdentity validates and constructs an AgentIdentity.
func NewAgentIdentity(agentID, agentName string, creationTimestamp time.Time) (AgentIdentity, error) {
	id := AgentIdentity{
		AgentID:           agentID,
		AgentName:         agentName,
		CreationTimestamp: creationTimestamp,
	}
	if err := id.validate(); err != nil {
		return AgentIdentity{}, err
	}
	return id, nil
}

// NewAgentIdentityWithName generates a fresh uuid-v4 id for agentName,
// stamped with the current time.
func NewAgentIdentityWithName(agentName string) (AgentIdentity, error) {
	return NewAgentIdentity(uuid.NewString(), agentName, time.Now())
}

func (id AgentIdentity) validate() error {
	if id.AgentID == "" {
		return fmt.Errorf("domain: agent_id cannot be empty")
	}
	parsed, err := uuid.Parse(id.AgentID)
	if err != nil || parsed.Version() != 4 {
		return fmt.Errorf("domain: agent_id must be a valid UUID v4: %q", id.AgentID)
	}

	if len(id.AgentName) < 3 {
		return fmt.Errorf("domain: agent_name too short: %d chars (minimum 3)", len(id.AgentName))
	}
	if len(id.AgentName) > 50 {
		return fmt.Errorf("domain: agent_name too long: %d chars (maximum 50)", len(id.AgentName))
	}
	if !agentNamePattern.MatchString(id.AgentName) {
		return fmt.Errorf("domain: agent_name %q must start with a letter and contain only letters, numbers, and underscores", id.AgentName)
	}

	if id.CreationTimestamp.After(time.Now()) {
		return fmt.Errorf("domain: creation_timestamp cannot be in the future: %s", id.CreationTimestamp)
	}

	return nil
}
