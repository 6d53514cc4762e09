// Package agentrepo stores RegisteredAgent entities, indexed by both
// agent ID and agent name, so the orchestrator can look an agent up
// either way without a linear scan.
package agentrepo

import (
	"fmt"
	"sync"

	"github.com/amberloop/orca/pkg/domain"
)

// AgentRepository is the storage contract for registered agents.
type AgentRepository interface {
	Save(agent domain.RegisteredAgent) (domain.RegisteredAgent, error)
	FindByID(agentID string) (domain.RegisteredAgent, bool)
	FindByName(agentName string) (domain.RegisteredAgent, bool)
	FindAll() []domain.RegisteredAgent
	FindActive() []domain.RegisteredAgent
	Exists(agentID string) bool
	ExistsByName(agentName string) bool
	Delete(agentID string) bool
	Count() int
	Clear()
}

// InMemoryAgentRepository is a mutex-guarded, dual-indexed, process-local
// implementation of AgentRepository. Every read returns a deep copy
// (domain.RegisteredAgent.Clone) so callers can't mutate stored state
// through the value they got back.
type InMemoryAgentRepository struct {
	mu     sync.RWMutex
	byID   map[string]domain.RegisteredAgent
	byName map[string]string // agent_name -> agent_id
}

func NewInMemoryAgentRepository() *InMemoryAgentRepository {
	return &InMemoryAgentRepository{
		byID:   make(map[string]domain.RegisteredAgent),
		byName: make(map[string]string),
	}
}

// Save stores or updates agent, indexed by both ID and name. A name
// collision with a different agent ID is rejected.
func (r *InMemoryAgentRepository) Save(agent domain.RegisteredAgent) (domain.RegisteredAgent, error) {
	agentID := agent.Identity.AgentID
	agentName := agent.Identity.AgentName

	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.byName[agentName]; ok && existingID != agentID {
		return domain.RegisteredAgent{}, fmt.Errorf("agentrepo: agent name %q already exists with different id", agentName)
	}

	r.byID[agentID] = *agent.Clone()
	r.byName[agentName] = agentID
	return agent, nil
}

func (r *InMemoryAgentRepository) FindByID(agentID string) (domain.RegisteredAgent, bool) {
	if agentID == "" {
		return domain.RegisteredAgent{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.byID[agentID]
	if !ok {
		return domain.RegisteredAgent{}, false
	}
	return *agent.Clone(), true
}

func (r *InMemoryAgentRepository) FindByName(agentName string) (domain.RegisteredAgent, bool) {
	if agentName == "" {
		return domain.RegisteredAgent{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	agentID, ok := r.byName[agentName]
	if !ok {
		return domain.RegisteredAgent{}, false
	}
	agent, ok := r.byID[agentID]
	if !ok {
		return domain.RegisteredAgent{}, false
	}
	return *agent.Clone(), true
}

func (r *InMemoryAgentRepository) FindAll() []domain.RegisteredAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RegisteredAgent, 0, len(r.byID))
	for _, agent := range r.byID {
		out = append(out, *agent.Clone())
	}
	return out
}

func (r *InMemoryAgentRepository) FindActive() []domain.RegisteredAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RegisteredAgent, 0, len(r.byID))
	for _, agent := range r.byID {
		if agent.IsActive {
			out = append(out, *agent.Clone())
		}
	}
	return out
}

func (r *InMemoryAgentRepository) Exists(agentID string) bool {
	if agentID == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[agentID]
	return ok
}

func (r *InMemoryAgentRepository) ExistsByName(agentName string) bool {
	if agentName == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[agentName]
	return ok
}

// Delete removes agentID from both indexes. Returns false if it wasn't
// present.
func (r *InMemoryAgentRepository) Delete(agentID string) bool {
	if agentID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.byID[agentID]
	if !ok {
		return false
	}
	delete(r.byID, agentID)
	delete(r.byName, agent.Identity.AgentName)
	return true
}

func (r *InMemoryAgentRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *InMemoryAgentRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]domain.RegisteredAgent)
	r.byName = make(map[string]string)
}
