// Package memory coordinates per-agent conversation memory: an
// LRU-cached facade over pkg/memrepo that isolates each agent's history,
// invalidates the cache on every write, and formats memory content for
// CLI display.
package memory

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/amberloop/orca/pkg/domain"
	"github.com/amberloop/orca/pkg/memrepo"
)

const defaultCacheSize = 100

// Manager coordinates memory access for multiple agents: per-agent
// isolation backed by memrepo, with an LRU cache of recently built
// ConversationContext snapshots in front of it.
type Manager struct {
	repo memrepo.MemoryRepository

	mu    sync.Mutex
	cache *lru.Cache
}

// NewManager builds a Manager over repo, with an LRU cache sized to
// cacheSize (0 uses the default of 100 entries).
func NewManager(repo memrepo.MemoryRepository, cacheSize int) (*Manager, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("memory: build cache: %w", err)
	}
	return &Manager{repo: repo, cache: cache}, nil
}

func cacheKey(agentID string, maxTurns int) string {
	return fmt.Sprintf("context:%s:%d", agentID, maxTurns)
}

// GetConversationContext returns the agent's conversation context,
// capped at maxTurns (0 means "no cap"). A cached snapshot is reused
// when present; otherwise one is built from the repository and cached.
func (m *Manager) GetConversationContext(identity domain.AgentIdentity, maxTurns int) domain.ConversationContext {
	key := cacheKey(identity.AgentID, maxTurns)

	m.mu.Lock()
	if cached, ok := m.cache.Get(key); ok {
		m.mu.Unlock()
		return cached.(domain.ConversationContext)
	}
	m.mu.Unlock()

	history := m.repo.GetConversationHistory(identity.AgentID, maxTurns)
	context := domain.NewConversationContext(identity, history, maxTurns)

	m.mu.Lock()
	m.cache.Add(key, context)
	m.mu.Unlock()

	return context
}

// SaveConversationTurn records a new turn for agentID and invalidates
// the cache. A write clears the whole cache rather than only this
// agent's keys: the conservative invalidation is always correct, and
// pattern-aware eviction hasn't been worth the bookkeeping.
func (m *Manager) SaveConversationTurn(agentID string, role domain.Role, content string, metadata map[string]any) error {
	turn, err := domain.NewConversationTurnWithMetadata(role, content, metadata)
	if err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	if err := m.repo.SaveTurn(agentID, turn); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	m.invalidateCache()
	return nil
}

// ClearAgentMemory empties an agent's stored history and invalidates the
// cache.
func (m *Manager) ClearAgentMemory(agentID string) bool {
	cleared := m.repo.ClearAgentMemory(agentID)
	if cleared {
		m.invalidateCache()
	}
	return cleared
}

// CleanupInactive clears the memory of every agent whose last recorded
// turn is older than olderThan, returning how many agents were cleaned.
func (m *Manager) CleanupInactive(olderThan time.Duration) int {
	threshold := time.Now().Add(-olderThan)
	cleaned := 0

	for _, agentID := range m.repo.GetAllAgentIDs() {
		lastTurn, ok := m.repo.GetLastTurn(agentID)
		if !ok {
			continue
		}
		if lastTurn.Timestamp.Before(threshold) {
			if m.ClearAgentMemory(agentID) {
				cleaned++
			}
		}
	}
	return cleaned
}

// Stats summarizes memory usage across all agents.
type Stats struct {
	CacheLen              int
	TotalAgentsWithMemory int
}

// GetMemoryStats reports cache occupancy and the number of agents with
// stored memory.
func (m *Manager) GetMemoryStats() Stats {
	m.mu.Lock()
	cacheLen := m.cache.Len()
	m.mu.Unlock()

	return Stats{
		CacheLen:              cacheLen,
		TotalAgentsWithMemory: len(m.repo.GetAllAgentIDs()),
	}
}

func (m *Manager) invalidateCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
}
