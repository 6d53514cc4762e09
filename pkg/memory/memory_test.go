package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amberloop/orca/pkg/domain"
	"github.com/amberloop/orca/pkg/memrepo"
)

func TestManager_SaveAndGetConversationContext(t *testing.T) {
	repo := memrepo.NewInMemoryMemoryRepository()
	manager, err := NewManager(repo, 0)
	require.NoError(t, err)

	identity, err := domain.NewAgentIdentityWithName("CodeReviewer")
	require.NoError(t, err)

	require.NoError(t, manager.SaveConversationTurn(identity.AgentID, domain.RoleUser, "hello", nil))
	require.NoError(t, manager.SaveConversationTurn(identity.AgentID, domain.RoleAssistant, "hi there", nil))

	ctx := manager.GetConversationContext(identity, 0)
	assert.Equal(t, 2, ctx.TurnCount())
}

func TestManager_CacheReusedUntilWrite(t *testing.T) {
	repo := memrepo.NewInMemoryMemoryRepository()
	manager, err := NewManager(repo, 0)
	require.NoError(t, err)

	identity, err := domain.NewAgentIdentityWithName("CodeReviewer")
	require.NoError(t, err)
	require.NoError(t, manager.SaveConversationTurn(identity.AgentID, domain.RoleUser, "first", nil))

	first := manager.GetConversationContext(identity, 0)
	assert.Equal(t, 1, first.TurnCount())

	// Bypass the manager and append directly to the repo: the cached
	// context should still report the stale count until the next write
	// goes through the manager and invalidates it.
	extra, err := domain.NewConversationTurn(domain.RoleAssistant, "direct write")
	require.NoError(t, err)
	require.NoError(t, repo.AppendTurns(identity.AgentID, []domain.ConversationTurn{extra}))

	cached := manager.GetConversationContext(identity, 0)
	assert.Equal(t, 1, cached.TurnCount(), "cached context should not see the direct repo write")

	require.NoError(t, manager.SaveConversationTurn(identity.AgentID, domain.RoleUser, "triggers invalidation", nil))
	fresh := manager.GetConversationContext(identity, 0)
	assert.Equal(t, 3, fresh.TurnCount())
}

func TestManager_ClearAgentMemory(t *testing.T) {
	repo := memrepo.NewInMemoryMemoryRepository()
	manager, err := NewManager(repo, 0)
	require.NoError(t, err)

	identity, err := domain.NewAgentIdentityWithName("CodeReviewer")
	require.NoError(t, err)
	require.NoError(t, manager.SaveConversationTurn(identity.AgentID, domain.RoleUser, "hello", nil))

	assert.True(t, manager.ClearAgentMemory(identity.AgentID))
	ctx := manager.GetConversationContext(identity, 0)
	assert.True(t, ctx.IsEmpty())
}

func TestManager_CleanupInactive(t *testing.T) {
	repo := memrepo.NewInMemoryMemoryRepository()
	manager, err := NewManager(repo, 0)
	require.NoError(t, err)

	staleTurn := domain.ConversationTurn{Role: domain.RoleUser, Content: "old", Timestamp: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, repo.SaveTurn("stale-agent", staleTurn))

	freshTurn := domain.ConversationTurn{Role: domain.RoleUser, Content: "new", Timestamp: time.Now()}
	require.NoError(t, repo.SaveTurn("fresh-agent", freshTurn))

	cleaned := manager.CleanupInactive(24 * time.Hour)
	assert.Equal(t, 1, cleaned)
	assert.False(t, repo.Exists("stale-agent") && repo.GetTurnCount("stale-agent") > 0)
	assert.Equal(t, 1, repo.GetTurnCount("fresh-agent"))
}

func TestFormatter_FormatConversationsAndAgents(t *testing.T) {
	repo := memrepo.NewInMemoryMemoryRepository()
	formatter := NewFormatter(repo)

	userTurn, err := domain.NewConversationTurnWithMetadata(domain.RoleUser, "summarize the repo", map[string]any{"conversation_id": "conv-1"})
	require.NoError(t, err)
	assistantTurn, err := domain.NewConversationTurn(domain.RoleAssistant, "here is the summary")
	require.NoError(t, err)

	require.NoError(t, repo.SaveTurn("orchestrator", userTurn))
	require.NoError(t, repo.SaveTurn("orchestrator", assistantTurn))

	stats := formatter.GetConversationStats("orchestrator")
	assert.Equal(t, 1, stats.Size)
	assert.False(t, stats.IsEmpty)

	conversations := formatter.FormatConversations("orchestrator")
	require.Len(t, conversations, 1)
	assert.Contains(t, conversations[0], "summarize the repo")
	assert.Contains(t, conversations[0], "here is the summary")

	agentUserTurn, err := domain.NewConversationTurnWithMetadata(domain.RoleUser, "review this function", map[string]any{"conversation_id": "conv-1"})
	require.NoError(t, err)
	require.NoError(t, repo.SaveTurn("agent-1", agentUserTurn))

	agentStats := formatter.GetAgentStats()
	assert.Equal(t, 1, agentStats.Size)

	agents := formatter.FormatAgents()
	require.Len(t, agents, 1)
	assert.Contains(t, agents[0], "agent-1")

	detail, ok := formatter.GetAgentDetail("agent-1")
	require.True(t, ok)
	assert.Contains(t, detail, "review this function")

	_, ok = formatter.GetAgentDetail("missing-agent")
	assert.False(t, ok)
}
