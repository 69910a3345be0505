package convo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetOrCreateSession_MintsValidUUID(t *testing.T) {
	m := NewManager(time.Hour)
	id := m.GetOrCreateSession("", "")
	assert.NotEmpty(t, id)

	again := m.GetOrCreateSession(id, "")
	assert.Equal(t, id, again)
}

func TestManager_GetOrCreateSession_InvalidUUIDMintsFresh(t *testing.T) {
	m := NewManager(time.Hour)
	id := m.GetOrCreateSession("not-a-uuid", "")
	assert.NotEqual(t, "not-a-uuid", id)
}

func TestManager_AppendTurn_UpdatesActivityAndTopics(t *testing.T) {
	m := NewManager(time.Hour)
	id := m.GetOrCreateSession("", "")

	require.NoError(t, m.AppendTurn(id, "what is the weather in Boston", "weather_rag", "sunny and 20C", 0.8, nil))

	ctx, err := m.GetContext(id, 10)
	require.NoError(t, err)
	require.Len(t, ctx.RecentTurns, 1)
	assert.Contains(t, ctx.ActiveTopics, "weather")
}

func TestManager_ActiveTopicsCappedAtFive(t *testing.T) {
	m := NewManager(time.Hour)
	id := m.GetOrCreateSession("", "")

	queries := []string{
		"weather in Boston",
		"generate a report",
		"currency exchange rate",
		"math calculation 2+2",
		"chart and graph please",
		"climate in Chicago",
	}
	for _, q := range queries {
		require.NoError(t, m.AppendTurn(id, q, "agent", "response about "+q, 0.5, nil))
	}

	ctx, err := m.GetContext(id, 10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(ctx.ActiveTopics), 5)
}

func TestManager_CleanupExpired(t *testing.T) {
	m := NewManager(time.Millisecond)
	id := m.GetOrCreateSession("", "")
	require.NoError(t, m.AppendTurn(id, "hello", "agent", "hi", 0.5, nil))

	time.Sleep(5 * time.Millisecond)
	removed := m.CleanupExpired()
	assert.Equal(t, 1, removed)

	// Idempotent: a second sweep with nothing new to remove is a no-op.
	assert.Equal(t, 0, m.CleanupExpired())
}

func TestManager_TurnsMonotonicOrder(t *testing.T) {
	m := NewManager(time.Hour)
	id := m.GetOrCreateSession("", "")

	require.NoError(t, m.AppendTurn(id, "first", "agent", "r1", 0.5, nil))
	require.NoError(t, m.AppendTurn(id, "second", "agent", "r2", 0.5, nil))

	ctx, err := m.GetContext(id, 10)
	require.NoError(t, err)
	require.Len(t, ctx.RecentTurns, 2)
	assert.True(t, !ctx.RecentTurns[1].Timestamp.Before(ctx.RecentTurns[0].Timestamp))
}
