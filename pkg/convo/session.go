// Package convo implements the Context Manager: per-session conversation
// history, topic tracking, and reference-resolution query enrichment.
package convo

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTimeout is the eligibility window for eviction.
const DefaultSessionTimeout = 24 * time.Hour

// ConversationTurn is a single (query, response) exchange recorded in a
// session. Turns are append-only.
type ConversationTurn struct {
	Timestamp         time.Time
	UserQuery         string
	AgentName         string
	AgentResponse     string
	RoutingConfidence float64
	Metadata          map[string]any
}

// ConversationSession is a server-tracked conversation.
type ConversationSession struct {
	SessionID      string
	UserID         string
	CreatedAt      time.Time
	LastActivity   time.Time
	Turns          []ConversationTurn
	ActiveTopics   []string
	ContextSummary string
}

// ContextView is the read-only snapshot returned by GetContext.
type ContextView struct {
	RecentTurns  []ConversationTurn
	Summary      string
	ActiveTopics []string
	LastActivity time.Time
}

// Stats aggregates counters across all live sessions (a supplemental,
// read-only diagnostic; not part of the persisted data model).
type Stats struct {
	TotalSessions int
	TotalTurns    int
	ActiveTopics  int
	AgentsUsed    []string
}

// sessionHandle pairs a session with its own mutex, so turn append on one
// session never blocks activity on another.
type sessionHandle struct {
	mu      sync.Mutex
	session *ConversationSession
}

// Manager is the Context Manager (C3): it owns the session map and the
// per-session lock discipline described by the concurrency model. The map
// lock is held only to insert or evict a handle; all other access happens
// through a handle's own lock, taken after releasing the map lock.
type Manager struct {
	mapMu    sync.RWMutex
	sessions map[string]*sessionHandle
	timeout  time.Duration
}

// NewManager constructs a Manager with the given eviction timeout.
func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Manager{sessions: make(map[string]*sessionHandle), timeout: timeout}
}

// GetOrCreateSession validates sessionID as a UUID (minting a fresh v4 UUID
// if absent or invalid) and returns the session id to use. It also performs
// an opportunistic expiry sweep.
func (m *Manager) GetOrCreateSession(sessionID, userID string) string {
	m.CleanupExpired()

	id := sessionID
	if id != "" {
		if _, err := uuid.Parse(id); err != nil {
			slog.Warn("invalid session_id supplied, minting a new one", "supplied", sessionID)
			id = ""
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	m.mapMu.RLock()
	_, exists := m.sessions[id]
	m.mapMu.RUnlock()
	if exists {
		return id
	}

	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return id
	}
	now := time.Now()
	m.sessions[id] = &sessionHandle{session: &ConversationSession{
		SessionID:    id,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	}}
	return id
}

func (m *Manager) handle(sessionID string) (*sessionHandle, bool) {
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()
	h, ok := m.sessions[sessionID]
	return h, ok
}

// AppendTurn records a new turn, updates last_activity and active_topics.
func (m *Manager) AppendTurn(sessionID, userQuery, agentName, agentResponse string, confidence float64, metadata map[string]any) error {
	h, ok := m.handle(sessionID)
	if !ok {
		return fmt.Errorf("convo: unknown session %q", sessionID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	turn := ConversationTurn{
		Timestamp:         time.Now(),
		UserQuery:         userQuery,
		AgentName:         agentName,
		AgentResponse:     agentResponse,
		RoutingConfidence: confidence,
		Metadata:          metadata,
	}
	h.session.Turns = append(h.session.Turns, turn)
	h.session.LastActivity = turn.Timestamp
	h.session.ActiveTopics = updateTopics(h.session.ActiveTopics, userQuery, agentResponse)
	h.session.ContextSummary = buildSummary(h.session)
	return nil
}

// GetContext returns a read-only view of the last N turns plus session
// metadata. lastN <= 0 returns all turns.
func (m *Manager) GetContext(sessionID string, lastN int) (ContextView, error) {
	h, ok := m.handle(sessionID)
	if !ok {
		return ContextView{}, fmt.Errorf("convo: unknown session %q", sessionID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	turns := h.session.Turns
	if lastN > 0 && len(turns) > lastN {
		turns = turns[len(turns)-lastN:]
	}
	out := make([]ConversationTurn, len(turns))
	copy(out, turns)

	topics := make([]string, len(h.session.ActiveTopics))
	copy(topics, h.session.ActiveTopics)

	return ContextView{
		RecentTurns:  out,
		Summary:      h.session.ContextSummary,
		ActiveTopics: topics,
		LastActivity: h.session.LastActivity,
	}, nil
}

// EnrichQuery resolves references in userQuery using the session's most
// recent turn. It reports whether any substitution was made.
func (m *Manager) EnrichQuery(sessionID, userQuery string) (string, bool, error) {
	h, ok := m.handle(sessionID)
	if !ok {
		return userQuery, false, fmt.Errorf("convo: unknown session %q", sessionID)
	}

	h.mu.Lock()
	turns := make([]ConversationTurn, len(h.session.Turns))
	copy(turns, h.session.Turns)
	h.mu.Unlock()

	enriched, wasEnriched := EnrichQuery(turns, userQuery)
	return enriched, wasEnriched, nil
}

// CleanupExpired deletes sessions whose last_activity is older than the
// configured timeout, returning the count removed. It takes the map lock
// to insert/evict only, and the per-handle lock to read LastActivity,
// acquiring them in that order to avoid deadlocking with an in-flight
// query holding its handle lock.
func (m *Manager) CleanupExpired() int {
	cutoff := time.Now().Add(-m.timeout)

	m.mapMu.RLock()
	candidates := make([]string, 0, len(m.sessions))
	handles := make(map[string]*sessionHandle, len(m.sessions))
	for id, h := range m.sessions {
		candidates = append(candidates, id)
		handles[id] = h
	}
	m.mapMu.RUnlock()

	var expired []string
	for _, id := range candidates {
		h := handles[id]
		h.mu.Lock()
		isExpired := h.session.LastActivity.Before(cutoff)
		h.mu.Unlock()
		if isExpired {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	removed := 0
	for _, id := range expired {
		if _, ok := m.sessions[id]; ok {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Stats returns an aggregate, read-only snapshot across all live sessions.
func (m *Manager) Stats() Stats {
	m.mapMu.RLock()
	ids := make([]string, 0, len(m.sessions))
	handles := make(map[string]*sessionHandle, len(m.sessions))
	for id, h := range m.sessions {
		ids = append(ids, id)
		handles[id] = h
	}
	m.mapMu.RUnlock()

	stats := Stats{TotalSessions: len(ids)}
	agentSet := make(map[string]struct{})
	topicSet := make(map[string]struct{})
	for _, id := range ids {
		h := handles[id]
		h.mu.Lock()
		stats.TotalTurns += len(h.session.Turns)
		for _, turn := range h.session.Turns {
			if turn.AgentName != "" {
				agentSet[turn.AgentName] = struct{}{}
			}
		}
		for _, topic := range h.session.ActiveTopics {
			topicSet[topic] = struct{}{}
		}
		h.mu.Unlock()
	}
	for agent := range agentSet {
		stats.AgentsUsed = append(stats.AgentsUsed, agent)
	}
	sort.Strings(stats.AgentsUsed)
	stats.ActiveTopics = len(topicSet)
	return stats
}

var weatherTriggers = []string{"weather", "winter", "summer", "temperature", "climate"}
var reportingTriggers = []string{"report", "analysis", "chart", "graph", "visualization"}
var financeTriggers = []string{"currency", "exchange", "dollar", "price", "market"}

// updateTopics scans the turn text for trigger words and appends any new
// topic tags, capping active_topics at its last 5 entries.
func updateTopics(existing []string, userQuery, agentResponse string) []string {
	combined := strings.ToLower(userQuery + " " + agentResponse)

	var fresh []string
	for _, w := range weatherTriggers {
		if strings.Contains(combined, w) {
			fresh = append(fresh, "weather")
			break
		}
	}
	for _, loc := range locationTokens {
		if strings.Contains(combined, loc) {
			fresh = append(fresh, "location:"+loc)
		}
	}
	for _, w := range reportingTriggers {
		if strings.Contains(combined, w) {
			fresh = append(fresh, "reporting")
			break
		}
	}
	for _, w := range financeTriggers {
		if strings.Contains(combined, w) {
			fresh = append(fresh, "finance")
			break
		}
	}

	topics := existing
	seen := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		seen[t] = struct{}{}
	}
	for _, t := range fresh {
		if _, ok := seen[t]; !ok {
			topics = append(topics, t)
			seen[t] = struct{}{}
		}
	}
	if len(topics) > 5 {
		topics = topics[len(topics)-5:]
	}
	return topics
}

func buildSummary(s *ConversationSession) string {
	if len(s.Turns) == 0 {
		return ""
	}
	agents := make(map[string]struct{})
	for _, t := range s.Turns {
		if t.AgentName != "" {
			agents[t.AgentName] = struct{}{}
		}
	}
	agentNames := make([]string, 0, len(agents))
	for a := range agents {
		agentNames = append(agentNames, a)
	}
	sort.Strings(agentNames)
	if len(s.ActiveTopics) == 0 {
		return fmt.Sprintf("Conversation with %s.", strings.Join(agentNames, ", "))
	}
	return fmt.Sprintf("Conversation with %s about %s.", strings.Join(agentNames, ", "), strings.Join(s.ActiveTopics, ", "))
}
