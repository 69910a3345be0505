package orchestrator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/registry"
)

type registerRequest struct {
	Endpoint string `json:"endpoint"`
}

type unregisterRequest struct {
	AgentIdentifier string `json:"agent_identifier"`
}

type agentActionResponse struct {
	Success   bool   `json:"success"`
	AgentID   string `json:"agent_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

type agentInfo struct {
	AgentID      string   `json:"agent_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Endpoint     string   `json:"endpoint"`
	Skills       []any    `json:"skills"`
	Keywords     []string `json:"keywords"`
	Capabilities []string `json:"capabilities"`
}

type listAgentsResponse struct {
	Success    bool        `json:"success"`
	Agents     []agentInfo `json:"agents"`
	TotalCount int         `json:"total_count"`
	Message    string      `json:"message"`
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Success           bool    `json:"success"`
	Response          string  `json:"response"`
	SelectedAgentID   string  `json:"selected_agent_id,omitempty"`
	SelectedAgentName string  `json:"selected_agent_name,omitempty"`
	Confidence        float64 `json:"confidence"`
	Reasoning         string  `json:"reasoning"`
	SessionID         string  `json:"session_id"`
	ContextEnriched   bool    `json:"context_enriched"`
	Error             string  `json:"error,omitempty"`
}

// Routes builds the management REST surface (/api/v1/agents/*) as a
// chi.Router, permissive CORS included — the orchestrator is assumed to
// run behind a trust boundary, per the external interfaces contract.
func (f *Facade) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Post("/api/v1/agents/register", f.handleRegister)
	r.Post("/api/v1/agents/unregister", f.handleUnregister)
	r.Get("/api/v1/agents/list", f.handleList)
	r.Post("/api/v1/agents/query", f.handleQuery)
	r.Post("/api/v1/agents/query/stream", f.handleQueryStream)
	r.Get("/api/v1/agents/health", f.handleHealth)
	r.Get("/api/v1/sessions/stats", f.handleSessionStats)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *Facade) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, agentActionResponse{Success: false, Message: "invalid request body", Error: err.Error()})
		return
	}

	card, err := f.RegisterAgent(r.Context(), req.Endpoint)
	if err != nil {
		writeJSON(w, http.StatusOK, agentActionResponse{Success: false, Endpoint: req.Endpoint, Message: "registration failed", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, agentActionResponse{
		Success: true, AgentID: card.Name, AgentName: card.Name, Endpoint: card.URL,
		Message: fmt.Sprintf("agent %s registered", card.Name),
	})
}

func (f *Facade) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var req unregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, agentActionResponse{Success: false, Message: "invalid request body", Error: err.Error()})
		return
	}

	card, err := f.UnregisterAgent(req.AgentIdentifier)
	if err != nil {
		writeJSON(w, http.StatusOK, agentActionResponse{Success: false, Message: "unregister failed", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, agentActionResponse{
		Success: true, AgentID: card.Name, AgentName: card.Name, Endpoint: card.URL,
		Message: fmt.Sprintf("agent %s unregistered", card.Name),
	})
}

func (f *Facade) handleList(w http.ResponseWriter, r *http.Request) {
	summaries := f.ListAgents()
	agents := make([]agentInfo, 0, len(summaries))
	for _, s := range summaries {
		caps := capabilityFlags(s)
		agents = append(agents, agentInfo{
			AgentID:      s.ID,
			Name:         s.Name,
			Description:  s.Description,
			Endpoint:     s.URL,
			Skills:       skillsAsAny(s),
			Keywords:     s.Keywords,
			Capabilities: caps,
		})
	}
	writeJSON(w, http.StatusOK, listAgentsResponse{
		Success: true, Agents: agents, TotalCount: len(agents), Message: "ok",
	})
}

func (f *Facade) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, queryResponse{Success: false, Error: err.Error()})
		return
	}
	result := f.Query(r.Context(), req.Query, req.SessionID)
	writeJSON(w, http.StatusOK, queryResponse{
		Success:           result.Success,
		Response:          result.Response,
		SelectedAgentID:   result.SelectedAgentID,
		SelectedAgentName: result.SelectedAgentName,
		Confidence:        result.Confidence,
		Reasoning:         result.Reasoning,
		SessionID:         result.SessionID,
		ContextEnriched:   result.ContextEnriched,
		Error:             result.Error,
	})
}

// handleQueryStream runs the same query lifecycle but reports progress as
// server-sent events: status, metadata, chunk, done, error.
func (f *Facade) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	sendEvent := func(event string, data any) {
		raw, _ := json.Marshal(data)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, raw)
		if ok {
			flusher.Flush()
		}
	}

	sendEvent("status", map[string]string{"state": "routing"})
	result := f.Query(r.Context(), req.Query, req.SessionID)
	sendEvent("metadata", map[string]any{
		"selected_agent_id": result.SelectedAgentID,
		"confidence":        result.Confidence,
		"reasoning":         result.Reasoning,
	})

	if !result.Success {
		sendEvent("error", map[string]string{"error": result.Error})
		return
	}

	sendEvent("chunk", map[string]string{"text": result.Response})
	sendEvent("done", map[string]any{"session_id": result.SessionID, "context_enriched": result.ContextEnriched})
}

func (f *Facade) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (f *Facade) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats := f.Convo.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_sessions": stats.TotalSessions,
		"total_turns":    stats.TotalTurns,
		"active_topics":  stats.ActiveTopics,
		"agents_used":    stats.AgentsUsed,
		"generated_at":   time.Now().UTC().Format(time.RFC3339),
	})
}

func capabilityFlags(s registry.AgentSummary) []string {
	var flags []string
	if s.Capabilities.Streaming {
		flags = append(flags, "streaming")
	}
	if s.Capabilities.PushNotifications {
		flags = append(flags, "push_notifications")
	}
	if s.Capabilities.StateTransitionHistory {
		flags = append(flags, "state_transition_history")
	}
	return flags
}

func skillsAsAny(s registry.AgentSummary) []any {
	out := make([]any, 0, len(s.Skills))
	for _, skill := range s.Skills {
		out = append(out, map[string]any{
			"id":          skill.ID,
			"name":        skill.Name,
			"description": skill.Description,
			"tags":        skill.Tags,
		})
	}
	return out
}
