// Package orchestrator implements the Orchestrator Facade (C6): it
// composes the registry, router, context manager, and transport into the
// single-request query lifecycle, and exposes both the REST management
// surface and the JSON-RPC surface built on top of it.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/cardclient"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/convo"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/registry"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/routing"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/transport"
)

// QueryResult is the structured outcome of a single query, shared by both
// the REST and JSON-RPC surfaces.
type QueryResult struct {
	Success           bool
	Response          string
	SelectedAgentID   string
	SelectedAgentName string
	Confidence        float64
	Reasoning         string
	SessionID         string
	ContextEnriched   bool
	Error             string
}

// Facade composes the registry, context manager, router, and transport
// into the request lifecycle described by the orchestrator's query
// contract.
type Facade struct {
	Registry   *registry.AgentRegistry
	Convo      *convo.Manager
	Router     *routing.Router
	Transport  *transport.Client
	CardClient *cardclient.Client
}

// New builds a Facade wiring together freshly constructed components.
func New() *Facade {
	return &Facade{
		Registry:   registry.NewAgentRegistry(),
		Convo:      convo.NewManager(convo.DefaultSessionTimeout),
		Router:     routing.New(),
		Transport:  transport.New(),
		CardClient: cardclient.New(),
	}
}

// RegisterAgent fetches the agent card at endpoint and adds it to the
// registry. Returns the registered card's name and url for the REST
// response shape.
func (f *Facade) RegisterAgent(ctx context.Context, endpoint string) (a2awire.AgentCard, error) {
	card, err := f.CardClient.Fetch(ctx, endpoint)
	if err != nil {
		return a2awire.AgentCard{}, err
	}
	f.Registry.Add(card)
	slog.Info("agent registered", "name", card.Name, "endpoint", endpoint)
	return card, nil
}

// UnregisterAgent removes the agent matching identifier.
func (f *Facade) UnregisterAgent(identifier string) (a2awire.AgentCard, error) {
	card, err := f.Registry.Remove(identifier)
	if err != nil {
		return a2awire.AgentCard{}, err
	}
	slog.Info("agent unregistered", "name", card.Name, "identifier", identifier)
	return card, nil
}

// ListAgents returns the registry's summary listing.
func (f *Facade) ListAgents() []registry.AgentSummary {
	return f.Registry.List()
}

// dataSourceAgentTokens are the substrings of an agent name that the
// report-forwarding rule treats as marking an upstream data source.
var dataSourceAgentTokens = []string{"rag", "search", "query", "weather"}

func isDataSourceAgent(name string) bool {
	lower := strings.ToLower(name)
	for _, tok := range dataSourceAgentTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func isReportIntent(query string) bool {
	lower := strings.ToLower(query)
	for _, tok := range []string{"report", "generate", "create", "make"} {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// intentClass classifies the request for the trailing instruction
// sentence: report/generate, analyze, summarize, or generic.
func intentClass(query string) string {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "report") || strings.Contains(lower, "generate"):
		return "report"
	case strings.Contains(lower, "analyze") || strings.Contains(lower, "analysis"):
		return "analyze"
	case strings.Contains(lower, "summarize") || strings.Contains(lower, "summary"):
		return "summarize"
	default:
		return "generic"
	}
}

func instructionSentence(class string) string {
	switch class {
	case "report":
		return "Please generate a clear, well-structured report from the information above."
	case "analyze":
		return "Please analyze the information above and highlight key findings."
	case "summarize":
		return "Please provide a concise summary of the information above."
	default:
		return "Please respond to the request using the context above if relevant."
	}
}

// buildPayload assembles the forwarded prompt per the query lifecycle's
// step 5: a "Previous conversation" block whenever prior turns exist, an
// additional "Detailed data from most recent query" block when the
// request is report-intent and the immediately preceding turn was handled
// by a data-source agent, and a trailing instruction sentence.
func buildPayload(query string, recent []convo.ConversationTurn) string {
	var b strings.Builder
	b.WriteString(query)

	if len(recent) == 0 {
		return b.String()
	}

	b.WriteString("\n\nPrevious conversation:\n")
	for _, turn := range recent {
		fmt.Fprintf(&b, "- User asked %s agent: %q -> %q\n", turn.AgentName, turn.UserQuery, turn.AgentResponse)
	}

	last := recent[len(recent)-1]
	if isReportIntent(query) && isDataSourceAgent(last.AgentName) {
		b.WriteString("\nDetailed data from most recent query:\n")
		b.WriteString(last.AgentResponse)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(instructionSentence(intentClass(query)))
	return b.String()
}

// Query executes the full query lifecycle: session resolution, context
// enrichment, routing, payload assembly, dispatch, and turn recording.
func (f *Facade) Query(ctx context.Context, query, sessionID string) QueryResult {
	resolvedSession := f.Convo.GetOrCreateSession(sessionID, "")

	enriched, contextEnriched, _ := f.Convo.EnrichQuery(resolvedSession, query)

	snap := f.Registry.Snapshot()
	decision := f.Router.Select(enriched, snap)

	if decision.AgentID == "" {
		return QueryResult{
			Success:         true,
			Response:        decision.Reasoning,
			SelectedAgentID: "",
			Confidence:      0.0,
			Reasoning:       decision.Reasoning,
			SessionID:       resolvedSession,
			ContextEnriched: contextEnriched,
		}
	}

	card := snap.Cards[decision.AgentID]

	ctxView, _ := f.Convo.GetContext(resolvedSession, 3)
	payload := buildPayload(enriched, ctxView.RecentTurns)

	result, err := f.Transport.Dispatch(ctx, card.URL, resolvedSession, payload)
	if err != nil {
		slog.Error("transport dispatch failed", "agent", card.Name, "endpoint", card.URL, "error", err)
		return QueryResult{
			Success:           false,
			SelectedAgentID:   decision.AgentID,
			SelectedAgentName: card.Name,
			Confidence:        decision.Confidence,
			Reasoning:         decision.Reasoning,
			SessionID:         resolvedSession,
			ContextEnriched:   contextEnriched,
			Error:             err.Error(),
		}
	}

	metadata := map[string]any{
		"combined_score": scoreFor(decision, decision.AgentID),
		"context_enriched": contextEnriched,
	}
	_ = f.Convo.AppendTurn(resolvedSession, query, card.Name, result.Text, decision.Confidence, metadata)

	return QueryResult{
		Success:           true,
		Response:          result.Text,
		SelectedAgentID:   decision.AgentID,
		SelectedAgentName: card.Name,
		Confidence:        decision.Confidence,
		Reasoning:         decision.Reasoning,
		SessionID:         resolvedSession,
		ContextEnriched:   contextEnriched,
	}
}

func scoreFor(decision routing.Decision, agentID string) float64 {
	for _, s := range decision.Scores {
		if s.AgentID == agentID {
			return s.CombinedScore
		}
	}
	return 0
}
