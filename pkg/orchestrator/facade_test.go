package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
)

// fakeAgent serves both the discovery card and message/send as a single
// completed-task reply echoing a fixed response.
func fakeAgent(t *testing.T, name string, skills []a2awire.Skill, responseText string) *httptest.Server {
	t.Helper()
	var gotPayload string
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/agent.json", func(w http.ResponseWriter, r *http.Request) {
		card := a2awire.AgentCard{Name: name, Description: "test agent " + name, Skills: skills}
		json.NewEncoder(w).Encode(card)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var req a2awire.RPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method == "message/send" {
			var params a2awire.MessageSendParams
			json.Unmarshal(req.Params, &params)
			gotPayload = a2awire.TextOf(params.Message.Parts)
			task := a2awire.Task{
				ID:     params.ID,
				Status: a2awire.TaskStatus{State: a2awire.TaskStateCompleted},
				Artifacts: []a2awire.Artifact{{Parts: []a2awire.Part{{Kind: "text", Text: responseText}}}},
			}
			raw, _ := json.Marshal(task)
			resp := a2awire.RPCResponse{JSONRPC: a2awire.JSONRPCVersion, Result: raw}
			json.NewEncoder(w).Encode(resp)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(func() { _ = gotPayload })
	return srv
}

func TestFacade_BootstrapAndSimpleRouting(t *testing.T) {
	mathSrv := fakeAgent(t, "math_agent", []a2awire.Skill{{
		ID: "arith", Name: "Arithmetic Calculation", Description: "evaluates expressions",
		Tags: []string{"calculate", "+", "compute"},
	}}, "4")
	defer mathSrv.Close()
	weatherSrv := fakeAgent(t, "weather_rag", []a2awire.Skill{{
		ID: "weather", Name: "Weather RAG", Description: "answers weather questions",
		Tags: []string{"weather", "temperature"},
	}}, "sunny")
	defer weatherSrv.Close()

	f := New()
	_, err := f.RegisterAgent(context.Background(), mathSrv.URL)
	require.NoError(t, err)
	_, err = f.RegisterAgent(context.Background(), weatherSrv.URL)
	require.NoError(t, err)

	result := f.Query(context.Background(), "Calculate 2 + 2", "")
	require.True(t, result.Success)
	assert.Equal(t, "math_agent", result.SelectedAgentName)
	assert.Greater(t, result.Confidence, 0.2)
	assert.Contains(t, result.Reasoning, "calculate")

	ctx, err := f.Convo.GetContext(result.SessionID, 10)
	require.NoError(t, err)
	assert.Len(t, ctx.RecentTurns, 1)
}

func TestFacade_EmptyRegistryDeclines(t *testing.T) {
	f := New()
	result := f.Query(context.Background(), "hello", "")

	assert.True(t, result.Success)
	assert.Equal(t, "", result.SelectedAgentID)
	assert.Equal(t, 0.0, result.Confidence)

	ctxView, err := f.Convo.GetContext(result.SessionID, 10)
	require.NoError(t, err)
	assert.Empty(t, ctxView.RecentTurns)
}

func TestFacade_ReferenceResolutionEnrichesFollowUp(t *testing.T) {
	weatherSrv := fakeAgent(t, "weather_rag", []a2awire.Skill{{
		ID: "weather", Name: "Weather RAG", Description: "answers questions about winter weather in New York and other cities",
		Tags: []string{"weather", "temperature", "winter"},
	}}, "Winter in NYC averaged -2C.")
	defer weatherSrv.Close()

	reportSrv := fakeAgent(t, "report_agent", []a2awire.Skill{{
		ID: "report", Name: "Report Generation", Description: "generates reports",
		Tags: []string{"report", "generate"},
	}}, "Here is your report.")
	defer reportSrv.Close()

	f := New()
	_, err := f.RegisterAgent(context.Background(), weatherSrv.URL)
	require.NoError(t, err)
	_, err = f.RegisterAgent(context.Background(), reportSrv.URL)
	require.NoError(t, err)

	first := f.Query(context.Background(), "How was the winter in New York?", "")
	require.True(t, first.Success)
	require.Equal(t, "weather_rag", first.SelectedAgentName)

	second := f.Query(context.Background(), "Generate a report on it", first.SessionID)
	require.True(t, second.Success)
	assert.True(t, second.ContextEnriched)

	ctxView, err := f.Convo.GetContext(second.SessionID, 10)
	require.NoError(t, err)
	require.Len(t, ctxView.RecentTurns, 2)
}

func TestFacade_UnregisterByURLSubstring(t *testing.T) {
	srv := fakeAgent(t, "weather_rag", []a2awire.Skill{{ID: "w", Name: "Weather", Tags: []string{"weather"}}}, "ok")
	defer srv.Close()

	f := New()
	_, err := f.RegisterAgent(context.Background(), srv.URL)
	require.NoError(t, err)

	host := strings.TrimPrefix(srv.URL, "http://")
	card, err := f.UnregisterAgent(host)
	require.NoError(t, err)
	assert.Equal(t, "weather_rag", card.Name)
	assert.Empty(t, f.ListAgents())
}

