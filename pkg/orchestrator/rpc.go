package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
)

// taskStore holds the synchronously-completed tasks the RPC surface has
// produced, so a follow-up tasks/get can observe the same terminal state
// message/send already computed.
type taskStore struct {
	mu    sync.RWMutex
	tasks map[string]a2awire.Task
}

func newTaskStore() *taskStore { return &taskStore{tasks: make(map[string]a2awire.Task)} }

func (s *taskStore) put(task a2awire.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
}

func (s *taskStore) get(id string) (a2awire.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// RPCServer exposes the facade through a minimal JSON-RPC 2.0 surface so
// that upstream A2A-style clients can talk to the orchestrator itself as
// an agent. It manufactures task ids and progresses each task
// synchronously through working to a terminal state.
type RPCServer struct {
	facade *Facade
	tasks  *taskStore
}

// NewRPCServer builds an RPCServer over facade.
func NewRPCServer(facade *Facade) *RPCServer {
	return &RPCServer{facade: facade, tasks: newTaskStore()}
}

// Handle dispatches a single RPC request and returns its response
// envelope. Unknown methods yield a JSON-RPC method-not-found error.
func (s *RPCServer) Handle(ctx context.Context, req a2awire.RPCRequest) a2awire.RPCResponse {
	switch req.Method {
	case "message/send":
		return s.handleMessageSend(ctx, req)
	case "tasks/get":
		return s.handleTasksGet(req)
	default:
		return errorResponse(req.ID, -32601, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *RPCServer) handleMessageSend(ctx context.Context, req a2awire.RPCRequest) a2awire.RPCResponse {
	var params a2awire.MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, -32602, "invalid params: "+err.Error())
	}

	query := a2awire.TextOf(params.Message.Parts)
	taskID := params.ID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	responseText, err := s.dispatchText(ctx, query, params.Message.ContextID)

	var task a2awire.Task
	if err != nil {
		task = a2awire.Task{
			ID:        taskID,
			ContextID: params.Message.ContextID,
			Status: a2awire.TaskStatus{
				State:   a2awire.TaskStateFailed,
				Message: &a2awire.Message{Role: "agent", Parts: []a2awire.Part{{Kind: "text", Text: err.Error()}}},
			},
		}
	} else {
		task = a2awire.Task{
			ID:        taskID,
			ContextID: params.Message.ContextID,
			Status:    a2awire.TaskStatus{State: a2awire.TaskStateCompleted},
			Artifacts: []a2awire.Artifact{{Parts: []a2awire.Part{{Kind: "text", Text: responseText}}}},
		}
	}
	s.tasks.put(task)

	return resultResponse(req.ID, task)
}

func (s *RPCServer) handleTasksGet(req a2awire.RPCRequest) a2awire.RPCResponse {
	var params a2awire.TaskQueryParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, -32602, "invalid params: "+err.Error())
	}
	task, ok := s.tasks.get(params.ID)
	if !ok {
		return errorResponse(req.ID, -32001, "task not found: "+params.ID)
	}
	return resultResponse(req.ID, task)
}

// dispatchText runs the three in-band control commands, falling back to a
// natural-language query through the normal routing/transport pipeline.
func (s *RPCServer) dispatchText(ctx context.Context, query, sessionID string) (string, error) {
	switch {
	case query == "LIST_AGENTS":
		return s.listAgentsJSON(), nil
	case strings.HasPrefix(query, "REGISTER_AGENT:"):
		endpoint := strings.TrimSpace(strings.TrimPrefix(query, "REGISTER_AGENT:"))
		card, err := s.facade.RegisterAgent(ctx, endpoint)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("registered agent %s at %s", card.Name, card.URL), nil
	case strings.HasPrefix(query, "UNREGISTER_AGENT:"):
		identifier := strings.TrimSpace(strings.TrimPrefix(query, "UNREGISTER_AGENT:"))
		card, err := s.facade.UnregisterAgent(identifier)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("unregistered agent %s", card.Name), nil
	default:
		result := s.facade.Query(ctx, query, sessionID)
		if !result.Success {
			return "", fmt.Errorf("%s", result.Error)
		}
		return result.Response, nil
	}
}

func (s *RPCServer) listAgentsJSON() string {
	summaries := s.facade.ListAgents()
	raw, err := json.Marshal(summaries)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func resultResponse(id json.RawMessage, v any) a2awire.RPCResponse {
	raw, err := json.Marshal(v)
	if err != nil {
		return errorResponse(id, -32603, "internal error: "+err.Error())
	}
	return a2awire.RPCResponse{JSONRPC: a2awire.JSONRPCVersion, ID: id, Result: raw}
}

func errorResponse(id json.RawMessage, code int, message string) a2awire.RPCResponse {
	return a2awire.RPCResponse{JSONRPC: a2awire.JSONRPCVersion, ID: id, Error: &a2awire.RPCError{Code: code, Message: message}}
}
