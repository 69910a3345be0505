// Package transport implements the Task Transport (C5): JSON-RPC 2.0
// dispatch of message/send, polling of tasks/get to a terminal state, and
// extraction of response text from the resulting Task or Message.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
)

// SendTimeout bounds a message/send call.
const SendTimeout = 60 * time.Second

// PollTimeout bounds a single tasks/get call.
const PollTimeout = 5 * time.Second

// DefaultPollInterval is the spacing between tasks/get attempts.
const DefaultPollInterval = 1 * time.Second

// DefaultPollBudget is the total time allotted to polling before TIMEOUT.
const DefaultPollBudget = 120 * time.Second

// ConnectFailedError wraps a network-level failure reaching endpoint.
type ConnectFailedError struct {
	Endpoint string
	Err      error
}

func (e *ConnectFailedError) Error() string {
	return fmt.Sprintf("CONNECT_FAILED: %s: %v", e.Endpoint, e.Err)
}
func (e *ConnectFailedError) Unwrap() error { return e.Err }

// HTTPError wraps a non-2xx HTTP response.
type HTTPError struct {
	Endpoint string
	Status   int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP_ERROR(%d): %s", e.Status, e.Endpoint)
}

// JSONRPCError wraps a JSON-RPC-level error object in the response.
type JSONRPCError struct {
	Endpoint string
	Body     a2awire.RPCError
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("JSON_RPC_ERROR: %s: %d %s", e.Endpoint, e.Body.Code, e.Body.Message)
}

// MalformedResponseError wraps an undecodable or structurally invalid body.
type MalformedResponseError struct {
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("MALFORMED_RESPONSE: %s: %v", e.Endpoint, e.Err)
}
func (e *MalformedResponseError) Unwrap() error { return e.Err }

// TimeoutError reports that the polling budget elapsed before a terminal
// state was reached.
type TimeoutError struct {
	Endpoint   string
	TaskID     string
	LastState  a2awire.TaskState
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("TIMEOUT: %s: task %s last observed state %s", e.Endpoint, e.TaskID, e.LastState)
}

// Result is a completed dispatch: text extracted per the terminal state,
// plus diagnostics. completed/failed/input-required all yield a Result;
// only budget exhaustion and wire-level faults surface as an error.
type Result struct {
	TaskID     string
	FinalState a2awire.TaskState
	Text       string
}

// Client dispatches JSON-RPC calls to agent endpoints and polls tasks to
// completion. A single instance is shared process-wide; it is safe for
// concurrent use.
type Client struct {
	httpClient   *http.Client
	pollInterval time.Duration
	pollBudget   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval overrides the default 1s spacing between polls.
func WithPollInterval(d time.Duration) Option { return func(c *Client) { c.pollInterval = d } }

// WithPollBudget overrides the default 120s polling budget.
func WithPollBudget(d time.Duration) Option { return func(c *Client) { c.pollBudget = d } }

// WithHTTPClient injects a pre-configured http.Client (tests point this at
// an httptest.Server).
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// New builds a Client with the default timeouts.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{},
		pollInterval: DefaultPollInterval,
		pollBudget:   DefaultPollBudget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dispatch sends query to endpoint via message/send and, if a Task is
// returned in a non-terminal state, polls tasks/get until a terminal state
// is reached or the polling budget elapses.
func (c *Client) Dispatch(ctx context.Context, endpoint, sessionID, query string) (Result, error) {
	base := strings.TrimSuffix(endpoint, "/")
	taskID := uuid.NewString()

	params := a2awire.MessageSendParams{
		ID: taskID,
		Message: a2awire.Message{
			Role:      "user",
			MessageID: uuid.NewString(),
			ContextID: sessionID,
			Parts:     []a2awire.Part{{Kind: "text", Text: query}},
		},
		Configuration: a2awire.MessageConfiguration{AcceptedOutputModes: []string{"text"}},
	}

	resp, err := c.call(ctx, base, SendTimeout, "message/send", params)
	if err != nil {
		return Result{}, err
	}

	task, message, err := decodeResult(base, resp.Result)
	if err != nil {
		return Result{}, err
	}

	if message != nil {
		slog.Info("transport dispatch complete (direct message)", "endpoint", base, "task_id", taskID)
		return Result{TaskID: taskID, FinalState: a2awire.TaskStateCompleted, Text: a2awire.TextOf(message.Parts)}, nil
	}

	if task.Status.State.IsTerminal() {
		return c.extract(base, *task), nil
	}

	return c.poll(ctx, base, task.ID)
}

func (c *Client) poll(ctx context.Context, base, taskID string) (Result, error) {
	deadline := time.Now().Add(c.pollBudget)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	lastState := a2awire.TaskStateWorking

	for {
		select {
		case <-ctx.Done():
			return Result{}, &TimeoutError{Endpoint: base, TaskID: taskID, LastState: lastState}
		case <-ticker.C:
			if time.Now().After(deadline) {
				return Result{}, &TimeoutError{Endpoint: base, TaskID: taskID, LastState: lastState}
			}

			resp, err := c.call(ctx, base, PollTimeout, "tasks/get", a2awire.TaskQueryParams{ID: taskID})
			if err != nil {
				slog.Warn("transient poll failure, continuing", "endpoint", base, "task_id", taskID, "error", err)
				continue
			}

			task, _, err := decodeResult(base, resp.Result)
			if err != nil {
				slog.Warn("transient malformed poll response, continuing", "endpoint", base, "task_id", taskID, "error", err)
				continue
			}
			lastState = task.Status.State

			if task.Status.State.IsTerminal() {
				slog.Info("transport poll reached terminal state", "endpoint", base, "task_id", taskID, "state", task.Status.State)
				return c.extract(base, *task), nil
			}
		}
	}
}

// extract implements the per-state response extraction rules.
func (c *Client) extract(base string, task a2awire.Task) Result {
	switch task.Status.State {
	case a2awire.TaskStateCompleted:
		text := artifactsText(task.Artifacts)
		if text == "" {
			text = "no response text found"
		}
		return Result{TaskID: task.ID, FinalState: task.Status.State, Text: text}
	case a2awire.TaskStateFailed:
		text := statusMessageText(task.Status)
		return Result{TaskID: task.ID, FinalState: task.Status.State, Text: "task failed: " + text}
	case a2awire.TaskStateInputRequired:
		text := statusMessageText(task.Status)
		return Result{TaskID: task.ID, FinalState: task.Status.State, Text: text}
	default:
		return Result{TaskID: task.ID, FinalState: task.Status.State, Text: ""}
	}
}

func artifactsText(artifacts []a2awire.Artifact) string {
	var out strings.Builder
	for _, a := range artifacts {
		out.WriteString(a2awire.TextOf(a.Parts))
	}
	return out.String()
}

func statusMessageText(status a2awire.TaskStatus) string {
	if status.Message == nil {
		return ""
	}
	return a2awire.TextOf(status.Message.Parts)
}

// decodeResult distinguishes a Task envelope (has a "status" object) from a
// direct Message (has a "parts" array at the top level).
func decodeResult(endpoint string, raw json.RawMessage) (*a2awire.Task, *a2awire.Message, error) {
	var probe struct {
		Status json.RawMessage `json:"status"`
		Parts  json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}

	if probe.Status != nil {
		var task a2awire.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
		}
		return &task, nil, nil
	}
	if probe.Parts != nil {
		var msg a2awire.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
		}
		return nil, &msg, nil
	}
	return nil, nil, &MalformedResponseError{Endpoint: endpoint, Err: fmt.Errorf("result has neither status nor parts")}
}

func (c *Client) call(ctx context.Context, endpoint string, timeout time.Duration, method string, params any) (a2awire.RPCResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := a2awire.NewRequest(uuid.NewString(), method, params)
	if err != nil {
		return a2awire.RPCResponse{}, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return a2awire.RPCResponse{}, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return a2awire.RPCResponse{}, &ConnectFailedError{Endpoint: endpoint, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return a2awire.RPCResponse{}, &ConnectFailedError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a2awire.RPCResponse{}, &HTTPError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return a2awire.RPCResponse{}, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}

	var rpcResp a2awire.RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return a2awire.RPCResponse{}, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}
	if rpcResp.Error != nil {
		return a2awire.RPCResponse{}, &JSONRPCError{Endpoint: endpoint, Body: *rpcResp.Error}
	}
	return rpcResp, nil
}
