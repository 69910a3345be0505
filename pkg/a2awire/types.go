// Package a2awire defines the wire types exchanged with downstream agents:
// the agent card descriptor, the JSON-RPC 2.0 envelope, and the task/message
// shapes used by message/send and tasks/get.
package a2awire

import "encoding/json"

// AgentCapabilities describes optional protocol features a remote agent
// declares support for.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// Skill is a named capability on an agent card.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Examples    []string `json:"examples,omitempty"`
}

// AgentCard is the capability descriptor fetched from a remote agent.
// The orchestrator treats it as immutable after fetch; the only mutation
// path is whole-card replacement via re-registration.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version             string            `json:"version"`
	Capabilities        AgentCapabilities `json:"capabilities"`
	Skills              []Skill           `json:"skills"`
	DefaultInputModes   []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes  []string          `json:"defaultOutputModes,omitempty"`
}

// TaskState is the state tag in a task's status.
type TaskState string

const (
	TaskStatePending       TaskState = "pending"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
)

// IsTerminal reports whether the state requires no further polling.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateInputRequired:
		return true
	default:
		return false
	}
}

// Part is a single content unit of a message or artifact. Only the "text"
// kind is produced or consumed by this system; other kinds pass through
// untouched where encountered.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Message is a role-tagged sequence of parts, used both as request payload
// and as the content of a task's status message.
type Message struct {
	Role      string `json:"role"`
	MessageID string `json:"messageId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
	Parts     []Part `json:"parts"`
}

// Artifact carries structured output attached to a completed task.
type Artifact struct {
	Name  string `json:"name,omitempty"`
	Parts []Part `json:"parts"`
}

// TaskStatus is the current state of a Task plus an optional message
// (populated for input-required and failed states).
type TaskStatus struct {
	State   TaskState `json:"state"`
	Message *Message  `json:"message,omitempty"`
}

// Task is the unit of asynchronous work created by message/send and
// observed via tasks/get.
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId,omitempty"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// MessageConfiguration narrows the accepted response shape.
type MessageConfiguration struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes"`
}

// MessageSendParams are the params of a message/send call.
type MessageSendParams struct {
	ID            string                `json:"id"`
	Message       Message               `json:"message"`
	Configuration MessageConfiguration `json:"configuration"`
}

// TaskQueryParams are the params of a tasks/get call.
type TaskQueryParams struct {
	ID string `json:"id"`
}

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope. Result may decode to
// either a Task or a bare Message, distinguished by the presence of "status".
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

const JSONRPCVersion = "2.0"

// NewRequest builds an RPCRequest with a marshaled params payload.
func NewRequest(id, method string, params any) (RPCRequest, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return RPCRequest{}, err
	}
	idRaw, err := json.Marshal(id)
	if err != nil {
		return RPCRequest{}, err
	}
	return RPCRequest{JSONRPC: JSONRPCVersion, ID: idRaw, Method: method, Params: raw}, nil
}

// TextOf concatenates the text of all "text" kind parts, in order.
func TextOf(parts []Part) string {
	out := ""
	for _, p := range parts {
		if p.Kind == "text" {
			out += p.Text
		}
	}
	return out
}
