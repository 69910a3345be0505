// Package cardclient fetches and parses an agent card from a remote agent's
// well-known discovery endpoint.
package cardclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
)

// DiscoveryPath is the canonical well-known path agents expose their card at.
const DiscoveryPath = "/.well-known/agent.json"

// DefaultTimeout bounds a single card fetch.
const DefaultTimeout = 5 * time.Second

// FetchError wraps a card-fetch failure with the offending endpoint.
type FetchError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("FETCH_FAILED: %s: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("FETCH_FAILED: %s: %s", e.Endpoint, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches agent cards over HTTP. It is stateless and safe for
// concurrent use; a single instance should be shared process-wide.
type Client struct {
	httpClient *http.Client
}

// New builds a card-fetching client with the default discovery timeout.
func New() *Client {
	return &Client{httpClient: &http.Client{Timeout: DefaultTimeout}}
}

// NewWithClient allows injecting a pre-configured http.Client (tests use
// this to point at an httptest.Server without per-call timeouts).
func NewWithClient(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// Fetch performs a GET against base's discovery path and parses the result
// into an AgentCard. base is normalized by stripping a trailing slash before
// the discovery path is appended.
func (c *Client) Fetch(ctx context.Context, base string) (a2awire.AgentCard, error) {
	trimmed := strings.TrimSuffix(base, "/")
	url := trimmed + DiscoveryPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return a2awire.AgentCard{}, &FetchError{Endpoint: base, Reason: "build request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return a2awire.AgentCard{}, &FetchError{Endpoint: base, Reason: "connect failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a2awire.AgentCard{}, &FetchError{Endpoint: base, Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return a2awire.AgentCard{}, &FetchError{Endpoint: base, Reason: "read body", Err: err}
	}

	var card a2awire.AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return a2awire.AgentCard{}, &FetchError{Endpoint: base, Reason: "malformed descriptor", Err: err}
	}
	if card.Name == "" {
		return a2awire.AgentCard{}, &FetchError{Endpoint: base, Reason: "malformed descriptor: missing name"}
	}

	if card.URL == "" {
		card.URL = trimmed
	}
	return card, nil
}
