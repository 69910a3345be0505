package registry

import (
	"context"
	"log/slog"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
)

// CardFetcher fetches an agent card from a base URL. *cardclient.Client
// satisfies this; it is an interface here so bootstrap can be unit-tested
// without a live HTTP server.
type CardFetcher interface {
	Fetch(ctx context.Context, base string) (a2awire.AgentCard, error)
}

// Bootstrap attempts to fetch and register a card from each endpoint.
// Failures are logged and do not prevent startup; it returns the count of
// agents successfully registered.
func Bootstrap(ctx context.Context, reg *AgentRegistry, fetcher CardFetcher, endpoints []string) int {
	registered := 0
	for _, endpoint := range endpoints {
		if endpoint == "" {
			continue
		}
		card, err := fetcher.Fetch(ctx, endpoint)
		if err != nil {
			slog.Warn("bootstrap agent registration failed", "endpoint", endpoint, "error", err)
			continue
		}
		reg.Add(card)
		registered++
		slog.Info("bootstrap agent registered", "endpoint", endpoint, "name", card.Name)
	}
	return registered
}
