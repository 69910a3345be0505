package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
)

// Server is the single-process HTTP server exposing both the JSON-RPC
// surface at "/" and the management REST surface at "/api/v1/agents/*" on
// one port.
type Server struct {
	httpServer *http.Server
	facade     *Facade
	rpc        *RPCServer
}

// NewServer builds a Server bound to addr (host:port).
func NewServer(addr string, facade *Facade) *Server {
	rpcServer := NewRPCServer(facade)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", facade.Routes())
	mux.HandleFunc("/", rpcHandler(rpcServer))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{httpServer: httpServer, facade: facade, rpc: rpcServer}
}

func loggingMiddleware(next http.Handler) http.Handler {
	// Does not wrap ResponseWriter: that would break http.Flusher, needed
	// by the SSE query/stream endpoint.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func rpcHandler(rpcServer *RPCServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req a2awire.RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed JSON-RPC request", http.StatusBadRequest)
			return
		}
		resp := rpcServer.Handle(r.Context(), req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully within a 5s deadline.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("orchestrator listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the HTTP server within a 5s deadline.
func (s *Server) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
