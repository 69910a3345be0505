// Command orchestratord runs the multi-agent orchestration gateway: a
// single HTTP server exposing a JSON-RPC surface at "/" and a management
// REST surface at "/api/v1/agents/*".
//
// Usage:
//
//	orchestratord serve --host localhost --port 8000
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/nayanika2304/multi-agent-orchestration/internal/config"
	"github.com/nayanika2304/multi-agent-orchestration/internal/logging"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/convo"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/orchestrator"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/registry"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/transport"
)

// CLI is the top-level command set.
type CLI struct {
	Serve ServeCmd `cmd:"" default:"1" help:"Run the orchestrator gateway."`

	Config    string `help:"Optional YAML config file." type:"path"`
	EnvFile   string `help:"Optional .env file for bootstrap agent endpoints." name:"env-file"`
	LogLevel  string `help:"Log level: debug, info, warn, error." default:"info"`
	LogFormat string `help:"Log format: simple, verbose." default:"simple"`
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Host string `help:"Host to bind." default:"localhost"`
	Port int    `help:"Port to bind." default:"8000"`
}

// Run starts the orchestrator and blocks until an interrupt signal or
// fatal startup failure.
func (s *ServeCmd) Run(cli *CLI) error {
	level, err := logging.ParseLevel(cli.LogLevel)
	if err != nil {
		level = 0
	}
	logging.Init(level, os.Stderr, cli.LogFormat)

	cfg, err := config.LoadYAML(cli.Config, config.Default())
	if err != nil {
		return err
	}
	cfg.Host = s.Host
	cfg.Port = s.Port
	cfg.LogLevel = cli.LogLevel
	cfg.LogFormat = cli.LogFormat
	cfg.BootstrapAgents = append(cfg.BootstrapAgents, config.LoadEnv(cli.EnvFile)...)

	if err := cfg.Validate(); err != nil {
		return err
	}

	facade := orchestrator.New()
	facade.Convo = convo.NewManager(cfg.SessionTimeout)
	facade.Transport = transport.New(transport.WithPollInterval(cfg.PollInterval), transport.WithPollBudget(cfg.PollBudget))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.BootstrapAgents) > 0 {
		n := registry.Bootstrap(ctx, facade.Registry, facade.CardClient, cfg.BootstrapAgents)
		slog.Info("bootstrap complete", "registered", n, "attempted", len(cfg.BootstrapAgents))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := orchestrator.NewServer(addr, facade)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("orchestrator shut down cleanly")
	return nil
}

func main() {
	var cli CLI
	parser := kong.Parse(&cli,
		kong.Name("orchestratord"),
		kong.Description("Multi-agent orchestration gateway."),
		kong.UsageOnError(),
	)

	err := parser.Run(&cli)
	if err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}
