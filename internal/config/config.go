// Package config loads the gateway's startup configuration from flags,
// an optional .env file, and an optional YAML file, in that precedence
// order (flags win).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the orchestrator's startup configuration.
type Config struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	BootstrapAgents []string      `yaml:"bootstrap_agents"`
	SessionTimeout  time.Duration `yaml:"session_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollBudget      time.Duration `yaml:"poll_budget"`
}

// Default returns the configuration with the spec's documented defaults.
func Default() Config {
	return Config{
		Host:           "localhost",
		Port:           8000,
		LogLevel:       "info",
		LogFormat:      "simple",
		SessionTimeout: 24 * time.Hour,
		PollInterval:   1 * time.Second,
		PollBudget:     120 * time.Second,
	}
}

// Validate reports a ConfigError for any field that would prevent startup.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigError{Reason: fmt.Sprintf("invalid port %d", c.Port)}
	}
	if c.Host == "" {
		return &ConfigError{Reason: "host must not be empty"}
	}
	return nil
}

// ConfigError is fatal at startup.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("ConfigError: %s", e.Reason) }

// LoadEnv loads a .env file if present (missing file is not an error) and
// returns the bootstrap agent endpoint list from AGENT_BOOTSTRAP_URLS, a
// comma-separated list, mirroring how the original orchestrator reads its
// default agent endpoints from the environment.
func LoadEnv(path string) []string {
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path) // best-effort; downstream agents own their own secrets

	raw := os.Getenv("AGENT_BOOTSTRAP_URLS")
	if raw == "" {
		return nil
	}
	var endpoints []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			endpoints = append(endpoints, part)
		}
	}
	return endpoints
}

// LoadYAML merges fields from a YAML config file into base, returning the
// merged config. A missing path is not an error.
func LoadYAML(path string, base Config) (Config, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, &ConfigError{Reason: fmt.Sprintf("reading config file: %v", err)}
	}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return base, &ConfigError{Reason: fmt.Sprintf("parsing config file: %v", err)}
	}
	return base, nil
}
