// Package config loads finvisor runtime configuration from defaults, an
// optional YAML file and FINVISOR_-prefixed environment variables, in that
// precedence order.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full runtime configuration tree.
type Config struct {
	Log          LogConfig          `koanf:"log"`
	Model        ModelConfig        `koanf:"model"`
	Memory       MemoryConfig       `koanf:"memory"`
	Engine       EngineConfig       `koanf:"engine"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Session      SessionConfig      `koanf:"session"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// ModelConfig selects and parameterizes the model backend.
type ModelConfig struct {
	Provider string `koanf:"provider"` // openai, anthropic, mock
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
}

// MemoryConfig selects the memory persistence backend.
type MemoryConfig struct {
	Backend      string `koanf:"backend"` // inmemory, sqlite
	SQLitePath   string `koanf:"sqlite_path"`
	HistoryLimit int    `koanf:"history_limit"`
}

// EngineConfig tunes the tool execution engine.
type EngineConfig struct {
	ToolTimeout    time.Duration `koanf:"tool_timeout"`
	MaxConcurrency int           `koanf:"max_concurrency"`
}

// OrchestratorConfig bounds the coordinator loop.
type OrchestratorConfig struct {
	MaxIterations int `koanf:"max_iterations"`
}

// SessionConfig bounds per-turn processing.
type SessionConfig struct {
	TurnDeadline time.Duration `koanf:"turn_deadline"`
}

// Load reads configuration with defaults < file < environment precedence.
// Environment keys map FINVISOR_ENGINE_TOOL_TIMEOUT -> engine.tool_timeout.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "json")
	k.Set("model.provider", "openai")
	k.Set("model.model", "")
	k.Set("memory.backend", "inmemory")
	k.Set("memory.sqlite_path", "finvisor.db")
	k.Set("memory.history_limit", 10)
	k.Set("engine.tool_timeout", "30s")
	k.Set("engine.max_concurrency", 8)
	k.Set("orchestrator.max_iterations", 3)
	k.Set("session.turn_deadline", "2m")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// The first underscore separates the section from the key; keys
	// themselves keep their underscores (ENGINE_TOOL_TIMEOUT ->
	// engine.tool_timeout).
	if err := k.Load(env.Provider("FINVISOR_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "FINVISOR_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
