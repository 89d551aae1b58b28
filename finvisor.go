// Package finvisor provides a high-level façade over the agent
// orchestration core (sessions, memory, workflow selection, tool
// execution & logging) for building a conversational financial assistant.
// Most applications interact with this package by:
//  1. Creating an Assistant via New() or FromConfig()
//  2. Registering tools (the built-in catalog or custom FunctionTools)
//  3. Creating a session and exchanging messages with SendMessage
//
// The façade delegates turn processing to agent.Assistant while keeping
// setup ergonomics concise. All defaults are safe for local development;
// production deployments typically supply the SQLite memory store and a
// structured logger.
package finvisor

import (
	"fmt"

	"github.com/finvisor/finvisor/agent"
	"github.com/finvisor/finvisor/config"
	"github.com/finvisor/finvisor/logging"
	"github.com/finvisor/finvisor/memory"
	"github.com/finvisor/finvisor/model"
	"github.com/finvisor/finvisor/model/anthropic"
	"github.com/finvisor/finvisor/model/openai"
	"github.com/finvisor/finvisor/tool"
)

// New creates an assistant over a registry, model and memory store.
// It is a thin alias for agent.New, re-exported for discoverability.
func New(registry *tool.Registry, m model.Model, store memory.Store, opts ...agent.Option) *agent.Assistant {
	return agent.New(registry, m, store, opts...)
}

// FromConfig builds a fully wired assistant from a configuration file
// (and FINVISOR_* environment overrides): model backend, memory store,
// tool registry with the built-in catalog, logger, and all turn bounds.
func FromConfig(path string, handlers map[string]tool.Handler) (*agent.Assistant, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Component: "finvisor",
	})

	m, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildMemoryStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := tool.NewRegistry(tool.WithMaxConcurrency(cfg.Engine.MaxConcurrency))
	tool.BindCatalog(registry, handlers)

	return agent.New(registry, m, store,
		agent.WithLogger(logger),
		agent.WithHistoryLimit(cfg.Memory.HistoryLimit),
		agent.WithTurnDeadline(cfg.Session.TurnDeadline),
		agent.WithToolTimeout(cfg.Engine.ToolTimeout),
		agent.WithMaxIterations(cfg.Orchestrator.MaxIterations),
	), nil
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Model.Provider {
	case "openai", "":
		return openai.New(openai.Config{
			APIKey:  cfg.Model.APIKey,
			BaseURL: cfg.Model.BaseURL,
			Model:   cfg.Model.Model,
		}), nil
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey: cfg.Model.APIKey,
			Model:  cfg.Model.Model,
		}), nil
	case "mock":
		return model.NewMockModel(), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func buildMemoryStore(cfg *config.Config) (memory.Store, error) {
	switch cfg.Memory.Backend {
	case "sqlite":
		return memory.OpenSQLiteStore(cfg.Memory.SQLitePath)
	case "inmemory", "":
		return memory.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Memory.Backend)
	}
}
