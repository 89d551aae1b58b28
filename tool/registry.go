package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/finvisor/finvisor/core"
)

// DefaultMaxConcurrency bounds parallel tool dispatch when the registry is
// constructed without an explicit limit.
const DefaultMaxConcurrency = 8

// Registry declares the capabilities available to planners and resolves tool
// names to their invocation handles. Planning code only sees descriptors;
// execution code resolves handles at call time. Safe for concurrent use.
type Registry struct {
	mu             sync.RWMutex
	tools          map[string]Tool
	maxConcurrency int
}

// RegistryOption customizes registry construction.
type RegistryOption func(*Registry)

// WithMaxConcurrency bounds how many tool calls may run at once across a
// parallel group. Values < 1 fall back to the default.
func WithMaxConcurrency(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxConcurrency = n
		}
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:          map[string]Tool{},
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds a tool. Re-registering a name replaces the previous handle.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, NewToolError(name, "tool is not registered", CodeUnknownTool)
	}
	return t, nil
}

// Has reports whether a tool name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// ListTools returns descriptors for every registered tool, sorted by name so
// planner prompts are deterministic.
func (r *Registry) ListTools() []core.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, core.ToolDescriptor{
			Name:           t.Name(),
			Description:    t.Description(),
			Category:       t.Category(),
			Parameters:     t.Parameters(),
			Parallelizable: t.Parallelizable(),
			RequiresAuth:   t.RequiresAuth(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByCategory returns the names of registered tools in the given category.
func (r *Registry) ByCategory(cat core.ToolCategory) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, t := range r.tools {
		if t.Category() == cat {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)
	return names
}

// MaxConcurrency returns the registry-wide parallel dispatch bound.
func (r *Registry) MaxConcurrency() int { return r.maxConcurrency }

// Validate checks that every tool a plan references is registered.
func (r *Registry) Validate(plan *core.WorkflowPlan) error {
	for _, name := range plan.ToolNames() {
		if !r.Has(name) {
			return fmt.Errorf("plan references unknown tool %q: %w",
				name, NewToolError(name, "tool is not registered", CodeUnknownTool))
		}
	}
	return nil
}
