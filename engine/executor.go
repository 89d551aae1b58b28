package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/logging"
	"github.com/finvisor/finvisor/tool"
)

// DefaultToolTimeout bounds a single tool call when no timeout is
// configured.
const DefaultToolTimeout = 30 * time.Second

// TurnInfo carries the session-scoped identifiers a tool context needs.
type TurnInfo struct {
	SessionID     string
	UserID        string
	Authenticated bool
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithToolTimeout overrides the per-call time bound.
func WithToolTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.toolTimeout = d
		}
	}
}

// Executor dispatches a plan's tool calls against the registry.
type Executor struct {
	registry    *tool.Registry
	logger      logging.Logger
	toolTimeout time.Duration
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *tool.Registry, logger logging.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	e := &Executor{registry: registry, logger: logger, toolTimeout: DefaultToolTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every tool-call step of the plan and returns one record per
// declared call, in plan declaration order, plus the aggregate summary.
//
// The context is consulted only between groups (a suspension point):
// cancellation there returns the records gathered so far with a timeout
// error, while calls already in flight run to completion under their own
// per-call timeout. If at least one call was declared and every one
// failed, the error is a total_failure TurnError; the records are still
// returned.
func (e *Executor) Execute(ctx context.Context, plan *core.WorkflowPlan, turn TurnInfo) ([]core.ToolExecution, core.ExecutionSummary, error) {
	var records []core.ToolExecution

	for _, step := range plan.ToolSteps() {
		if err := ctx.Err(); err != nil {
			return records, core.Summarize(records), core.NewTurnError(core.ReasonTimeout, "deadline elapsed before group "+step.Group, err)
		}
		records = append(records, e.runGroup(ctx, step, turn)...)
	}

	summary := core.Summarize(records)
	if summary.TotalTools > 0 && summary.SuccessfulTools == 0 {
		return records, summary, core.NewTurnError(core.ReasonTotalFailure, "every tool call in the plan failed", nil)
	}
	return records, summary, nil
}

// runGroup dispatches one group's calls and waits for all of them.
// Records come back in the group's declaration order regardless of
// completion order. Calls whose tool is not parallelizable run one at a
// time after the concurrent batch, still before the barrier releases.
func (e *Executor) runGroup(ctx context.Context, step core.PlanStep, turn TurnInfo) []core.ToolExecution {
	records := make([]core.ToolExecution, len(step.Calls))
	sem := make(chan struct{}, e.registry.MaxConcurrency())

	var serial []int
	var wg sync.WaitGroup
	for i, call := range step.Calls {
		if !e.parallelizable(call.Name) {
			serial = append(serial, i)
			continue
		}
		wg.Add(1)
		go func(i int, call core.ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			records[i] = e.runCall(ctx, call, turn)
		}(i, call)
	}
	wg.Wait()

	for _, i := range serial {
		records[i] = e.runCall(ctx, step.Calls[i], turn)
	}
	return records
}

// runCall executes a single tool call under its own timeout. The parent's
// cancellation is deliberately detached: a session deadline elapsing
// mid-call lets the call finish and discards its result upstream.
func (e *Executor) runCall(ctx context.Context, call core.ToolCall, turn TurnInfo) core.ToolExecution {
	rec := core.ToolExecution{
		ExecutionID: core.NewID(),
		ToolName:    call.Name,
		Group:       call.Group,
		Started:     time.Now().UTC(),
	}

	t, err := e.registry.Get(call.Name)
	if err != nil {
		rec.Ended = time.Now().UTC()
		rec.Error = err.Error()
		e.logger.Warn("tool lookup failed", "tool", call.Name, "error", err)
		return rec
	}
	rec.Category = t.Category()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.toolTimeout)
	defer cancel()

	tc := core.NewToolContext(callCtx, turn.SessionID, turn.UserID, rec.ExecutionID, turn.Authenticated, e.logger)
	result, err := t.Call(tc, call.Args)
	rec.Ended = time.Now().UTC()

	switch {
	case err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		rec.Error = tool.NewToolError(call.Name, "execution timed out", tool.CodeTimeout).Error()
	case err != nil:
		rec.Error = err.Error()
	default:
		rec.Success = true
		rec.Result = result
	}

	e.logger.Debug("tool call finished",
		"tool", call.Name,
		"group", call.Group,
		"success", rec.Success,
		"duration", rec.Duration().String(),
	)
	return rec
}

func (e *Executor) parallelizable(name string) bool {
	t, err := e.registry.Get(name)
	if err != nil {
		// Unknown tools produce a failure record; run them inline.
		return false
	}
	return t.Parallelizable()
}
