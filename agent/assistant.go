package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/engine"
	"github.com/finvisor/finvisor/logging"
	"github.com/finvisor/finvisor/memory"
	"github.com/finvisor/finvisor/model"
	"github.com/finvisor/finvisor/orchestrator"
	"github.com/finvisor/finvisor/session"
	"github.com/finvisor/finvisor/tool"
	"github.com/finvisor/finvisor/workflow"
)

const (
	// DefaultHistoryLimit is how many prior messages ground a turn.
	DefaultHistoryLimit = 10
	// DefaultTurnDeadline bounds one SendMessage turn end to end.
	DefaultTurnDeadline = 2 * time.Minute
)

const totalFailureResponse = "I could not reach any of the data sources needed for that question. " +
	"Please try again in a moment."

// Option customizes an Assistant.
type Option func(*Assistant)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Assistant) { a.logger = l }
}

// WithSessionStore replaces the default in-memory session store.
func WithSessionStore(s session.Store) Option {
	return func(a *Assistant) { a.sessions = s }
}

// WithHistoryLimit sets how many prior messages each turn loads.
func WithHistoryLimit(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.historyLimit = n
		}
	}
}

// WithTurnDeadline bounds each SendMessage turn. Zero disables the bound.
func WithTurnDeadline(d time.Duration) Option {
	return func(a *Assistant) { a.turnDeadline = d }
}

// WithToolTimeout bounds each individual tool call.
func WithToolTimeout(d time.Duration) Option {
	return func(a *Assistant) { a.toolTimeout = d }
}

// WithMaxIterations caps the orchestration loop.
func WithMaxIterations(n int) Option {
	return func(a *Assistant) { a.maxIterations = n }
}

// Assistant is the conversational facade over the orchestration core.
type Assistant struct {
	registry *tool.Registry
	model    model.Model
	memory   memory.Store
	sessions session.Store
	logger   logging.Logger

	selector    *workflow.Selector
	executor    *engine.Executor
	coordinator *orchestrator.Coordinator

	historyLimit  int
	turnDeadline  time.Duration
	toolTimeout   time.Duration
	maxIterations int
}

// New wires an assistant over a tool registry, a model backend and a
// memory store.
func New(registry *tool.Registry, m model.Model, store memory.Store, opts ...Option) *Assistant {
	a := &Assistant{
		registry:     registry,
		model:        m,
		memory:       store,
		sessions:     session.NewInMemoryStore(),
		logger:       logging.NoOpLogger{},
		historyLimit: DefaultHistoryLimit,
		turnDeadline: DefaultTurnDeadline,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.selector = workflow.NewSelector(registry, m, a.logger)
	var execOpts []engine.ExecutorOption
	if a.toolTimeout > 0 {
		execOpts = append(execOpts, engine.WithToolTimeout(a.toolTimeout))
	}
	a.executor = engine.NewExecutor(registry, a.logger, execOpts...)
	var coordOpts []orchestrator.CoordinatorOption
	if a.maxIterations > 0 {
		coordOpts = append(coordOpts, orchestrator.WithMaxIterations(a.maxIterations))
	}
	a.coordinator = orchestrator.NewCoordinator(a.executor, m, a.logger, coordOpts...)
	return a
}

// CreateSession allocates a new session in the ready state and returns
// its identifier.
func (a *Assistant) CreateSession() (string, error) {
	id := core.NewID()
	if _, err := a.sessions.Create(id); err != nil {
		return "", err
	}
	a.logger.Info("session created", "session_id", id)
	return id, nil
}

// Authenticate flips the session's authentication flag, unlocking tools
// that require it.
func (a *Assistant) Authenticate(sessionID string, v bool) error {
	sess, err := a.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	sess.SetAuthenticated(v)
	return nil
}

// GetStatus reports the session's externally visible state.
func (a *Assistant) GetStatus(sessionID string) (*Status, error) {
	sess, err := a.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	return &Status{
		Authenticated:    snap.Authenticated,
		AgentState:       snap.State,
		CurrentWorkflow:  snap.CurrentWorkflow,
		ConversationTurn: snap.ConversationTurn,
		Metrics:          snap.Metrics,
	}, nil
}

// GetMemory returns the session owner's memory document and recent
// conversation history, oldest first.
func (a *Assistant) GetMemory(ctx context.Context, sessionID string) (*MemoryView, error) {
	if _, err := a.sessions.Get(sessionID); err != nil {
		return nil, err
	}
	mem, err := a.memory.GetUserMemory(ctx, core.UserIDFromSession(sessionID))
	if err != nil {
		return nil, err
	}
	history, err := a.memory.GetConversationHistory(ctx, sessionID, a.historyLimit)
	if err != nil {
		return nil, err
	}
	return &MemoryView{UserMemory: mem, ConversationHistory: history}, nil
}

// SendMessage processes one conversation turn. Turns within a session are
// serialized; the call blocks until any in-flight turn for the same
// session finishes. The session deadline is checked at suspension points
// only, so in-flight tool calls finish and their results are discarded.
//
// Non-fatal failures (total tool failure, auth required, iteration cap)
// come back in Response.Failure with a usable response text; only
// timeouts and unrecoverable backend failures return an error, leaving
// the session in the error state and memory untouched for the turn.
func (a *Assistant) SendMessage(ctx context.Context, sessionID, text string, hint core.WorkflowType) (*Response, error) {
	start := time.Now()

	sess, release, err := a.sessions.AcquireTurn(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	if a.turnDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.turnDeadline)
		defer cancel()
	}

	if err := sess.SetAgentState(core.StateThinking); err != nil {
		return nil, err
	}
	userID := core.UserIDFromSession(sessionID)
	log := a.logger
	log.Info("turn started", "session_id", sessionID, "turn", sess.Snapshot().ConversationTurn+1)

	// Memory reads, then a deadline check at the suspension point.
	mem, err := a.memory.GetUserMemory(ctx, userID)
	if err != nil {
		return a.fail(sess, fmt.Errorf("reading user memory: %w", err))
	}
	history, err := a.memory.GetConversationHistory(ctx, sessionID, a.historyLimit)
	if err != nil {
		return a.fail(sess, fmt.Errorf("reading conversation history: %w", err))
	}
	if err := deadlineCheck(ctx); err != nil {
		return a.fail(sess, err)
	}

	finContext := sess.FinancialContextSnapshot()
	sel, selErr := a.selector.Select(ctx, workflow.Request{
		Message:          text,
		History:          history,
		Hint:             hint,
		Memory:           mem,
		FinancialContext: finContext,
	})
	if selErr != nil && !core.IsReason(selErr, core.ReasonPlanningFailure) {
		return a.fail(sess, selErr)
	}
	plan := sel.Plan

	resp := &Response{WorkflowUsed: plan.Type, Degraded: plan.Degraded}

	// Tools gated on authentication surface a distinct status rather
	// than failing call by call.
	if name, needs := a.needsAuth(plan); needs && !sess.IsAuthenticated() {
		resp.Failure = core.ReasonAuthRequired
		resp.ResponseText = "That question needs access to your personal financial data (" + name +
			"). Please sign in and ask again."
		return a.finishTurn(ctx, sess, start, text, resp, nil)
	}

	turn := engine.TurnInfo{SessionID: sessionID, UserID: userID, Authenticated: sess.IsAuthenticated()}

	var records []core.ToolExecution
	if plan.Type.Iterative() {
		res, runErr := a.coordinator.Run(ctx, orchestrator.Request{
			Message:          text,
			History:          history,
			Memory:           mem,
			FinancialContext: finContext,
			Tools:            a.registry.ListTools(),
			Plan:             plan,
			Turn:             turn,
			Observe:          func(st core.AgentState) { _ = sess.SetAgentState(st) },
		})
		records = res.Records
		resp.Summary = res.Summary
		resp.Capped = res.Capped
		if runErr != nil {
			if !core.IsReason(runErr, core.ReasonTotalFailure) {
				return a.fail(sess, runErr)
			}
			resp.Failure = core.ReasonTotalFailure
			resp.ResponseText = totalFailureResponse
		} else {
			resp.ResponseText = res.Answer
			if res.Capped {
				resp.Failure = core.ReasonOrchestrationCapped
			}
		}
	} else {
		if len(plan.ToolSteps()) > 0 {
			if err := sess.SetAgentState(core.StateExecutingTools); err != nil {
				return a.fail(sess, err)
			}
			var execErr error
			records, resp.Summary, execErr = a.executor.Execute(ctx, plan, turn)
			if execErr != nil {
				if !core.IsReason(execErr, core.ReasonTotalFailure) {
					return a.fail(sess, execErr)
				}
				resp.Failure = core.ReasonTotalFailure
				resp.ResponseText = totalFailureResponse
			}
		}
		if resp.Failure == "" {
			if err := deadlineCheck(ctx); err != nil {
				return a.fail(sess, err)
			}
			answer, synthErr := a.synthesize(ctx, model.Request{
				Message:          text,
				History:          history,
				Memory:           mem,
				FinancialContext: finContext,
				Results:          records,
			})
			if synthErr != nil {
				return a.fail(sess, core.NewTurnError(core.ReasonPlanningFailure, "response synthesis failed", synthErr))
			}
			resp.ResponseText = answer
		}
	}

	resp.ToolsUsed = toolUses(records)
	return a.finishTurn(ctx, sess, start, text, resp, records)
}

// finishTurn runs the responding phase: merge successful results into the
// session context, persist messages and the memory update, bump turn
// counters and return to ready. Memory writes happen only here, after the
// turn has a response; earlier failures leave memory untouched.
func (a *Assistant) finishTurn(ctx context.Context, sess *core.Session, start time.Time, text string, resp *Response, records []core.ToolExecution) (*Response, error) {
	if err := deadlineCheck(ctx); err != nil {
		return a.fail(sess, err)
	}
	if err := sess.SetAgentState(core.StateResponding); err != nil {
		return a.fail(sess, err)
	}

	// Only financial_data tools feed the session financial context; their
	// presence is what context_updated reports.
	var successful []string
	delta := map[string]any{}
	for _, r := range records {
		if !r.Success {
			continue
		}
		successful = append(successful, r.ToolName)
		if r.Category == core.CategoryFinancialData {
			delta[r.ToolName] = r.Result
		}
	}
	if len(delta) > 0 {
		sess.MergeFinancialContext(delta)
	}
	resp.ContextUpdated = len(delta) > 0

	sessionID := sess.ID
	userMsg := core.NewMessage(sessionID, core.RoleUser, text)
	asstMsg := core.NewMessage(sessionID, core.RoleAssistant, resp.ResponseText)
	asstMsg.Metadata = &core.MessageMetadata{
		Workflow:  resp.WorkflowUsed,
		ToolsUsed: successful,
		Duration:  time.Since(start),
		Capped:    resp.Capped,
		Degraded:  resp.Degraded,
	}

	if err := a.memory.SaveMessage(ctx, userMsg); err != nil {
		a.logger.Error("saving user message failed", "error", err)
	}
	if err := a.memory.SaveMessage(ctx, asstMsg); err != nil {
		a.logger.Error("saving assistant message failed", "error", err)
	}

	update := core.MemoryUpdate{
		Working: core.WorkingMemory{
			"last_query":    text,
			"last_response": resp.ResponseText,
			"active_topics": memory.ExtractTopics(text, successful),
		},
		Episodic: &core.EpisodicUpdate{
			Topics:          memory.ExtractTopics(text, successful),
			SuccessfulTools: successful,
		},
	}
	if patterns := memory.AnalyzePatterns(successful); len(patterns) > 0 {
		update.Semantic = &core.SemanticUpdate{SuccessfulPatterns: patterns}
	}
	if _, err := a.memory.UpdateUserMemory(ctx, core.UserIDFromSession(sessionID), update); err != nil {
		a.logger.Error("memory update failed", "error", err)
	}

	sess.CompleteTurn(resp.WorkflowUsed, resp.Summary.TotalTools, resp.Summary.SuccessfulTools, time.Since(start))
	if err := sess.SetAgentState(core.StateReady); err != nil {
		return a.fail(sess, err)
	}

	snap := sess.Snapshot()
	resp.AgentState = snap.State
	resp.ConversationTurn = snap.ConversationTurn
	resp.TotalDuration = time.Since(start)
	a.logger.Info("turn finished",
		"session_id", sessionID,
		"workflow", string(resp.WorkflowUsed),
		"tools", resp.Summary.TotalTools,
		"duration", resp.TotalDuration.String(),
	)
	return resp, nil
}

// fail moves the session to the error state and surfaces a classified
// error. The error state is per turn: the next message transitions it
// back to thinking.
func (a *Assistant) fail(sess *core.Session, err error) (*Response, error) {
	sess.ForceError()
	a.logger.Error("turn failed", "session_id", sess.ID, "reason", string(core.ReasonOf(err)), "error", err)
	return nil, err
}

// synthesize asks the model for the final text, retrying once with a
// shortened context.
func (a *Assistant) synthesize(ctx context.Context, req model.Request) (string, error) {
	answer, err := a.model.Synthesize(ctx, req)
	if err == nil {
		return answer, nil
	}
	a.logger.Debug("synthesis retry with shortened context", "error", err)
	return a.model.Synthesize(ctx, model.Request{Message: req.Message, Results: req.Results})
}

// needsAuth reports the first plan tool that requires authentication.
func (a *Assistant) needsAuth(plan *core.WorkflowPlan) (string, bool) {
	for _, name := range plan.ToolNames() {
		t, err := a.registry.Get(name)
		if err != nil {
			continue
		}
		if t.RequiresAuth() {
			return name, true
		}
	}
	return "", false
}

func deadlineCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return core.NewTurnError(core.ReasonTimeout, "session deadline elapsed", err)
	}
	return nil
}
