package orchestrator

import (
	"context"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/engine"
	"github.com/finvisor/finvisor/logging"
	"github.com/finvisor/finvisor/model"
)

// DefaultMaxIterations caps the coordinator loop when nothing is
// configured. Kept deliberately small; a loop that cannot converge in a
// few rounds is synthesizing from what it has, not fetching more.
const DefaultMaxIterations = 3

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithMaxIterations overrides the loop cap.
func WithMaxIterations(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// Coordinator runs the bounded orchestration loop.
type Coordinator struct {
	executor      *engine.Executor
	model         model.Model
	logger        logging.Logger
	maxIterations int
}

// NewCoordinator wires the loop over an executor and a model.
func NewCoordinator(exec *engine.Executor, m model.Model, logger logging.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	c := &Coordinator{executor: exec, model: m, logger: logger, maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request carries the inputs for one orchestrated turn.
type Request struct {
	Message          string
	History          []core.Message
	Memory           *core.UserMemory
	FinancialContext map[string]any
	Tools            []core.ToolDescriptor

	// Plan supplies the first round of tool calls. Later rounds come
	// from the model. Nil skips the first round.
	Plan *core.WorkflowPlan

	// Turn identifies the session for tool contexts.
	Turn engine.TurnInfo

	// Observe, when set, is notified of agent-state changes as the loop
	// alternates between executing tools and evaluating results.
	Observe func(core.AgentState)
}

// Result is the outcome of an orchestrated turn.
type Result struct {
	Answer     string
	Records    []core.ToolExecution
	Summary    core.ExecutionSummary
	Iterations int

	// Capped marks a best-effort answer produced because the iteration
	// limit was hit before the model volunteered a final answer.
	Capped bool
}

// Run drives the loop to completion. Cancellation is honored between
// iterations only, never mid-tool-call; an elapsed deadline surfaces as a
// timeout TurnError with whatever records were gathered.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Plan == nil {
		// Without a first-round plan the loop starts at the model
		// consultation with an empty context.
		req.Plan = core.NewWorkflowPlan(core.WorkflowOrchestratorWorkers)
	}
	limiter := core.NewStepLimiter(c.maxIterations)
	res := &Result{}

	// Round one executes the plan's declared steps, if any.
	if req.Plan != nil && len(req.Plan.ToolSteps()) > 0 {
		if err := c.executeRound(ctx, req, req.Plan, res, limiter); err != nil {
			return res, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			res.Summary = core.Summarize(res.Records)
			return res, core.NewTurnError(core.ReasonTimeout, "deadline elapsed between iterations", err)
		}
		if err := limiter.Increment(); err != nil {
			return c.capResult(ctx, req, res)
		}
		res.Iterations = limiter.Count()

		c.observe(req, core.StateEvaluating)
		decision, err := c.nextStep(ctx, req, res.Records)
		if err != nil {
			res.Summary = core.Summarize(res.Records)
			return res, core.NewTurnError(core.ReasonPlanningFailure, "model could not decide the next step", err)
		}

		if decision.Final() {
			res.Answer = decision.FinalAnswer
			res.Summary = core.Summarize(res.Records)
			return res, nil
		}

		round := model.PlanFromCalls(req.Plan.Type, decision.ToolCalls)
		if err := c.executeRound(ctx, req, round, res, limiter); err != nil {
			return res, err
		}
	}
}

// executeRound delegates one round of tool calls to the engine. A round
// where every call fails only aborts the turn when no call has ever
// succeeded; otherwise the failure records stay in context for the model
// to react to.
func (c *Coordinator) executeRound(ctx context.Context, req Request, plan *core.WorkflowPlan, res *Result, limiter *core.StepLimiter) error {
	c.observe(req, core.StateExecutingTools)
	records, _, err := c.executor.Execute(ctx, plan, req.Turn)
	res.Records = append(res.Records, records...)
	res.Summary = core.Summarize(res.Records)

	if err != nil {
		if core.IsReason(err, core.ReasonTotalFailure) && res.Summary.SuccessfulTools > 0 {
			c.logger.Warn("round failed entirely, continuing with prior results",
				"iteration", limiter.Count(), "failed", len(records))
			return nil
		}
		return err
	}
	return nil
}

// nextStep consults the model, retrying once with a shortened context.
func (c *Coordinator) nextStep(ctx context.Context, req Request, records []core.ToolExecution) (model.Decision, error) {
	mreq := model.Request{
		Message:          req.Message,
		History:          req.History,
		Memory:           req.Memory,
		FinancialContext: req.FinancialContext,
		Tools:            req.Tools,
		Workflow:         req.Plan.Type,
		Results:          records,
	}
	decision, err := c.model.NextStep(ctx, mreq)
	if err == nil {
		return decision, nil
	}

	c.logger.Debug("next-step retry with shortened context", "error", err)
	retry := model.Request{
		Message:  req.Message,
		Tools:    req.Tools,
		Workflow: req.Plan.Type,
		Results:  records,
	}
	return c.model.NextStep(ctx, retry)
}

// capResult synthesizes a best-effort answer from the accumulated context
// and marks the result capped. Synthesis failure still returns a non-empty
// response so the cap never silences the turn.
func (c *Coordinator) capResult(ctx context.Context, req Request, res *Result) (*Result, error) {
	c.logger.Warn("iteration cap reached, synthesizing best-effort answer",
		"iterations", res.Iterations, "records", len(res.Records))
	res.Capped = true
	res.Summary = core.Summarize(res.Records)

	answer, err := c.model.Synthesize(ctx, model.Request{
		Message:          req.Message,
		History:          req.History,
		Memory:           req.Memory,
		FinancialContext: req.FinancialContext,
		Results:          res.Records,
		Instruction:      "The analysis budget is exhausted. Summarize what was gathered and answer as best you can.",
	})
	if err != nil {
		c.logger.Error("best-effort synthesis failed", "error", err)
		answer = "I gathered partial results but could not complete the full analysis. Please try a narrower question."
	}
	res.Answer = answer
	return res, nil
}

func (c *Coordinator) observe(req Request, state core.AgentState) {
	if req.Observe != nil {
		req.Observe(state)
	}
}
