package workflow

import (
	"context"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/logging"
	"github.com/finvisor/finvisor/model"
	"github.com/finvisor/finvisor/tool"
)

// shortHistory is how many trailing messages the planning retry keeps.
const shortHistory = 2

// Request carries the inputs for one plan selection.
type Request struct {
	// Message is the user's current input.
	Message string

	// History holds prior turns, oldest first.
	History []core.Message

	// Hint short-circuits classification when it names a valid workflow
	// type. The hinted plan is validated against the registry; a plan
	// naming unknown tools degrades to simple_response.
	Hint core.WorkflowType

	// Memory and FinancialContext ground the model's planning call.
	Memory           *core.UserMemory
	FinancialContext map[string]any
}

// Selection is the selector's output: the plan plus how it was chosen.
type Selection struct {
	Plan *core.WorkflowPlan

	// Routed is set when classification went through the routing pass.
	Routed bool

	// Hinted is set when the caller's hint decided the workflow type.
	Hinted bool
}

// Selector chooses a workflow type for each message and builds its plan.
type Selector struct {
	registry *tool.Registry
	model    model.Model
	logger   logging.Logger
}

// NewSelector creates a selector over the given registry and model.
func NewSelector(registry *tool.Registry, m model.Model, logger logging.Logger) *Selector {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Selector{registry: registry, model: m, logger: logger}
}

// Select classifies the message and builds a plan for it. Planning
// failures retry once with shortened context; a second failure returns a
// degraded simple_response plan with no tools alongside the
// planning_failure error, so the caller can still answer.
func (s *Selector) Select(ctx context.Context, req Request) (*Selection, error) {
	sel := &Selection{}

	workflow := req.Hint
	switch {
	case workflow.Valid():
		sel.Hinted = true
	default:
		workflow = Classify(req.Message)
	}
	if workflow == core.WorkflowRouting {
		workflow = Resolve(req.Message)
		sel.Routed = true
	}
	s.logger.Debug("workflow selected", "workflow", string(workflow), "hinted", sel.Hinted, "routed", sel.Routed)

	plan, err := s.buildPlan(ctx, req, workflow)
	if err != nil {
		s.logger.Warn("planning failed, degrading to simple response", "error", err)
		sel.Plan = degradedPlan()
		return sel, core.NewTurnError(core.ReasonPlanningFailure, "model could not produce a plan", err)
	}

	if err := s.registry.Validate(plan); err != nil {
		if sel.Hinted {
			s.logger.Warn("hinted plan names unknown tools, degrading", "error", err)
			sel.Plan = degradedPlan()
			return sel, nil
		}
		// A classified plan with unknown tools keeps its known calls;
		// the engine records failures for anything left unregistered.
		plan = s.pruneUnknown(plan)
	}

	sel.Plan = plan
	return sel, nil
}

// buildPlan asks the model for tool calls, retrying once with a shortened
// context on failure.
func (s *Selector) buildPlan(ctx context.Context, req Request, workflow core.WorkflowType) (*core.WorkflowPlan, error) {
	mreq := model.Request{
		Message:          req.Message,
		History:          req.History,
		Memory:           req.Memory,
		FinancialContext: req.FinancialContext,
		Tools:            s.registry.ListTools(),
		Workflow:         workflow,
	}
	plan, err := s.model.Plan(ctx, mreq)
	if err == nil {
		return plan, nil
	}

	s.logger.Debug("planning retry with shortened context", "error", err)
	retry := model.Request{
		Message:  req.Message,
		Tools:    s.registry.ListTools(),
		Workflow: workflow,
	}
	if n := len(req.History); n > shortHistory {
		retry.History = req.History[n-shortHistory:]
	} else {
		retry.History = req.History
	}
	return s.model.Plan(ctx, retry)
}

// pruneUnknown drops calls to unregistered tools, keeping step order and
// group assignments for the rest.
func (s *Selector) pruneUnknown(plan *core.WorkflowPlan) *core.WorkflowPlan {
	pruned := &core.WorkflowPlan{ID: plan.ID, Type: plan.Type, Degraded: plan.Degraded}
	for _, step := range plan.Steps {
		if step.Kind != core.StepToolCalls {
			pruned.Steps = append(pruned.Steps, step)
			continue
		}
		var calls []core.ToolCall
		for _, c := range step.Calls {
			if s.registry.Has(c.Name) {
				calls = append(calls, c)
			} else {
				s.logger.Warn("dropping call to unknown tool", "tool", c.Name)
			}
		}
		if len(calls) > 0 {
			pruned.Steps = append(pruned.Steps, core.ToolStep(step.Group, calls...))
		}
	}
	return pruned
}

func degradedPlan() *core.WorkflowPlan {
	plan := core.NewWorkflowPlan(core.WorkflowSimpleResponse)
	plan.Degraded = true
	return plan
}
