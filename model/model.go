package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/finvisor/finvisor/core"
)

// ErrNoDecision indicates the model produced neither tool calls nor text.
var ErrNoDecision = errors.New("model: response contained no usable decision")

// Request carries everything a model call may need. Adapters render the
// populated fields into provider messages; empty fields are skipped.
type Request struct {
	// Message is the user's current input.
	Message string

	// History holds prior turns, oldest first.
	History []core.Message

	// Memory is the user's tiered memory snapshot, if loaded.
	Memory *core.UserMemory

	// FinancialContext is session-scoped data accumulated this conversation.
	FinancialContext map[string]any

	// Tools lists the tools the model may request.
	Tools []core.ToolDescriptor

	// Workflow is the classified workflow for this turn. Plan uses it to
	// decide how returned tool calls are grouped.
	Workflow core.WorkflowType

	// Results holds tool executions completed so far this turn. NextStep
	// and Synthesize use them; Plan ignores them.
	Results []core.ToolExecution

	// Instruction overrides the default prompt for this call, e.g. the
	// orchestrator's per-iteration directive.
	Instruction string
}

// Decision is the outcome of a NextStep call. Either ToolCalls is
// non-empty (the loop continues) or FinalAnswer carries the response.
type Decision struct {
	ToolCalls   []core.ToolCall
	FinalAnswer string
}

// Final reports whether the decision ends the loop.
func (d Decision) Final() bool { return len(d.ToolCalls) == 0 }

// Info describes a model adapter.
type Info struct {
	Name          string
	Provider      string
	SupportsTools bool
}

// Model is implemented by provider adapters.
type Model interface {
	// Plan asks the model which tools to invoke for the turn and returns
	// a workflow plan shaped by req.Workflow. A response with no tool
	// calls yields a plan with no tool steps.
	Plan(ctx context.Context, req Request) (*core.WorkflowPlan, error)

	// NextStep asks the model, given the results so far, whether further
	// tool calls are needed or the turn can be answered.
	NextStep(ctx context.Context, req Request) (Decision, error)

	// Synthesize produces the final response text from the request
	// context and any tool results.
	Synthesize(ctx context.Context, req Request) (string, error)

	// Info returns static adapter metadata.
	Info() Info
}

// PlanFromCalls arranges model-requested tool calls into plan steps
// according to the workflow type. Prompt chaining gives each call its own
// group so steps run in sequence; every other workflow puts the batch in
// one parallel group.
func PlanFromCalls(workflow core.WorkflowType, calls []core.ToolCall) *core.WorkflowPlan {
	plan := core.NewWorkflowPlan(workflow)
	if len(calls) == 0 {
		return plan
	}
	if workflow == core.WorkflowPromptChaining {
		for i, call := range calls {
			plan.Steps = append(plan.Steps, core.ToolStep(fmt.Sprintf("group_%d", i+1), call))
		}
		return plan
	}
	plan.Steps = append(plan.Steps, core.ToolStep("group_1", calls...))
	return plan
}
