package core

// WorkflowType names one of the five closed strategies for answering a
// message. The set is deliberately a closed enum rather than an open
// interface so dispatch sites can be checked for exhaustiveness.
type WorkflowType string

const (
	// WorkflowSimpleResponse answers directly, optionally with one tool group.
	WorkflowSimpleResponse WorkflowType = "simple_response"
	// WorkflowParallelization fans independent tool calls out concurrently.
	WorkflowParallelization WorkflowType = "parallelization"
	// WorkflowOrchestratorWorkers drives an iterative plan-act-evaluate loop.
	WorkflowOrchestratorWorkers WorkflowType = "orchestrator_workers"
	// WorkflowPromptChaining runs dependent research steps in sequence.
	WorkflowPromptChaining WorkflowType = "prompt_chaining"
	// WorkflowRouting performs one extra classification pass before executing.
	WorkflowRouting WorkflowType = "routing"
)

// Valid reports whether t is one of the five known workflow types.
func (t WorkflowType) Valid() bool {
	switch t {
	case WorkflowSimpleResponse, WorkflowParallelization,
		WorkflowOrchestratorWorkers, WorkflowPromptChaining, WorkflowRouting:
		return true
	}
	return false
}

// Iterative reports whether the workflow is driven by the coordinator loop
// rather than a single staged execution.
func (t WorkflowType) Iterative() bool {
	return t == WorkflowOrchestratorWorkers || t == WorkflowPromptChaining
}

// StepKind discriminates the closed set of plan step variants.
type StepKind string

const (
	// StepToolCalls emits a group of tool calls to the execution engine.
	StepToolCalls StepKind = "tool_calls"
	// StepModel invokes the model with the accumulated context.
	StepModel StepKind = "model"
)

// PlanStep is one unit of a workflow plan: either "run these tool calls as
// group Group" or "ask the model with everything gathered so far". Exactly
// one variant's fields are populated, selected by Kind.
type PlanStep struct {
	Kind  StepKind   `json:"kind"`
	Group string     `json:"group,omitempty"`
	Calls []ToolCall `json:"calls,omitempty"`
	// Prompt optionally refines what the model step should do (e.g. a
	// synthesis instruction). Empty means "continue from context".
	Prompt string `json:"prompt,omitempty"`
}

// ToolStep builds a tool-call step, stamping every call with the group id.
func ToolStep(group string, calls ...ToolCall) PlanStep {
	for i := range calls {
		calls[i].Group = group
	}
	return PlanStep{Kind: StepToolCalls, Group: group, Calls: calls}
}

// ModelStep builds a model-invocation step.
func ModelStep(prompt string) PlanStep {
	return PlanStep{Kind: StepModel, Prompt: prompt}
}

// WorkflowPlan is the executable answer strategy for one message. Planning is
// strictly separated from execution: a plan names every tool it intends to
// call, with group assignments, but never invokes anything itself.
type WorkflowPlan struct {
	ID       string       `json:"id"`
	Type     WorkflowType `json:"type"`
	Steps    []PlanStep   `json:"steps"`
	Degraded bool         `json:"degraded,omitempty"`
}

// NewWorkflowPlan creates an empty plan of the given type with a fresh id.
func NewWorkflowPlan(t WorkflowType, steps ...PlanStep) *WorkflowPlan {
	return &WorkflowPlan{ID: NewID(), Type: t, Steps: steps}
}

// ToolCalls returns every tool call the plan declares, in step order.
func (p *WorkflowPlan) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, s := range p.Steps {
		if s.Kind == StepToolCalls {
			calls = append(calls, s.Calls...)
		}
	}
	return calls
}

// ToolSteps returns only the tool-call steps, preserving declaration order.
func (p *WorkflowPlan) ToolSteps() []PlanStep {
	var steps []PlanStep
	for _, s := range p.Steps {
		if s.Kind == StepToolCalls {
			steps = append(steps, s)
		}
	}
	return steps
}

// ToolNames returns the distinct tool names the plan references.
func (p *WorkflowPlan) ToolNames() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, c := range p.ToolCalls() {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		names = append(names, c.Name)
	}
	return names
}
