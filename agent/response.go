package agent

import (
	"time"

	"github.com/finvisor/finvisor/core"
)

// ToolUse is one entry of a response's tools_used list.
type ToolUse struct {
	Tool     string        `json:"tool"`
	Group    string        `json:"parallel_group,omitempty"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
}

// Response is the result of one SendMessage turn.
type Response struct {
	ResponseText  string                `json:"response_text"`
	WorkflowUsed  core.WorkflowType     `json:"workflow_used"`
	AgentState    core.AgentState       `json:"agent_state"`
	ToolsUsed     []ToolUse             `json:"tools_used"`
	Summary       core.ExecutionSummary `json:"tool_execution_summary"`
	TotalDuration time.Duration         `json:"total_duration"`

	// ContextUpdated reports whether a financial_data tool succeeded this
	// turn and had its result merged into the session financial context.
	ContextUpdated   bool `json:"context_updated"`
	ConversationTurn int  `json:"conversation_turn"`

	// Capped marks a best-effort answer cut short by the iteration cap.
	Capped bool `json:"capped,omitempty"`
	// Degraded marks a turn that fell back to simple_response because
	// planning failed or the hinted plan named unknown tools.
	Degraded bool `json:"degraded,omitempty"`
	// Failure carries a non-fatal failure classification such as
	// total_failure or auth_required. Fatal failures return an error
	// instead.
	Failure core.FailureReason `json:"failure,omitempty"`
}

// Status is the externally visible session state.
type Status struct {
	Authenticated    bool                `json:"authenticated"`
	AgentState       core.AgentState     `json:"agent_state"`
	CurrentWorkflow  core.WorkflowType   `json:"current_workflow"`
	ConversationTurn int                 `json:"conversation_turn"`
	Metrics          core.SessionMetrics `json:"metrics"`
}

// MemoryView bundles a user's memory document with recent history.
type MemoryView struct {
	UserMemory          *core.UserMemory `json:"user_memory"`
	ConversationHistory []core.Message   `json:"conversation_history"`
}

func toolUses(records []core.ToolExecution) []ToolUse {
	if len(records) == 0 {
		return nil
	}
	uses := make([]ToolUse, len(records))
	for i, r := range records {
		uses[i] = ToolUse{Tool: r.ToolName, Group: r.Group, Success: r.Success, Duration: r.Duration()}
	}
	return uses
}
