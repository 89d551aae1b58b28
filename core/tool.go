package core

import "time"

// ToolCategory groups tools by the kind of capability they provide. The set
// mirrors the financial assistant's capability surface.
type ToolCategory string

const (
	// CategoryFinancialData covers account-level data fetches (net worth,
	// credit report, EPF balances).
	CategoryFinancialData ToolCategory = "financial_data"
	// CategoryMarketAnalysis covers stock and market research tools.
	CategoryMarketAnalysis ToolCategory = "market_analysis"
	// CategoryWebSearch covers open-web information retrieval.
	CategoryWebSearch ToolCategory = "web_search"
	// CategoryPortfolioAnalysis covers holdings and fund analysis tools.
	CategoryPortfolioAnalysis ToolCategory = "portfolio_analysis"
)

// ToolDescriptor declares an available capability: its unique name, category,
// input schema and concurrency contract. Descriptors are what planners see;
// the invocation handle stays with the registry.
type ToolDescriptor struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Category       ToolCategory   `json:"category"`
	Parameters     map[string]any `json:"parameters"`
	Parallelizable bool           `json:"parallelizable"`
	RequiresAuth   bool           `json:"requires_auth"`
}

// ToolCall names a single tool invocation a plan wants executed, together
// with its arguments and the parallel group it belongs to. Calls sharing a
// group id run concurrently; distinct groups run in declared order.
type ToolCall struct {
	Name  string         `json:"name"`
	Args  map[string]any `json:"args,omitempty"`
	Group string         `json:"group"`
}

// ToolExecution records one completed (or failed) tool call. Records are
// keyed by ExecutionID and tool name; positional order carries no meaning
// beyond matching plan declaration order in summaries.
type ToolExecution struct {
	ExecutionID string       `json:"execution_id"`
	ToolName    string       `json:"tool_name"`
	Category    ToolCategory `json:"category"`
	Group       string       `json:"parallel_group"`
	Started     time.Time    `json:"started"`
	Ended       time.Time    `json:"ended"`
	Success     bool         `json:"success"`
	Result      any          `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Duration returns the wall-clock time the call took.
func (e ToolExecution) Duration() time.Duration {
	if e.Ended.IsZero() {
		return 0
	}
	return e.Ended.Sub(e.Started)
}

// ExecutionSummary aggregates the outcome of a plan's tool steps.
type ExecutionSummary struct {
	TotalTools      int           `json:"total_tools"`
	SuccessfulTools int           `json:"successful_tools"`
	FailedTools     int           `json:"failed_tools"`
	ParallelGroups  int           `json:"parallel_groups"`
	AvgToolDuration time.Duration `json:"avg_tool_duration"`
}

// Summarize folds a list of execution records into an ExecutionSummary.
// The result depends only on record contents, never on completion order.
func Summarize(execs []ToolExecution) ExecutionSummary {
	s := ExecutionSummary{TotalTools: len(execs)}
	groups := map[string]struct{}{}
	var total time.Duration
	for _, e := range execs {
		if e.Success {
			s.SuccessfulTools++
		} else {
			s.FailedTools++
		}
		if e.Group != "" {
			groups[e.Group] = struct{}{}
		}
		total += e.Duration()
	}
	s.ParallelGroups = len(groups)
	if len(execs) > 0 {
		s.AvgToolDuration = total / time.Duration(len(execs))
	}
	return s
}
