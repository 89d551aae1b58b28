package workflow

import (
	"testing"

	"github.com/finvisor/finvisor/core"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		message string
		want    core.WorkflowType
	}{
		{"Compare AAPL, MSFT, GOOG stock performance", core.WorkflowParallelization},
		{"AAPL vs TSLA this year", core.WorkflowParallelization},
		{"What is the stock price of Reliance?", core.WorkflowParallelization},
		{"Analyze my portfolio and recommend a rebalancing strategy", core.WorkflowOrchestratorWorkers},
		{"How can I optimize my taxes?", core.WorkflowOrchestratorWorkers},
		{"What are the latest trends in tech and how do they affect valuations?", core.WorkflowPromptChaining},
		{"What is happening with interest rates?", core.WorkflowPromptChaining},
		{"What is my net worth?", core.WorkflowSimpleResponse},
		{"Show me my credit score", core.WorkflowSimpleResponse},
		{"Can you help me with something?", core.WorkflowRouting},
		{"hello", core.WorkflowSimpleResponse},
	}
	for _, tc := range cases {
		if got := Classify(tc.message); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.message, got, tc.want)
		}
	}
}

func TestClassify_PrecedenceMultiStageBeatsEntities(t *testing.T) {
	// A message that is both multi-entity and multi-stage resolves to the
	// orchestrated workflow.
	got := Classify("Analyze AAPL and MSFT and recommend which to buy")
	if got != core.WorkflowOrchestratorWorkers {
		t.Fatalf("expected orchestrator_workers, got %s", got)
	}
}

func TestResolve_NeverReturnsRouting(t *testing.T) {
	messages := []string{
		"Can you help me with something?",
		"Can you compare AAPL and MSFT?",
		"What can you do about my budget strategy?",
	}
	for _, msg := range messages {
		if got := Resolve(msg); got == core.WorkflowRouting {
			t.Errorf("Resolve(%q) returned routing", msg)
		}
	}
	if got := Resolve("Can you compare AAPL and MSFT?"); got != core.WorkflowParallelization {
		t.Fatalf("expected parallelization after routing pass, got %s", got)
	}
}
