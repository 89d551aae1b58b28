package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/tool"
)

func anySchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func register(r *tool.Registry, name string, fn func(toolCtx *core.ToolContext, args map[string]any) (any, error), opts ...tool.FunctionToolOption) {
	r.Register(tool.NewFunctionTool(name, core.CategoryMarketAnalysis, name, anySchema(), fn, opts...))
}

func TestExecute_PartialFailureIsTolerated(t *testing.T) {
	r := tool.NewRegistry()
	ok := func(toolCtx *core.ToolContext, args map[string]any) (any, error) { return "data", nil }
	register(r, "aapl", ok)
	register(r, "msft", func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		return nil, errors.New("quote service down")
	})
	register(r, "goog", ok)

	plan := core.NewWorkflowPlan(core.WorkflowParallelization,
		core.ToolStep("g1",
			core.ToolCall{Name: "aapl"},
			core.ToolCall{Name: "msft"},
			core.ToolCall{Name: "goog"},
		))

	e := NewExecutor(r, nil)
	records, summary, err := e.Execute(context.Background(), plan, TurnInfo{SessionID: "s1"})
	if err != nil {
		t.Fatalf("partial failure must not error the plan: %v", err)
	}
	if summary.TotalTools != 3 || summary.SuccessfulTools != 2 || summary.FailedTools != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(records) != 3 {
		t.Fatalf("expected a record per declared call, got %d", len(records))
	}
	// Declaration order, not completion order.
	for i, want := range []string{"aapl", "msft", "goog"} {
		if records[i].ToolName != want {
			t.Fatalf("record %d = %s, want %s", i, records[i].ToolName, want)
		}
	}
	for _, rec := range records {
		if rec.ExecutionID == "" {
			t.Fatal("record missing execution id")
		}
		if rec.Group != "g1" {
			t.Fatalf("record missing group: %+v", rec)
		}
	}
}

func TestExecute_TotalFailure(t *testing.T) {
	r := tool.NewRegistry()
	fail := func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		return nil, errors.New("down")
	}
	register(r, "a", fail)
	register(r, "b", fail)

	plan := core.NewWorkflowPlan(core.WorkflowParallelization,
		core.ToolStep("g1", core.ToolCall{Name: "a"}, core.ToolCall{Name: "b"}))

	e := NewExecutor(r, nil)
	records, summary, err := e.Execute(context.Background(), plan, TurnInfo{})
	if !core.IsReason(err, core.ReasonTotalFailure) {
		t.Fatalf("expected total_failure, got %v", err)
	}
	if len(records) != 2 || summary.SuccessfulTools != 0 {
		t.Fatalf("records must still come back: %d, %+v", len(records), summary)
	}
}

func TestExecute_GroupBarrier(t *testing.T) {
	r := tool.NewRegistry()
	var mu sync.Mutex
	var order []string
	note := func(name string) func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		return func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name, nil
		}
	}
	register(r, "first_a", note("first_a"))
	register(r, "first_b", note("first_b"))
	register(r, "second", note("second"))

	plan := core.NewWorkflowPlan(core.WorkflowParallelization,
		core.ToolStep("g1", core.ToolCall{Name: "first_a"}, core.ToolCall{Name: "first_b"}),
		core.ToolStep("g2", core.ToolCall{Name: "second"}))

	e := NewExecutor(r, nil)
	if _, _, err := e.Execute(context.Background(), plan, TurnInfo{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(order) != 3 || order[2] != "second" {
		t.Fatalf("second group must start after the first completes: %v", order)
	}
}

func TestExecute_PerCallTimeout(t *testing.T) {
	r := tool.NewRegistry()
	register(r, "slow", func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		select {
		case <-toolCtx.Context().Done():
			return nil, toolCtx.Context().Err()
		case <-time.After(time.Second):
			return "late", nil
		}
	})
	register(r, "fast", func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		return "quick", nil
	})

	plan := core.NewWorkflowPlan(core.WorkflowParallelization,
		core.ToolStep("g1", core.ToolCall{Name: "slow"}, core.ToolCall{Name: "fast"}))

	e := NewExecutor(r, nil, WithToolTimeout(20*time.Millisecond))
	records, summary, err := e.Execute(context.Background(), plan, TurnInfo{})
	if err != nil {
		t.Fatalf("one timeout must not fail the plan: %v", err)
	}
	if summary.SuccessfulTools != 1 || summary.FailedTools != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if records[0].Success || records[0].Error == "" {
		t.Fatalf("slow call should carry a timeout error: %+v", records[0])
	}
}

func TestExecute_UnknownToolRecordedAsFailure(t *testing.T) {
	r := tool.NewRegistry()
	register(r, "known", func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		return "ok", nil
	})

	plan := core.NewWorkflowPlan(core.WorkflowSimpleResponse,
		core.ToolStep("g1", core.ToolCall{Name: "known"}, core.ToolCall{Name: "ghost"}))

	e := NewExecutor(r, nil)
	records, summary, err := e.Execute(context.Background(), plan, TurnInfo{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.TotalTools != 2 || summary.SuccessfulTools != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if records[1].Success {
		t.Fatalf("unknown tool must fail: %+v", records[1])
	}
}

func TestExecute_DeadlineCheckedBetweenGroups(t *testing.T) {
	r := tool.NewRegistry()
	register(r, "a", func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		return "ok", nil
	})

	plan := core.NewWorkflowPlan(core.WorkflowPromptChaining,
		core.ToolStep("g1", core.ToolCall{Name: "a"}),
		core.ToolStep("g2", core.ToolCall{Name: "a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExecutor(r, nil)
	records, _, err := e.Execute(ctx, plan, TurnInfo{})
	if !core.IsReason(err, core.ReasonTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("no group should have started: %d records", len(records))
	}
}
