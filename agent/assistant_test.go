package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/finvisor/finvisor/core"
	"github.com/finvisor/finvisor/memory"
	"github.com/finvisor/finvisor/model"
	"github.com/finvisor/finvisor/tool"
)

func emptySchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

type fixture struct {
	assistant *Assistant
	model     *model.MockModel
	store     *memory.InMemoryStore
	sessionID string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	r := tool.NewRegistry()
	r.Register(tool.NewFunctionTool("stock_analysis", core.CategoryMarketAnalysis, "analyze a stock", emptySchema(),
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			if sym, _ := args["symbol"].(string); sym == "MSFT" {
				return nil, errors.New("quote service down")
			}
			return map[string]any{"trend": "up"}, nil
		}))
	r.Register(tool.NewFunctionTool("fetch_net_worth", core.CategoryFinancialData, "fetch net worth", emptySchema(),
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			return map[string]any{"net_worth": 100}, nil
		}, tool.WithAuthRequired()))
	r.Register(tool.NewFunctionTool("broken", core.CategoryWebSearch, "always fails", emptySchema(),
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			return nil, errors.New("down")
		}))

	m := model.NewMockModel()
	store := memory.NewInMemoryStore()
	a := New(r, m, store, opts...)

	sessionID, err := a.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &fixture{assistant: a, model: m, store: store, sessionID: sessionID}
}

func TestSendMessage_SimpleTurn(t *testing.T) {
	f := newFixture(t)
	f.model.QueueAnswer("Hello! Ask me about your finances.")

	resp, err := f.assistant.SendMessage(context.Background(), f.sessionID, "hello", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.WorkflowUsed != core.WorkflowSimpleResponse {
		t.Fatalf("expected simple_response, got %s", resp.WorkflowUsed)
	}
	if resp.AgentState != core.StateReady {
		t.Fatalf("expected ready, got %s", resp.AgentState)
	}
	if resp.ConversationTurn != 1 {
		t.Fatalf("expected turn 1, got %d", resp.ConversationTurn)
	}
	if resp.ContextUpdated {
		t.Fatal("a turn without financial_data tools must not report a context update")
	}

	view, err := f.assistant.GetMemory(context.Background(), f.sessionID)
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if len(view.ConversationHistory) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(view.ConversationHistory))
	}
	if view.ConversationHistory[0].Role != core.RoleUser {
		t.Fatal("history must be oldest first")
	}
	if view.UserMemory.Episodic.InteractionCount != 1 {
		t.Fatalf("expected 1 interaction, got %d", view.UserMemory.Episodic.InteractionCount)
	}
}

func TestSendMessage_ParallelCompareWithOneFailure(t *testing.T) {
	f := newFixture(t)
	f.model.QueuePlan(model.PlanFromCalls(core.WorkflowParallelization, []core.ToolCall{
		{Name: "stock_analysis", Args: map[string]any{"symbol": "AAPL"}},
		{Name: "stock_analysis", Args: map[string]any{"symbol": "MSFT"}},
		{Name: "stock_analysis", Args: map[string]any{"symbol": "GOOG"}},
	}))
	f.model.QueueAnswer("AAPL and GOOG look strong; MSFT data was unavailable.")

	resp, err := f.assistant.SendMessage(context.Background(), f.sessionID,
		"Compare AAPL, MSFT, GOOG stock performance", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.WorkflowUsed != core.WorkflowParallelization {
		t.Fatalf("expected parallelization, got %s", resp.WorkflowUsed)
	}
	if resp.Summary.TotalTools != 3 || resp.Summary.SuccessfulTools != 2 {
		t.Fatalf("expected 2/3 success, got %+v", resp.Summary)
	}
	if resp.ResponseText == "" {
		t.Fatal("partial success must still synthesize a response")
	}
	if len(resp.ToolsUsed) != 3 {
		t.Fatalf("expected 3 tools_used entries, got %d", len(resp.ToolsUsed))
	}
	if resp.Failure != "" {
		t.Fatalf("partial failure is not a turn failure: %s", resp.Failure)
	}
	if resp.ContextUpdated {
		t.Fatal("market_analysis results must not update the financial context")
	}
}

func TestSendMessage_ContextUpdatedOnlyForFinancialData(t *testing.T) {
	f := newFixture(t)
	if err := f.assistant.Authenticate(f.sessionID, true); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	// A market_analysis success alone leaves the financial context alone.
	f.model.QueuePlan(model.PlanFromCalls(core.WorkflowSimpleResponse, []core.ToolCall{
		{Name: "stock_analysis", Args: map[string]any{"symbol": "AAPL"}},
	}))
	f.model.QueueAnswer("AAPL looks strong.")
	resp, err := f.assistant.SendMessage(context.Background(), f.sessionID, "How is AAPL doing?", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.ContextUpdated {
		t.Fatal("market_analysis success must not set context_updated")
	}

	// A financial_data success does, and its result lands in the context.
	f.model.QueuePlan(model.PlanFromCalls(core.WorkflowSimpleResponse, []core.ToolCall{
		{Name: "fetch_net_worth"},
	}))
	f.model.QueueAnswer("Your net worth is 100.")
	resp, err = f.assistant.SendMessage(context.Background(), f.sessionID, "What is my net worth?", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !resp.ContextUpdated {
		t.Fatal("financial_data success must set context_updated")
	}

	sess, err := f.assistant.sessions.Get(f.sessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	snap := sess.FinancialContextSnapshot()
	if _, ok := snap["fetch_net_worth"]; !ok {
		t.Fatalf("financial context missing fetch_net_worth result: %v", snap)
	}
	if _, ok := snap["stock_analysis"]; ok {
		t.Fatal("market_analysis result must not be in the financial context")
	}
}

func TestSendMessage_TotalFailureApologizes(t *testing.T) {
	f := newFixture(t)
	f.model.QueuePlan(model.PlanFromCalls(core.WorkflowSimpleResponse, []core.ToolCall{
		{Name: "broken"},
	}))

	resp, err := f.assistant.SendMessage(context.Background(), f.sessionID, "look this up please", "")
	if err != nil {
		t.Fatalf("total failure should produce an apology, not an error: %v", err)
	}
	if resp.Failure != core.ReasonTotalFailure {
		t.Fatalf("expected total_failure, got %q", resp.Failure)
	}
	if resp.ResponseText == "" {
		t.Fatal("expected apology text")
	}
	if resp.AgentState != core.StateReady {
		t.Fatalf("turn should complete, got state %s", resp.AgentState)
	}
}

func TestSendMessage_AuthRequiredSurfacedDistinctly(t *testing.T) {
	f := newFixture(t)
	f.model.QueuePlan(model.PlanFromCalls(core.WorkflowSimpleResponse, []core.ToolCall{
		{Name: "fetch_net_worth"},
	}))

	resp, err := f.assistant.SendMessage(context.Background(), f.sessionID, "What is my net worth?", "")
	if err != nil {
		t.Fatalf("auth gating is a status, not an error: %v", err)
	}
	if resp.Failure != core.ReasonAuthRequired {
		t.Fatalf("expected auth_required, got %q", resp.Failure)
	}
	if resp.Summary.TotalTools != 0 {
		t.Fatalf("no tools should run unauthenticated: %+v", resp.Summary)
	}

	// After authenticating, the same question goes through.
	if err := f.assistant.Authenticate(f.sessionID, true); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	f.model.QueuePlan(model.PlanFromCalls(core.WorkflowSimpleResponse, []core.ToolCall{
		{Name: "fetch_net_worth"},
	}))
	f.model.QueueAnswer("Your net worth is 100.")

	resp, err = f.assistant.SendMessage(context.Background(), f.sessionID, "What is my net worth?", "")
	if err != nil {
		t.Fatalf("send after auth: %v", err)
	}
	if resp.Failure != "" || resp.Summary.SuccessfulTools != 1 {
		t.Fatalf("expected clean authenticated turn, got %+v", resp)
	}
}

func TestSendMessage_DeadlineLeavesMemoryUntouched(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.assistant.SendMessage(ctx, f.sessionID, "hello", "")
	if !core.IsReason(err, core.ReasonTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	status, err := f.assistant.GetStatus(f.sessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.AgentState != core.StateError {
		t.Fatalf("expected error state, got %s", status.AgentState)
	}
	if status.ConversationTurn != 0 {
		t.Fatalf("aborted turn must not count, got %d", status.ConversationTurn)
	}

	view, err := f.assistant.GetMemory(context.Background(), f.sessionID)
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if len(view.ConversationHistory) != 0 {
		t.Fatal("aborted turn must not write messages")
	}
	if view.UserMemory.Episodic.InteractionCount != 0 {
		t.Fatal("aborted turn must not update memory")
	}
}

func TestSendMessage_ErrorStateIsNotSticky(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.assistant.SendMessage(ctx, f.sessionID, "hello", ""); err == nil {
		t.Fatal("expected the first turn to fail")
	}

	f.model.QueueAnswer("Recovered.")
	resp, err := f.assistant.SendMessage(context.Background(), f.sessionID, "hello again", "")
	if err != nil {
		t.Fatalf("next turn must recover from error state: %v", err)
	}
	if resp.AgentState != core.StateReady {
		t.Fatalf("expected ready, got %s", resp.AgentState)
	}
}

func TestSendMessage_OrchestratedTurn(t *testing.T) {
	f := newFixture(t)
	f.model.QueuePlan(model.PlanFromCalls(core.WorkflowOrchestratorWorkers, []core.ToolCall{
		{Name: "stock_analysis", Args: map[string]any{"symbol": "AAPL"}},
	}))
	f.model.QueueDecision(model.Decision{FinalAnswer: "Rebalance toward index funds."})

	resp, err := f.assistant.SendMessage(context.Background(), f.sessionID,
		"Analyze my portfolio and recommend a strategy", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.WorkflowUsed != core.WorkflowOrchestratorWorkers {
		t.Fatalf("expected orchestrator_workers, got %s", resp.WorkflowUsed)
	}
	if resp.ResponseText != "Rebalance toward index funds." {
		t.Fatalf("unexpected answer: %q", resp.ResponseText)
	}
	if resp.Capped {
		t.Fatal("converged loop must not be capped")
	}
	if resp.Summary.TotalTools != 1 {
		t.Fatalf("expected one tool call, got %+v", resp.Summary)
	}
}

func TestSendMessage_InvalidHintIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.model.QueueAnswer("Hi.")

	resp, err := f.assistant.SendMessage(context.Background(), f.sessionID, "hello", "warp_speed")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.WorkflowUsed != core.WorkflowSimpleResponse {
		t.Fatalf("invalid hint must fall back to classification, got %s", resp.WorkflowUsed)
	}
}

func TestGetStatus_TracksMetrics(t *testing.T) {
	f := newFixture(t)
	f.model.QueueAnswer("one")
	f.model.QueueAnswer("two")

	ctx := context.Background()
	if _, err := f.assistant.SendMessage(ctx, f.sessionID, "hello", ""); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := f.assistant.SendMessage(ctx, f.sessionID, "hello again", ""); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	status, err := f.assistant.GetStatus(f.sessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.ConversationTurn != 2 || status.Metrics.TotalConversations != 2 {
		t.Fatalf("unexpected metrics: %+v", status)
	}
	if status.Metrics.AverageResponseTime < 0 {
		t.Fatalf("bad average: %v", status.Metrics.AverageResponseTime)
	}
}
