package model

import (
	"context"
	"sync"

	"github.com/finvisor/finvisor/core"
)

// MockModel is a scripted Model for tests. Plans, decisions, and answers
// are consumed in FIFO order; when a queue runs dry the zero-ish fallback
// is returned (empty plan, final "ok" decision, canned answer).
type MockModel struct {
	mu        sync.Mutex
	plans     []*core.WorkflowPlan
	decisions []Decision
	answers   []string

	// Err, when set, is returned by every call.
	Err error

	// Requests records every request received, across all three methods.
	Requests []Request
}

var _ Model = (*MockModel)(nil)

// NewMockModel returns an empty scripted model.
func NewMockModel() *MockModel { return &MockModel{} }

// QueuePlan appends a plan to be returned by the next Plan call.
func (m *MockModel) QueuePlan(p *core.WorkflowPlan) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append(m.plans, p)
	return m
}

// QueueDecision appends a decision for the next NextStep call.
func (m *MockModel) QueueDecision(d Decision) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	return m
}

// QueueAnswer appends a Synthesize response.
func (m *MockModel) QueueAnswer(s string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, s)
	return m
}

func (m *MockModel) Plan(ctx context.Context, req Request) (*core.WorkflowPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.plans) == 0 {
		return core.NewWorkflowPlan(req.Workflow), nil
	}
	p := m.plans[0]
	m.plans = m.plans[1:]
	return p, nil
}

func (m *MockModel) NextStep(ctx context.Context, req Request) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return Decision{}, m.Err
	}
	if len(m.decisions) == 0 {
		return Decision{FinalAnswer: "ok"}, nil
	}
	d := m.decisions[0]
	m.decisions = m.decisions[1:]
	return d, nil
}

func (m *MockModel) Synthesize(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.answers) == 0 {
		return "Here is what I found.", nil
	}
	s := m.answers[0]
	m.answers = m.answers[1:]
	return s, nil
}

func (m *MockModel) Info() Info {
	return Info{Name: "mock", Provider: "mock", SupportsTools: true}
}

// CallCount returns how many requests the mock has seen.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
