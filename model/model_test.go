package model

import (
	"strings"
	"testing"

	"github.com/finvisor/finvisor/core"
)

func TestPlanFromCalls_Grouping(t *testing.T) {
	calls := []core.ToolCall{{Name: "a"}, {Name: "b"}}

	parallel := PlanFromCalls(core.WorkflowParallelization, calls)
	steps := parallel.ToolSteps()
	if len(steps) != 1 || len(steps[0].Calls) != 2 {
		t.Fatalf("parallelization must use one group: %+v", steps)
	}

	chained := PlanFromCalls(core.WorkflowPromptChaining, calls)
	steps = chained.ToolSteps()
	if len(steps) != 2 {
		t.Fatalf("prompt chaining must sequence calls: %+v", steps)
	}
	if steps[0].Group == steps[1].Group {
		t.Fatal("chained steps must use distinct groups")
	}

	empty := PlanFromCalls(core.WorkflowSimpleResponse, nil)
	if len(empty.Steps) != 0 {
		t.Fatalf("no calls means no steps: %+v", empty.Steps)
	}
	if empty.ID == "" {
		t.Fatal("plan needs an id")
	}
}

func TestUserContent_IncludesContext(t *testing.T) {
	mem := core.NewUserMemory("u1")
	mem.Apply(core.MemoryUpdate{
		Working:  core.WorkingMemory{"last_query": "net worth"},
		Episodic: &core.EpisodicUpdate{Topics: []string{"stocks"}},
	})

	content := UserContent(Request{
		Message: "What changed since yesterday?",
		Memory:  mem,
		Results: []core.ToolExecution{
			{ToolName: "fetch_net_worth", Success: true, Result: map[string]any{"net_worth": 100}},
			{ToolName: "web_search", Success: false, Error: "down"},
		},
		Instruction: "Be brief.",
	})

	for _, want := range []string{
		"What changed since yesterday?",
		"Recent topics: stocks",
		"fetch_net_worth",
		"Tool web_search failed",
		"Be brief.",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("content missing %q:\n%s", want, content)
		}
	}
}

func TestDecision_Final(t *testing.T) {
	if !(Decision{FinalAnswer: "done"}).Final() {
		t.Fatal("answer-only decision must be final")
	}
	if (Decision{ToolCalls: []core.ToolCall{{Name: "a"}}}).Final() {
		t.Fatal("tool-call decision must not be final")
	}
}
