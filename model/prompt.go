package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finvisor/finvisor/core"
)

// SystemPrompt is the base instruction shared by all provider adapters.
const SystemPrompt = `You are a financial assistant. You help users understand their
net worth, credit, retirement savings, investments, and market data.
Use the provided tools when the question needs live or personal data.
Be concise and concrete; cite figures from tool results when available.`

// planInstructions maps a workflow type to the planning directive the
// adapters append to the system prompt.
var planInstructions = map[core.WorkflowType]string{
	core.WorkflowSimpleResponse:      "Answer directly. Call a tool only if the question cannot be answered without it.",
	core.WorkflowParallelization:     "The question spans several independent data sources. Request every tool call you need at once; they will run in parallel.",
	core.WorkflowPromptChaining:      "The question requires sequential steps where each depends on the last. Request only the first tool call; you will be consulted again with its result.",
	core.WorkflowOrchestratorWorkers: "The question requires multi-step analysis. Request the tool calls for the first step only; you will be consulted after each step with accumulated results.",
	core.WorkflowRouting:             "First identify what kind of question this is, then request the tools that category needs.",
}

// PlanInstruction returns the planning directive for a workflow type.
func PlanInstruction(workflow core.WorkflowType) string {
	if s, ok := planInstructions[workflow]; ok {
		return s
	}
	return planInstructions[core.WorkflowSimpleResponse]
}

// RenderContext flattens memory, session context, and tool results into a
// text block appended to the user message. Providers share this rendering
// so both produce the same grounding.
func RenderContext(req Request) string {
	var b strings.Builder
	if req.Memory != nil {
		if len(req.Memory.Working) > 0 {
			writeJSONSection(&b, "Working memory", req.Memory.Working)
		}
		if len(req.Memory.Episodic.Topics) > 0 {
			fmt.Fprintf(&b, "Recent topics: %s\n", strings.Join(req.Memory.Episodic.Topics, ", "))
		}
		if len(req.Memory.Semantic.Preferences) > 0 {
			writeJSONSection(&b, "User preferences", req.Memory.Semantic.Preferences)
		}
		if len(req.Memory.Semantic.FinancialGoals) > 0 {
			fmt.Fprintf(&b, "Financial goals: %s\n", strings.Join(req.Memory.Semantic.FinancialGoals, "; "))
		}
	}
	if len(req.FinancialContext) > 0 {
		writeJSONSection(&b, "Session context", req.FinancialContext)
	}
	for _, exec := range req.Results {
		if exec.Success {
			out, _ := json.Marshal(exec.Result)
			fmt.Fprintf(&b, "Result of %s: %s\n", exec.ToolName, out)
		} else {
			fmt.Fprintf(&b, "Tool %s failed: %s\n", exec.ToolName, exec.Error)
		}
	}
	return b.String()
}

// UserContent combines the user message, rendered context, and any
// per-call instruction into the final user-role content.
func UserContent(req Request) string {
	parts := []string{req.Message}
	if ctx := RenderContext(req); ctx != "" {
		parts = append(parts, "Context:\n"+ctx)
	}
	if req.Instruction != "" {
		parts = append(parts, req.Instruction)
	}
	return strings.Join(parts, "\n\n")
}

func writeJSONSection(b *strings.Builder, title string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", title, data)
}
