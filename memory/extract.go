package memory

import (
	"fmt"
	"strings"
)

// financialKeywords is the topic vocabulary scanned out of user messages.
var financialKeywords = []string{
	"investment", "savings", "budget", "loan", "credit", "debt",
	"stocks", "bonds", "mutual funds", "insurance", "tax", "retirement",
	"portfolio", "trading", "analysis", "dividend", "growth", "value",
	"bank", "account", "transaction", "balance", "income", "expense",
}

// ExtractTopics derives episodic-memory topics from a message and the tools
// that served it. Within one call each topic appears at most once; across
// calls the episodic topic list keeps duplicates by design.
func ExtractTopics(message string, toolsUsed []string) []string {
	seen := map[string]struct{}{}
	var topics []string
	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}

	lower := strings.ToLower(message)
	for _, kw := range financialKeywords {
		if strings.Contains(lower, kw) {
			add(kw)
		}
	}
	for _, t := range toolsUsed {
		name := strings.ToLower(t)
		switch {
		case strings.Contains(name, "stock"):
			add("stocks")
		case strings.Contains(name, "mutual"), strings.Contains(name, "fund"):
			add("mutual funds")
		case strings.Contains(name, "search"):
			add("research")
		}
	}
	return topics
}

// AnalyzePatterns summarizes which tool combinations answered the turn, for
// accumulation in semantic memory. Only successful tools participate.
func AnalyzePatterns(successfulTools []string) []string {
	switch {
	case len(successfulTools) > 1:
		return []string{fmt.Sprintf("multi_tool_success: %s", strings.Join(successfulTools, " + "))}
	case len(successfulTools) == 1:
		return []string{fmt.Sprintf("single_tool_success: %s", successfulTools[0])}
	}
	return nil
}
