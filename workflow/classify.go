package workflow

import (
	"regexp"
	"strings"

	"github.com/finvisor/finvisor/core"
)

// Keyword groups for intent classification. Checked in precedence order:
// orchestrator_workers beats parallelization beats prompt_chaining beats
// simple_response, except that a message naming several comparands is
// parallel work even when it uses an analytical verb like "compare".
var (
	orchestratorKeywords = []string{
		"analyze", "recommend", "strategy", "optimize", "rebalance", "improve",
	}
	parallelKeywords = []string{
		"compare", "stock price", "market", "shares", "multiple stocks", " vs ", "versus",
	}
	chainingKeywords = []string{
		"current", "latest", "news", "trends", "what is happening",
	}
	personalKeywords = []string{
		"my portfolio", "my net worth", "my credit", "my epf", "my investments",
	}
	routingKeywords = []string{
		"can you", "are you able", "what can", "help me with", "how do i",
	}
)

// tickerPattern matches short all-caps tokens like AAPL or MSFT.
var tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// Classify maps a message to a workflow type using keyword heuristics.
// Ambiguous capability questions map to routing; Resolve performs the
// extra pass that turns routing into a concrete type.
func Classify(message string) core.WorkflowType {
	lower := strings.ToLower(message)

	// Several named comparands mean independent lookups that can fan out,
	// even when the verb reads as analysis ("compare AAPL, MSFT, GOOG").
	entities := countEntities(message)
	if entities >= 2 && !containsAny(lower, orchestratorKeywords) {
		return core.WorkflowParallelization
	}

	if containsAny(lower, orchestratorKeywords) {
		return core.WorkflowOrchestratorWorkers
	}
	if entities >= 2 || containsAny(lower, parallelKeywords) {
		return core.WorkflowParallelization
	}
	if containsAny(lower, chainingKeywords) {
		return core.WorkflowPromptChaining
	}
	if containsAny(lower, personalKeywords) {
		return core.WorkflowSimpleResponse
	}
	if containsAny(lower, routingKeywords) {
		return core.WorkflowRouting
	}
	return core.WorkflowSimpleResponse
}

// Resolve performs the routing pass: one more classification with the
// capability phrasing stripped, mapping to a concrete workflow type.
// Never returns routing.
func Resolve(message string) core.WorkflowType {
	lower := strings.ToLower(message)
	for _, kw := range routingKeywords {
		lower = strings.ReplaceAll(lower, kw, "")
	}
	if wt := Classify(lower); wt != core.WorkflowRouting {
		return wt
	}
	return core.WorkflowSimpleResponse
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// countEntities counts distinct ticker-like tokens in the original-case
// message. Common all-caps words that are not instruments are skipped.
func countEntities(message string) int {
	seen := map[string]struct{}{}
	for _, tok := range tickerPattern.FindAllString(message, -1) {
		if _, skip := entityStopwords[tok]; skip {
			continue
		}
		seen[tok] = struct{}{}
	}
	return len(seen)
}

var entityStopwords = map[string]struct{}{
	"USD": {}, "INR": {}, "EUR": {}, "GBP": {},
	"EPF": {}, "SIP": {}, "ETF": {}, "API": {}, "FAQ": {}, "ASAP": {},
}
