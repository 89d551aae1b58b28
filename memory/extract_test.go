package memory

import (
	"reflect"
	"testing"
)

func TestExtractTopics(t *testing.T) {
	topics := ExtractTopics("How is my retirement savings and my stocks doing?", []string{"stock_analysis"})

	want := map[string]bool{"savings": true, "stocks": true, "retirement": true}
	for _, topic := range topics {
		delete(want, topic)
	}
	if len(want) != 0 {
		t.Fatalf("missing topics %v in %v", want, topics)
	}

	// Within one call each topic appears once, even when the message and
	// a tool both suggest it.
	seen := map[string]int{}
	for _, topic := range topics {
		seen[topic]++
		if seen[topic] > 1 {
			t.Fatalf("topic %q duplicated within one extraction: %v", topic, topics)
		}
	}
}

func TestExtractTopics_NoMatches(t *testing.T) {
	if topics := ExtractTopics("hello there", nil); len(topics) != 0 {
		t.Fatalf("expected no topics, got %v", topics)
	}
}

func TestAnalyzePatterns(t *testing.T) {
	if got := AnalyzePatterns(nil); got != nil {
		t.Fatalf("expected nil for no successes, got %v", got)
	}
	if got := AnalyzePatterns([]string{"fetch_net_worth"}); !reflect.DeepEqual(got, []string{"single_tool_success: fetch_net_worth"}) {
		t.Fatalf("unexpected single pattern: %v", got)
	}
	got := AnalyzePatterns([]string{"fetch_net_worth", "stock_analysis"})
	want := []string{"multi_tool_success: fetch_net_worth + stock_analysis"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected multi pattern: %v", got)
	}
}
