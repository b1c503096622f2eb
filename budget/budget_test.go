package budget

import (
	"testing"

	"github.com/lavandejoey/gorag/tokencount"
)

func TestOrchestrateFillsAllCategoriesWithinWindow(t *testing.T) {
	counter := tokencount.Default()
	limits := Limits{
		ModelContextWindow: 1000,
		SummaryTokenLimit:  50,
		RecentMessageLimit: 10,
		MemoryTokenLimit:   50,
		EvidenceTokenLimit: 50,
	}
	res := Orchestrate(counter, "what is the capital of france?", "earlier the user asked about europe",
		[]string{"paris is the capital of france"}, []string{"user likes geography"},
		[]string{"hi", "hello, how can I help?"}, limits)

	if res.Summary == "" {
		t.Error("expected summary to be included")
	}
	if len(res.Evidence) != 1 {
		t.Errorf("got %d evidence entries, want 1", len(res.Evidence))
	}
	if len(res.Memories) != 1 {
		t.Errorf("got %d memory entries, want 1", len(res.Memories))
	}
	if len(res.RecentMessages) != 2 {
		t.Errorf("got %d recent messages, want 2", len(res.RecentMessages))
	}
	if res.TotalTokens <= 0 || res.TotalTokens > limits.ModelContextWindow {
		t.Errorf("total_tokens = %d, out of bounds", res.TotalTokens)
	}
}

func TestOrchestrateDropsOversizedSummary(t *testing.T) {
	counter := tokencount.Default()
	limits := Limits{ModelContextWindow: 1000, SummaryTokenLimit: 1, EvidenceTokenLimit: 100, MemoryTokenLimit: 100}
	res := Orchestrate(counter, "q", "this summary is definitely longer than one token", nil, nil, nil, limits)
	if res.Summary != "" {
		t.Errorf("expected oversized summary to be dropped, got %q", res.Summary)
	}
}

func TestOrchestrateRecentMessagesPreserveChronologicalOrder(t *testing.T) {
	counter := tokencount.Default()
	limits := Limits{ModelContextWindow: 10000, EvidenceTokenLimit: 100, MemoryTokenLimit: 100}
	recent := []string{"first", "second", "third"}
	res := Orchestrate(counter, "q", "", nil, nil, recent, limits)
	if len(res.RecentMessages) != 3 {
		t.Fatalf("got %d messages, want 3", len(res.RecentMessages))
	}
	if res.RecentMessages[0] != "first" || res.RecentMessages[2] != "third" {
		t.Errorf("got %+v, want chronological order", res.RecentMessages)
	}
}

func TestOrchestrateTruncatesRecentMessagesWhenBudgetTight(t *testing.T) {
	counter := tokencount.Default()
	// Small window leaves little room after the query itself.
	limits := Limits{ModelContextWindow: 5, EvidenceTokenLimit: 100, MemoryTokenLimit: 100}
	recent := []string{"a message with quite a few tokens in it", "short"}
	res := Orchestrate(counter, "q", "", nil, nil, recent, limits)
	if res.TotalTokens > limits.ModelContextWindow {
		t.Errorf("total_tokens = %d, exceeds window %d", res.TotalTokens, limits.ModelContextWindow)
	}
}

func TestOrchestrateEvidenceRespectsPerCategoryLimit(t *testing.T) {
	counter := tokencount.Default()
	limits := Limits{ModelContextWindow: 10000, EvidenceTokenLimit: 2, MemoryTokenLimit: 100}
	evidence := []string{"one token ish text that is definitely over two tokens long"}
	res := Orchestrate(counter, "q", "", evidence, nil, nil, limits)
	if len(res.Evidence) != 0 {
		t.Errorf("expected evidence over its per-category limit to be dropped, got %+v", res.Evidence)
	}
}
