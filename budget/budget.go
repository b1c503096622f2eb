// Package budget assembles a prompt within a model's context window by
// filling a fixed-priority list of content categories until each category's
// limit, and the window as a whole, is exhausted.
package budget

import "github.com/lavandejoey/gorag/tokencount"

// Limits bounds how many tokens each category of the orchestrated prompt
// may contribute.
type Limits struct {
	ModelContextWindow int
	SummaryTokenLimit  int
	RecentMessageLimit int // max number of recent messages considered, not tokens
	MemoryTokenLimit   int
	EvidenceTokenLimit int
}

// Result is the assembled prompt budget.
type Result struct {
	Summary        string
	RecentMessages []string
	Memories       []string
	Evidence       []string
	TotalTokens    int
}

// Orchestrate fills, in fixed priority, the query reservation, the chat
// summary, evidence snippets, memory cards, then recent messages (newest
// first, re-ordered back to chronological), each bounded by its own limit
// and by what remains of ModelContextWindow.
//
// recentMessages is assumed already truncated to at most
// limits.RecentMessageLimit entries, oldest first; summary may be empty.
func Orchestrate(counter *tokencount.Counter, query, summary string, evidence, memories, recentMessages []string, limits Limits) Result {
	var out Result

	out.TotalTokens += counter.Count(query)

	if summary != "" {
		summaryTokens := counter.Count(summary)
		if summaryTokens <= limits.SummaryTokenLimit {
			out.Summary = summary
			out.TotalTokens += summaryTokens
		}
	}

	remaining := limits.ModelContextWindow - out.TotalTokens
	evidenceTokens := 0
	evidenceCap := min(remaining, limits.EvidenceTokenLimit)
	for _, e := range evidence {
		t := counter.Count(e)
		if evidenceTokens+t > evidenceCap {
			break
		}
		out.Evidence = append(out.Evidence, e)
		evidenceTokens += t
	}
	out.TotalTokens += evidenceTokens

	remaining = limits.ModelContextWindow - out.TotalTokens
	memoryTokens := 0
	memoryCap := min(remaining, limits.MemoryTokenLimit)
	for _, m := range memories {
		t := counter.Count(m)
		if memoryTokens+t > memoryCap {
			break
		}
		out.Memories = append(out.Memories, m)
		memoryTokens += t
	}
	out.TotalTokens += memoryTokens

	remaining = limits.ModelContextWindow - out.TotalTokens
	recentTokens := 0
	var recent []string
	for i := len(recentMessages) - 1; i >= 0; i-- {
		t := counter.Count(recentMessages[i])
		if recentTokens+t > remaining {
			break
		}
		recent = append([]string{recentMessages[i]}, recent...)
		recentTokens += t
	}
	out.RecentMessages = recent
	out.TotalTokens += recentTokens

	return out
}
