// Package reranker reorders retrieval candidates by blending their
// vector-search score with lexical overlap against the query.
package reranker

import (
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`\w+`)

// Candidate is one retrieval hit eligible for reranking.
type Candidate struct {
	ChunkID string
	Text    string
	Score   float64
}

// DefaultAlpha is the weight applied to lexical overlap when the caller
// does not configure one.
const DefaultAlpha = 0.10

func tokenSet(s string) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func overlap(query map[string]struct{}, text string) float64 {
	if len(query) == 0 {
		return 0
	}
	cand := tokenSet(text)
	var common int
	for t := range query {
		if _, ok := cand[t]; ok {
			common++
		}
	}
	return float64(common) / float64(max(1, len(query)))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Rerank reorders candidates descending by score + alpha*overlap(query,
// candidate), stable on ties. An empty query token set returns the input
// unchanged (a fresh copy, not reordered).
func Rerank(query string, candidates []Candidate, alpha float64) []Candidate {
	qTokens := tokenSet(query)
	if len(qTokens) == 0 {
		return append([]Candidate(nil), candidates...)
	}

	type scored struct {
		c     Candidate
		score float64
	}
	scoredList := make([]scored, len(candidates))
	for i, c := range candidates {
		scoredList[i] = scored{c: c, score: c.Score + alpha*overlap(qTokens, c.Text)}
	}
	sort.SliceStable(scoredList, func(i, j int) bool {
		return scoredList[i].score > scoredList[j].score
	})

	out := make([]Candidate, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.c
	}
	return out
}
