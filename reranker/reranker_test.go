package reranker

import "testing"

func TestRerankBoostsLexicalOverlap(t *testing.T) {
	candidates := []Candidate{
		{ChunkID: "a", Text: "the capital of france is paris", Score: 0.5},
		{ChunkID: "b", Text: "unrelated text about weather", Score: 0.55},
	}
	out := Rerank("capital of france", candidates, DefaultAlpha)
	if out[0].ChunkID != "a" {
		t.Errorf("top result = %s, want a (lexical overlap should overtake a small score gap)", out[0].ChunkID)
	}
}

func TestRerankEmptyQueryReturnsUnchanged(t *testing.T) {
	candidates := []Candidate{
		{ChunkID: "a", Score: 0.1},
		{ChunkID: "b", Score: 0.9},
	}
	out := Rerank("   ", candidates, DefaultAlpha)
	if out[0].ChunkID != "a" || out[1].ChunkID != "b" {
		t.Errorf("got %+v, want unchanged order", out)
	}
}

func TestRerankStableOnTies(t *testing.T) {
	candidates := []Candidate{
		{ChunkID: "first", Text: "no match here", Score: 0.3},
		{ChunkID: "second", Text: "no match here", Score: 0.3},
	}
	out := Rerank("query", candidates, DefaultAlpha)
	if out[0].ChunkID != "first" || out[1].ChunkID != "second" {
		t.Errorf("got %+v, want stable order on tied scores", out)
	}
}

func TestRerankDoesNotMutateInput(t *testing.T) {
	candidates := []Candidate{
		{ChunkID: "a", Text: "alpha", Score: 0.1},
		{ChunkID: "b", Text: "beta", Score: 0.9},
	}
	_ = Rerank("alpha", candidates, DefaultAlpha)
	if candidates[0].ChunkID != "a" || candidates[1].ChunkID != "b" {
		t.Errorf("input slice was mutated: %+v", candidates)
	}
}
