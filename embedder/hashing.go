package embedder

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// wordPattern mirrors sklearn's default HashingVectorizer token pattern
// (?u)\b\w+\b: Unicode word characters, at least one, between word
// boundaries.
var wordPattern = regexp.MustCompile(`\w+`)

// Hashing is a deterministic, offline embedder: word-tokenize, hash each
// token into a fixed-size bucket, count non-negative occurrences, then
// L2-normalize each row. It is a pure function of its input.
type Hashing struct {
	dim int
}

// NewHashing returns a Hashing embedder with the given output dimension.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = 2048
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) Dim() int { return h.dim }

func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	rows := make([][]float32, len(texts))
	for i, t := range texts {
		rows[i] = h.embedOne(t)
	}
	l2Normalize(rows)
	return rows, nil
}

func (h *Hashing) embedOne(text string) []float32 {
	row := make([]float32, h.dim)
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		bucket := bucketFor(tok, h.dim)
		row[bucket]++
	}
	return row
}

// bucketFor hashes a token to a bucket index in [0, dim), matching
// sklearn's alternate_sign=False configuration: counts are always added
// with a positive sign, never subtracted.
func bucketFor(tok string, dim int) int {
	h := fnv.New32a()
	h.Write([]byte(tok))
	return int(h.Sum32() % uint32(dim))
}
