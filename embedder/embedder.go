// Package embedder maps batches of strings to unit-norm dense vectors.
// Two backends are provided: a deterministic offline hashing vectorizer,
// and a thin wrapper around a remote llm.Provider.
package embedder

import (
	"context"
	"math"
)

// Embedder produces L2-normalized embeddings for a batch of strings.
// Implementations must return a matrix whose row count equals len(texts);
// an empty batch yields an empty matrix, never an error.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dim returns the fixed output dimension.
	Dim() int
}

// l2Normalize scales each row to unit length in place. Zero rows are left
// as zero vectors and treated as zero-similarity downstream.
func l2Normalize(rows [][]float32) {
	for _, row := range rows {
		var sumSq float64
		for _, v := range row {
			sumSq += float64(v) * float64(v)
		}
		if sumSq == 0 {
			continue
		}
		norm := float32(math.Sqrt(sumSq))
		for i := range row {
			row[i] /= norm
		}
	}
}
