package embedder

import (
	"context"
	"fmt"

	"github.com/lavandejoey/gorag/gerr"
	"github.com/lavandejoey/gorag/llm"
)

// Remote embeds via an HTTP call to a network backend (an llm.Provider),
// L2-normalizing whatever the provider returns.
type Remote struct {
	provider llm.Provider
	dim      int
}

// NewRemote wraps an llm.Provider as an Embedder with a fixed declared
// dimension (used for index sizing; the provider's actual output width
// must match it).
func NewRemote(provider llm.Provider, dim int) *Remote {
	return &Remote{provider: provider, dim: dim}
}

func (r *Remote) Dim() int { return r.dim }

func (r *Remote) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	rows, err := r.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gerr.ErrEmbedderProtocol, err)
	}
	if len(rows) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", gerr.ErrEmbedderProtocol, len(texts), len(rows))
	}
	for _, row := range rows {
		if len(row) == 0 {
			return nil, fmt.Errorf("%w: empty embedding row", gerr.ErrEmbedderProtocol)
		}
	}
	l2Normalize(rows)
	return rows, nil
}
