package memcore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// Embedder generates the 768-dimensional unit vectors the store and query
// paths embed content into. It is the sole external collaborator the
// engine depends on for embedding generation — no component calls an LLM
// or embedding backend directly.
type Embedder interface {
	// Embed generates a single embedding for a query or document string.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call, for
	// backends that batch more efficiently than repeated single calls.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// embedOne wraps a single Embed call, translating a nil Embedder or a
// backend failure into ErrEmbedderUnavailable.
func embedOne(ctx context.Context, embedder Embedder, text string) ([]float32, error) {
	if embedder == nil {
		return nil, memerr.ErrEmbedderUnavailable
	}
	v, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memerr.ErrEmbedderUnavailable, err)
	}
	return v, nil
}
