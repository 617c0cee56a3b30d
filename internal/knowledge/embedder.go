package knowledge

import "context"

// EmbeddingDim is the dimension of the vector index. Provider embeddings
// are truncated or zero-padded to this size regardless of their native
// dimension.
const EmbeddingDim = 384

type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

func normalizeDim(values []float32) []float32 {
	if len(values) >= EmbeddingDim {
		return values[:EmbeddingDim]
	}
	padded := make([]float32, EmbeddingDim)
	copy(padded, values)
	return padded
}
