package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdeskai/support-agent/internal/models"
)

const (
	// DefaultTopK caps how many passages reach the prompt.
	DefaultTopK = 5
	// DefaultMinSimilarity is deliberately low to favor recall over
	// precision.
	DefaultMinSimilarity = 0.3
)

// Retriever answers free-text queries with ranked knowledge passages.
// Every failure degrades to an empty result; the decision engine treats
// "no context" as a normal input.
type Retriever struct {
	embedder Embedder
	searcher VectorSearcher
	topK     int
	minScore float64
	logger   *zap.Logger
}

func NewRetriever(embedder Embedder, searcher VectorSearcher, topK int, minScore float64, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minScore <= 0 {
		minScore = DefaultMinSimilarity
	}
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		topK:     topK,
		minScore: minScore,
		logger:   logger,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, query string) []models.KnowledgeChunk {
	if r.embedder == nil || r.searcher == nil {
		return nil
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("Knowledge retrieval: embedding failed, proceeding without context",
			zap.Error(err))
		return nil
	}

	chunks, err := r.searcher.Search(ctx, vector, r.topK, r.minScore)
	if err != nil {
		r.logger.Warn("Knowledge retrieval: vector search failed, proceeding without context",
			zap.Error(err))
		return nil
	}

	filtered := make([]models.KnowledgeChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Similarity >= r.minScore {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Similarity > filtered[j].Similarity
	})

	if len(filtered) > r.topK {
		filtered = filtered[:r.topK]
	}
	return filtered
}

// RenderContext formats retrieved passages for the system prompt.
func RenderContext(chunks []models.KnowledgeChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("### Content (Similarity: %.2f)\n%s", c.Similarity, c.Content))
	}
	return strings.Join(parts, "\n\n")
}
