package knowledge

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates an Embedder backed by the Gemini API.
// Gemini embeddings are 768-dimensional; EmbedQuery truncates them to
// the index dimension.
func NewGeminiEmbedder(ctx context.Context, apiKey string, model string) (*GeminiEmbedder, error) {
	if model == "" {
		model = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client: client,
		model:  model,
	}, nil
}

func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(strings.ReplaceAll(text, "\n", " "), genai.RoleUser),
	}

	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini embed content: empty response")
	}

	return normalizeDim(res.Embeddings[0].Values), nil
}
