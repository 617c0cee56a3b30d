package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/helpdeskai/support-agent/internal/models"
)

const maxErrorBodyBytes = 1024

// VectorSearcher runs a similarity query against the vector index.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]models.KnowledgeChunk, error)
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// QdrantSearcher talks to Qdrant's HTTP points/search endpoint.
type QdrantSearcher struct {
	cfg     QdrantConfig
	baseURL string
	http    *http.Client
}

func NewQdrantSearcher(cfg QdrantConfig) (*QdrantSearcher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}

	return &QdrantSearcher{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantScoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func (s *QdrantSearcher) Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]models.KnowledgeChunk, error) {
	body := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": minScore,
		"with_payload":    true,
	}

	raw, err := s.post(ctx, fmt.Sprintf("/collections/%s/points/search", s.cfg.Collection), body)
	if err != nil {
		return nil, err
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("qdrant decode envelope: %w", err)
	}

	var points []qdrantScoredPoint
	if err := json.Unmarshal(envelope.Result, &points); err != nil {
		return nil, fmt.Errorf("qdrant decode result: %w", err)
	}

	chunks := make([]models.KnowledgeChunk, 0, len(points))
	for _, p := range points {
		chunk := models.KnowledgeChunk{Similarity: p.Score}
		if content, ok := p.Payload["content"].(string); ok {
			chunk.Content = content
		}
		if docID, ok := p.Payload["document_id"].(string); ok {
			chunk.DocumentID = docID
		}
		if chunk.Content == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

func (s *QdrantSearcher) post(ctx context.Context, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qdrant read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := raw
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return nil, fmt.Errorf("qdrant http %d: %s", resp.StatusCode, string(snippet))
	}

	return raw, nil
}
