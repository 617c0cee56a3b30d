package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type GeminiReasoner struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiReasoner(ctx context.Context, apiKey string, model string, logger *zap.Logger) (*GeminiReasoner, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiReasoner{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Reason sends the prompt as plain text and expects a JSON object back,
// possibly wrapped in markdown code fences.
func (r *GeminiReasoner) Reason(ctx context.Context, systemPrompt, userMessage string) (*RawDecision, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userMessage, genai.RoleUser),
	}

	temp := float32(0.1)
	outputTokens := int32(1000)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   outputTokens,
		ResponseMIMEType:  "application/json",
	}

	res, err := r.client.Models.GenerateContent(ctx, r.model, contents, cfg)
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text := res.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty response")
	}

	raw, err := parseDecisionJSON(text)
	if err != nil {
		r.logger.Warn("Failed to parse Gemini JSON, repairing",
			zap.Error(err))
		return repairedDecision(text), nil
	}
	return raw, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusPaymentRequired,
			strings.Contains(strings.ToLower(apiErr.Message), "quota"):
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		case apiErr.Code == http.StatusTooManyRequests,
			apiErr.Status == "RESOURCE_EXHAUSTED":
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return err
}
