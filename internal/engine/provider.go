package engine

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Provider failure classes. Providers wrap their native errors into
// these sentinels so the engine can pick the retry and fallback path
// without knowing provider internals.
var (
	ErrRateLimited   = errors.New("reasoning provider rate limited")
	ErrQuotaExceeded = errors.New("reasoning provider quota exceeded")
)

// RawDecision is the provider's structured payload, before validation.
// Field names follow the wire contract of the analyze_and_respond call.
type RawDecision struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Sentiment  string         `json:"sentiment"`
	Decision   string         `json:"decision"`
	Response   string         `json:"response"`
	Reasoning  string         `json:"reasoning"`
	ToolToCall string         `json:"tool_to_call"`
	ToolParams map[string]any `json:"tool_params"`
}

// Reasoner submits one reasoning request and returns the structured
// decision payload. Implementations repair unparseable output into a
// best-effort RawDecision instead of failing the turn.
type Reasoner interface {
	Reason(ctx context.Context, systemPrompt, userMessage string) (*RawDecision, error)
}

var codeFenceRe = regexp.MustCompile("```(?:json)?\n?")

// parseDecisionJSON decodes a Decision payload from provider text,
// tolerating markdown code fences around the JSON object.
func parseDecisionJSON(text string) (*RawDecision, error) {
	clean := strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))

	var raw RawDecision
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// repairedDecision is the best-effort payload used when the provider
// returned prose instead of the structured shape.
func repairedDecision(text string) *RawDecision {
	return &RawDecision{
		Intent:     "general_query",
		Confidence: 0.5,
		Sentiment:  "neutral",
		Decision:   "clarify",
		Response:   text,
		Reasoning:  "Failed to parse structured response",
		ToolToCall: "none",
	}
}
