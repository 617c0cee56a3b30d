package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskai/support-agent/internal/knowledge"
	"github.com/helpdeskai/support-agent/internal/models"
)

type fakeReasoner struct {
	raw      *RawDecision
	errs     []error
	attempts int
}

func (f *fakeReasoner) Reason(ctx context.Context, systemPrompt, userMessage string) (*RawDecision, error) {
	f.attempts++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.raw, nil
}

type fakeRetriever struct {
	chunks []models.KnowledgeChunk
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) []models.KnowledgeChunk {
	return f.chunks
}

type fakeMemory struct {
	memory  string
	history string
}

func (f *fakeMemory) LoadMemory(ctx context.Context, sessionID string) string {
	return f.memory
}

func (f *fakeMemory) LoadHistory(ctx context.Context, conversationID string) string {
	return f.history
}

type fakeTools struct {
	calls  []string
	result map[string]any
}

func (f *fakeTools) Execute(ctx context.Context, name string, params map[string]any) map[string]any {
	f.calls = append(f.calls, name)
	return f.result
}

func newTestEngine(reasoner Reasoner, retriever KnowledgeRetriever, toolExec ToolExecutor) *Engine {
	e := New(reasoner, retriever, knowledge.RenderContext, &fakeMemory{}, toolExec, Options{}, zap.NewNop())
	e.sleep = func(context.Context, time.Duration) {}
	return e
}

func TestDecideNormalizesAndEnforcesRules(t *testing.T) {
	// Provider claims "resolve" despite low confidence; the rule must win.
	reasoner := &fakeReasoner{raw: &RawDecision{
		Intent:     "refund_request",
		Confidence: 0.5,
		Sentiment:  "negative",
		Decision:   "resolve",
		Response:   "I want a refund for order A123",
		Reasoning:  "low confidence refund",
		ToolToCall: "none",
	}}

	e := newTestEngine(reasoner, &fakeRetriever{}, &fakeTools{})
	decision := e.Decide(context.Background(), "I want a refund for order A123", "s1", "c1")

	if decision.Action != models.ActionEscalate {
		t.Fatalf("action = %q, want escalate", decision.Action)
	}
	if decision.Intent != "refund_request" {
		t.Errorf("intent = %q, want refund_request", decision.Intent)
	}
	if decision.Fallback {
		t.Error("expected non-fallback decision")
	}
}

func TestDecideRunsRequestedTool(t *testing.T) {
	reasoner := &fakeReasoner{raw: &RawDecision{
		Intent:     "refund_request",
		Confidence: 0.9,
		Sentiment:  "neutral",
		Decision:   "resolve",
		Response:   "Checking your order now.",
		ToolToCall: "check_refund_policy",
		ToolParams: map[string]any{"order_id": "A123"},
	}}
	toolExec := &fakeTools{result: map[string]any{"eligible": true}}

	e := newTestEngine(reasoner, &fakeRetriever{}, toolExec)
	decision := e.Decide(context.Background(), "refund order A123", "s1", "c1")

	if len(toolExec.calls) != 1 || toolExec.calls[0] != "check_refund_policy" {
		t.Fatalf("tool calls = %v, want [check_refund_policy]", toolExec.calls)
	}
	if decision.ToolResult == nil || decision.ToolResult["eligible"] != true {
		t.Errorf("tool result = %v, want eligible=true", decision.ToolResult)
	}
	if decision.Action != models.ActionResolve {
		t.Errorf("action = %q, want resolve", decision.Action)
	}
}

func TestDecideSkipsToolWhenNone(t *testing.T) {
	reasoner := &fakeReasoner{raw: &RawDecision{
		Intent:     "general_query",
		Confidence: 0.9,
		Sentiment:  "positive",
		Decision:   "resolve",
		Response:   "Glad that worked!",
		ToolToCall: "none",
	}}
	toolExec := &fakeTools{}

	e := newTestEngine(reasoner, &fakeRetriever{}, toolExec)
	e.Decide(context.Background(), "thanks, that worked!", "s1", "c1")

	if len(toolExec.calls) != 0 {
		t.Fatalf("tool calls = %v, want none", toolExec.calls)
	}
}

func TestDecideRateLimitFallbackAfterRetries(t *testing.T) {
	reasoner := &fakeReasoner{errs: []error{
		fmt.Errorf("%w: 429", ErrRateLimited),
		fmt.Errorf("%w: 429", ErrRateLimited),
		fmt.Errorf("%w: 429", ErrRateLimited),
	}}

	e := newTestEngine(reasoner, &fakeRetriever{}, &fakeTools{})
	decision := e.Decide(context.Background(), "hello", "s1", "c1")

	if reasoner.attempts != 3 {
		t.Fatalf("attempts = %d, want 3", reasoner.attempts)
	}
	if decision.ErrorCode != ErrorCodeRateLimited {
		t.Errorf("error code = %q, want %q", decision.ErrorCode, ErrorCodeRateLimited)
	}
	if decision.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", decision.Confidence)
	}
	if decision.Sentiment != models.SentimentNeutral {
		t.Errorf("sentiment = %q, want neutral", decision.Sentiment)
	}
	if decision.Intent != models.IntentError {
		t.Errorf("intent = %q, want error", decision.Intent)
	}
	if decision.Action != models.ActionClarify {
		t.Errorf("action = %q, want clarify", decision.Action)
	}
	if !decision.Fallback {
		t.Error("expected fallback decision")
	}
}

func TestDecideRecoversAfterOneRateLimit(t *testing.T) {
	reasoner := &fakeReasoner{
		errs: []error{fmt.Errorf("%w: 429", ErrRateLimited), nil},
		raw: &RawDecision{
			Intent:     "general_query",
			Confidence: 0.9,
			Sentiment:  "neutral",
			Decision:   "resolve",
			Response:   "All set.",
			ToolToCall: "none",
		},
	}

	e := newTestEngine(reasoner, &fakeRetriever{}, &fakeTools{})
	decision := e.Decide(context.Background(), "hello", "s1", "c1")

	if reasoner.attempts != 2 {
		t.Fatalf("attempts = %d, want 2", reasoner.attempts)
	}
	if decision.Fallback {
		t.Fatal("expected successful decision after retry")
	}
	if decision.Action != models.ActionResolve {
		t.Errorf("action = %q, want resolve", decision.Action)
	}
}

func TestDecideQuotaExceededDoesNotRetry(t *testing.T) {
	reasoner := &fakeReasoner{errs: []error{
		fmt.Errorf("%w: 402", ErrQuotaExceeded),
	}}

	e := newTestEngine(reasoner, &fakeRetriever{}, &fakeTools{})
	decision := e.Decide(context.Background(), "hello", "s1", "c1")

	if reasoner.attempts != 1 {
		t.Fatalf("attempts = %d, want 1", reasoner.attempts)
	}
	if decision.ErrorCode != ErrorCodeQuotaExceeded {
		t.Errorf("error code = %q, want %q", decision.ErrorCode, ErrorCodeQuotaExceeded)
	}
	if decision.Action != models.ActionEscalate {
		t.Errorf("action = %q, want escalate", decision.Action)
	}
}

func TestDecideGenericProviderError(t *testing.T) {
	reasoner := &fakeReasoner{errs: []error{fmt.Errorf("connection refused")}}

	e := newTestEngine(reasoner, &fakeRetriever{}, &fakeTools{})
	decision := e.Decide(context.Background(), "hello", "s1", "c1")

	if reasoner.attempts != 1 {
		t.Fatalf("attempts = %d, want 1", reasoner.attempts)
	}
	if decision.ErrorCode != ErrorCodeProvider {
		t.Errorf("error code = %q, want %q", decision.ErrorCode, ErrorCodeProvider)
	}
	if decision.Action != models.ActionEscalate {
		t.Errorf("action = %q, want escalate", decision.Action)
	}
}

func TestDecideRAGSourcesFlag(t *testing.T) {
	raw := &RawDecision{
		Intent:     "general_query",
		Confidence: 0.9,
		Sentiment:  "neutral",
		Decision:   "resolve",
		Response:   "Here is the answer.",
		ToolToCall: "none",
	}

	t.Run("no_passages", func(t *testing.T) {
		e := newTestEngine(&fakeReasoner{raw: raw}, &fakeRetriever{}, &fakeTools{})
		decision := e.Decide(context.Background(), "hello", "s1", "c1")

		if decision.RAGSourcesUsed {
			t.Error("rag_sources_used = true, want false")
		}
		if decision.ErrorCode != "" {
			t.Errorf("unexpected error code %q", decision.ErrorCode)
		}
	})

	t.Run("with_passages", func(t *testing.T) {
		retriever := &fakeRetriever{chunks: []models.KnowledgeChunk{
			{Content: "Refunds are allowed within 30 days.", Similarity: 0.8},
		}}
		e := newTestEngine(&fakeReasoner{raw: raw}, retriever, &fakeTools{})
		decision := e.Decide(context.Background(), "hello", "s1", "c1")

		if !decision.RAGSourcesUsed {
			t.Error("rag_sources_used = false, want true")
		}
	})
}

func TestDecideNormalizesMalformedFields(t *testing.T) {
	reasoner := &fakeReasoner{raw: &RawDecision{
		Intent:     "",
		Confidence: 1.7,
		Sentiment:  "angry",
		Decision:   "punt",
		Response:   "hm",
	}}

	e := newTestEngine(reasoner, &fakeRetriever{}, &fakeTools{})
	decision := e.Decide(context.Background(), "hello", "s1", "c1")

	if decision.Intent != models.IntentGeneralQuery {
		t.Errorf("intent = %q, want general_query", decision.Intent)
	}
	if decision.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", decision.Confidence)
	}
	if decision.Sentiment != models.SentimentNeutral {
		t.Errorf("sentiment = %q, want neutral", decision.Sentiment)
	}
	if decision.Action != models.ActionResolve {
		t.Errorf("action = %q, want resolve (confidence 1)", decision.Action)
	}
	if decision.ToolName != "none" {
		t.Errorf("tool name = %q, want none", decision.ToolName)
	}
}
