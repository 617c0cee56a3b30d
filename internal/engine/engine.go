package engine

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/helpdeskai/support-agent/internal/models"
	"github.com/helpdeskai/support-agent/internal/tools"
)

// Error codes surfaced on fallback decisions.
const (
	ErrorCodeRateLimited   = "rate_limited"
	ErrorCodeQuotaExceeded = "quota_exceeded"
	ErrorCodeProvider      = "provider_error"
)

const (
	defaultMaxAttempts      = 3
	defaultContextTimeout   = 5 * time.Second
	defaultReasoningTimeout = 30 * time.Second
	backoffBase             = time.Second
	backoffJitter           = time.Second
)

// KnowledgeRetriever supplies ranked passages for a query.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, query string) []models.KnowledgeChunk
}

// ContextRenderer turns retrieved chunks into prompt text.
type ContextRenderer func(chunks []models.KnowledgeChunk) string

// MemoryLoader supplies user memory and conversation history as text.
type MemoryLoader interface {
	LoadMemory(ctx context.Context, sessionID string) string
	LoadHistory(ctx context.Context, conversationID string) string
}

// ToolExecutor runs a named tool; nil result on miss or failure.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, params map[string]any) map[string]any
}

type Options struct {
	MaxAttempts      int
	ContextTimeout   time.Duration
	ReasoningTimeout time.Duration
}

// Engine is the autonomous support-decision core. It holds no state
// between turns and never writes to storage; persistence belongs to the
// orchestrator.
type Engine struct {
	reasoner  Reasoner
	retriever KnowledgeRetriever
	render    ContextRenderer
	memory    MemoryLoader
	tools     ToolExecutor
	logger    *zap.Logger

	maxAttempts      int
	contextTimeout   time.Duration
	reasoningTimeout time.Duration

	sleep func(ctx context.Context, d time.Duration)
}

func New(reasoner Reasoner, retriever KnowledgeRetriever, render ContextRenderer, memory MemoryLoader, toolExec ToolExecutor, opts Options, logger *zap.Logger) *Engine {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.ContextTimeout <= 0 {
		opts.ContextTimeout = defaultContextTimeout
	}
	if opts.ReasoningTimeout <= 0 {
		opts.ReasoningTimeout = defaultReasoningTimeout
	}

	return &Engine{
		reasoner:         reasoner,
		retriever:        retriever,
		render:           render,
		memory:           memory,
		tools:            toolExec,
		logger:           logger,
		maxAttempts:      opts.MaxAttempts,
		contextTimeout:   opts.ContextTimeout,
		reasoningTimeout: opts.ReasoningTimeout,
		sleep:            sleepCtx,
	}
}

// Decide runs one turn: gather context, reason, optionally execute a
// tool, and return a normalized Decision. It never returns an error;
// every failure path terminates in a valid fallback Decision.
func (e *Engine) Decide(ctx context.Context, message, sessionID, conversationID string) *models.Decision {
	knowledgeContext, userMemory, history := e.gatherContext(ctx, message, sessionID, conversationID)
	systemPrompt := buildSystemPrompt(knowledgeContext, userMemory, history)

	raw, err := e.reasonWithRetry(ctx, systemPrompt, message)
	if err != nil {
		return e.fallbackDecision(err)
	}

	decision := e.normalize(raw)
	decision.RAGSourcesUsed = knowledgeContext != ""

	if decision.ToolName != "" && decision.ToolName != tools.ToolNone {
		decision.ToolResult = e.tools.Execute(ctx, decision.ToolName, decision.ToolParams)
	}

	e.logger.Info("Decision made",
		zap.String("intent", decision.Intent),
		zap.Float64("confidence", decision.Confidence),
		zap.String("sentiment", string(decision.Sentiment)),
		zap.String("action", string(decision.Action)),
		zap.String("tool", decision.ToolName),
		zap.Bool("rag_sources_used", decision.RAGSourcesUsed))

	return decision
}

// gatherContext fans out the three context lookups concurrently. Each is
// best effort and bounded by the context timeout; a miss contributes an
// empty string.
func (e *Engine) gatherContext(ctx context.Context, message, sessionID, conversationID string) (knowledgeContext, userMemory, history string) {
	gctx, cancel := context.WithTimeout(ctx, e.contextTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(gctx)
	g.Go(func() error {
		chunks := e.retriever.Retrieve(gctx, message)
		knowledgeContext = e.render(chunks)
		return nil
	})
	g.Go(func() error {
		userMemory = e.memory.LoadMemory(gctx, sessionID)
		return nil
	})
	g.Go(func() error {
		history = e.memory.LoadHistory(gctx, conversationID)
		return nil
	})
	_ = g.Wait()

	return knowledgeContext, userMemory, history
}

// reasonWithRetry retries the provider on rate-limit signals with
// exponential backoff plus jitter. Quota and other failures are not
// retried.
func (e *Engine) reasonWithRetry(ctx context.Context, systemPrompt, message string) (*RawDecision, error) {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		rctx, cancel := context.WithTimeout(ctx, e.reasoningTimeout)
		raw, err := e.reasoner.Reason(rctx, systemPrompt, message)
		cancel()

		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		if attempt == e.maxAttempts-1 {
			break
		}

		wait := backoffBase<<attempt + time.Duration(rand.Int63n(int64(backoffJitter)))
		e.logger.Warn("Reasoning provider rate limited, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", e.maxAttempts),
			zap.Duration("wait", wait))
		e.sleep(ctx, wait)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// normalize validates the provider payload against the Decision shape
// and applies the deterministic decision rule, overriding the provider's
// stated action when it disagrees with the thresholds.
func (e *Engine) normalize(raw *RawDecision) *models.Decision {
	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	sentiment := models.Sentiment(raw.Sentiment)
	if !models.ValidSentiment(sentiment) {
		sentiment = models.SentimentNeutral
	}

	intent := raw.Intent
	if intent == "" {
		intent = models.IntentGeneralQuery
	}

	toolName := raw.ToolToCall
	if toolName == "" {
		toolName = tools.ToolNone
	}

	action := ruleAction(confidence, sentiment)
	if stated := models.Action(raw.Decision); models.ValidAction(stated) && stated != action {
		e.logger.Info("Provider action overridden by decision rule",
			zap.String("stated", string(stated)),
			zap.String("enforced", string(action)),
			zap.Float64("confidence", confidence),
			zap.String("sentiment", string(sentiment)))
	}

	return &models.Decision{
		Intent:     intent,
		Confidence: confidence,
		Sentiment:  sentiment,
		Action:     action,
		Response:   raw.Response,
		Reasoning:  raw.Reasoning,
		ToolName:   toolName,
		ToolParams: raw.ToolParams,
	}
}

// fallbackDecision maps a provider failure onto a deterministic,
// user-presentable Decision.
func (e *Engine) fallbackDecision(err error) *models.Decision {
	decision := &models.Decision{
		Intent:     models.IntentError,
		Confidence: 0,
		Sentiment:  models.SentimentNeutral,
		ToolName:   tools.ToolNone,
		Fallback:   true,
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		decision.ErrorCode = ErrorCodeRateLimited
		decision.Action = models.ActionClarify
		decision.Response = "I'm experiencing high demand right now. Please try again in a moment."
	case errors.Is(err, ErrQuotaExceeded):
		decision.ErrorCode = ErrorCodeQuotaExceeded
		decision.Action = models.ActionEscalate
		decision.Response = "I'm temporarily unavailable. Please try again later or contact support directly."
	default:
		decision.ErrorCode = ErrorCodeProvider
		decision.Action = models.ActionEscalate
		decision.Response = "I apologize, but I'm having trouble processing your request right now. Please try again later."
	}

	e.logger.Error("Reasoning failed, returning fallback decision",
		zap.Error(err),
		zap.String("error_code", decision.ErrorCode))

	return decision
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
