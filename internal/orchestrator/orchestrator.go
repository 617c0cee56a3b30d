package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdeskai/support-agent/internal/models"
	"github.com/helpdeskai/support-agent/internal/storage"
	"github.com/helpdeskai/support-agent/internal/tools"
)

// DecisionEngine is the per-turn decision core.
type DecisionEngine interface {
	Decide(ctx context.Context, message, sessionID, conversationID string) *models.Decision
}

// Notifier surfaces side-effect notifications to the UI layer.
type Notifier interface {
	NotifyEscalation(conversationID, reason string)
	NotifyResolution(conversationID string, confidence float64)
	NotifyToolExecuted(conversationID, tool string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyEscalation(string, string) {}
func (NopNotifier) NotifyResolution(string, float64) {}
func (NopNotifier) NotifyToolExecuted(string, string) {}

// ChatResult is what one handled turn returns upward.
type ChatResult struct {
	ConversationID string
	Decision       *models.Decision
	AgentMessage   *models.Message
}

// Orchestrator drives the per-turn lifecycle: ensure conversation,
// persist user turn, invoke the engine, persist agent turn, update
// conversation state, and emit notifications. Turns within the same
// session are serialized so persistence writes never interleave.
type Orchestrator struct {
	storage  storage.Storage
	engine   DecisionEngine
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store storage.Storage, engine DecisionEngine, notifier Notifier, logger *zap.Logger) *Orchestrator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Orchestrator{
		storage:  store,
		engine:   engine,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, exists := o.locks[sessionID]
	if !exists {
		lock = &sync.Mutex{}
		o.locks[sessionID] = lock
	}
	return lock
}

// HandleMessage processes one user turn end to end. The user's message
// is persisted before the engine runs, and the engine never fails the
// turn: a provider failure comes back as a fallback Decision that is
// persisted like any other agent turn.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, content string) (*ChatResult, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := o.storage.EnsureConversation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ensuring conversation: %w", err)
	}

	log := o.logger.With(
		zap.String("session_id", sessionID),
		zap.String("conversation_id", conv.ID))

	userMsg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        content,
		CreatedAt:      o.now(),
	}
	if err := o.storage.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}

	decision := o.engine.Decide(ctx, content, sessionID, conv.ID)

	agentMsg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           models.RoleAgent,
		Content:        decision.Response,
		CreatedAt:      o.now(),
		Intent:         decision.Intent,
		Confidence:     decision.Confidence,
		Sentiment:      decision.Sentiment,
		Action:         decision.Action,
		IsEscalated:    decision.Action == models.ActionEscalate,
		IsResolved:     decision.Action == models.ActionResolve,
		Reasoning:      decision.Reasoning,
	}
	if decision.ToolName != "" && decision.ToolName != tools.ToolNone {
		agentMsg.ToolExecuted = decision.ToolName
	}
	if decision.RAGSourcesUsed {
		agentMsg.RAGSources = []string{"knowledge_base"}
	}

	if err := o.storage.AppendMessage(ctx, agentMsg); err != nil {
		// The user turn is already persisted; log and keep going so the
		// caller still gets the decision.
		log.Error("Failed to persist agent message", zap.Error(err))
	}

	if err := o.updateConversation(ctx, conv, decision); err != nil {
		log.Error("Failed to update conversation", zap.Error(err))
	}

	o.notify(conv.ID, decision)

	log.Info("Turn completed",
		zap.String("action", string(decision.Action)),
		zap.String("intent", decision.Intent),
		zap.Bool("fallback", decision.Fallback))

	return &ChatResult{
		ConversationID: conv.ID,
		Decision:       decision,
		AgentMessage:   agentMsg,
	}, nil
}

// GetTranscript returns the persisted messages of a conversation.
func (o *Orchestrator) GetTranscript(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	return o.storage.GetMessages(ctx, conversationID, limit)
}

func (o *Orchestrator) updateConversation(ctx context.Context, conv *models.Conversation, decision *models.Decision) error {
	switch decision.Action {
	case models.ActionEscalate:
		conv.Status = models.StatusEscalated
	case models.ActionResolve:
		conv.Status = models.StatusResolved
	default:
		conv.Status = models.StatusActive
	}
	conv.IsResolved = decision.Action == models.ActionResolve
	conv.Sentiment = decision.Sentiment

	// True running mean over agent turns.
	conv.AgentTurns++
	conv.AvgConfidence += (decision.Confidence - conv.AvgConfidence) / float64(conv.AgentTurns)

	return o.storage.UpdateConversation(ctx, conv)
}

func (o *Orchestrator) notify(conversationID string, decision *models.Decision) {
	switch decision.Action {
	case models.ActionEscalate:
		o.notifier.NotifyEscalation(conversationID, decision.Reasoning)
	case models.ActionResolve:
		o.notifier.NotifyResolution(conversationID, decision.Confidence)
	}
	if decision.ToolName != "" && decision.ToolName != tools.ToolNone {
		o.notifier.NotifyToolExecuted(conversationID, decision.ToolName)
	}
}
