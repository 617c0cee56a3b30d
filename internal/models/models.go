package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type Action string

const (
	ActionResolve  Action = "resolve"
	ActionClarify  Action = "clarify"
	ActionEscalate Action = "escalate"
)

type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusResolved  ConversationStatus = "resolved"
	StatusEscalated ConversationStatus = "escalated"
	StatusPending   ConversationStatus = "pending"
)

// Intent labels the engine classifies messages into. Anything the
// provider returns outside this set is normalized to IntentGeneralQuery.
const (
	IntentLoginIssue        = "login_issue"
	IntentPaymentIssue      = "payment_issue"
	IntentRefundRequest     = "refund_request"
	IntentTechnicalBug      = "technical_bug"
	IntentFeatureRequest    = "feature_request"
	IntentAccountManagement = "account_management"
	IntentGeneralQuery      = "general_query"
	IntentError             = "error"
)

// Message represents one turn in a conversation. The AI metadata fields
// are populated only on agent messages produced by the decision engine.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`

	Intent       string    `json:"intent,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	Sentiment    Sentiment `json:"sentiment,omitempty"`
	Action       Action    `json:"action,omitempty"`
	IsEscalated  bool      `json:"is_escalated,omitempty"`
	IsResolved   bool      `json:"is_resolved,omitempty"`
	ToolExecuted string    `json:"tool_executed,omitempty"`
	Reasoning    string    `json:"reasoning,omitempty"`
	RAGSources   []string  `json:"rag_sources,omitempty"`
}

// Conversation represents a single chat session, keyed by the caller's
// stable session id. Status follows the most recent agent decision.
type Conversation struct {
	ID            string             `json:"id"`
	SessionID     string             `json:"session_id"`
	Status        ConversationStatus `json:"status"`
	Sentiment     Sentiment          `json:"sentiment,omitempty"`
	AvgConfidence float64            `json:"avg_confidence"`
	AgentTurns    int                `json:"agent_turns"`
	IsResolved    bool               `json:"is_resolved"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Decision is the structured output of one decision-engine invocation.
// It is not persisted as its own entity; the orchestrator folds it into
// the agent Message and the Conversation.
type Decision struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Sentiment  Sentiment      `json:"sentiment"`
	Action     Action         `json:"action"`
	Response   string         `json:"response"`
	Reasoning  string         `json:"reasoning,omitempty"`
	ToolName   string         `json:"tool_to_call,omitempty"`
	ToolParams map[string]any `json:"tool_params,omitempty"`

	ToolResult     map[string]any `json:"tool_result,omitempty"`
	RAGSourcesUsed bool           `json:"rag_sources_used"`
	ErrorCode      string         `json:"error,omitempty"`
	Fallback       bool           `json:"fallback,omitempty"`
}

// KnowledgeChunk is a retrieval unit returned by the vector index.
type KnowledgeChunk struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	DocumentID string  `json:"document_id,omitempty"`
}

// UserProfile holds the facts the memory loader surfaces to the engine.
type UserProfile struct {
	SessionID   string   `json:"session_id"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"`
	PastIssues  []string `json:"past_issues"`
}

// ValidSentiment reports whether s is one of the closed sentiment labels.
func ValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// ValidAction reports whether a is one of the closed action labels.
func ValidAction(a Action) bool {
	switch a {
	case ActionResolve, ActionClarify, ActionEscalate:
		return true
	}
	return false
}
