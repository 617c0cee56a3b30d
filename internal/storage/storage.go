package storage

import (
	"context"
	"errors"

	"github.com/helpdeskai/support-agent/internal/models"
)

var ErrNotFound = errors.New("not found")

type Storage interface {
	// EnsureConversation returns the conversation for the session,
	// creating it when none exists yet. Repeated calls with the same
	// session id return the same conversation.
	EnsureConversation(ctx context.Context, sessionID string) (*models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	UpdateConversation(ctx context.Context, conv *models.Conversation) error

	AppendMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error)

	GetUserProfile(ctx context.Context, sessionID string) (*models.UserProfile, error)

	Close() error
}
