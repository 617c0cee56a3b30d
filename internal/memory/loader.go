package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdeskai/support-agent/internal/models"
	"github.com/helpdeskai/support-agent/internal/storage"
)

const (
	historyLimit   = 10
	pastIssueLimit = 3
)

// Loader surfaces user memory and conversation history as prompt text.
// Both lookups are best effort: missing data or storage errors yield an
// empty string, never an error.
type Loader struct {
	storage storage.Storage
	logger  *zap.Logger
}

func NewLoader(store storage.Storage, logger *zap.Logger) *Loader {
	return &Loader{
		storage: store,
		logger:  logger,
	}
}

// LoadMemory returns what we know about the user behind a session as
// newline-joined facts.
func (l *Loader) LoadMemory(ctx context.Context, sessionID string) string {
	profile, err := l.storage.GetUserProfile(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l.logger.Warn("Failed to load user profile",
				zap.Error(err),
				zap.String("session_id", sessionID))
		}
		return ""
	}

	var parts []string
	if profile.DisplayName != "" {
		parts = append(parts, fmt.Sprintf("Name: %s", profile.DisplayName))
	}
	if profile.Email != "" {
		parts = append(parts, fmt.Sprintf("Email: %s", profile.Email))
	}
	if len(profile.PastIssues) > 0 {
		issues := profile.PastIssues
		if len(issues) > pastIssueLimit {
			issues = issues[len(issues)-pastIssueLimit:]
		}
		parts = append(parts, fmt.Sprintf("Past issues: %s", strings.Join(issues, ", ")))
	}

	return strings.Join(parts, "\n")
}

// LoadHistory renders the most recent turns of a conversation, oldest
// first, one "{Role}: {content}" line per turn.
func (l *Loader) LoadHistory(ctx context.Context, conversationID string) string {
	if conversationID == "" {
		return ""
	}

	messages, err := l.storage.GetMessages(ctx, conversationID, historyLimit)
	if err != nil {
		l.logger.Warn("Failed to load conversation history",
			zap.Error(err),
			zap.String("conversation_id", conversationID))
		return ""
	}
	if len(messages) == 0 {
		return ""
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "Agent"
		if m.Role == models.RoleUser {
			speaker = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Content))
	}
	return strings.Join(lines, "\n")
}
