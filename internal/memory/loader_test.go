package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskai/support-agent/internal/models"
	"github.com/helpdeskai/support-agent/internal/storage"
)

func TestLoadMemory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	loader := NewLoader(store, zap.NewNop())

	if got := loader.LoadMemory(ctx, "unknown-session"); got != "" {
		t.Fatalf("memory for unknown session = %q, want empty", got)
	}

	err := store.SaveUserProfile(ctx, &models.UserProfile{
		SessionID:   "s1",
		DisplayName: "Dana",
		Email:       "dana@example.com",
		PastIssues:  []string{"login_issue", "payment_issue", "refund_request", "technical_bug"},
	})
	if err != nil {
		t.Fatalf("SaveUserProfile failed: %v", err)
	}

	got := loader.LoadMemory(ctx, "s1")
	want := "Name: Dana\nEmail: dana@example.com\nPast issues: payment_issue, refund_request, technical_bug"
	if got != want {
		t.Fatalf("memory = %q, want %q", got, want)
	}
}

func TestLoadMemoryPartialProfile(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	loader := NewLoader(store, zap.NewNop())

	if err := store.SaveUserProfile(ctx, &models.UserProfile{SessionID: "s2", Email: "x@example.com"}); err != nil {
		t.Fatalf("SaveUserProfile failed: %v", err)
	}

	if got := loader.LoadMemory(ctx, "s2"); got != "Email: x@example.com" {
		t.Fatalf("memory = %q, want only the email line", got)
	}
}

func TestLoadHistory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	loader := NewLoader(store, zap.NewNop())

	if got := loader.LoadHistory(ctx, ""); got != "" {
		t.Fatalf("history without conversation id = %q, want empty", got)
	}

	conv, err := store.EnsureConversation(ctx, "s1")
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}

	if got := loader.LoadHistory(ctx, conv.ID); got != "" {
		t.Fatalf("history of empty conversation = %q, want empty", got)
	}

	base := time.Now()
	turns := []struct {
		role    models.Role
		content string
	}{
		{models.RoleUser, "I can't log in"},
		{models.RoleAgent, "Let me help with that"},
		{models.RoleUser, "thanks"},
	}
	for i, turn := range turns {
		err := store.AppendMessage(ctx, &models.Message{
			ID:             fmt.Sprintf("m%d", i),
			ConversationID: conv.ID,
			Role:           turn.role,
			Content:        turn.content,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	got := loader.LoadHistory(ctx, conv.ID)
	want := "User: I can't log in\nAgent: Let me help with that\nUser: thanks"
	if got != want {
		t.Fatalf("history = %q, want %q", got, want)
	}
}

func TestLoadHistoryKeepsMostRecentTurns(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	loader := NewLoader(store, zap.NewNop())

	conv, err := store.EnsureConversation(ctx, "s1")
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}

	base := time.Now()
	for i := 0; i < 15; i++ {
		err := store.AppendMessage(ctx, &models.Message{
			ID:             fmt.Sprintf("m%d", i),
			ConversationID: conv.ID,
			Role:           models.RoleUser,
			Content:        fmt.Sprintf("turn %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	got := loader.LoadHistory(ctx, conv.ID)
	lines := strings.Split(got, "\n")
	if len(lines) != 10 {
		t.Fatalf("history has %d lines, want 10", len(lines))
	}
	if lines[0] != "User: turn 5" {
		t.Errorf("first line = %q, want oldest kept turn (turn 5)", lines[0])
	}
	if lines[9] != "User: turn 14" {
		t.Errorf("last line = %q, want most recent turn", lines[9])
	}
}
