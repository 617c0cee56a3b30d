package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helpdeskai/support-agent/internal/models"
)

type MemoryStorage struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	bySession     map[string]string
	messages      map[string][]*models.Message
	profiles      map[string]*models.UserProfile
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[string]*models.Conversation),
		bySession:     make(map[string]string),
		messages:      make(map[string][]*models.Message),
		profiles:      make(map[string]*models.UserProfile),
	}
}

func (s *MemoryStorage) EnsureConversation(ctx context.Context, sessionID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.bySession[sessionID]; exists {
		cp := *s.conversations[id]
		return &cp, nil
	}

	conv := &models.Conversation{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Status:    models.StatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.conversations[conv.ID] = conv
	s.bySession[sessionID] = conv.ID

	cp := *conv
	return &cp, nil
}

func (s *MemoryStorage) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[id]
	if !exists {
		return nil, ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (s *MemoryStorage) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; !exists {
		return ErrNotFound
	}
	updated := *conv
	updated.UpdatedAt = time.Now()
	s.conversations[conv.ID] = &updated
	return nil
}

func (s *MemoryStorage) AppendMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &cp)
	return nil
}

func (s *MemoryStorage) GetMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	result := make([]*models.Message, len(msgs))
	for i, m := range msgs {
		cp := *m
		result[i] = &cp
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (s *MemoryStorage) GetUserProfile(ctx context.Context, sessionID string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[sessionID]
	if !exists {
		return nil, ErrNotFound
	}
	cp := *profile
	return &cp, nil
}

// SaveUserProfile is used by local mode and tests to seed memory facts.
func (s *MemoryStorage) SaveUserProfile(ctx context.Context, profile *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *profile
	s.profiles[profile.SessionID] = &cp
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
