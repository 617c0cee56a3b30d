package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/helpdeskai/support-agent/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) EnsureConversation(ctx context.Context, sessionID string) (*models.Conversation, error) {
	conv := &models.Conversation{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Status:    models.StatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// ON CONFLICT keeps the operation idempotent per session id.
	query := `
		INSERT INTO conversations (id, session_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, session_id, status, COALESCE(sentiment, ''), avg_confidence,
			agent_turns, is_resolved, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		conv.ID, conv.SessionID, conv.Status, conv.CreatedAt, conv.UpdatedAt,
	).Scan(
		&conv.ID,
		&conv.SessionID,
		&conv.Status,
		&conv.Sentiment,
		&conv.AvgConfidence,
		&conv.AgentTurns,
		&conv.IsResolved,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error ensuring conversation: %w", err)
	}

	return conv, nil
}

func (s *PostgresStorage) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	query := `
		SELECT id, session_id, status, COALESCE(sentiment, ''), avg_confidence,
			agent_turns, is_resolved, created_at, updated_at
		FROM conversations
		WHERE id = $1`

	conv := &models.Conversation{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&conv.SessionID,
		&conv.Status,
		&conv.Sentiment,
		&conv.AvgConfidence,
		&conv.AgentTurns,
		&conv.IsResolved,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying conversation: %w", err)
	}

	return conv, nil
}

func (s *PostgresStorage) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	query := `
		UPDATE conversations
		SET status = $1, sentiment = NULLIF($2, ''), avg_confidence = $3,
			agent_turns = $4, is_resolved = $5, updated_at = $6
		WHERE id = $7`

	result, err := s.db.ExecContext(ctx, query,
		conv.Status, conv.Sentiment, conv.AvgConfidence,
		conv.AgentTurns, conv.IsResolved, time.Now(), conv.ID)
	if err != nil {
		return fmt.Errorf("error updating conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStorage) AppendMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, role, content, intent, confidence,
			sentiment, action, is_escalated, is_resolved, tool_executed, reasoning,
			rag_sources, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''),
			$9, $10, NULLIF($11, ''), NULLIF($12, ''), $13, $14)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.Intent,
		msg.Confidence,
		msg.Sentiment,
		msg.Action,
		msg.IsEscalated,
		msg.IsResolved,
		msg.ToolExecuted,
		msg.Reasoning,
		pq.Array(msg.RAGSources),
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error appending message: %w", err)
	}

	return nil
}

func (s *PostgresStorage) GetMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	// Most recent N turns, returned oldest first.
	query := `
		SELECT id, conversation_id, role, content, COALESCE(intent, ''),
			COALESCE(confidence, 0), COALESCE(sentiment, ''), COALESCE(action, ''),
			is_escalated, is_resolved, COALESCE(tool_executed, ''),
			COALESCE(reasoning, ''), COALESCE(rag_sources, '{}'), created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&msg.Intent,
			&msg.Confidence,
			&msg.Sentiment,
			&msg.Action,
			&msg.IsEscalated,
			&msg.IsResolved,
			&msg.ToolExecuted,
			&msg.Reasoning,
			pq.Array(&msg.RAGSources),
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *PostgresStorage) GetUserProfile(ctx context.Context, sessionID string) (*models.UserProfile, error) {
	query := `
		SELECT session_id, COALESCE(display_name, ''), COALESCE(email, ''),
			COALESCE(past_issues, '{}')
		FROM user_profiles
		WHERE session_id = $1`

	profile := &models.UserProfile{}
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&profile.SessionID,
		&profile.DisplayName,
		&profile.Email,
		pq.Array(&profile.PastIssues),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user profile: %w", err)
	}

	return profile, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
