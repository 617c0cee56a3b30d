package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdeskai/support-agent/internal/orchestrator"
	"github.com/helpdeskai/support-agent/internal/storage"
	"github.com/helpdeskai/support-agent/internal/tools"
)

const transcriptLimit = 100

type Server struct {
	orchestrator *orchestrator.Orchestrator
	logger       *zap.Logger
	engine       *gin.Engine
}

type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	SessionID      string `json:"session_id" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

type ChatResponse struct {
	ConversationID string         `json:"conversation_id"`
	Content        string         `json:"content"`
	Intent         string         `json:"intent"`
	Confidence     float64        `json:"confidence"`
	Sentiment      string         `json:"sentiment"`
	Action         string         `json:"action"`
	Reasoning      string         `json:"reasoning,omitempty"`
	ToolExecuted   string         `json:"tool_executed,omitempty"`
	ToolResult     map[string]any `json:"tool_result,omitempty"`
	RAGSourcesUsed bool           `json:"rag_sources_used"`
	Error          string         `json:"error,omitempty"`
	Fallback       bool           `json:"fallback,omitempty"`
}

func New(orch *orchestrator.Orchestrator, logger *zap.Logger) *Server {
	s := &Server{
		orchestrator: orch,
		logger:       logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	router.Use(s.requestLogger())

	router.GET("/healthz", s.handleHealth)
	api := router.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/conversations/:id/messages", s.handleMessages)
	}

	s.engine = router
	return s
}

func (s *Server) Run(addr string) error {
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.engine.Run(addr)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)

		start := time.Now()
		c.Next()

		s.logger.Info("Request handled",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message and session_id are required"})
		return
	}

	// Let in-flight provider calls finish even if the client goes away,
	// so persisted state stays consistent; the response just won't be
	// read by anyone.
	ctx := context.WithoutCancel(c.Request.Context())

	result, err := s.orchestrator.HandleMessage(ctx, req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("Chat turn failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message", "fallback": true})
		return
	}

	decision := result.Decision
	resp := ChatResponse{
		ConversationID: result.ConversationID,
		Content:        decision.Response,
		Intent:         decision.Intent,
		Confidence:     decision.Confidence,
		Sentiment:      string(decision.Sentiment),
		Action:         string(decision.Action),
		Reasoning:      decision.Reasoning,
		ToolResult:     decision.ToolResult,
		RAGSourcesUsed: decision.RAGSourcesUsed,
		Error:          decision.ErrorCode,
		Fallback:       decision.Fallback,
	}
	if decision.ToolName != "" && decision.ToolName != tools.ToolNone {
		resp.ToolExecuted = decision.ToolName
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMessages(c *gin.Context) {
	conversationID := c.Param("id")

	messages, err := s.orchestrator.GetTranscript(c.Request.Context(), conversationID, transcriptLimit)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		s.logger.Error("Failed to load transcript",
			zap.Error(err),
			zap.String("conversation_id", conversationID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
