package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"newsgenie/internal/models"
	"newsgenie/internal/pkg/logger"
)

// WorkflowRunner is the pipeline surface the chat handler depends on.
type WorkflowRunner interface {
	Run(ctx context.Context, query string, history []models.ConversationTurn) *models.WorkflowState
	HealthCheck(ctx context.Context) error
}

// SessionStore is the conversation history surface the chat handler depends on.
type SessionStore interface {
	GetHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)
	AppendExchange(ctx context.Context, sessionID string, turns []models.ConversationTurn) error
	ClearSession(ctx context.Context, sessionID string) error
	HealthCheck(ctx context.Context) error
}

type ChatHandler struct {
	workflow WorkflowRunner
	sessions SessionStore
	logger   *logger.Logger
}

func NewChatHandler(workflow WorkflowRunner, sessions SessionStore, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		workflow: workflow,
		sessions: sessions,
		logger:   log,
	}
}

// RegisterRoutes wires the chat API onto the given engine.
func (handler *ChatHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/chat", handler.Chat)
		api.GET("/sessions/:id/history", handler.GetSessionHistory)
		api.DELETE("/sessions/:id", handler.ClearSession)
	}
	router.GET("/health", handler.Health)
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type ChatResponse struct {
	SessionID      string                 `json:"session_id"`
	Response       string                 `json:"response"`
	Classification *models.Classification `json:"classification,omitempty"`
	Error          string                 `json:"error,omitempty"`
	ElapsedMs      int64                  `json:"elapsed_ms"`
	RequestID      string                 `json:"request_id"`
}

// Chat runs one user message through the pipeline. A missing session_id
// starts a fresh session; the generated id is returned so the client can
// continue the conversation.
func (handler *ChatHandler) Chat(ctx *gin.Context) {
	var request ChatRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "message is required",
		})
		return
	}

	sessionID := request.SessionID
	if sessionID == "" {
		sessionID = models.GenerateSessionID()
	}

	history, err := handler.sessions.GetHistory(ctx.Request.Context(), sessionID)
	if err != nil {
		// Degrade to an empty history rather than failing the request.
		handler.logger.WithError(err).Warn("failed to load session history, continuing without it")
		history = nil
	}

	state := handler.workflow.Run(ctx.Request.Context(), request.Message, history)

	if state.FinalResponse != "" {
		if err := handler.sessions.AppendExchange(ctx.Request.Context(), sessionID, state.NewTurns()); err != nil {
			handler.logger.WithError(err).Warn("failed to persist session exchange")
		}
	}

	response := ChatResponse{
		SessionID:      sessionID,
		Response:       state.FinalResponse,
		Classification: state.Classification,
		ElapsedMs:      state.GetDuration().Milliseconds(),
		RequestID:      state.RequestID,
	}
	if state.Err != nil {
		response.Error = state.Err.Error()
	}

	handler.logger.LogWorkflow(state.ID, sessionID, "chat_request_served", state.GetDuration(), state.Err)

	ctx.JSON(http.StatusOK, response)
}

type SessionHistoryResponse struct {
	SessionID string                    `json:"session_id"`
	Turns     []models.ConversationTurn `json:"turns"`
	Count     int                       `json:"count"`
}

func (handler *ChatHandler) GetSessionHistory(ctx *gin.Context) {
	sessionID := ctx.Param("id")

	history, err := handler.sessions.GetHistory(ctx.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{
				"error": "session not found",
			})
			return
		}
		handler.logger.WithError(err).Error("failed to load session history")
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to load session history",
		})
		return
	}

	ctx.JSON(http.StatusOK, SessionHistoryResponse{
		SessionID: sessionID,
		Turns:     history,
		Count:     len(history),
	})
}

func (handler *ChatHandler) ClearSession(ctx *gin.Context) {
	sessionID := ctx.Param("id")

	if err := handler.sessions.ClearSession(ctx.Request.Context(), sessionID); err != nil {
		handler.logger.WithError(err).Error("failed to clear session")
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to clear session",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"cleared":    true,
	})
}

// Health reports liveness plus a shallow collaborator check. The handler
// stays on 200 with per-component detail so load balancers do not flap on a
// single degraded collaborator.
func (handler *ChatHandler) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	components := gin.H{}
	healthy := true

	if err := handler.workflow.HealthCheck(checkCtx); err != nil {
		components["pipeline"] = err.Error()
		healthy = false
	} else {
		components["pipeline"] = "ok"
	}

	if err := handler.sessions.HealthCheck(checkCtx); err != nil {
		components["sessions"] = err.Error()
		healthy = false
	} else {
		components["sessions"] = "ok"
	}

	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
