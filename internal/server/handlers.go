package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	logx "github.com/wanderplan/server/pkg/logger"

	"github.com/wanderplan/server/internal/agent/model"
	"github.com/wanderplan/server/internal/agent/stream"
)

// greetingText matches the agent's persona; the client shows it before the
// first turn.
const greetingText = "Hi! I'm your AI travel agent. I can help you plan your perfect trip. Where would you like to go?"

var greetingSuggestions = []string{"Popular Destinations", "Beach Vacation", "Cultural Experience"}

// TurnProcessor is the single agent capability the HTTP layer depends on.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, in model.TurnInput, travel model.TravelContext, sink stream.ChunkSink) model.TurnResult
}

// ChatHandler serves the chat endpoints. The travel context is loaded before
// each turn and persisted after it, so the conversation survives across
// requests for as long as the repository keeps it.
type ChatHandler struct {
	agent TurnProcessor
	repo  model.ConversationRepository
}

func NewChatHandler(agent TurnProcessor, repo model.ConversationRepository) *ChatHandler {
	return &ChatHandler{agent: agent, repo: repo}
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
}

type chunkEvent struct {
	Message string `json:"message"`
}

type doneEvent struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Stage          string `json:"stage"`
}

// Chat runs one conversation turn and streams the reply as SSE events:
// "chunk" events carry text fragments in emission order, one final "done"
// event carries the full text, the stage and the conversation ID.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message must not be empty"})
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	ctx := c.Request.Context()
	travel, err := h.repo.LoadContext(ctx, conversationID)
	if err != nil {
		// A fresh context keeps the turn usable when the store is down.
		logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to load travel context")
		travel = model.NewTravelContext()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	sink := stream.ChunkFunc(func(text string) {
		c.SSEvent("chunk", chunkEvent{Message: text})
		c.Writer.Flush()
	})

	result := h.agent.ProcessTurn(ctx, model.TurnInput{
		ConversationID: conversationID,
		Query:          req.Message,
	}, travel, sink)

	if err := h.repo.SaveContext(ctx, conversationID, result.UpdatedContext); err != nil {
		logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to persist travel context")
	}

	c.SSEvent("done", doneEvent{
		ConversationID: conversationID,
		Text:           result.Text,
		Stage:          string(result.UpdatedContext.Stage),
	})
	c.Writer.Flush()
}

// Greeting returns the static opening message and suggestion chips.
func (h *ChatHandler) Greeting(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":     greetingText,
		"suggestions": greetingSuggestions,
	})
}

// ResetConversation drops all stored state for a conversation.
func (h *ChatHandler) ResetConversation(c *gin.Context) {
	id := c.Param("id")
	if err := h.repo.ClearHistory(c.Request.Context(), id); err != nil {
		logx.Error().Err(err).Str("conversation_id", id).Msg("Failed to clear conversation")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to clear conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "conversation_id": id})
}

// Health is a liveness probe.
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
