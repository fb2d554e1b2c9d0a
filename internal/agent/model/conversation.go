package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage adds a message to the conversation history for the given conversation
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// LoadHistory retrieves the conversation history for a conversation
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// SaveContext persists the travel context snapshot for a conversation
	SaveContext(ctx context.Context, conversationID string, travel TravelContext) error

	// LoadContext retrieves the travel context snapshot; a fresh context is
	// returned when none has been stored yet
	LoadContext(ctx context.Context, conversationID string) (TravelContext, error)

	// ClearHistory removes all conversation state for a conversation
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}
