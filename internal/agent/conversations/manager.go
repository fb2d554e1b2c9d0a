package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/wanderplan/server/internal/agent/model"
)

// MessagesManager mediates between the turn loop and the conversation
// repository: it records both sides of the exchange and assembles the prompt
// context with a bounded slice of recent history.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	historyMaxTurns  int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		historyMaxTurns:  config.History.MaxTurns,
	}
}

// SaveUserMessage records the incoming utterance.
func (cm *MessagesManager) SaveUserMessage(ctx context.Context, conversationID string, query string) error {
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.UserMessage(query))
}

// BuildTurnContext returns the message list for the response loop: the system
// prompt followed by the most recent turns of history. The current user
// message is already part of history by the time this is called.
func (cm *MessagesManager) BuildTurnContext(ctx context.Context, conversationID string, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}
	messages = append(messages, trimTail(history.Messages, cm.historyMaxTurns)...)

	return messages, nil
}

// SaveResponse records the assistant's final text for the turn.
func (cm *MessagesManager) SaveResponse(ctx context.Context, conversationID string, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return cm.conversationRepo.AddMessage(ctx, conversationID, assistantMsg)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
