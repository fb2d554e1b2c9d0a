package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	logx "github.com/wanderplan/server/pkg/logger"

	"github.com/wanderplan/server/internal/agent/model"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey       string
	BaseURL      string
	IntentConfig *model.IntentModelConfig
	RespConfig   *model.ResponseModelConfig
}

// ChatModels holds the intent-classification and response chat models. The
// airport resolver shares the intent model for its single-shot fallback
// lookups.
type ChatModels struct {
	Intent            *gemini.ChatModel
	Response          *gemini.ChatModel
	IntentModelName   string
	ResponseModelName string
}

// NewChatModels creates both chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Intent classification wants deterministic, structured output; no
	// thinking budget needed.
	chatModelIntent, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.IntentConfig.Model,
		Temperature: &config.IntentConfig.Temperature,
		MaxTokens:   &config.IntentConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, fmt.Errorf("error creating intent model: %w", err)
	}

	chatModelResponse, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.RespConfig.Model,
		Temperature: &config.RespConfig.Temperature,
		MaxTokens:   &config.RespConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return &ChatModels{
		Intent:            chatModelIntent,
		Response:          chatModelResponse,
		IntentModelName:   config.IntentConfig.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}
