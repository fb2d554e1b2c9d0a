package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/wanderplan/server/internal/agent/airports"
	"github.com/wanderplan/server/internal/agent/conversations"
	"github.com/wanderplan/server/internal/agent/flights"
	"github.com/wanderplan/server/internal/agent/intent"
	"github.com/wanderplan/server/internal/agent/model"
	"github.com/wanderplan/server/internal/agent/orchestrator"
	"github.com/wanderplan/server/internal/agent/repo"
	"github.com/wanderplan/server/internal/agent/search"
	"github.com/wanderplan/server/internal/core"
	"github.com/wanderplan/server/internal/server"
	logx "github.com/wanderplan/server/pkg/logger"
	pkgredis "github.com/wanderplan/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis  pkgredis.Config
	Server model.ServerConfig

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Intent       model.IntentModelConfig
	Response     model.ResponseModelConfig
	Prompt       model.TravelPromptConfig
	Conversation model.ConversationConfig

	// Outbound providers
	Flights model.FlightProviderConfig
	Search  model.SearchBackendConfig
}

func main() {
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(os.Getenv("APP_ENV")),
	})

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()
	logx.Info().Msg("Connected to Redis")

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	chatModels, err := orchestrator.NewChatModels(ctx, orchestrator.ChatModelConfig{
		APIKey:       envCfg.APIKey,
		BaseURL:      envCfg.BaseURL,
		IntentConfig: &envCfg.Intent,
		RespConfig:   &envCfg.Response,
	})
	if err != nil {
		log.Fatalf("Failed to create chat models: %v", err)
	}

	conversationRepo := repo.NewRedisConversationRepository(rdb, ttl)

	agent := orchestrator.New(orchestrator.Config{
		ResponseModel: chatModels.Response,
		Classifier:    intent.NewClassifier(chatModels.Intent),
		Search:        search.NewAdapter(search.NewHTTPBackend(envCfg.Search)),
		Flights: flights.NewService(
			airports.NewResolver(chatModels.Intent),
			flights.NewClient(envCfg.Flights),
		),
		Messages: conversations.NewMessagesManager(conversationRepo, envCfg.Conversation),
		Prompt:   envCfg.Prompt,
		MaxSteps: envCfg.Conversation.Tools.MaxSteps,
	})

	srv := server.New(envCfg.Server, server.NewChatHandler(agent, conversationRepo))

	logx.Info().
		Str("addr", envCfg.Server.Addr).
		Str("intent_model", chatModels.IntentModelName).
		Str("response_model", chatModels.ResponseModelName).
		Msg("Starting HTTP server")

	if err := srv.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
