// Package server exposes the conversational agent over HTTP: a streaming chat
// endpoint plus conversation housekeeping.
package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wanderplan/server/internal/agent/model"
)

// Server wires the agent and the conversation repository behind a gin router.
type Server struct {
	engine *gin.Engine
	config model.ServerConfig
}

// New builds the router with CORS and all routes registered.
func New(config model.ServerConfig, h *ChatHandler) *Server {
	engine := gin.Default()

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     config.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	api := engine.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/greeting", h.Greeting)
		api.POST("/chat", h.Chat)
		api.DELETE("/conversations/:id", h.ResetConversation)
	}

	return &Server{engine: engine, config: config}
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run() error {
	return s.engine.Run(s.config.Addr)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
