// Package router wires the agent's HTTP routes.
package router

import (
	"github.com/kart-io/logger"

	"github.com/kart-io/rag-agent/internal/agent/handler"
	"github.com/kart-io/rag-agent/pkg/infra/server"
)

// Register attaches all agent routes to the manager's HTTP server. The
// health endpoint is open; everything under /api requires an identity.
func Register(mgr *server.Manager, h *handler.Handler, auth *handler.Authenticator) error {
	httpServer := mgr.HTTPServer()
	if httpServer == nil {
		return nil
	}
	engine := httpServer.Engine()

	engine.GET("/health", h.Health)
	engine.GET("/metrics", h.Metrics)

	api := engine.Group("/api", auth.Middleware())
	{
		kb := api.Group("/knowledge-bases")
		{
			kb.POST("", h.CreateKnowledgeBase)
			kb.GET("", h.ListKnowledgeBases)
			kb.POST("/:id/documents", h.UploadDocument)
			kb.GET("/:id/documents", h.ListDocuments)
		}

		chat := api.Group("/chat")
		{
			chat.POST("/sessions", h.CreateSession)
			chat.POST("/query", h.SubmitQuery)
			chat.GET("/query/:id", h.GetQuery)
		}

		api.GET("/models", h.ListModels)
		api.GET("/users/me", h.Me)
		api.GET("/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
	return nil
}
