package main

import (
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"

	"voicedesk-platform/internal/httpapi"
	"voicedesk-platform/pkg/utils"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, db *sql.DB, h *httpapi.Handlers) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks, greeting playback and the portal read API.
	// NOTE: webhook endpoints should be protected by Twilio signature validation in production.
	h.Register(r)
}
