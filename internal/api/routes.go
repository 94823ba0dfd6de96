package api

import (
	"github.com/gin-gonic/gin"
	"github.com/verdictlabs/verdict/internal/cache"
	"github.com/verdictlabs/verdict/internal/counsel"
	"github.com/verdictlabs/verdict/internal/database"
	"github.com/verdictlabs/verdict/pkg/logger"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, store *database.Store, cache cache.Cache, counselSvc *counsel.Service, logger *logger.Logger) {
	// Create handlers
	h := NewHandlers(store, cache, counselSvc, logger)

	api := router.Group("/api")
	{
		// Health check
		api.GET("/health", h.HealthCheck)

		// Case corpus endpoints
		api.GET("/cases", h.ListCases)
		api.GET("/cases/stats", h.CaseStats)

		// Counsel endpoints
		api.POST("/counsel/session", h.CreateCounselSession)
		api.POST("/counsel/ask", h.AskCounsel)
	}
}
