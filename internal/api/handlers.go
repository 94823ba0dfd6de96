package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/verdictlabs/verdict/internal/cache"
	"github.com/verdictlabs/verdict/internal/counsel"
	"github.com/verdictlabs/verdict/internal/database"
	"github.com/verdictlabs/verdict/pkg/logger"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	store   *database.Store
	cache   cache.Cache
	counsel *counsel.Service
	logger  *logger.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(store *database.Store, cache cache.Cache, counselSvc *counsel.Service, logger *logger.Logger) *Handlers {
	return &Handlers{
		store:   store,
		cache:   cache,
		counsel: counselSvc,
		logger:  logger,
	}
}

// CreateCounselSession allocates a new counsel session
func (h *Handlers) CreateCounselSession(c *gin.Context) {
	sessionID := h.counsel.CreateSession()
	c.JSON(http.StatusCreated, gin.H{
		"session_id": sessionID,
	})
}

// AskCounsel submits a question to an existing counsel session
func (h *Handlers) AskCounsel(c *gin.Context) {
	var req struct {
		SessionID    string `json:"session_id" binding:"required"`
		CaseTitle    string `json:"case_title"`
		Facts        string `json:"facts"`
		Question     string `json:"question" binding:"required,min=3"`
		Jurisdiction string `json:"jurisdiction"`
		CaseType     string `json:"case_type"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	result, err := h.counsel.AskQuestion(
		c.Request.Context(),
		req.SessionID,
		req.CaseTitle,
		req.Facts,
		req.Question,
		req.Jurisdiction,
		req.CaseType,
	)
	if err != nil {
		status := counselErrorStatus(err)
		if status == http.StatusBadGateway {
			// Unclassified failures are logged in full but surfaced generically.
			h.logger.Error("Counsel request failed", "session_id", req.SessionID, "error", err)
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": result.SessionID,
		"answer":     result.Answer,
		"judges":     result.Judges,
		"citations":  result.Citations,
	})
}

// counselErrorStatus maps the counsel error kinds onto HTTP status classes.
func counselErrorStatus(err error) int {
	switch {
	case errors.Is(err, counsel.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, counsel.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// listPage is the cached form of one case-list page.
type listPage struct {
	Cases []database.Case
	Total int64
}

// ListCases returns one page of ingested cases, memoized per (page, limit)
// for a short TTL
func (h *Handlers) ListCases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	key := cache.ListKey(page, limit)
	if cached, found := h.cache.Get(key); found {
		if cachedPage, ok := cached.(listPage); ok {
			h.respondListPage(c, cachedPage, page, limit, true)
			return
		}
	}

	cases, total, err := h.store.List(offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to list cases",
		})
		return
	}

	result := listPage{Cases: cases, Total: total}
	h.cache.Set(key, result)

	h.respondListPage(c, result, page, limit, false)
}

func (h *Handlers) respondListPage(c *gin.Context, result listPage, page, limit int, fromCache bool) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      result.Cases,
		"fromCache": fromCache,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": result.Total,
		},
	})
}

// CaseStats returns corpus statistics, memoized for a short TTL
func (h *Handlers) CaseStats(c *gin.Context) {
	if cached, found := h.cache.Get(cache.StatsKey()); found {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"stats":     cached,
			"fromCache": true,
		})
		return
	}

	stats, err := h.store.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to compute statistics",
		})
		return
	}

	h.cache.Set(cache.StatsKey(), stats)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"fromCache": false,
	})
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": h.store.Ping(),
		"cache":    h.cache.Stats(),
		"time":     time.Now().Unix(),
	})
}
