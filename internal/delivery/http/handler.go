package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/Glx28/billigst-mat/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Version is reported by the health check
const Version = "1.0.0"

// Service is what the handlers need from the application
type Service interface {
	Groups() []domain.GroupConfig
	Run(ctx context.Context, opts usecase.RunOptions) (*domain.RunReport, error)
	History(ctx context.Context, groupName string, limit int) ([]domain.Observation, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service Service
	log     zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service Service, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "billigst-mat",
		"version": Version,
	})
}

// ListGroups returns the configured groups in matching order
func (h *Handler) ListGroups(c *gin.Context) {
	groups := h.service.Groups()
	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"count":  len(groups),
	})
}

// GetHistory returns the recorded best prices of one group
func (h *Handler) GetHistory(c *gin.Context) {
	name := c.Param("name")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	history, err := h.service.History(c.Request.Context(), name, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group":        name,
		"observations": history,
	})
}

// runRequest is the optional body of POST /runs
type runRequest struct {
	SkipNotify bool `json:"skip_notify"`
	DryRun     bool `json:"dry_run"`
}

// TriggerRun executes a pipeline run and returns its report
func (h *Handler) TriggerRun(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	report, err := h.service.Run(c.Request.Context(), usecase.RunOptions{
		SkipNotify: req.SkipNotify,
		DryRun:     req.DryRun,
	})
	// a partial report from an interrupted run is not served
	if err != nil && (report == nil || !errors.Is(err, domain.ErrNotifyFailure)) {
		h.writeError(c, err)
		return
	}

	body := gin.H{
		"started_at": report.StartedAt.Format(time.RFC3339),
		"results":    report.Results,
		"summary":    report.Summary,
		"triggered":  len(report.Triggered()),
	}
	if err != nil {
		// notification failed; the run itself completed
		body["error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSinkUnavailable):
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("history unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store unavailable"})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "run timed out"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
