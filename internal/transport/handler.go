package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/face-batch-inspector-go/internal/config"
	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/internal/export"
	"github.com/anime-shed/face-batch-inspector-go/internal/logger"
	"github.com/anime-shed/face-batch-inspector-go/internal/service"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// MetricsSource exposes event counters
type MetricsSource interface {
	GetMetrics() map[string]interface{}
}

type handler struct {
	svc     service.BatchService
	metrics MetricsSource
	timeout time.Duration
}

// NewHandler builds the HTTP API over the batch service. metrics may be nil.
func NewHandler(svc service.BatchService, metrics MetricsSource, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.Server.MaxRequestBodySize),
		errorHandler(),
	)

	h := &handler{svc: svc, metrics: metrics, timeout: cfg.Server.RequestTimeout.Duration}

	// Configure routes
	r.GET("/health", healthCheck)

	api := r.Group("/api/v1")
	api.POST("/runs", h.startRun)
	api.POST("/runs/settle", h.settle)
	api.POST("/results", h.submitResult)
	api.GET("/records", h.records)
	api.GET("/schema", h.schema)
	api.GET("/schema/:document", h.jsonSchema)
	api.GET("/summary", h.summary)
	api.GET("/export/:format", h.exportArtifact)
	api.POST("/export/:format/publish", h.publishArtifact)
	api.GET("/metrics", h.metricsSnapshot)

	return r
}

func (h *handler) startRun(c *gin.Context) {
	var req models.StartRunRequest
	// An empty body starts a run with the configured defaults
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, bindStatusCode(err), "invalid request format", err)
		return
	}

	resp, err := h.svc.StartRun(c.Request.Context(), req)
	if err != nil {
		respondError(c, determineStatusCode(err), "failed to start run", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) submitResult(c *gin.Context) {
	var sub models.ResultSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"ip": c.ClientIP(),
		}).Error("Invalid request format")
		respondError(c, bindStatusCode(err), "invalid request format", err)
		return
	}

	resp, err := h.svc.Submit(c.Request.Context(), sub)
	if err != nil {
		respondError(c, determineStatusCode(err), "result not accepted", err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *handler) settle(c *gin.Context) {
	resp, err := h.svc.Settle(c.Request.Context())
	if err != nil {
		respondError(c, determineStatusCode(err), "failed to settle batch", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) records(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"run_id":  h.svc.RunID(),
		"records": h.svc.Records(),
	})
}

func (h *handler) schema(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Schema())
}

func (h *handler) jsonSchema(c *gin.Context) {
	var (
		doc []byte
		err error
	)
	switch c.Param("document") {
	case "enriched":
		doc, err = export.EnrichedSchema()
	case "records":
		doc, err = export.RecordsSchema()
	default:
		respondError(c, http.StatusNotFound, "unknown schema document",
			apperrors.NewNotFoundError("schema not found", nil).WithDetails(c.Param("document")))
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to build schema", err)
		return
	}
	c.Data(http.StatusOK, "application/schema+json", doc)
}

func (h *handler) summary(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Summary())
}

func (h *handler) exportArtifact(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	format := models.ExportFormat(c.Param("format"))
	art, err := h.svc.Export(ctx, format)
	if err != nil {
		respondError(c, determineStatusCode(err), "export failed", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"format":             art.Format,
		"filename":           art.Filename,
		"bytes":              art.Size(),
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Info("Artifact download served")

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	c.Data(http.StatusOK, art.MIMEType, art.Content)
}

func (h *handler) publishArtifact(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp, err := h.svc.Publish(ctx, models.ExportFormat(c.Param("format")))
	if err != nil {
		respondError(c, determineStatusCode(err), "publish failed", err)
		return
	}

	status := http.StatusOK
	if len(resp.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}

func (h *handler) metricsSnapshot(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// bindStatusCode is 413 for an oversized body and 400 for anything else
func bindStatusCode(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request failed")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
