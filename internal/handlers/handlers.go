package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"prwarden/internal/logging"
)

// WebhookProcessor accepts webhook deliveries for background
// processing.
type WebhookProcessor interface {
	Enqueue(ctx context.Context, eventType string, payload []byte, deliveryID string) error
}

// Handler manages HTTP request handlers
type Handler struct {
	webhookProc   WebhookProcessor
	webhookSecret string
	logger        *logging.Logger
}

// NewHandler creates a new handler instance
func NewHandler(webhookProc WebhookProcessor, webhookSecret string, logger *logging.Logger) *Handler {
	return &Handler{
		webhookProc:   webhookProc,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
