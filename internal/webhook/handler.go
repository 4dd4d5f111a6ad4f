package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdhubOrg/rebase-bot/internal/errors"
	"github.com/AdhubOrg/rebase-bot/internal/feed"
	"github.com/AdhubOrg/rebase-bot/internal/monitoring"
)

// maxPayloadBytes bounds webhook request bodies.
const maxPayloadBytes = 1 << 20

// Handler ingests GitHub webhook deliveries into the event buffer.
type Handler struct {
	buffer  *feed.Buffer
	logger  *monitoring.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a webhook ingestion handler
func NewHandler(buffer *feed.Buffer, logger *monitoring.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		buffer:  buffer,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts the webhook route on the router
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/webhook/github", h.handleGitHub)
}

// handleGitHub accepts one webhook delivery. Unknown event types are
// acknowledged and ignored; they are informational, not errors.
func (h *Handler) handleGitHub(c *gin.Context) {
	eventType := c.GetHeader("X-GitHub-Event")
	if eventType == "" {
		c.Error(errors.NewValidationError("missing X-GitHub-Event header"))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		c.Error(errors.NewValidationError("unreadable payload", err.Error()))
		return
	}

	ev, err := Map(eventType, payload)
	if err != nil {
		c.Error(err)
		return
	}

	if ev == nil {
		h.metrics.IncrementWebhookIgnored()
		h.logger.Info("Webhook event ignored", "event_type", eventType)
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored", "event": eventType})
		return
	}

	h.buffer.Append(*ev)
	h.metrics.IncrementWebhookDelivery()
	h.metrics.IncrementEventBuffered()
	h.logger.EventLogger(string(ev.Kind), ev.Repo, ev.Sender, "webhook")

	c.JSON(http.StatusAccepted, gin.H{"status": "buffered", "kind": string(ev.Kind)})
}
