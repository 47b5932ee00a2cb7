package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"prwarden/internal/ulid"
	"prwarden/internal/webhook"
)

// GiteaWebhook receives Gitea webhook deliveries. The payload is
// verified against the shared secret, queued, and the request returns
// immediately; the review itself runs in the background.
func (h *Handler) GiteaWebhook(c *gin.Context) {
	// Gitea names the event in the X-Gitea-Event header.
	eventType := c.GetHeader("X-Gitea-Event")
	deliveryID := c.GetHeader("X-Gitea-Delivery")
	if eventType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-Gitea-Event header"})
		return
	}
	if deliveryID == "" {
		// Hand-sent requests skip the delivery header; give the job an
		// id anyway so its log lines stay correlated.
		deliveryID = ulid.GenerateWithPrefix(ulid.PrefixJob)
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read webhook payload", "details": err.Error()})
		return
	}

	if h.webhookSecret != "" {
		if !validSignature(payload, c.GetHeader("X-Gitea-Signature"), h.webhookSecret) {
			h.logger.Warn("webhook signature mismatch", "delivery", deliveryID)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			return
		}
	}

	if err := h.webhookProc.Enqueue(c.Request.Context(), eventType, payload, deliveryID); err != nil {
		if errors.Is(err, webhook.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "review queue full, retry later"})
			return
		}
		h.logger.Error("enqueue webhook", "delivery", deliveryID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue webhook"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"event_type":  eventType,
		"delivery_id": deliveryID,
		"queued":      true,
	})
}

// validSignature checks the hex HMAC-SHA256 digest Gitea sends in
// X-Gitea-Signature.
func validSignature(payload []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
