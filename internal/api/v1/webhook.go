package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/logger"
	"github.com/hyperbill/cashier/internal/webhook"
)

const (
	headerSignature = "X-Signature"
	headerTimestamp = "X-Timestamp"
)

type WebhookHandler struct {
	verifier  *webhook.Verifier
	processor *webhook.Processor
	log       *logger.Logger
}

func NewWebhookHandler(
	verifier *webhook.Verifier,
	processor *webhook.Processor,
	log *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:  verifier,
		processor: processor,
		log:       log,
	}
}

// @Summary Receive a gateway webhook
// @Description Verify and apply one gateway event delivery
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /webhooks/chip [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	// Verification runs over the raw bytes, before any JSON decoding.
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook body").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.verifier.Verify(body, c.GetHeader(headerSignature), c.GetHeader(headerTimestamp)); err != nil {
		// Signature failures are never logged with payload contents.
		h.log.Warnw("rejected webhook delivery", "error", err)
		c.Error(err)
		return
	}

	if err := h.processor.Process(c.Request.Context(), body); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
