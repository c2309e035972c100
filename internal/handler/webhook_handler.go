package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/dto"
	"github.com/anyulbade/furniture-credit/internal/service"
)

const (
	SignatureHeader = "X-Signature"
	maxWebhookBody  = 1 << 20
)

type WebhookHandler struct {
	recon *service.ReconciliationService
}

func NewWebhookHandler(recon *service.ReconciliationService) *WebhookHandler {
	return &WebhookHandler{recon: recon}
}

// CreditProvider receives provider events. The body must be read raw: the
// signature covers the exact bytes sent.
func (h *WebhookHandler) CreditProvider(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable body"})
		return
	}

	out, err := h.recon.HandleWebhook(c.Request.Context(), raw, c.GetHeader(SignatureHeader))
	if err != nil {
		_ = c.Error(err)
		return
	}

	msg := "Webhook processed"
	switch {
	case out.Ignored:
		msg = "Event ignored"
	case !out.Applied:
		msg = "Webhook already processed"
	}
	c.JSON(http.StatusOK, dto.WebhookAck{Success: true, Message: msg})
}

// Test echoes a delivery so integrators can check connectivity. It applies
// nothing.
func (h *WebhookHandler) Test(c *gin.Context) {
	raw, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	log.Info().
		Str("method", c.Request.Method).
		Int("bytes", len(raw)).
		Bool("signed", c.GetHeader(SignatureHeader) != "").
		Msg("test webhook received")

	c.JSON(http.StatusOK, dto.WebhookAck{Success: true, Message: "Test webhook received successfully"})
}
