package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/service/whatsapp"
)

// SummaryReader is the slice of the consignment store the messaging
// endpoints read from.
type SummaryReader interface {
	Representatives() []models.Representative
	Representative(id string) (models.Representative, error)
	Summary(repID string) (models.MaletaSummary, error)
}

// MessagingHandler serves the WhatsApp webhook and the notification endpoints.
type MessagingHandler struct {
	svc    whatsapp.MessagingService
	state  SummaryReader
	logger *zap.Logger
}

// NewMessagingHandler constructs the handler.
func NewMessagingHandler(svc whatsapp.MessagingService, state SummaryReader, logger *zap.Logger) *MessagingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagingHandler{svc: svc, state: state, logger: logger}
}

// Verify answers Meta's subscription challenge.
func (h *MessagingHandler) Verify(c *gin.Context) {
	challenge, err := h.svc.VerifyWebhookToken(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive handles a webhook callback. Anything that parses is acknowledged,
// even when processing fails, otherwise Meta keeps redelivering it.
func (h *MessagingHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("webhook processing failed", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// Send pushes a free-form message to one phone number.
func (h *MessagingHandler) Send(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.svc.SendOutbound(c.Request.Context(), req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// NotifySummary sends one representative her current summary.
func (h *MessagingHandler) NotifySummary(c *gin.Context) {
	id := c.Param("id")
	rep, err := h.state.Representative(id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	sum, err := h.state.Summary(id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.SendSummary(c.Request.Context(), rep, sum); err != nil {
		h.logger.Warn("summary notification failed", zap.String("representative_id", id), zap.Error(err))
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type broadcastResult struct {
	Sent    []string `json:"sent"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// BroadcastSummaries sends every active representative with a phone her
// summary. Individual failures do not stop the batch.
func (h *MessagingHandler) BroadcastSummaries(c *gin.Context) {
	ctx := c.Request.Context()
	result := broadcastResult{Sent: []string{}, Skipped: []string{}, Failed: []string{}}

	for _, rep := range h.state.Representatives() {
		if !rep.Active || rep.Phone == "" {
			result.Skipped = append(result.Skipped, rep.ID)
			continue
		}
		sum, err := h.state.Summary(rep.ID)
		if err == nil {
			err = h.svc.SendSummary(ctx, rep, sum)
		}
		if errors.Is(err, whatsapp.ErrMessagingDisabled) {
			writeError(c, h.logger, err)
			return
		}
		if err != nil {
			h.logger.Warn("summary broadcast failed", zap.String("representative_id", rep.ID), zap.Error(err))
			result.Failed = append(result.Failed, rep.ID)
			continue
		}
		result.Sent = append(result.Sent, rep.ID)
	}

	h.logger.Info("summary broadcast finished",
		zap.Int("sent", len(result.Sent)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)))
	c.JSON(http.StatusOK, result)
}
