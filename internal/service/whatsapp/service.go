package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/config"
	"github.com/mamadbah2/maleta/internal/domain/models"
	commandsvc "github.com/mamadbah2/maleta/internal/service/commands"
	client "github.com/mamadbah2/maleta/pkg/clients/whatsapp"
)

// ErrMessagingDisabled indicates WhatsApp credentials are not configured.
var ErrMessagingDisabled = errors.New("whatsapp messaging is not configured")

const sendTimeout = 10 * time.Second

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
	SendSummary(ctx context.Context, rep models.Representative, summary models.MaletaSummary) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commandsvc.Dispatcher
	tracker    *deliveryTracker
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance. A nil client disables
// every outbound message.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, dispatcher commandsvc.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		tracker:    newDeliveryTracker(time.Hour),
		logger:     logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

const unknownSenderReply = "Olá! Este número não está cadastrado como vendedora. Fale com a administração."

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if s.cfg.VerifyToken == "" || verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				s.logger.Debug("message status", zap.String("message_id", status.ID), zap.String("status", status.Status))
			}

			for _, msg := range change.Value.Messages {
				if !s.tracker.firstDelivery(msg.ID) {
					s.logger.Debug("duplicate webhook delivery ignored", zap.String("message_id", msg.ID))
					continue
				}
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := extractMessageText(msg)
	if text == "" {
		s.logger.Debug("ignoring non-text message", zap.String("type", msg.Type), zap.String("message_id", msg.ID))
		return nil
	}

	cmd := models.ParseCommand(text)
	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	reply, err := s.dispatcher.HandleCommand(ctx, cmd, msg.From)
	if errors.Is(err, commandsvc.ErrUnknownSender) {
		reply, err = unknownSenderReply, nil
	}
	if err != nil {
		return fmt.Errorf("handle command %s: %w", cmd.Type, err)
	}

	if s.client != nil && msg.ID != "" {
		if err := s.client.MarkAsRead(ctx, msg.ID); err != nil {
			s.logger.Debug("mark as read failed", zap.Error(err))
		}
	}

	return s.send(ctx, msg.From, reply, false)
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return s.send(ctx, req.To, req.Message, req.PreviewURL)
}

// SendSummary sends a representative her current summary.
func (s *MetaWhatsAppService) SendSummary(ctx context.Context, rep models.Representative, summary models.MaletaSummary) error {
	if rep.Phone == "" {
		return fmt.Errorf("representative %s has no phone", rep.ID)
	}
	return s.send(ctx, rep.Phone, commandsvc.FormatSummary(summary), false)
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string, previewURL bool) error {
	if s.client == nil {
		return ErrMessagingDisabled
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         to,
		Body:       body,
		PreviewURL: previewURL,
	})
	return err
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}

	if msg.Interactive != nil {
		if msg.Interactive.ButtonReply != nil {
			return msg.Interactive.ButtonReply.ID
		}
		if msg.Interactive.ListReply != nil {
			return msg.Interactive.ListReply.ID
		}
	}

	return ""
}
