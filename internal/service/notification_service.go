package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/config"
	"github.com/drona-gyawali/Supportix/internal/events"
)

// NotificationService forwards domain events to a webhook sink as
// {message, metadata} payloads.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	client     *http.Client
}

type webhookPayload struct {
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata"`
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handle("ticket created"))
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handle("ticket assigned"))
	n.dispatcher.Subscribe(events.EventTicketQueued, n.handle("ticket queued"))
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handle("ticket status changed"))
	n.dispatcher.Subscribe(events.EventTicketAutoClosed, n.handle("ticket auto-closed"))
	n.dispatcher.Subscribe(events.EventTicketsRebalanced, n.handle("tickets rebalanced"))
}

func (n *NotificationService) handle(message string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		n.logger.Info(string(event.Type),
			zap.String("ticket_id", event.TicketID),
			zap.Any("payload", event.Payload))
		n.sendWebhook(ctx, message, event)
		return nil
	}
}

func (n *NotificationService) sendWebhook(ctx context.Context, message string, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}

	body, err := json.Marshal(webhookPayload{
		Message: message,
		Metadata: map[string]any{
			"event_id":   event.ID,
			"event_type": string(event.Type),
			"ticket_id":  event.TicketID,
			"timestamp":  event.Timestamp,
			"payload":    event.Payload,
		},
	})
	if err != nil {
		n.logger.Warn("failed to encode webhook payload", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		n.logger.Warn("webhook rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("event_type", string(event.Type)))
		return
	}
	n.logger.Debug(fmt.Sprintf("webhook delivered: %s", event.Type))
}
