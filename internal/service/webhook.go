package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/metrics"
	"github.com/botmetrics/botmetrics/internal/queue"
)

// WebhookService represents webhook ingestion service
type WebhookService struct {
	publisher queue.WebhookPublisher
	store     ConfigStore
	log       *zap.Logger
}

// NewWebhookService creates a new webhook ingestion service
func NewWebhookService(publisher queue.WebhookPublisher, store ConfigStore, log *zap.Logger) *WebhookService {
	return &WebhookService{publisher: publisher, store: store, log: log}
}

// Enqueue validates a raw provider payload and forwards it onto the
// ingestion queue. The payload body is never parsed here; the consumer
// normalizes it off the hot path.
func (s *WebhookService) Enqueue(ctx context.Context, provider string, botInstanceID int64, payload []byte) error {
	if !domain.Provider(provider).Valid() {
		return &domain.ValidationError{Field: "provider", Reason: "must be one of slack, kik, facebook, telegram"}
	}
	if len(payload) == 0 {
		return &domain.ValidationError{Field: "payload", Reason: "is required"}
	}

	instance, err := s.store.GetInstance(ctx, botInstanceID)
	if err != nil {
		return err
	}
	if string(instance.Provider) != provider {
		return &domain.ValidationError{Field: "provider", Reason: "does not match bot instance"}
	}

	if err := s.publisher.PublishWebhook(ctx, provider, botInstanceID, payload); err != nil {
		return fmt.Errorf("failed to enqueue webhook: %w", err)
	}

	metrics.WebhooksEnqueued.WithLabelValues(provider).Inc()
	s.log.Debug("webhook enqueued",
		zap.String("provider", provider),
		zap.Int64("bot_instance_id", botInstanceID),
		zap.Int("bytes", len(payload)))

	return nil
}
