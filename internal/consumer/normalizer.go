package consumer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/metrics"
	"github.com/botmetrics/botmetrics/internal/queue"
	"github.com/botmetrics/botmetrics/internal/serializer"
)

// JSONWebhookNormalizer decodes a raw webhook body and runs the
// provider normalizer over it.
type JSONWebhookNormalizer struct{}

// NewJSONWebhookNormalizer creates a new JSON webhook normalizer.
func NewJSONWebhookNormalizer() *JSONWebhookNormalizer {
	return &JSONWebhookNormalizer{}
}

// Normalize parses the body and maps it through the provider's
// normalizer. A body that is not a JSON object fails; nested payload
// problems do not.
func (n *JSONWebhookNormalizer) Normalize(provider domain.Provider, body []byte) (*domain.NormalizedEvent, *domain.RecipientInfo, error) {
	var payload serializer.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, err
	}
	return serializer.Normalize(provider, payload)
}

// NormalizerStage turns raw SQS webhook messages into event envelopes.
// Malformed messages are deleted from the queue rather than retried:
// a payload that failed to normalize once will fail forever.
type NormalizerStage struct {
	consumer   queue.QueueConsumer
	normalizer WebhookNormalizer
	log        *zap.Logger
}

// NewNormalizerStage creates a new normalizer stage.
func NewNormalizerStage(consumer queue.QueueConsumer, normalizer WebhookNormalizer, log *zap.Logger) *NormalizerStage {
	return &NormalizerStage{
		consumer:   consumer,
		normalizer: normalizer,
		log:        log,
	}
}

// Start begins normalizing messages and outputs envelopes.
func (s *NormalizerStage) Start(ctx context.Context, in <-chan types.Message, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Normalizer stage shutting down")
			return
		case msg, ok := <-in:
			if !ok {
				s.log.Info("Normalizer stage input channel closed")
				return
			}

			envelope := s.normalizeMessage(ctx, msg)
			if envelope == nil {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- envelope:
				// Envelope sent to next stage
			}
		}
	}
}

// normalizeMessage normalizes a single SQS message into an envelope.
func (s *NormalizerStage) normalizeMessage(ctx context.Context, msg types.Message) *Envelope {
	provider := domain.Provider(messageAttribute(msg, queue.AttrProvider))

	metrics.WebhooksReceived.WithLabelValues(string(provider)).Inc()

	instanceID, err := strconv.ParseInt(messageAttribute(msg, queue.AttrBotInstanceID), 10, 64)
	if err != nil {
		// An unparsable instance attribute will never become parsable.
		// Retrying would redeliver the message forever.
		metrics.NormalizeFailures.WithLabelValues(string(provider)).Inc()
		s.log.Warn("Message carries an invalid bot instance attribute",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.String("provider", string(provider)),
			zap.Error(err))
		if err := s.deleteMessage(ctx, msg); err != nil {
			s.log.Error("Failed to delete malformed message",
				zap.String("message_id", aws.ToString(msg.MessageId)),
				zap.Error(err))
		}
		return nil
	}

	event, recipient, err := s.normalizer.Normalize(provider, []byte(aws.ToString(msg.Body)))
	if err != nil {
		metrics.NormalizeFailures.WithLabelValues(string(provider)).Inc()
		s.log.Warn("Failed to normalize webhook",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.String("provider", string(provider)),
			zap.Error(err))
		if err := s.deleteMessage(ctx, msg); err != nil {
			s.log.Error("Failed to delete malformed message",
				zap.String("message_id", aws.ToString(msg.MessageId)),
				zap.Error(err))
		}
		return nil
	}

	event.EventID = uuid.NewString()
	event.BotInstanceID = instanceID

	ack := func(ctx context.Context) error {
		return s.deleteMessage(ctx, msg)
	}

	nack := func(ctx context.Context) error {
		// Message becomes visible again after its timeout.
		return nil
	}

	return NewEnvelope(event, recipient, ack, nack)
}

// deleteMessage deletes a message from SQS.
func (s *NormalizerStage) deleteMessage(ctx context.Context, msg types.Message) error {
	_, err := s.consumer.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.consumer.QueueURL()),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		s.log.Error("Failed to delete message",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.Error(err))
		return err
	}
	return nil
}

func messageAttribute(msg types.Message, name string) string {
	attr, ok := msg.MessageAttributes[name]
	if !ok {
		return ""
	}
	return aws.ToString(attr.StringValue)
}
