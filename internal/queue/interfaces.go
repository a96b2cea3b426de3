package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Message attribute names carried alongside every queued webhook.
const (
	AttrProvider      = "Provider"
	AttrBotInstanceID = "BotInstanceId"
)

// WebhookPublisher publishes raw provider payloads onto the ingestion
// queue. The payload body is forwarded verbatim; provider and instance
// travel as message attributes so the consumer can dispatch without
// re-parsing.
type WebhookPublisher interface {
	PublishWebhook(ctx context.Context, provider string, botInstanceID int64, payload []byte) error
}

// QueueConsumer defines the interface for consuming messages from a queue.
type QueueConsumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	QueueURL() string
}
