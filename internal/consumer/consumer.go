package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/config"
	"github.com/botmetrics/botmetrics/internal/queue"
	"github.com/botmetrics/botmetrics/internal/repository"
)

// Consumer orchestrates the webhook ingestion pipeline: receive raw
// messages, normalize them into canonical events, resolve each event's
// bot user, then batch-write to the analytics store.
type Consumer struct {
	receiver    *Receiver
	normalizer  *NormalizerStage
	resolver    *ResolverStage
	batchWriter *BatchWriter
}

// NewConsumer creates a new consumer with a pipeline architecture.
func NewConsumer(cfg *config.Config, queueConsumer queue.QueueConsumer, events repository.EventRepository, users repository.UserRepository, log *zap.Logger) *Consumer {
	receiver := NewReceiver(queueConsumer, ReceiverConfig{
		MaxMessages:     10,
		WaitTimeSeconds: 20,
		BufferSize:      100,
	}, log)

	normalizer := NewNormalizerStage(queueConsumer, NewJSONWebhookNormalizer(), log)
	resolver := NewResolverStage(users, log)

	batchWriter := NewBatchWriter(events, BatchWriterConfig{
		MaxBatchSize: cfg.Consumer.BatchSizeMax,
		FlushTimeout: time.Duration(cfg.Consumer.BatchTimeoutSec) * time.Second,
	}, log)

	return &Consumer{
		receiver:    receiver,
		normalizer:  normalizer,
		resolver:    resolver,
		batchWriter: batchWriter,
	}
}

// Start begins the consumer pipeline.
func (c *Consumer) Start(ctx context.Context) error {
	messageChan := make(chan types.Message, 100)
	envelopeChan := make(chan *Envelope, 100)
	resolvedChan := make(chan *Envelope, 100)

	var wg sync.WaitGroup
	wg.Add(4)

	// Stage 1: Receive raw webhook messages from SQS
	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, messageChan)
	}()

	// Stage 2: Normalize payloads into canonical events
	go func() {
		defer wg.Done()
		c.normalizer.Start(ctx, messageChan, envelopeChan)
	}()

	// Stage 3: Resolve bot users and ingestion side effects
	go func() {
		defer wg.Done()
		c.resolver.Start(ctx, envelopeChan, resolvedChan)
	}()

	// Stage 4: Batch and write to the repository
	go func() {
		defer wg.Done()
		c.batchWriter.Start(ctx, resolvedChan)
	}()

	wg.Wait()
	return nil
}
