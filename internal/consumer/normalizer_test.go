package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/queue"
)

// MockQueueConsumer is a mock implementation of queue.QueueConsumer
type MockQueueConsumer struct {
	mock.Mock
}

func (m *MockQueueConsumer) ReceiveMessages(ctx context.Context, input *awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awssqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockQueueConsumer) DeleteMessage(ctx context.Context, input *awssqs.DeleteMessageInput) (*awssqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awssqs.DeleteMessageOutput), args.Error(1)
}

func (m *MockQueueConsumer) QueueURL() string {
	args := m.Called()
	return args.String(0)
}

func webhookMessage(provider string, instanceID string, body string) types.Message {
	return types.Message{
		MessageId:     aws.String("msg-1"),
		ReceiptHandle: aws.String("rh-1"),
		Body:          aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			queue.AttrProvider:      {DataType: aws.String("String"), StringValue: aws.String(provider)},
			queue.AttrBotInstanceID: {DataType: aws.String("Number"), StringValue: aws.String(instanceID)},
		},
	}
}

func runNormalizer(t *testing.T, stage *NormalizerStage, msg types.Message) []*Envelope {
	t.Helper()

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	in <- msg
	close(in)

	done := make(chan struct{})
	go func() {
		stage.Start(context.Background(), in, out)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("normalizer stage did not finish")
	}

	var envelopes []*Envelope
	for env := range out {
		envelopes = append(envelopes, env)
	}
	return envelopes
}

func TestNormalizerStage_ValidSlackMessage(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)

	stage := NewNormalizerStage(mockConsumer, NewJSONWebhookNormalizer(), zap.NewNop())

	body := `{"type":"message","user":"U1234","channel":"D9999","text":"hi","ts":"1462064633.000009","event_ts":"1462064633.000009"}`
	envelopes := runNormalizer(t, stage, webhookMessage("slack", "7", body))

	assert.Len(t, envelopes, 1)
	event := envelopes[0].Event
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, int64(7), event.BotInstanceID)
	assert.Equal(t, domain.ProviderSlack, event.Provider)
	assert.Equal(t, domain.EventTypeMessage, event.EventType)
	assert.True(t, event.IsForBot)
	assert.Equal(t, "U1234", envelopes[0].Recipient.SenderID)
	mockConsumer.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestNormalizerStage_MalformedBodyIsDeleted(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)

	mockConsumer.On("QueueURL").Return("http://localhost:4566/queue/webhooks")
	mockConsumer.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(input *awssqs.DeleteMessageInput) bool {
		return aws.ToString(input.ReceiptHandle) == "rh-1"
	})).Return(&awssqs.DeleteMessageOutput{}, nil)

	stage := NewNormalizerStage(mockConsumer, NewJSONWebhookNormalizer(), zap.NewNop())

	envelopes := runNormalizer(t, stage, webhookMessage("slack", "7", `not json`))

	// A payload that failed to normalize once will fail forever, so the
	// message must not be redelivered.
	assert.Empty(t, envelopes)
	mockConsumer.AssertExpectations(t)
}

func TestNormalizerStage_InvalidInstanceAttributeIsDeleted(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)

	mockConsumer.On("QueueURL").Return("http://localhost:4566/queue/webhooks")
	mockConsumer.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(input *awssqs.DeleteMessageInput) bool {
		return aws.ToString(input.ReceiptHandle) == "rh-1"
	})).Return(&awssqs.DeleteMessageOutput{}, nil)

	stage := NewNormalizerStage(mockConsumer, NewJSONWebhookNormalizer(), zap.NewNop())

	// A valid body cannot save a message whose instance attribute never
	// parses; no envelope may reach the resolver with instance id zero.
	body := `{"type":"message","user":"U1234","channel":"D9999","text":"hi","ts":"1462064633.000009","event_ts":"1462064633.000009"}`
	envelopes := runNormalizer(t, stage, webhookMessage("slack", "not-a-number", body))

	assert.Empty(t, envelopes)
	mockConsumer.AssertExpectations(t)
}

func TestNormalizerStage_MissingInstanceAttributeIsDeleted(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)

	mockConsumer.On("QueueURL").Return("http://localhost:4566/queue/webhooks")
	mockConsumer.On("DeleteMessage", mock.Anything, mock.Anything).Return(&awssqs.DeleteMessageOutput{}, nil)

	stage := NewNormalizerStage(mockConsumer, NewJSONWebhookNormalizer(), zap.NewNop())

	msg := webhookMessage("slack", "7", `{"type":"message","user":"U1234","channel":"D9999","text":"hi","ts":"1462064633.000009"}`)
	delete(msg.MessageAttributes, queue.AttrBotInstanceID)
	envelopes := runNormalizer(t, stage, msg)

	assert.Empty(t, envelopes)
	mockConsumer.AssertExpectations(t)
}

func TestNormalizerStage_UnknownProviderIsDeleted(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)

	mockConsumer.On("QueueURL").Return("http://localhost:4566/queue/webhooks")
	mockConsumer.On("DeleteMessage", mock.Anything, mock.Anything).Return(&awssqs.DeleteMessageOutput{}, nil)

	stage := NewNormalizerStage(mockConsumer, NewJSONWebhookNormalizer(), zap.NewNop())

	envelopes := runNormalizer(t, stage, webhookMessage("msn", "7", `{"type":"message"}`))

	assert.Empty(t, envelopes)
	mockConsumer.AssertExpectations(t)
}

func TestNormalizerStage_AckDeletesMessage(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)

	mockConsumer.On("QueueURL").Return("http://localhost:4566/queue/webhooks")
	mockConsumer.On("DeleteMessage", mock.Anything, mock.Anything).Return(&awssqs.DeleteMessageOutput{}, nil)

	stage := NewNormalizerStage(mockConsumer, NewJSONWebhookNormalizer(), zap.NewNop())

	body := `{"type":"message","user":"U1234","channel":"C0001","text":"hi","ts":"1462064633.000009"}`
	envelopes := runNormalizer(t, stage, webhookMessage("slack", "7", body))

	assert.Len(t, envelopes, 1)
	assert.NoError(t, envelopes[0].Ack(context.Background()))
	mockConsumer.AssertCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}
