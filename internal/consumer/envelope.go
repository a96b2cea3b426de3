package consumer

import (
	"context"

	"github.com/botmetrics/botmetrics/internal/domain"
)

// Envelope carries one normalized webhook event through the pipeline
// with its acknowledgment callbacks. Recipient is the transient
// sender/recipient pair the resolver stage uses to find the owning
// bot user.
type Envelope struct {
	Event     *domain.NormalizedEvent
	Recipient *domain.RecipientInfo
	ack       func(context.Context) error
	nack      func(context.Context) error
}

// NewEnvelope creates a new message envelope.
func NewEnvelope(event *domain.NormalizedEvent, recipient *domain.RecipientInfo, ack, nack func(context.Context) error) *Envelope {
	return &Envelope{
		Event:     event,
		Recipient: recipient,
		ack:       ack,
		nack:      nack,
	}
}

// Ack acknowledges successful processing.
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}

// Nack negatively acknowledges processing.
func (e *Envelope) Nack(ctx context.Context) error {
	if e.nack != nil {
		return e.nack(ctx)
	}
	return nil
}
