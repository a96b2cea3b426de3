package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/metrics"
	"github.com/botmetrics/botmetrics/internal/repository"
)

// ResolverStage attaches each normalized event to its bot user:
// looking the user up by the recipient pair, creating them on first
// contact, and bumping the interaction counter for bot-directed
// events. Events whose user cannot be determined are acked and
// dropped.
type ResolverStage struct {
	users repository.UserRepository
	log   *zap.Logger
}

// NewResolverStage creates a new user resolver stage.
func NewResolverStage(users repository.UserRepository, log *zap.Logger) *ResolverStage {
	return &ResolverStage{users: users, log: log}
}

// Start begins resolving envelopes and outputs those ready to persist.
func (s *ResolverStage) Start(ctx context.Context, in <-chan *Envelope, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Resolver stage shutting down")
			return
		case envelope, ok := <-in:
			if !ok {
				s.log.Info("Resolver stage input channel closed")
				return
			}

			if !s.resolve(ctx, envelope) {
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

// resolve attaches the owning user to the envelope's event, creating
// the user on first contact. Reports whether the envelope should
// continue down the pipeline.
func (s *ResolverStage) resolve(ctx context.Context, envelope *Envelope) bool {
	event := envelope.Event

	uid := envelope.Recipient.UserID(event.IsFromBot)
	if uid == "" {
		s.log.Warn("Dropping event without a resolvable user",
			zap.String("event_type", event.EventType),
			zap.String("provider", string(event.Provider)))
		if err := envelope.Ack(ctx); err != nil {
			s.log.Error("Failed to ack unresolvable event", zap.Error(err))
		}
		return false
	}

	user, err := s.users.FindByUID(ctx, uid, event.BotInstanceID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		user = &domain.BotUser{
			ID:             uuid.NewString(),
			UID:            uid,
			Provider:       event.Provider,
			BotInstanceID:  event.BotInstanceID,
			MembershipType: "user",
			CreatedAt:      time.Now().UTC(),
		}
		metrics.UsersCreated.Inc()
		s.log.Info("Creating bot user on first inbound event",
			zap.String("uid", uid),
			zap.Int64("bot_instance_id", event.BotInstanceID))
	case err != nil:
		s.log.Error("Failed to look up bot user",
			zap.String("uid", uid),
			zap.Error(err))
		if err := envelope.Nack(ctx); err != nil {
			s.log.Error("Failed to nack envelope", zap.Error(err))
		}
		return false
	}

	// The event's own timestamp may be undecodable; the interaction
	// watermark then defaults to processing time.
	interactedAt := time.Now().UTC()
	if event.CreatedAt != nil {
		interactedAt = *event.CreatedAt
	}

	if event.IsForBot {
		user.BotInteractionCount++
		user.LastInteractedWithBotAt = &interactedAt
	}
	user.Version = uint64(time.Now().UnixNano())

	if err := s.users.Save(ctx, user); err != nil {
		s.log.Error("Failed to save bot user",
			zap.String("uid", uid),
			zap.Error(err))
		if err := envelope.Nack(ctx); err != nil {
			s.log.Error("Failed to nack envelope", zap.Error(err))
		}
		return false
	}

	event.BotUserID = user.ID
	event.UserCreatedAt = user.CreatedAt
	return true
}
