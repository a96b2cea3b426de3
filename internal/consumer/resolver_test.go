package consumer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByUID(ctx context.Context, uid string, instanceID int64) (*domain.BotUser, error) {
	args := m.Called(ctx, uid, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BotUser), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *domain.BotUser) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Search(ctx context.Context, search repository.UserSearch) ([]repository.UserRow, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.UserRow), args.Error(1)
}

func (m *MockUserRepository) InitSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func resolverEnvelope(event *domain.NormalizedEvent, recipient *domain.RecipientInfo, acked *atomic.Int32) *Envelope {
	ack := func(ctx context.Context) error {
		if acked != nil {
			acked.Add(1)
		}
		return nil
	}
	return NewEnvelope(event, recipient, ack, func(ctx context.Context) error { return nil })
}

func runResolver(t *testing.T, users repository.UserRepository, envelope *Envelope) []*Envelope {
	t.Helper()

	stage := NewResolverStage(users, zap.NewNop())

	in := make(chan *Envelope, 1)
	out := make(chan *Envelope, 1)
	in <- envelope
	close(in)

	done := make(chan struct{})
	go func() {
		stage.Start(context.Background(), in, out)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("resolver stage did not finish")
	}

	var resolved []*Envelope
	for env := range out {
		resolved = append(resolved, env)
	}
	return resolved
}

func TestResolverStage_CreatesUserOnFirstContact(t *testing.T) {
	mockUsers := new(MockUserRepository)

	eventTime := time.Date(2016, 4, 22, 21, 45, 52, 0, time.UTC)
	event := &domain.NormalizedEvent{
		EventType:     domain.EventTypeMessage,
		Provider:      domain.ProviderSlack,
		BotInstanceID: 7,
		IsForBot:      true,
		CreatedAt:     &eventTime,
	}

	mockUsers.On("FindByUID", mock.Anything, "U1234", int64(7)).Return(nil, domain.ErrNotFound)
	mockUsers.On("Save", mock.Anything, mock.MatchedBy(func(u *domain.BotUser) bool {
		return u.UID == "U1234" &&
			u.BotInstanceID == 7 &&
			u.MembershipType == "user" &&
			u.BotInteractionCount == 1 &&
			u.LastInteractedWithBotAt != nil &&
			u.LastInteractedWithBotAt.Equal(eventTime)
	})).Return(nil)

	resolved := runResolver(t, mockUsers, resolverEnvelope(event, &domain.RecipientInfo{SenderID: "U1234"}, nil))

	assert.Len(t, resolved, 1)
	assert.NotEmpty(t, resolved[0].Event.BotUserID)
	mockUsers.AssertExpectations(t)
}

func TestResolverStage_BumpsInteractionCountForExistingUser(t *testing.T) {
	mockUsers := new(MockUserRepository)

	existing := &domain.BotUser{
		ID:                  "u-1",
		UID:                 "U1234",
		Provider:            domain.ProviderSlack,
		BotInstanceID:       7,
		MembershipType:      "user",
		BotInteractionCount: 4,
		CreatedAt:           time.Date(2016, 4, 20, 0, 0, 0, 0, time.UTC),
	}

	event := &domain.NormalizedEvent{
		EventType:     domain.EventTypeMessage,
		Provider:      domain.ProviderSlack,
		BotInstanceID: 7,
		IsForBot:      true,
	}

	mockUsers.On("FindByUID", mock.Anything, "U1234", int64(7)).Return(existing, nil)
	mockUsers.On("Save", mock.Anything, mock.MatchedBy(func(u *domain.BotUser) bool {
		return u.ID == "u-1" && u.BotInteractionCount == 5
	})).Return(nil)

	resolved := runResolver(t, mockUsers, resolverEnvelope(event, &domain.RecipientInfo{SenderID: "U1234"}, nil))

	assert.Len(t, resolved, 1)
	assert.Equal(t, "u-1", resolved[0].Event.BotUserID)
	assert.Equal(t, existing.CreatedAt, resolved[0].Event.UserCreatedAt)
	mockUsers.AssertExpectations(t)
}

func TestResolverStage_FromBotEventResolvesRecipient(t *testing.T) {
	mockUsers := new(MockUserRepository)

	existing := &domain.BotUser{
		ID:                  "u-2",
		UID:                 "USER_ID",
		Provider:            domain.ProviderFacebook,
		BotInstanceID:       7,
		MembershipType:      "user",
		BotInteractionCount: 2,
		CreatedAt:           time.Date(2016, 4, 20, 0, 0, 0, 0, time.UTC),
	}

	event := &domain.NormalizedEvent{
		EventType:     domain.EventTypeMessage,
		Provider:      domain.ProviderFacebook,
		BotInstanceID: 7,
		IsFromBot:     true,
	}

	// Echoes resolve to the human on the receiving end, not the page.
	mockUsers.On("FindByUID", mock.Anything, "USER_ID", int64(7)).Return(existing, nil)
	mockUsers.On("Save", mock.Anything, mock.MatchedBy(func(u *domain.BotUser) bool {
		// outbound events never bump the interaction counter
		return u.ID == "u-2" && u.BotInteractionCount == 2 && u.LastInteractedWithBotAt == nil
	})).Return(nil)

	recipient := &domain.RecipientInfo{SenderID: "PAGE_ID", RecipientID: "USER_ID"}
	resolved := runResolver(t, mockUsers, resolverEnvelope(event, recipient, nil))

	assert.Len(t, resolved, 1)
	mockUsers.AssertExpectations(t)
}

func TestResolverStage_DropsAndAcksUnresolvableEvent(t *testing.T) {
	mockUsers := new(MockUserRepository)

	event := &domain.NormalizedEvent{
		EventType:     domain.EventTypeMessage,
		Provider:      domain.ProviderSlack,
		BotInstanceID: 7,
	}

	var acked atomic.Int32
	resolved := runResolver(t, mockUsers, resolverEnvelope(event, &domain.RecipientInfo{}, &acked))

	assert.Empty(t, resolved)
	assert.Equal(t, int32(1), acked.Load())
	mockUsers.AssertNotCalled(t, "FindByUID", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolverStage_LookupErrorDropsWithoutAck(t *testing.T) {
	mockUsers := new(MockUserRepository)

	event := &domain.NormalizedEvent{
		EventType:     domain.EventTypeMessage,
		Provider:      domain.ProviderSlack,
		BotInstanceID: 7,
	}

	mockUsers.On("FindByUID", mock.Anything, "U1234", int64(7)).Return(nil, errors.New("connection refused"))

	var acked atomic.Int32
	resolved := runResolver(t, mockUsers, resolverEnvelope(event, &domain.RecipientInfo{SenderID: "U1234"}, &acked))

	// The message stays on the queue for redelivery.
	assert.Empty(t, resolved)
	assert.Equal(t, int32(0), acked.Load())
	mockUsers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
