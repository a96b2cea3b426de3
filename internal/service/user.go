package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/dto"
	"github.com/botmetrics/botmetrics/internal/query"
	"github.com/botmetrics/botmetrics/internal/repository"
)

// dashboardFieldPrefix marks a segmentation field that filters by
// linked dashboard events instead of a user column.
const dashboardFieldPrefix = "dashboard:"

// Segmentation annotation type names accepted over the API.
const (
	AnnotationMessagesToBot      = "messages_to_bot"
	AnnotationMessagesFromBot    = "messages_from_bot"
	AnnotationMessagingPostbacks = "messaging_postbacks"
	AnnotationMessageSubtype     = "message_subtype"
)

// UserService represents bot user service
type UserService struct {
	users repository.UserRepository
	store ConfigStore
	log   *zap.Logger
}

// NewUserService creates a new bot user service
func NewUserService(users repository.UserRepository, store ConfigStore, log *zap.Logger) *UserService {
	return &UserService{users: users, store: store, log: log}
}

// UpdateAttributes merges the supplied attributes into the user
// identified by uid across the bot's instances. An invalid timezone
// rejects the whole update; no other attribute is applied.
func (s *UserService) UpdateAttributes(ctx context.Context, botID int64, uid string, attrs dto.UserAttributesPayload) (*domain.BotUser, error) {
	if attrs.Timezone != "" {
		if _, err := time.LoadLocation(attrs.Timezone); err != nil {
			return nil, domain.ErrInvalidTimezone
		}
	}

	user, err := s.findByUID(ctx, botID, uid)
	if err != nil {
		return nil, err
	}

	applyAttributes(&user.UserAttributes, attrs)

	user.Version = uint64(time.Now().UnixNano())
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save bot user: %w", err)
	}

	s.log.Debug("user attributes updated",
		zap.Int64("bot_id", botID),
		zap.String("uid", uid))

	return user, nil
}

// Search translates a segmentation request into a predicate chain and
// runs it over the users of the bot's instances.
func (s *UserService) Search(ctx context.Context, botID int64, req *dto.SearchUsersRequest) ([]repository.UserRow, error) {
	instanceIDs, err := s.store.InstanceIDs(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bot instances: %w", err)
	}
	if len(instanceIDs) == 0 {
		return []repository.UserRow{}, nil
	}

	predicates := make([]query.Predicate, 0, len(req.Queries))
	for _, q := range req.Queries {
		predicate, err := s.translateQuery(ctx, botID, q)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}

	var annotation query.Annotation
	if req.Annotation != nil {
		annotation, err = s.translateAnnotation(ctx, botID, req.Annotation)
		if err != nil {
			return nil, err
		}
	}

	return s.users.Search(ctx, repository.UserSearch{
		InstanceIDs: instanceIDs,
		Predicates:  predicates,
		Annotation:  annotation,
	})
}

// findByUID probes the bot's instances for the uid. The pair
// (uid, bot_instance_id) is unique, so the first hit wins.
func (s *UserService) findByUID(ctx context.Context, botID int64, uid string) (*domain.BotUser, error) {
	instanceIDs, err := s.store.InstanceIDs(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bot instances: %w", err)
	}

	for _, instanceID := range instanceIDs {
		user, err := s.users.FindByUID(ctx, uid, instanceID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return user, nil
	}
	return nil, domain.ErrNotFound
}

func applyAttributes(dst *domain.UserAttributes, src dto.UserAttributesPayload) {
	set := func(field *string, value string) {
		if value != "" {
			*field = value
		}
	}
	set(&dst.Nickname, src.Nickname)
	set(&dst.Email, src.Email)
	set(&dst.FullName, src.FullName)
	set(&dst.FirstName, src.FirstName)
	set(&dst.LastName, src.LastName)
	set(&dst.Gender, src.Gender)
	set(&dst.Timezone, src.Timezone)
	set(&dst.Ref, src.Ref)
}

// translateQuery maps one API filter onto a typed predicate. Field
// names outside the closed numeric/datetime set fall through to string
// attribute semantics, so unknown fields are never an error here.
func (s *UserService) translateQuery(ctx context.Context, botID int64, q dto.QueryPayload) (query.Predicate, error) {
	if uid, ok := strings.CutPrefix(q.Field, dashboardFieldPrefix); ok {
		return s.translateDashboardQuery(ctx, botID, uid, q)
	}

	switch query.KindOf(q.Field) {
	case query.FieldNumber:
		return translateNumberQuery(q)
	case query.FieldDatetime:
		return translateDatetimeQuery(q)
	default:
		return translateStringQuery(q)
	}
}

func (s *UserService) translateDashboardQuery(ctx context.Context, botID int64, uid string, q dto.QueryPayload) (query.Predicate, error) {
	dashboard, err := s.store.GetDashboard(ctx, botID, uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown dashboard %q", uid)
		}
		return nil, fmt.Errorf("failed to resolve dashboard %q: %w", uid, err)
	}

	switch q.Method {
	case dto.MethodBetween:
		min, max, err := parseDatetimeRange(q)
		if err != nil {
			return nil, err
		}
		return query.DashboardBetween{Dashboard: dashboard, Min: min, Max: max}, nil
	case dto.MethodLesserThan:
		// "lesser than" on a datetime means more recent than the
		// reference point, matching the other datetime fields.
		t, err := parseDatetime(q.Value)
		if err != nil {
			return nil, err
		}
		return query.DashboardAfter{Dashboard: dashboard, T: t}, nil
	case dto.MethodGreaterThan:
		t, err := parseDatetime(q.Value)
		if err != nil {
			return nil, err
		}
		return query.DashboardBefore{Dashboard: dashboard, T: t}, nil
	default:
		return nil, fmt.Errorf("method %q not supported for dashboard fields", q.Method)
	}
}

func translateNumberQuery(q dto.QueryPayload) (query.Predicate, error) {
	switch q.Method {
	case dto.MethodEqualsTo:
		count, err := parseCount(q.Value)
		if err != nil {
			return nil, err
		}
		return query.InteractionCountEquals{Count: count}, nil
	case dto.MethodLesserThan:
		count, err := parseCount(q.Value)
		if err != nil {
			return nil, err
		}
		return query.InteractionCountLessThan{Count: count}, nil
	case dto.MethodGreaterThan:
		count, err := parseCount(q.Value)
		if err != nil {
			return nil, err
		}
		return query.InteractionCountGreaterThan{Count: count}, nil
	case dto.MethodBetween:
		min, err := parseCount(q.Min)
		if err != nil {
			return nil, err
		}
		max, err := parseCount(q.Max)
		if err != nil {
			return nil, err
		}
		return query.InteractionCountBetween{Min: min, Max: max}, nil
	default:
		return nil, fmt.Errorf("method %q not supported for field %q", q.Method, q.Field)
	}
}

func translateDatetimeQuery(q dto.QueryPayload) (query.Predicate, error) {
	signedUp := q.Field == query.FieldUserCreatedAt

	switch q.Method {
	case dto.MethodBetween:
		min, max, err := parseDatetimeRange(q)
		if err != nil {
			return nil, err
		}
		if signedUp {
			return query.SignedUpBetween{Min: min, Max: max}, nil
		}
		return query.InteractedAtBetween{Min: min, Max: max}, nil
	case dto.MethodLesserThan:
		t, err := parseDatetime(q.Value)
		if err != nil {
			return nil, err
		}
		if signedUp {
			return query.SignedUpAfter{T: t}, nil
		}
		return query.InteractedAtAfter{T: t}, nil
	case dto.MethodGreaterThan:
		t, err := parseDatetime(q.Value)
		if err != nil {
			return nil, err
		}
		if signedUp {
			return query.SignedUpBefore{T: t}, nil
		}
		return query.InteractedAtBefore{T: t}, nil
	default:
		return nil, fmt.Errorf("method %q not supported for field %q", q.Method, q.Field)
	}
}

func translateStringQuery(q dto.QueryPayload) (query.Predicate, error) {
	switch q.Method {
	case dto.MethodEqualsTo:
		return query.AttributeEquals{Field: q.Field, Value: q.Value}, nil
	case dto.MethodContains:
		return query.AttributeContains{Field: q.Field, Value: q.Value}, nil
	default:
		return nil, fmt.Errorf("method %q not supported for field %q", q.Method, q.Field)
	}
}

func (s *UserService) translateAnnotation(ctx context.Context, botID int64, a *dto.AnnotationPayload) (query.Annotation, error) {
	switch a.Type {
	case AnnotationMessagesToBot:
		return query.MessagesToBot{}, nil
	case AnnotationMessagesFromBot:
		return query.MessagesFromBot{}, nil
	case AnnotationMessagingPostbacks:
		return query.MessagingPostbacks{}, nil
	case AnnotationMessageSubtype:
		if a.Subtype == "" {
			return nil, fmt.Errorf("message subtype annotation requires a subtype")
		}
		bot, err := s.store.GetBot(ctx, botID)
		if err != nil {
			return nil, fmt.Errorf("failed to load bot: %w", err)
		}
		return query.MessageSubtype{Provider: bot.Provider, Subtype: a.Subtype}, nil
	default:
		return nil, fmt.Errorf("unknown annotation type %q", a.Type)
	}
}

func parseCount(raw string) (int64, error) {
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q", raw)
	}
	return count, nil
}

// parseDatetime accepts RFC3339 or epoch seconds.
func parseDatetime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime value %q", raw)
	}
	return time.Unix(secs, 0).UTC(), nil
}

func parseDatetimeRange(q dto.QueryPayload) (time.Time, time.Time, error) {
	min, err := parseDatetime(q.Min)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	max, err := parseDatetime(q.Max)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return min, max, nil
}
