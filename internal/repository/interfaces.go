package repository

import (
	"context"
	"time"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/query"
)

// UserSearch is one composed segmentation query: a predicate chain
// over the users of the given bot instances, optionally annotated with
// per-user event counts.
type UserSearch struct {
	InstanceIDs []int64
	Predicates  []query.Predicate
	Annotation  query.Annotation
}

// UserRow is one search result: the user plus the events_count /
// last_event_at annotation when the search asked for one.
type UserRow struct {
	User        domain.BotUser
	EventsCount uint64
	LastEventAt *time.Time
}

// CohortPeriod selects the distinct users active in one calendar-week
// period. The first period of a cohort additionally constrains the
// user's own signup time to the period; later periods constrain
// membership to the survivors of the previous period.
type CohortPeriod struct {
	InstanceIDs []int64
	PeriodStart time.Time
	PeriodEnd   time.Time

	// FirstPeriod selects the founding cohort (users created inside
	// the period); otherwise UserIDs carries the previous period's
	// survivors.
	FirstPeriod bool
	UserIDs     []string
}

// EventRepository is the analytics store for normalized events.
type EventRepository interface {
	// InsertBatch appends a batch of normalized events.
	InsertBatch(ctx context.Context, events []*domain.NormalizedEvent) (int, error)

	// ActiveUserIDs returns the distinct bot user ids with at least
	// one bot-directed event inside the cohort period.
	ActiveUserIDs(ctx context.Context, period CohortPeriod) ([]string, error)

	// InitSchema creates the events table if it does not exist.
	InitSchema(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}

// UserRepository is the analytics store for bot users.
type UserRepository interface {
	// FindByUID resolves a user by external uid within an instance.
	// Returns domain.ErrNotFound when no such user exists.
	FindByUID(ctx context.Context, uid string, instanceID int64) (*domain.BotUser, error)

	// Save validates and upserts a user. The (uid, bot_instance_id)
	// pair stays unique; a save of an existing pair replaces it.
	Save(ctx context.Context, user *domain.BotUser) error

	// Search runs a composed segmentation query.
	Search(ctx context.Context, search UserSearch) ([]UserRow, error)

	// InitSchema creates the bot_users table if it does not exist.
	InitSchema(ctx context.Context) error
}
