package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/query"
	"github.com/botmetrics/botmetrics/internal/repository"
)

// UserRepository implements repository.UserRepository on ClickHouse.
// bot_users is a ReplacingMergeTree keyed by (bot_instance_id, uid):
// a save is a versioned insert and FINAL reads collapse to the newest
// version, which keeps the uid/instance pair unique.
type UserRepository struct {
	client *Client
	log    *zap.Logger
}

// NewUserRepository creates a ClickHouse user repository.
func NewUserRepository(client *Client, log *zap.Logger) *UserRepository {
	return &UserRepository{client: client, log: log}
}

// InitSchema creates the bot_users table.
func (r *UserRepository) InitSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS bot_users (
		id String,
		uid String,
		provider LowCardinality(String),
		bot_instance_id Int64,
		membership_type LowCardinality(String),
		bot_interaction_count UInt64,
		last_interacted_with_bot_at Nullable(DateTime64(3)),
		user_attributes Map(String, String),
		created_at DateTime64(3),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY (bot_instance_id, uid)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create bot_users table: %w", err)
	}

	r.log.Info("bot_users schema initialized")
	return nil
}

const userColumns = `id, uid, provider, bot_instance_id, membership_type,
	bot_interaction_count, last_interacted_with_bot_at, user_attributes, created_at, version`

// FindByUID resolves a user by external uid within one bot instance.
func (r *UserRepository) FindByUID(ctx context.Context, uid string, instanceID int64) (*domain.BotUser, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM bot_users FINAL
	WHERE bot_instance_id = ? AND uid = ?
	LIMIT 1`, userColumns)

	row := r.client.Conn().QueryRow(ctx, query, instanceID, uid)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bot user: %w", err)
	}
	return user, nil
}

// Save validates and upserts a user. The replacing engine collapses
// rows sharing (bot_instance_id, uid) to the highest version, so a
// re-save replaces the previous state.
func (r *UserRepository) Save(ctx context.Context, user *domain.BotUser) error {
	if err := user.Validate(); err != nil {
		return err
	}

	if user.Version == 0 {
		user.Version = uint64(time.Now().UnixNano())
	}

	query := `
	INSERT INTO bot_users (` + userColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := r.client.Conn().Exec(ctx, query,
		user.ID,
		user.UID,
		string(user.Provider),
		user.BotInstanceID,
		user.MembershipType,
		user.BotInteractionCount,
		user.LastInteractedWithBotAt,
		user.UserAttributes.ToMap(),
		user.CreatedAt,
		user.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save bot user: %w", err)
	}
	return nil
}

// Search runs a composed segmentation query: predicate chain over the
// users of the given instances, optionally LEFT JOINed against a
// per-user event aggregate (events_count, last_event_at).
func (r *UserRepository) Search(ctx context.Context, search repository.UserSearch) ([]repository.UserRow, error) {
	if len(search.InstanceIDs) == 0 {
		return nil, nil
	}

	compiled, err := query.Compile(search.Predicates)
	if err != nil {
		return nil, err
	}

	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString("SELECT ")
	sb.WriteString(userColumns)

	annotated := search.Annotation != nil
	if annotated {
		sb.WriteString(", coalesce(e.cnt, 0) AS events_count, e.c_at AS last_event_at")
	}

	sb.WriteString("\nFROM bot_users FINAL")

	if annotated {
		eventWhere, eventArgs, err := query.CompileAnnotation(search.Annotation)
		if err != nil {
			return nil, err
		}
		sb.WriteString(`
	LEFT JOIN (
		SELECT bot_user_id, count() AS cnt, max(created_at) AS c_at
		FROM events
		WHERE ` + eventWhere + `
		GROUP BY bot_user_id
	) AS e ON e.bot_user_id = bot_users.id`)
		args = append(args, eventArgs...)
	}

	sb.WriteString("\nWHERE bot_instance_id IN (?)")
	args = append(args, search.InstanceIDs)

	if compiled.Where != "" {
		sb.WriteString(" AND ")
		sb.WriteString(compiled.Where)
		args = append(args, compiled.Args...)
	}

	switch {
	case annotated:
		sb.WriteString("\nORDER BY last_event_at DESC NULLS LAST")
	case compiled.OrderBy != "":
		sb.WriteString("\nORDER BY ")
		sb.WriteString(compiled.OrderBy)
	default:
		sb.WriteString("\nORDER BY created_at DESC")
	}

	sb.WriteString("\nSETTINGS join_use_nulls = 1")

	rows, err := r.client.Conn().Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bot users: %w", err)
	}
	defer rows.Close()

	var results []repository.UserRow
	for rows.Next() {
		var (
			user       domain.BotUser
			provider   string
			attrs      map[string]string
			eventCount uint64
			lastEvent  *time.Time
		)

		dest := []any{
			&user.ID, &user.UID, &provider, &user.BotInstanceID, &user.MembershipType,
			&user.BotInteractionCount, &user.LastInteractedWithBotAt, &attrs,
			&user.CreatedAt, &user.Version,
		}
		if annotated {
			dest = append(dest, &eventCount, &lastEvent)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan bot user row: %w", err)
		}

		user.Provider = domain.Provider(provider)
		user.UserAttributes = domain.UserAttributesFromMap(attrs)
		results = append(results, repository.UserRow{
			User:        user,
			EventsCount: eventCount,
			LastEventAt: lastEvent,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bot user rows: %w", err)
	}

	return results, nil
}

func scanUser(row interface{ Scan(...any) error }) (*domain.BotUser, error) {
	var (
		user     domain.BotUser
		provider string
		attrs    map[string]string
	)

	err := row.Scan(
		&user.ID, &user.UID, &provider, &user.BotInstanceID, &user.MembershipType,
		&user.BotInteractionCount, &user.LastInteractedWithBotAt, &attrs,
		&user.CreatedAt, &user.Version,
	)
	if err != nil {
		return nil, err
	}

	user.Provider = domain.Provider(provider)
	user.UserAttributes = domain.UserAttributesFromMap(attrs)
	return &user, nil
}
