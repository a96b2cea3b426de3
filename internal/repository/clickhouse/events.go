package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/repository"
)

// EventRepository implements repository.EventRepository on ClickHouse.
// Events are append-only; user_created_at is denormalized onto every
// row so cohort queries never join back to bot_users.
type EventRepository struct {
	client *Client
	log    *zap.Logger
}

// NewEventRepository creates a ClickHouse event repository.
func NewEventRepository(client *Client, log *zap.Logger) *EventRepository {
	return &EventRepository{client: client, log: log}
}

// InitSchema creates the events table.
func (r *EventRepository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		event_id String,
		event_type LowCardinality(String),
		provider LowCardinality(String),
		bot_instance_id Int64,
		bot_user_id String,
		user_created_at DateTime64(3),
		is_for_bot UInt8,
		is_from_bot UInt8,
		is_im UInt8,
		text String,
		event_attributes String,
		created_at DateTime64(3)
	) ENGINE = MergeTree
	ORDER BY (bot_instance_id, created_at, bot_user_id)
	PARTITION BY toYYYYMM(created_at)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	r.log.Info("events schema initialized")
	return nil
}

// InsertBatch appends a batch of normalized events. An event whose
// provider timestamp could not be decoded is stored at insertion time.
func (r *EventRepository) InsertBatch(ctx context.Context, events []*domain.NormalizedEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO events")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	inserted := 0
	for _, event := range events {
		attrsJSON := "{}"
		if len(event.EventAttributes) > 0 {
			b, err := json.Marshal(event.EventAttributes)
			if err != nil {
				return 0, fmt.Errorf("failed to marshal event attributes: %w", err)
			}
			attrsJSON = string(b)
		}

		createdAt := time.Now().UTC()
		if event.CreatedAt != nil {
			createdAt = *event.CreatedAt
		}

		err := batch.Append(
			event.EventID,
			event.EventType,
			string(event.Provider),
			event.BotInstanceID,
			event.BotUserID,
			event.UserCreatedAt,
			boolToUInt8(event.IsForBot),
			boolToUInt8(event.IsFromBot),
			boolToUInt8(event.IsIM),
			event.Text,
			attrsJSON,
			createdAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append event to batch: %w", err)
		}
		inserted++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return inserted, nil
}

// ActiveUserIDs returns the distinct users with at least one
// bot-directed event inside the period. The first period of a cohort
// restricts users to those created inside the period; later periods
// restrict to the survivors handed in from the previous period.
func (r *EventRepository) ActiveUserIDs(ctx context.Context, period repository.CohortPeriod) ([]string, error) {
	if len(period.InstanceIDs) == 0 {
		return nil, nil
	}
	if !period.FirstPeriod && len(period.UserIDs) == 0 {
		return nil, nil
	}

	sql := `
	SELECT DISTINCT bot_user_id
	FROM events
	WHERE bot_instance_id IN (?)
	  AND is_for_bot = 1
	  AND created_at BETWEEN ? AND ?`
	args := []any{period.InstanceIDs, period.PeriodStart, period.PeriodEnd}

	if period.FirstPeriod {
		sql += `
	  AND user_created_at BETWEEN ? AND ?`
		args = append(args, period.PeriodStart, period.PeriodEnd)
	} else {
		sql += `
	  AND bot_user_id IN (?)`
		args = append(args, period.UserIDs)
	}

	rows, err := r.client.Conn().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cohort period: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan cohort user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cohort rows: %w", err)
	}

	return ids, nil
}

// Ping checks the ClickHouse connection.
func (r *EventRepository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the underlying connection.
func (r *EventRepository) Close() error {
	return r.client.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
