package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/botmetrics/botmetrics/internal/domain"
)

// GetBot loads one bot by id.
func (s *Store) GetBot(ctx context.Context, id int64) (*domain.Bot, error) {
	var bot domain.Bot
	var provider string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, provider FROM bots WHERE id = $1`, id,
	).Scan(&bot.ID, &bot.Name, &provider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bot: %w", err)
	}

	bot.Provider = domain.Provider(provider)
	return &bot, nil
}

// CreateBot inserts a bot and returns it with its assigned id.
func (s *Store) CreateBot(ctx context.Context, bot *domain.Bot) error {
	if !bot.Provider.Valid() {
		return &domain.ValidationError{Field: "provider", Reason: "must be one of slack, kik, facebook, telegram"}
	}
	if bot.Name == "" {
		return &domain.ValidationError{Field: "name", Reason: "is required"}
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO bots (name, provider) VALUES ($1, $2) RETURNING id`,
		bot.Name, string(bot.Provider),
	).Scan(&bot.ID)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	return nil
}

// CreateInstance inserts a bot instance and returns its assigned id.
func (s *Store) CreateInstance(ctx context.Context, instance *domain.BotInstance) error {
	if instance.Token == "" {
		return &domain.ValidationError{Field: "token", Reason: "is required"}
	}
	if !instance.Provider.Valid() {
		return &domain.ValidationError{Field: "provider", Reason: "must be one of slack, kik, facebook, telegram"}
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO bot_instances (bot_id, uid, token, provider) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		instance.BotID, instance.UID, instance.Token, string(instance.Provider),
	).Scan(&instance.ID, &instance.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bot instance: %w", err)
	}
	return nil
}

// GetInstance loads one bot instance by id.
func (s *Store) GetInstance(ctx context.Context, id int64) (*domain.BotInstance, error) {
	var instance domain.BotInstance
	var provider string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, bot_id, uid, token, provider, created_at FROM bot_instances WHERE id = $1`, id,
	).Scan(&instance.ID, &instance.BotID, &instance.UID, &instance.Token, &provider, &instance.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bot instance: %w", err)
	}

	instance.Provider = domain.Provider(provider)
	return &instance, nil
}

// InstanceIDs returns the ids of all instances belonging to a bot.
func (s *Store) InstanceIDs(ctx context.Context, botID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM bot_instances WHERE bot_id = $1 ORDER BY id`, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bot instances: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan instance id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instance rows: %w", err)
	}

	return ids, nil
}
