package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/config"
)

// Store is the relational system of record for bot configuration:
// bots, their provider instances, and dashboard definitions. The
// analytics tables (users, events) live in ClickHouse; this store only
// holds the small mutable config the query layer resolves against.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg *config.Postgres, log *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("Postgres connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Store{db: db, log: log}, nil
}

// InitSchema creates the config tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS bots (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		provider TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS bot_instances (
		id BIGSERIAL PRIMARY KEY,
		bot_id BIGINT NOT NULL REFERENCES bots(id),
		uid TEXT NOT NULL,
		token TEXT NOT NULL,
		provider TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS dashboards (
		uid TEXT PRIMARY KEY,
		bot_id BIGINT NOT NULL REFERENCES bots(id),
		name TEXT NOT NULL,
		dashboard_type TEXT NOT NULL,
		provider TEXT NOT NULL,
		event_type TEXT NOT NULL,
		regex TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create config tables: %w", err)
	}

	s.log.Info("Postgres schema initialized")
	return nil
}

// Ping checks the Postgres connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
