package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/botmetrics/botmetrics/internal/domain"
)

// CreateDashboard inserts a dashboard definition, assigning its uid.
func (s *Store) CreateDashboard(ctx context.Context, dashboard *domain.Dashboard) error {
	if dashboard.Name == "" {
		return &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	if !dashboard.Provider.Valid() {
		return &domain.ValidationError{Field: "provider", Reason: "must be one of slack, kik, facebook, telegram"}
	}
	if dashboard.EventType == "" {
		return &domain.ValidationError{Field: "event_type", Reason: "is required"}
	}

	if dashboard.UID == "" {
		dashboard.UID = uuid.NewString()
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO dashboards (uid, bot_id, name, dashboard_type, provider, event_type, regex, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		dashboard.UID, dashboard.BotID, dashboard.Name, dashboard.DashboardType,
		string(dashboard.Provider), dashboard.EventType, dashboard.Regex, dashboard.Enabled,
	).Scan(&dashboard.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	return nil
}

const dashboardColumns = `uid, bot_id, name, dashboard_type, provider, event_type, regex, enabled, created_at`

// GetDashboard loads one dashboard by uid, scoped to a bot.
func (s *Store) GetDashboard(ctx context.Context, botID int64, uid string) (*domain.Dashboard, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE bot_id = $1 AND uid = $2`,
		botID, uid)

	dashboard, err := scanDashboard(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return dashboard, nil
}

// ListDashboards returns all dashboards of a bot, newest first.
func (s *Store) ListDashboards(ctx context.Context, botID int64) ([]*domain.Dashboard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE bot_id = $1 ORDER BY created_at DESC`,
		botID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	defer rows.Close()

	var dashboards []*domain.Dashboard
	for rows.Next() {
		dashboard, err := scanDashboard(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dashboard: %w", err)
		}
		dashboards = append(dashboards, dashboard)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dashboard rows: %w", err)
	}

	return dashboards, nil
}

func scanDashboard(scan func(...any) error) (*domain.Dashboard, error) {
	var dashboard domain.Dashboard
	var provider string

	err := scan(
		&dashboard.UID, &dashboard.BotID, &dashboard.Name, &dashboard.DashboardType,
		&provider, &dashboard.EventType, &dashboard.Regex, &dashboard.Enabled,
		&dashboard.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	dashboard.Provider = domain.Provider(provider)
	return &dashboard, nil
}
