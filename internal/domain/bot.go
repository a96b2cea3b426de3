package domain

import "time"

// Bot is a configured bot owned by a team. Instances connect it to
// concrete provider accounts.
type Bot struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Provider Provider `json:"provider"`
}

// BotInstance is one deployed connection of a bot to a provider
// account or workspace.
type BotInstance struct {
	ID        int64     `json:"id"`
	BotID     int64     `json:"bot_id"`
	UID       string    `json:"uid"`
	Token     string    `json:"-"`
	Provider  Provider  `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// Dashboard is a named grouping of events used for retention and
// engagement reporting. Custom dashboards filter events by provider,
// event type and an optional text regex; an event is linked to the
// dashboard when it matches the filter.
type Dashboard struct {
	UID           string    `json:"uid"`
	BotID         int64     `json:"bot_id"`
	Name          string    `json:"name"`
	DashboardType string    `json:"dashboard_type"`
	Provider      Provider  `json:"provider"`
	EventType     string    `json:"event_type"`
	Regex         string    `json:"regex,omitempty"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
}
