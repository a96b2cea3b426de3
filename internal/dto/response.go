package dto

import (
	"time"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/repository"
)

// ErrorResponse represents an error payload.
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message" example:"detailed error message"`
}

// StatusResponse represents a simple acknowledgement payload.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// UserResponse is one bot user in a segmentation result.
type UserResponse struct {
	ID               string            `json:"id"`
	UID              string            `json:"uid"`
	BotInstanceID    int64             `json:"bot_instance_id"`
	MembershipType   string            `json:"membership_type"`
	Provider         string            `json:"provider"`
	Attributes       map[string]string `json:"user_attributes"`
	InteractionCount uint64            `json:"interaction_count"`
	LastInteractedAt *time.Time        `json:"last_interacted_with_bot_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	EventsCount      uint64            `json:"events_count,omitempty"`
	LastEventAt      *time.Time        `json:"last_event_at,omitempty"`
}

// SearchUsersResponse represents a segmentation result page.
type SearchUsersResponse struct {
	Users []UserResponse `json:"users"`
	Count int            `json:"count"`
}

// NewUserResponse maps a repository row onto the API shape.
func NewUserResponse(row repository.UserRow) UserResponse {
	return UserResponse{
		ID:               row.User.ID,
		UID:              row.User.UID,
		BotInstanceID:    row.User.BotInstanceID,
		MembershipType:   row.User.MembershipType,
		Provider:         string(row.User.Provider),
		Attributes:       row.User.UserAttributes.ToMap(),
		InteractionCount: row.User.BotInteractionCount,
		LastInteractedAt: row.User.LastInteractedWithBotAt,
		CreatedAt:        row.User.CreatedAt,
		EventsCount:      row.EventsCount,
		LastEventAt:      row.LastEventAt,
	}
}

// CohortResponse represents a retention breakdown for one bot.
type CohortResponse struct {
	GroupBy string `json:"group_by" example:"week"`
	Start   string `json:"start" example:"2016-04-18T00:00:00Z"`
	Counts  []int  `json:"counts"`
}

// DashboardResponse is one dashboard definition.
type DashboardResponse struct {
	UID           string    `json:"uid"`
	Name          string    `json:"name"`
	DashboardType string    `json:"dashboard_type"`
	Provider      string    `json:"provider"`
	EventType     string    `json:"event_type"`
	Regex         string    `json:"regex,omitempty"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewDashboardResponse maps a dashboard onto the API shape.
func NewDashboardResponse(d *domain.Dashboard) DashboardResponse {
	return DashboardResponse{
		UID:           d.UID,
		Name:          d.Name,
		DashboardType: d.DashboardType,
		Provider:      string(d.Provider),
		EventType:     d.EventType,
		Regex:         d.Regex,
		Enabled:       d.Enabled,
		CreatedAt:     d.CreatedAt,
	}
}

// BotResponse is one configured bot.
type BotResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// InstanceResponse is one bot instance.
type InstanceResponse struct {
	ID        int64     `json:"id"`
	BotID     int64     `json:"bot_id"`
	UID       string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
}
