package service

import (
	"context"
	"time"

	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/dto"
	"github.com/botmetrics/botmetrics/internal/repository"
)

// ConfigStore is the relational store for bots, bot instances and
// dashboard definitions.
type ConfigStore interface {
	GetBot(ctx context.Context, id int64) (*domain.Bot, error)
	CreateBot(ctx context.Context, bot *domain.Bot) error
	CreateInstance(ctx context.Context, instance *domain.BotInstance) error
	GetInstance(ctx context.Context, id int64) (*domain.BotInstance, error)
	InstanceIDs(ctx context.Context, botID int64) ([]int64, error)
	CreateDashboard(ctx context.Context, dashboard *domain.Dashboard) error
	GetDashboard(ctx context.Context, botID int64, uid string) (*domain.Dashboard, error)
	ListDashboards(ctx context.Context, botID int64) ([]*domain.Dashboard, error)
}

// UserServicer defines the interface for bot user operations
type UserServicer interface {
	UpdateAttributes(ctx context.Context, botID int64, uid string, attrs dto.UserAttributesPayload) (*domain.BotUser, error)
	Search(ctx context.Context, botID int64, req *dto.SearchUsersRequest) ([]repository.UserRow, error)
}

// ReportServicer defines the interface for retention reporting
type ReportServicer interface {
	Cohort(ctx context.Context, botID int64, start time.Time, groupBy string) (*dto.CohortResponse, error)
}

// WebhookServicer defines the interface for webhook ingestion
type WebhookServicer interface {
	Enqueue(ctx context.Context, provider string, botInstanceID int64, payload []byte) error
}
