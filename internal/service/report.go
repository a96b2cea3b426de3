package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/cohort"
	"github.com/botmetrics/botmetrics/internal/dto"
)

// ReportService represents retention report service
type ReportService struct {
	engine *cohort.Engine
	log    *zap.Logger
}

// NewReportService creates a new retention report service
func NewReportService(engine *cohort.Engine, log *zap.Logger) *ReportService {
	return &ReportService{engine: engine, log: log}
}

// Cohort computes the weekly retention breakdown for a bot starting at
// the week of start. An empty groupBy defaults to weekly.
func (s *ReportService) Cohort(ctx context.Context, botID int64, start time.Time, groupBy string) (*dto.CohortResponse, error) {
	if groupBy == "" {
		groupBy = cohort.GroupWeek
	}

	counts, err := s.engine.ByCohort(ctx, botID, start, groupBy)
	if err != nil {
		return nil, err
	}

	return &dto.CohortResponse{
		GroupBy: groupBy,
		Start:   start.UTC().Format(time.RFC3339),
		Counts:  counts,
	}, nil
}
