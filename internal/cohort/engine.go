package cohort

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/repository"
)

// GroupWeek is the only supported cohort granularity. The parameter is
// kept so other granularities can be added without changing the API;
// anything else fails loudly rather than mis-binning.
const GroupWeek = "week"

// ErrUnsupportedGranularity rejects any cohort granularity other than
// GroupWeek. It is a caller fault, not an engine failure.
var ErrUnsupportedGranularity = errors.New("unsupported cohort granularity")

// InstanceSource resolves the bot instance ids a cohort runs over.
type InstanceSource interface {
	InstanceIDs(ctx context.Context, botID int64) ([]int64, error)
}

// Engine computes weekly cohort retention over the event store.
type Engine struct {
	events    repository.EventRepository
	instances InstanceSource
	log       *zap.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewEngine creates a cohort engine.
func NewEngine(events repository.EventRepository, instances InstanceSource, log *zap.Logger) *Engine {
	return &Engine{
		events:    events,
		instances: instances,
		log:       log,
		now:       time.Now,
	}
}

// ByCohort computes, for the cohort of users who signed up in the week
// of startTime, how many remained active in each subsequent week up to
// the end of the current week. A user is active in a week when they
// generated at least one bot-directed event inside it; a user absent
// from a week drops out of every later week, so counts never increase.
//
// The result always has one integer per elapsed week, all zeros for a
// bot with no instances or users.
func (e *Engine) ByCohort(ctx context.Context, botID int64, startTime time.Time, groupBy string) ([]int, error) {
	if groupBy != GroupWeek {
		return nil, fmt.Errorf("%w %q (only %q is supported)", ErrUnsupportedGranularity, groupBy, GroupWeek)
	}

	start := beginningOfWeek(startTime)
	end := endOfWeek(e.now())
	periods := periodCount(start, end)
	if periods == 0 {
		return []int{}, nil
	}

	instanceIDs, err := e.instances.InstanceIDs(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bot instances: %w", err)
	}

	counts := make([]int, periods)
	if len(instanceIDs) == 0 {
		return counts, nil
	}

	// One membership query per period, threading forward only the
	// user ids that survived the previous period.
	var survivors []string
	for i := 0; i < periods; i++ {
		if i > 0 && len(survivors) == 0 {
			break
		}

		periodStart, periodEnd := periodBounds(start, i)
		survivors, err = e.events.ActiveUserIDs(ctx, repository.CohortPeriod{
			InstanceIDs: instanceIDs,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			FirstPeriod: i == 0,
			UserIDs:     survivors,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to compute cohort period %d: %w", i+1, err)
		}

		counts[i] = len(survivors)
	}

	e.log.Debug("cohort computed",
		zap.Int64("bot_id", botID),
		zap.Time("start", start),
		zap.Int("periods", periods),
		zap.Int("initial_cohort", counts[0]))

	return counts, nil
}
