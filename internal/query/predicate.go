package query

import (
	"time"

	"github.com/botmetrics/botmetrics/internal/domain"
)

// Predicate is one composable filter over the bot user collection.
// Predicates AND-compose when chained. Each variant compiles to a
// parameterized SQL fragment; field names and caller-supplied values
// are never interpolated into query text.
type Predicate interface {
	predicate()
}

// AttributeEquals matches users whose open attribute field equals
// value exactly.
type AttributeEquals struct {
	Field string
	Value string
}

// AttributeContains matches users whose open attribute field contains
// value, case-insensitively.
type AttributeContains struct {
	Field string
	Value string
}

// InteractionCountEquals matches bot_interaction_count = Count.
type InteractionCountEquals struct{ Count int64 }

// InteractionCountLessThan matches bot_interaction_count < Count.
type InteractionCountLessThan struct{ Count int64 }

// InteractionCountGreaterThan matches bot_interaction_count > Count.
type InteractionCountGreaterThan struct{ Count int64 }

// InteractionCountBetween matches Min <= bot_interaction_count <= Max.
type InteractionCountBetween struct{ Min, Max int64 }

// InteractedAtBetween matches users whose last bot interaction falls
// inside [Min, Max]. Results order by the interaction time descending,
// nulls last.
type InteractedAtBetween struct{ Min, Max time.Time }

// InteractedAtAfter matches users who interacted more recently than T.
type InteractedAtAfter struct{ T time.Time }

// InteractedAtBefore matches users whose last interaction predates T.
type InteractedAtBefore struct{ T time.Time }

// SignedUpBetween matches users created inside [Min, Max].
type SignedUpBetween struct{ Min, Max time.Time }

// SignedUpAfter matches users created after T.
type SignedUpAfter struct{ T time.Time }

// SignedUpBefore matches users created before T.
type SignedUpBefore struct{ T time.Time }

// DashboardBetween matches users with at least one event linked to the
// dashboard whose event time falls inside [Min, Max]. Bounds are
// inclusive.
type DashboardBetween struct {
	Dashboard *domain.Dashboard
	Min, Max  time.Time
}

// DashboardAfter matches users with a linked event newer than T.
type DashboardAfter struct {
	Dashboard *domain.Dashboard
	T         time.Time
}

// DashboardBefore matches users with a linked event older than T.
type DashboardBefore struct {
	Dashboard *domain.Dashboard
	T         time.Time
}

func (AttributeEquals) predicate()             {}
func (AttributeContains) predicate()           {}
func (InteractionCountEquals) predicate()      {}
func (InteractionCountLessThan) predicate()    {}
func (InteractionCountGreaterThan) predicate() {}
func (InteractionCountBetween) predicate()     {}
func (InteractedAtBetween) predicate()         {}
func (InteractedAtAfter) predicate()           {}
func (InteractedAtBefore) predicate()          {}
func (SignedUpBetween) predicate()             {}
func (SignedUpAfter) predicate()               {}
func (SignedUpBefore) predicate()              {}
func (DashboardBetween) predicate()            {}
func (DashboardAfter) predicate()              {}
func (DashboardBefore) predicate()             {}
