package query

import (
	"fmt"
	"strings"

	"github.com/botmetrics/botmetrics/internal/domain"
)

// Compiled is the parameterized SQL produced from a predicate chain:
// an AND-joined WHERE fragment, its bind arguments, and an optional
// ORDER BY clause contributed by datetime predicates.
type Compiled struct {
	Where   string
	Args    []any
	OrderBy string
}

const orderByInteractedAt = "last_interacted_with_bot_at DESC NULLS LAST"

// Compile turns a predicate chain into a parameterized filter over the
// bot_users table. The events subqueries used by dashboard predicates
// are parameterized as well, including the dashboard's own filter
// values.
func Compile(preds []Predicate) (Compiled, error) {
	var (
		where   []string
		args    []any
		orderBy string
	)

	for _, p := range preds {
		switch v := p.(type) {
		case AttributeEquals:
			where = append(where, "user_attributes[?] = ?")
			args = append(args, v.Field, v.Value)
		case AttributeContains:
			where = append(where, "positionCaseInsensitive(user_attributes[?], ?) > 0")
			args = append(args, v.Field, v.Value)
		case InteractionCountEquals:
			where = append(where, "bot_interaction_count = ?")
			args = append(args, v.Count)
		case InteractionCountLessThan:
			where = append(where, "bot_interaction_count < ?")
			args = append(args, v.Count)
		case InteractionCountGreaterThan:
			where = append(where, "bot_interaction_count > ?")
			args = append(args, v.Count)
		case InteractionCountBetween:
			where = append(where, "bot_interaction_count BETWEEN ? AND ?")
			args = append(args, v.Min, v.Max)
		case InteractedAtBetween:
			where = append(where, "last_interacted_with_bot_at BETWEEN ? AND ?")
			args = append(args, v.Min, v.Max)
			orderBy = orderByInteractedAt
		case InteractedAtAfter:
			where = append(where, "last_interacted_with_bot_at > ?")
			args = append(args, v.T)
			orderBy = orderByInteractedAt
		case InteractedAtBefore:
			where = append(where, "last_interacted_with_bot_at < ?")
			args = append(args, v.T)
			orderBy = orderByInteractedAt
		case SignedUpBetween:
			where = append(where, "created_at BETWEEN ? AND ?")
			args = append(args, v.Min, v.Max)
		case SignedUpAfter:
			where = append(where, "created_at > ?")
			args = append(args, v.T)
		case SignedUpBefore:
			where = append(where, "created_at < ?")
			args = append(args, v.T)
		case DashboardBetween:
			sub, subArgs, err := dashboardSubquery(v.Dashboard, "created_at BETWEEN ? AND ?", v.Min, v.Max)
			if err != nil {
				return Compiled{}, err
			}
			where = append(where, sub)
			args = append(args, subArgs...)
		case DashboardAfter:
			sub, subArgs, err := dashboardSubquery(v.Dashboard, "created_at > ?", v.T)
			if err != nil {
				return Compiled{}, err
			}
			where = append(where, sub)
			args = append(args, subArgs...)
		case DashboardBefore:
			sub, subArgs, err := dashboardSubquery(v.Dashboard, "created_at < ?", v.T)
			if err != nil {
				return Compiled{}, err
			}
			where = append(where, sub)
			args = append(args, subArgs...)
		default:
			return Compiled{}, fmt.Errorf("unknown predicate type %T", p)
		}
	}

	return Compiled{
		Where:   strings.Join(where, " AND "),
		Args:    args,
		OrderBy: orderBy,
	}, nil
}

// dashboardSubquery selects the user ids of events linked to the
// dashboard inside the given time bound. Linkage means the event
// matches the dashboard's filter: its provider and event type, plus an
// optional text regex for custom dashboards.
func dashboardSubquery(d *domain.Dashboard, timeCond string, timeArgs ...any) (string, []any, error) {
	if d == nil {
		return "", nil, fmt.Errorf("dashboard predicate requires a dashboard")
	}

	conds := []string{"provider = ?", "event_type = ?"}
	args := []any{string(d.Provider), d.EventType}

	if d.Regex != "" {
		conds = append(conds, "match(text, ?)")
		args = append(args, d.Regex)
	}

	conds = append(conds, timeCond)
	args = append(args, timeArgs...)

	sub := fmt.Sprintf("id IN (SELECT bot_user_id FROM events WHERE %s)", strings.Join(conds, " AND "))
	return sub, args, nil
}
