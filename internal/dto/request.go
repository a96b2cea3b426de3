package dto

// UserAttributesPayload carries the recognized attribute update keys.
// Unrecognized keys sent by clients are ignored by binding, not
// rejected.
type UserAttributesPayload struct {
	Nickname  string `json:"nickname" example:"john"`
	Email     string `json:"email" example:"john@example.com"`
	FullName  string `json:"full_name" example:"John Doe"`
	FirstName string `json:"first_name" example:"John"`
	LastName  string `json:"last_name" example:"Doe"`
	Gender    string `json:"gender" example:"male"`
	Timezone  string `json:"timezone" example:"America/Los_Angeles"`
	Ref       string `json:"ref" example:"summer_campaign"`
}

// UpdateUserRequest represents a bot user attribute update request.
type UpdateUserRequest struct {
	User UserAttributesPayload `json:"user" binding:"required"`
}

// Query methods accepted by the segmentation API.
const (
	MethodEqualsTo    = "equals_to"
	MethodContains    = "contains"
	MethodLesserThan  = "lesser_than"
	MethodGreaterThan = "greater_than"
	MethodBetween     = "between"
)

// QueryPayload is one segmentation filter. Field selects what is
// filtered: interaction_count, interacted_at, user_created_at,
// "dashboard:<uid>", or any open user attribute name. Values travel
// as strings; datetimes accept RFC3339 or epoch seconds.
type QueryPayload struct {
	Field  string `json:"field" binding:"required" example:"nickname"`
	Method string `json:"method" binding:"required" example:"equals_to"`
	Value  string `json:"value" example:"john"`
	Min    string `json:"min" example:"0"`
	Max    string `json:"max" example:"10"`
}

// AnnotationPayload asks for per-user event aggregates on the result.
type AnnotationPayload struct {
	Type    string `json:"type" binding:"required" example:"messages_to_bot"`
	Subtype string `json:"subtype,omitempty" example:"image"`
}

// SearchUsersRequest represents a composed segmentation query.
type SearchUsersRequest struct {
	Queries    []QueryPayload     `json:"queries" binding:"dive"`
	Annotation *AnnotationPayload `json:"annotation,omitempty"`
}

// CreateDashboardRequest represents a dashboard creation request.
type CreateDashboardRequest struct {
	Name          string `json:"name" binding:"required" example:"Image messages"`
	DashboardType string `json:"dashboard_type" binding:"required" example:"custom"`
	Provider      string `json:"provider" binding:"required" example:"facebook"`
	EventType     string `json:"event_type" binding:"required" example:"message"`
	Regex         string `json:"regex" example:"order #\\d+"`
	Enabled       *bool  `json:"enabled"`
}

// CreateBotRequest represents a bot creation request.
type CreateBotRequest struct {
	Name     string `json:"name" binding:"required" example:"Support bot"`
	Provider string `json:"provider" binding:"required" example:"facebook"`
}

// CreateInstanceRequest represents a bot instance creation request.
type CreateInstanceRequest struct {
	UID   string `json:"uid" example:"T024BE7LD"`
	Token string `json:"token" binding:"required" example:"token-deadbeef"`
}
