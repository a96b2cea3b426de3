package query

// FieldKind classifies a caller-supplied query field. The set of
// numeric and datetime fields is closed: interaction_count is the only
// number field, interacted_at and user_created_at the only datetime
// fields. Every other field name falls through to string semantics
// (equality/substring over the open user attribute map). The lenient
// fallback mirrors long-standing behavior; callers relying on it get
// no validation of field names.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldNumber
	FieldDatetime
)

const (
	FieldInteractionCount = "interaction_count"
	FieldInteractedAt     = "interacted_at"
	FieldUserCreatedAt    = "user_created_at"
)

// KindOf returns the kind of a query field name.
func KindOf(field string) FieldKind {
	switch field {
	case FieldInteractionCount:
		return FieldNumber
	case FieldInteractedAt, FieldUserCreatedAt:
		return FieldDatetime
	default:
		return FieldString
	}
}

func (k FieldKind) String() string {
	switch k {
	case FieldNumber:
		return "number"
	case FieldDatetime:
		return "datetime"
	default:
		return "string"
	}
}
