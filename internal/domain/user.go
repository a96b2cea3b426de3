package domain

import "time"

// Known user attribute keys accepted by the attribute update boundary.
const (
	AttrNickname  = "nickname"
	AttrEmail     = "email"
	AttrFullName  = "full_name"
	AttrFirstName = "first_name"
	AttrLastName  = "last_name"
	AttrGender    = "gender"
	AttrTimezone  = "timezone"
	AttrRef       = "ref"
)

// UserAttributes is the open key-value attribute set carried by a bot user.
// The named fields cover the known accessor set; Extra keeps any
// forward-compatible keys a provider sends that we do not model yet.
type UserAttributes struct {
	Nickname  string            `json:"nickname,omitempty"`
	Email     string            `json:"email,omitempty"`
	FullName  string            `json:"full_name,omitempty"`
	FirstName string            `json:"first_name,omitempty"`
	LastName  string            `json:"last_name,omitempty"`
	Gender    string            `json:"gender,omitempty"`
	Timezone  string            `json:"timezone,omitempty"`
	Ref       string            `json:"ref,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// ToMap flattens the attributes into a single string map for storage.
func (a UserAttributes) ToMap() map[string]string {
	m := make(map[string]string, len(a.Extra)+8)
	for k, v := range a.Extra {
		m[k] = v
	}
	set := func(key, val string) {
		if val != "" {
			m[key] = val
		}
	}
	set(AttrNickname, a.Nickname)
	set(AttrEmail, a.Email)
	set(AttrFullName, a.FullName)
	set(AttrFirstName, a.FirstName)
	set(AttrLastName, a.LastName)
	set(AttrGender, a.Gender)
	set(AttrTimezone, a.Timezone)
	set(AttrRef, a.Ref)
	return m
}

// UserAttributesFromMap rebuilds the typed attribute set from a stored map.
func UserAttributesFromMap(m map[string]string) UserAttributes {
	var a UserAttributes
	for k, v := range m {
		switch k {
		case AttrNickname:
			a.Nickname = v
		case AttrEmail:
			a.Email = v
		case AttrFullName:
			a.FullName = v
		case AttrFirstName:
			a.FirstName = v
		case AttrLastName:
			a.LastName = v
		case AttrGender:
			a.Gender = v
		case AttrTimezone:
			a.Timezone = v
		case AttrRef:
			a.Ref = v
		default:
			if a.Extra == nil {
				a.Extra = make(map[string]string)
			}
			a.Extra[k] = v
		}
	}
	return a
}

// BotUser is one end user of a bot instance, identified by the provider
// supplied uid. (uid, bot_instance_id) is unique.
type BotUser struct {
	ID                      string         `ch:"id"`
	UID                     string         `ch:"uid"`
	Provider                Provider       `ch:"provider"`
	BotInstanceID           int64          `ch:"bot_instance_id"`
	MembershipType          string         `ch:"membership_type"`
	BotInteractionCount     uint64         `ch:"bot_interaction_count"`
	LastInteractedWithBotAt *time.Time     `ch:"last_interacted_with_bot_at"`
	UserAttributes          UserAttributes `ch:"-"`
	CreatedAt               time.Time      `ch:"created_at"`
	Version                 uint64         `ch:"version"`
}

// Validate enforces the presence and provider-inclusion invariants.
// Uniqueness of (uid, bot_instance_id) is enforced by the store.
func (u *BotUser) Validate() error {
	if u.UID == "" {
		return &ValidationError{Field: "uid", Reason: "is required"}
	}
	if u.BotInstanceID == 0 {
		return &ValidationError{Field: "bot_instance_id", Reason: "is required"}
	}
	if u.MembershipType == "" {
		return &ValidationError{Field: "membership_type", Reason: "is required"}
	}
	if !u.Provider.Valid() {
		return &ValidationError{Field: "provider", Reason: "must be one of slack, kik, facebook, telegram"}
	}
	return nil
}
