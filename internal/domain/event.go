package domain

import "time"

// Canonical event type vocabulary produced by the normalizers.
const (
	EventTypeMessage            = "message"
	EventTypeMessageDeliveries  = "message_deliveries"
	EventTypeMessageReads       = "message_reads"
	EventTypeMessagingPostbacks = "messaging_postbacks"
	EventTypeMessagingOptins    = "messaging_optins"
	EventTypeMessagingReferrals = "messaging_referrals"
)

// NormalizedEvent is the canonical representation of one inbound
// interaction, immutable once created. CreatedAt is nil when the
// provider timestamp could not be decoded.
type NormalizedEvent struct {
	EventID         string         `ch:"event_id"`
	EventType       string         `ch:"event_type"`
	IsForBot        bool           `ch:"is_for_bot"`
	IsFromBot       bool           `ch:"is_from_bot"`
	IsIM            bool           `ch:"is_im"`
	Text            string         `ch:"text"`
	Provider        Provider       `ch:"provider"`
	CreatedAt       *time.Time     `ch:"created_at"`
	EventAttributes map[string]any `ch:"-"`

	// Resolved by the ingestion pipeline before persistence.
	BotInstanceID int64     `ch:"bot_instance_id"`
	BotUserID     string    `ch:"bot_user_id"`
	UserCreatedAt time.Time `ch:"user_created_at"`
}

// RecipientInfo is the transient sender/recipient pair extracted
// alongside a normalized event, used to resolve the owning bot user.
type RecipientInfo struct {
	SenderID    string
	RecipientID string
}

// UserID returns the external uid of the human participant: for an
// outbound (echo) event the bot is the sender, so the user is the
// recipient; otherwise the user is the sender.
func (r RecipientInfo) UserID(fromBot bool) string {
	if fromBot {
		return r.RecipientID
	}
	return r.SenderID
}
