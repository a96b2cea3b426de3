package query

import (
	"fmt"

	"github.com/botmetrics/botmetrics/internal/domain"
)

// Annotation selects the event subset whose per-user COUNT and most
// recent timestamp get attached to each returned user as events_count
// and last_event_at. Annotated result sets order by last_event_at
// descending, nulls last.
type Annotation interface {
	annotation()
}

// MessagesToBot counts bot-directed message events.
type MessagesToBot struct{}

// MessagesFromBot counts message events the bot sent.
type MessagesFromBot struct{}

// MessagingPostbacks counts postback events.
type MessagingPostbacks struct{}

// MessageSubtype counts message events matching a provider-specific
// subtype: the first attachment type for Facebook-shaped payloads, the
// sub_type attribute for Kik-shaped payloads.
type MessageSubtype struct {
	Provider domain.Provider
	Subtype  string
}

func (MessagesToBot) annotation()      {}
func (MessagesFromBot) annotation()    {}
func (MessagingPostbacks) annotation() {}
func (MessageSubtype) annotation()     {}

// CompileAnnotation produces the parameterized events WHERE fragment
// for the annotation subquery.
func CompileAnnotation(a Annotation) (string, []any, error) {
	switch v := a.(type) {
	case MessagesToBot:
		return "event_type = ? AND is_for_bot = 1", []any{domain.EventTypeMessage}, nil
	case MessagesFromBot:
		return "event_type = ? AND is_from_bot = 1", []any{domain.EventTypeMessage}, nil
	case MessagingPostbacks:
		return "event_type = ?", []any{domain.EventTypeMessagingPostbacks}, nil
	case MessageSubtype:
		switch v.Provider {
		case domain.ProviderFacebook:
			return "event_type = ? AND JSONExtractString(event_attributes, 'attachments', 1, 'type') = ?",
				[]any{domain.EventTypeMessage, v.Subtype}, nil
		case domain.ProviderKik:
			return "event_type = ? AND JSONExtractString(event_attributes, 'sub_type') = ?",
				[]any{domain.EventTypeMessage, v.Subtype}, nil
		default:
			return "", nil, fmt.Errorf("message subtype annotation not supported for provider %q", v.Provider)
		}
	default:
		return "", nil, fmt.Errorf("unknown annotation type %T", a)
	}
}
