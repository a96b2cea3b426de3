package serializer

import (
	"github.com/botmetrics/botmetrics/internal/domain"
)

// normalizeFacebook dispatches one Messenger webhook messaging entry on
// its shape: a "message" key is an inbound message or a bot echo,
// "delivery"/"read" are receipt watermarks, "postback"/"optin"/
// "referral" are the structured interaction callbacks.
func normalizeFacebook(payload Payload) (*domain.NormalizedEvent, *domain.RecipientInfo, error) {
	recip := &domain.RecipientInfo{
		SenderID:    digID(payload, "sender", "id"),
		RecipientID: digID(payload, "recipient", "id"),
	}

	var event *domain.NormalizedEvent
	switch {
	case digMap(payload, "message") != nil:
		event = facebookMessage(payload)
	case digMap(payload, "delivery") != nil:
		event = facebookDelivery(payload)
	case digMap(payload, "read") != nil:
		event = facebookRead(payload)
	case digMap(payload, "postback") != nil:
		event = facebookPostback(payload)
	case digMap(payload, "optin") != nil:
		event = facebookOptin(payload)
	case digMap(payload, "referral") != nil:
		event = facebookReferral(payload)
	default:
		// Counting an unmodeled shape as a message would inflate the
		// interaction counters. Let the stage delete it instead.
		return nil, nil, domain.ErrUnknownEventShape
	}

	event.Provider = domain.ProviderFacebook
	return event, recip, nil
}

func facebookMessage(payload Payload) *domain.NormalizedEvent {
	isEcho := digBool(payload, "message", "is_echo")

	attrs := map[string]any{
		"delivered": false,
		"read":      false,
		"mid":       digString(payload, "message", "mid"),
		"seq":       digAny(payload, "message", "seq"),
	}
	if attachments := digSlice(payload, "message", "attachments"); attachments != nil {
		attrs["attachments"] = attachments
	}
	if quickReply := digString(payload, "message", "quick_reply", "payload"); quickReply != "" {
		attrs["quick_reply"] = quickReply
	}

	return &domain.NormalizedEvent{
		EventType:       domain.EventTypeMessage,
		IsForBot:        !isEcho,
		IsFromBot:       isEcho,
		IsIM:            false,
		Text:            digString(payload, "message", "text"),
		CreatedAt:       decodedAt(payload["timestamp"]),
		EventAttributes: attrs,
	}
}

func facebookDelivery(payload Payload) *domain.NormalizedEvent {
	attrs := map[string]any{"delivered": true}
	if mids := digSlice(payload, "delivery", "mids"); mids != nil {
		attrs["mids"] = mids
	}
	if seq := digAny(payload, "delivery", "seq"); seq != nil {
		attrs["seq"] = seq
	}

	return &domain.NormalizedEvent{
		EventType:       domain.EventTypeMessageDeliveries,
		CreatedAt:       decodedAt(digAny(payload, "delivery", "watermark")),
		EventAttributes: attrs,
	}
}

func facebookRead(payload Payload) *domain.NormalizedEvent {
	attrs := map[string]any{"read": true}
	if seq := digAny(payload, "read", "seq"); seq != nil {
		attrs["seq"] = seq
	}

	return &domain.NormalizedEvent{
		EventType:       domain.EventTypeMessageReads,
		CreatedAt:       decodedAt(digAny(payload, "read", "watermark")),
		EventAttributes: attrs,
	}
}

func facebookPostback(payload Payload) *domain.NormalizedEvent {
	attrs := map[string]any{
		"payload": digString(payload, "postback", "payload"),
	}
	if ref := digString(payload, "postback", "referral", "ref"); ref != "" {
		attrs["referral"] = ref
	}

	return &domain.NormalizedEvent{
		EventType:       domain.EventTypeMessagingPostbacks,
		IsForBot:        true,
		CreatedAt:       decodedAt(payload["timestamp"]),
		EventAttributes: attrs,
	}
}

func facebookOptin(payload Payload) *domain.NormalizedEvent {
	return &domain.NormalizedEvent{
		EventType: domain.EventTypeMessagingOptins,
		IsForBot:  true,
		CreatedAt: decodedAt(payload["timestamp"]),
		EventAttributes: map[string]any{
			"ref": digString(payload, "optin", "ref"),
		},
	}
}

func facebookReferral(payload Payload) *domain.NormalizedEvent {
	return &domain.NormalizedEvent{
		EventType: domain.EventTypeMessagingReferrals,
		IsForBot:  true,
		CreatedAt: decodedAt(payload["timestamp"]),
		EventAttributes: map[string]any{
			"ref":    digString(payload, "referral", "ref"),
			"source": digString(payload, "referral", "source"),
			"type":   digString(payload, "referral", "type"),
		},
	}
}
