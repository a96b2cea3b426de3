package serializer

import (
	"github.com/botmetrics/botmetrics/internal/domain"
)

// normalizeTelegram maps one Telegram Bot API update. Updates wrap the
// message object; edited messages are treated like messages. Telegram
// bots only ever receive user-directed traffic, so everything inbound
// is for the bot.
func normalizeTelegram(payload Payload) (*domain.NormalizedEvent, *domain.RecipientInfo, error) {
	msg := digMap(payload, "message")
	if msg == nil {
		msg = digMap(payload, "edited_message")
	}
	if msg == nil {
		// An update shape we do not model (inline queries etc).
		msg = map[string]any{}
	}

	recip := &domain.RecipientInfo{
		SenderID:    digID(msg, "from", "id"),
		RecipientID: digID(msg, "chat", "id"),
	}

	attrs := map[string]any{
		"message_id": digAny(msg, "message_id"),
		"chat_type":  digString(msg, "chat", "type"),
	}
	if entities := digSlice(msg, "entities"); entities != nil {
		attrs["entities"] = entities
	}
	if updateID := digAny(payload, "update_id"); updateID != nil {
		attrs["update_id"] = updateID
	}

	event := &domain.NormalizedEvent{
		EventType:       domain.EventTypeMessage,
		IsForBot:        true,
		IsFromBot:       false,
		IsIM:            digString(msg, "chat", "type") == "private",
		Text:            digString(msg, "text"),
		Provider:        domain.ProviderTelegram,
		CreatedAt:       decodedAt(digAny(msg, "date")),
		EventAttributes: attrs,
	}
	return event, recip, nil
}
