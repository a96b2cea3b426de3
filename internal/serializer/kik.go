package serializer

import (
	"github.com/botmetrics/botmetrics/internal/domain"
)

// normalizeKik maps one Kik webhook message. Kik sends a flat message
// object; every message type (text, picture, video, link, sticker,
// scan-data, ...) becomes a "message" event tagged with its sub_type in
// event_attributes so segmentation can filter on it.
func normalizeKik(payload Payload) (*domain.NormalizedEvent, *domain.RecipientInfo, error) {
	recip := &domain.RecipientInfo{
		SenderID:    digID(payload, "from"),
		RecipientID: digID(payload, "to"),
	}

	msgType := digString(payload, "type")

	attrs := map[string]any{
		"id":       digString(payload, "id"),
		"chat_id":  digString(payload, "chatId"),
		"sub_type": msgType,
	}
	if mention := digAny(payload, "mention"); mention != nil {
		attrs["mention"] = mention
	}

	var text string
	switch msgType {
	case "text":
		text = digString(payload, "body")
	case "link":
		text = digString(payload, "url")
	case "picture":
		text = digString(payload, "picUrl")
	case "video":
		text = digString(payload, "videoUrl")
	case "sticker":
		text = digString(payload, "stickerUrl")
	}

	event := &domain.NormalizedEvent{
		EventType:       domain.EventTypeMessage,
		IsForBot:        true,
		IsFromBot:       false,
		IsIM:            false,
		Text:            text,
		Provider:        domain.ProviderKik,
		CreatedAt:       decodedAt(payload["timestamp"]),
		EventAttributes: attrs,
	}
	return event, recip, nil
}
