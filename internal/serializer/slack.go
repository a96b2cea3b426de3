package serializer

import (
	"strings"

	"github.com/botmetrics/botmetrics/internal/domain"
)

// normalizeSlack maps one Slack RTM/Events message. Direction comes
// from the bot_id field (set on messages the bot itself sent) and the
// im flag from the channel id prefix: D-channels are direct messages.
func normalizeSlack(payload Payload) (*domain.NormalizedEvent, *domain.RecipientInfo, error) {
	channel := digID(payload, "channel")
	fromBot := digString(payload, "bot_id") != "" || digString(payload, "subtype") == "bot_message"

	recip := &domain.RecipientInfo{
		SenderID:    digID(payload, "user"),
		RecipientID: channel,
	}
	if fromBot {
		recip.SenderID = digID(payload, "bot_id")
	}

	attrs := map[string]any{
		"channel": channel,
		"team":    digString(payload, "team"),
	}
	if subtype := digString(payload, "subtype"); subtype != "" {
		attrs["sub_type"] = subtype
	}
	if threadTS := digString(payload, "thread_ts"); threadTS != "" {
		attrs["thread_ts"] = threadTS
	}

	event := &domain.NormalizedEvent{
		EventType:       domain.EventTypeMessage,
		IsForBot:        !fromBot,
		IsFromBot:       fromBot,
		IsIM:            strings.HasPrefix(channel, "D"),
		Text:            digString(payload, "text"),
		Provider:        domain.ProviderSlack,
		CreatedAt:       decodedAt(payload["ts"]),
		EventAttributes: attrs,
	}
	return event, recip, nil
}
