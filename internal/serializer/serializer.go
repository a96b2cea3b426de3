package serializer

import (
	"fmt"
	"time"

	"github.com/botmetrics/botmetrics/internal/domain"
)

// Payload is one decoded webhook event as delivered by a provider.
type Payload map[string]any

// Normalize maps a raw provider payload into a canonical event plus
// the sender/recipient pair used to resolve the owning bot user. It
// performs no I/O; malformed nested fields resolve to zero values
// rather than failing, but a nil payload is always an error.
func Normalize(provider domain.Provider, payload Payload) (*domain.NormalizedEvent, *domain.RecipientInfo, error) {
	if payload == nil {
		return nil, nil, domain.ErrNilPayload
	}

	switch provider {
	case domain.ProviderFacebook:
		return normalizeFacebook(payload)
	case domain.ProviderKik:
		return normalizeKik(payload)
	case domain.ProviderSlack:
		return normalizeSlack(payload)
	case domain.ProviderTelegram:
		return normalizeTelegram(payload)
	}
	return nil, nil, fmt.Errorf("unsupported provider: %q", provider)
}

// decodedAt runs the timestamp decoder and returns nil when the value
// cannot be resolved, so callers can persist "timestamp unknown".
func decodedAt(raw any) *time.Time {
	t, ok := DecodeTimestamp(raw)
	if !ok {
		return nil
	}
	return &t
}

// Nested field accessors. Providers disagree wildly about payload
// shape; every accessor tolerates missing or mistyped fields.

func digMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		next, ok := m[k].(map[string]any)
		if !ok {
			return nil
		}
		m = next
	}
	return m
}

func digString(m map[string]any, keys ...string) string {
	if len(keys) > 1 {
		m = digMap(m, keys[:len(keys)-1]...)
	}
	if m == nil {
		return ""
	}
	s, _ := m[keys[len(keys)-1]].(string)
	return s
}

func digAny(m map[string]any, keys ...string) any {
	if len(keys) > 1 {
		m = digMap(m, keys[:len(keys)-1]...)
	}
	if m == nil {
		return nil
	}
	return m[keys[len(keys)-1]]
}

func digBool(m map[string]any, keys ...string) bool {
	b, _ := digAny(m, keys...).(bool)
	return b
}

func digSlice(m map[string]any, keys ...string) []any {
	s, _ := digAny(m, keys...).([]any)
	return s
}

// digID reads an identifier that may arrive as a string or a number
// (Telegram sends numeric ids, Facebook sends strings).
func digID(m map[string]any, keys ...string) string {
	switch v := digAny(m, keys...).(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
