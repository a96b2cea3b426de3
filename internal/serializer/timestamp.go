package serializer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DecodeTimestamp converts a provider supplied timestamp into an
// absolute time. Providers send epoch values as strings or numbers, in
// seconds or milliseconds; the unit is determined by digit count: 13
// digits is epoch millis, 10 digits is epoch seconds. Any other digit
// count yields no value, which callers treat as "timestamp unknown".
func DecodeTimestamp(raw any) (time.Time, bool) {
	s := timestampString(raw)
	switch len(s) {
	case 13:
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	case 10:
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(sec, 0).UTC(), true
	}
	return time.Time{}, false
}

// timestampString renders the raw value as a plain digit string.
// Fractional watermarks like Slack's "1458692752.000005" keep only the
// integer part.
func timestampString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		if i := strings.IndexByte(v, '.'); i >= 0 {
			return v[:i]
		}
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case uint64:
		return strconv.FormatUint(v, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
