package serializer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTimestamp_Milliseconds(t *testing.T) {
	decoded, ok := DecodeTimestamp("1458692752478")

	assert.True(t, ok)
	assert.Equal(t, time.UnixMilli(1458692752478).UTC(), decoded)
}

func TestDecodeTimestamp_Seconds(t *testing.T) {
	decoded, ok := DecodeTimestamp("1458692752")

	assert.True(t, ok)
	assert.Equal(t, time.Unix(1458692752, 0).UTC(), decoded)
}

func TestDecodeTimestamp_NumericInput(t *testing.T) {
	// JSON decoding hands numbers over as float64.
	decoded, ok := DecodeTimestamp(float64(1458692752478))

	assert.True(t, ok)
	assert.Equal(t, time.UnixMilli(1458692752478).UTC(), decoded)

	decoded, ok = DecodeTimestamp(int64(1458692752))
	assert.True(t, ok)
	assert.Equal(t, time.Unix(1458692752, 0).UTC(), decoded)
}

func TestDecodeTimestamp_FractionalSeconds(t *testing.T) {
	// Slack watermarks look like "1458692752.000005".
	decoded, ok := DecodeTimestamp("1458692752.000005")

	assert.True(t, ok)
	assert.Equal(t, time.Unix(1458692752, 0).UTC(), decoded)
}

func TestDecodeTimestamp_UnknownDigitCount(t *testing.T) {
	for _, raw := range []any{"", "123", "14586927524", "145869275247899", nil, "abcdefghij"} {
		_, ok := DecodeTimestamp(raw)
		assert.False(t, ok, "expected no decoded value for %v", raw)
	}
}
