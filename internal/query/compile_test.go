package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botmetrics/botmetrics/internal/domain"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, FieldNumber, KindOf("interaction_count"))
	assert.Equal(t, FieldDatetime, KindOf("interacted_at"))
	assert.Equal(t, FieldDatetime, KindOf("user_created_at"))

	// Everything else, known attribute or not, is a string field.
	assert.Equal(t, FieldString, KindOf("nickname"))
	assert.Equal(t, FieldString, KindOf("email"))
	assert.Equal(t, FieldString, KindOf("no_such_field"))
	assert.Equal(t, FieldString, KindOf(""))
}

func TestCompile_AttributePredicates(t *testing.T) {
	c, err := Compile([]Predicate{
		AttributeEquals{Field: "nickname", Value: "john"},
		AttributeContains{Field: "email", Value: "example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"user_attributes[?] = ? AND positionCaseInsensitive(user_attributes[?], ?) > 0",
		c.Where)
	assert.Equal(t, []any{"nickname", "john", "email", "example.com"}, c.Args)
	assert.Empty(t, c.OrderBy)
}

func TestCompile_InteractionCountPredicates(t *testing.T) {
	c, err := Compile([]Predicate{InteractionCountBetween{Min: 0, Max: 1}})
	require.NoError(t, err)

	assert.Equal(t, "bot_interaction_count BETWEEN ? AND ?", c.Where)
	assert.Equal(t, []any{int64(0), int64(1)}, c.Args)

	c, err = Compile([]Predicate{
		InteractionCountEquals{Count: 3},
		InteractionCountGreaterThan{Count: 1},
		InteractionCountLessThan{Count: 10},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"bot_interaction_count = ? AND bot_interaction_count > ? AND bot_interaction_count < ?",
		c.Where)
	assert.Equal(t, []any{int64(3), int64(1), int64(10)}, c.Args)
}

func TestCompile_InteractedAtOrdering(t *testing.T) {
	now := time.Now().UTC()

	c, err := Compile([]Predicate{InteractedAtBetween{Min: now.Add(-time.Hour), Max: now}})
	require.NoError(t, err)
	assert.Equal(t, "last_interacted_with_bot_at BETWEEN ? AND ?", c.Where)
	assert.Equal(t, "last_interacted_with_bot_at DESC NULLS LAST", c.OrderBy)

	c, err = Compile([]Predicate{InteractedAtAfter{T: now}})
	require.NoError(t, err)
	assert.Equal(t, "last_interacted_with_bot_at > ?", c.Where)
	assert.Equal(t, "last_interacted_with_bot_at DESC NULLS LAST", c.OrderBy)

	c, err = Compile([]Predicate{InteractedAtBefore{T: now}})
	require.NoError(t, err)
	assert.Equal(t, "last_interacted_with_bot_at < ?", c.Where)
	assert.Equal(t, "last_interacted_with_bot_at DESC NULLS LAST", c.OrderBy)
}

func TestCompile_SignedUpPredicates(t *testing.T) {
	now := time.Now().UTC()

	c, err := Compile([]Predicate{
		SignedUpBetween{Min: now.Add(-48 * time.Hour), Max: now},
		SignedUpAfter{T: now.Add(-time.Hour)},
		SignedUpBefore{T: now},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"created_at BETWEEN ? AND ? AND created_at > ? AND created_at < ?",
		c.Where)
	assert.Empty(t, c.OrderBy)
}

func TestCompile_DashboardPredicates(t *testing.T) {
	dash := &domain.Dashboard{
		UID:       "dash-1",
		Provider:  domain.ProviderFacebook,
		EventType: domain.EventTypeMessage,
		Regex:     "abc",
	}
	now := time.Now().UTC()

	c, err := Compile([]Predicate{DashboardBetween{Dashboard: dash, Min: now.Add(-time.Hour), Max: now}})
	require.NoError(t, err)

	assert.Equal(t,
		"id IN (SELECT bot_user_id FROM events WHERE provider = ? AND event_type = ? AND match(text, ?) AND created_at BETWEEN ? AND ?)",
		c.Where)
	assert.Equal(t, []any{"facebook", "message", "abc", now.Add(-time.Hour), now}, c.Args)

	// Without a regex the match() condition is omitted entirely.
	dash.Regex = ""
	c, err = Compile([]Predicate{DashboardAfter{Dashboard: dash, T: now}})
	require.NoError(t, err)
	assert.Equal(t,
		"id IN (SELECT bot_user_id FROM events WHERE provider = ? AND event_type = ? AND created_at > ?)",
		c.Where)

	c, err = Compile([]Predicate{DashboardBefore{Dashboard: dash, T: now}})
	require.NoError(t, err)
	assert.Contains(t, c.Where, "created_at < ?")
}

func TestCompile_DashboardPredicateRequiresDashboard(t *testing.T) {
	_, err := Compile([]Predicate{DashboardBetween{}})

	assert.Error(t, err)
}

func TestCompileAnnotation(t *testing.T) {
	where, args, err := CompileAnnotation(MessagesToBot{})
	require.NoError(t, err)
	assert.Equal(t, "event_type = ? AND is_for_bot = 1", where)
	assert.Equal(t, []any{"message"}, args)

	where, args, err = CompileAnnotation(MessagesFromBot{})
	require.NoError(t, err)
	assert.Equal(t, "event_type = ? AND is_from_bot = 1", where)

	where, args, err = CompileAnnotation(MessagingPostbacks{})
	require.NoError(t, err)
	assert.Equal(t, "event_type = ?", where)
	assert.Equal(t, []any{"messaging_postbacks"}, args)
}

func TestCompileAnnotation_MessageSubtype(t *testing.T) {
	where, args, err := CompileAnnotation(MessageSubtype{Provider: domain.ProviderFacebook, Subtype: "image"})
	require.NoError(t, err)
	assert.Equal(t,
		"event_type = ? AND JSONExtractString(event_attributes, 'attachments', 1, 'type') = ?",
		where)
	assert.Equal(t, []any{"message", "image"}, args)

	where, args, err = CompileAnnotation(MessageSubtype{Provider: domain.ProviderKik, Subtype: "picture"})
	require.NoError(t, err)
	assert.Equal(t,
		"event_type = ? AND JSONExtractString(event_attributes, 'sub_type') = ?",
		where)
	assert.Equal(t, []any{"message", "picture"}, args)

	_, _, err = CompileAnnotation(MessageSubtype{Provider: domain.ProviderTelegram, Subtype: "x"})
	assert.Error(t, err)
}
