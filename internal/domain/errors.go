package domain

import (
	"errors"
	"fmt"
)

// ErrNilPayload is returned by normalizers when the raw webhook payload
// is absent. Callers must drop or retry the delivery, never persist.
var ErrNilPayload = errors.New("supplied payload is nil")

// ErrInvalidTimezone rejects a user attribute update whose timezone is
// not a known IANA zone name. The whole update is aborted.
var ErrInvalidTimezone = errors.New("not a valid timezone provided")

// ErrNotFound signals a missing bot, instance, dashboard or user.
var ErrNotFound = errors.New("record not found")

// ErrUnknownEventShape is returned by a provider normalizer when a
// payload matches none of the shapes it models.
var ErrUnknownEventShape = errors.New("unrecognized event payload shape")

// ValidationError is a persistence-layer rejection of an entity that
// lacks required fields or violates an invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}
