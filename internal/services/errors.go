package services

import "errors"

// Domain errors surfaced by the ticket and payment services. Handlers map
// these to HTTP responses; they are never conflated with generic validation
// failures so callers can render a precise message.
var (
	ErrEventNotFound       = errors.New("event: not found")
	ErrUserNotFound        = errors.New("user: not found")
	ErrTransactionNotFound = errors.New("transaction: not found")
	ErrCapacityExceeded    = errors.New("event: capacity reached")
	ErrAlreadyRegistered   = errors.New("ticket: already registered for this event")
	ErrPaymentRequired     = errors.New("event: paid event requires the payment flow")
	ErrNotOrganizer        = errors.New("event: requester is not the organizer")
	ErrValidation          = errors.New("request: invalid")
	ErrUnauthenticated     = errors.New("auth: invalid or expired credential")
	ErrPlatformUnavailable = errors.New("platform: unavailable")
)
