package errors

import (
	"errors"
)

var ErrNotFound = errors.New("not found")

// Conversation and moderation error kinds. All of them are handled per event
// and never stop the update loop.
var (
	ErrInvalidLink         = errors.New("invalid deep link")
	ErrUnknownMessage      = errors.New("unknown message reference")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrAlreadyAppealed     = errors.New("already appealed")
	ErrNotBlocked          = errors.New("not blocked")
	ErrBlocked             = errors.New("temporarily blocked")
	ErrPermanentlyBanned   = errors.New("permanently banned")
	ErrDeliveryUnreachable = errors.New("delivery unreachable")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
