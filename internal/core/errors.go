package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNotInRoom        = "not_in_room"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeRoomFull         = "room_full"
	ErrCodeInvalidPatch     = "invalid_patch"
	ErrCodeMediaUnavailable = "media_unavailable"
	ErrCodeInternal         = "internal_error"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeInvalidMessage   = "invalid_message"
)

// ErrHubClosed is returned by queries issued after Run has returned.
var ErrHubClosed = errors.New("hub closed")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
