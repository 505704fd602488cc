package core

import "errors"

// Submission error kinds. Every kind except unknown_server is recoverable
// by the agent with a fresh, correctly signed envelope.
const (
	KindMalformedPayload  = "malformed_payload"
	KindUnknownServer     = "unknown_server"
	KindUnknownKeyVersion = "unknown_key_version"
	KindSignatureInvalid  = "signature_invalid"
	KindStaleTimestamp    = "stale_timestamp"
	KindReplayDetected    = "replay_detected"
	KindRateLimited       = "rate_limited"
)

// SubmissionError is a rejection of a heartbeat submission with a
// machine-readable kind.
type SubmissionError struct {
	Kind    string
	Message string
}

func (e *SubmissionError) Error() string {
	return e.Kind + ": " + e.Message
}

var (
	ErrUnknownServer     = &SubmissionError{Kind: KindUnknownServer, Message: "no listing registered for this server id"}
	ErrUnknownKeyVersion = &SubmissionError{Kind: KindUnknownKeyVersion, Message: "no active verification key for this server and key version"}
	ErrSignatureInvalid  = &SubmissionError{Kind: KindSignatureInvalid, Message: "signature does not verify against the registered key"}
	ErrStaleTimestamp    = &SubmissionError{Kind: KindStaleTimestamp, Message: "agent timestamp is too far from receive time"}
	ErrReplayDetected    = &SubmissionError{Kind: KindReplayDetected, Message: "heartbeat id was already recorded for this server"}
)

// AsSubmissionError unwraps a SubmissionError if err carries one.
func AsSubmissionError(err error) (*SubmissionError, bool) {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Pagination errors returned by the directory reader.
var (
	ErrPageSizeExceeded = errors.New("page size exceeds the maximum")
	ErrInvalidPageSize  = errors.New("page size must be a positive integer")
	ErrCursorMismatch   = errors.New("cursor was issued for a different sort key or direction")
	ErrUnknownSortKey   = errors.New("unknown sort key")
	ErrMalformedCursor  = errors.New("malformed cursor")
	ErrInvalidDirection = errors.New("invalid sort direction")
)

// IsQueryRejection reports whether err is a directory query validation
// failure, as opposed to a read failure.
func IsQueryRejection(err error) bool {
	return errors.Is(err, ErrPageSizeExceeded) ||
		errors.Is(err, ErrInvalidPageSize) ||
		errors.Is(err, ErrCursorMismatch) ||
		errors.Is(err, ErrUnknownSortKey) ||
		errors.Is(err, ErrMalformedCursor) ||
		errors.Is(err, ErrInvalidDirection)
}
