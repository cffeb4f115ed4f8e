package ledger

import "errors"

var (
	// ErrNotFound means the referenced trade does not exist.
	ErrNotFound = errors.New("trade not found")

	// ErrInvalidTransition means the requested status change is not
	// reachable from the trade's current status. Not retryable.
	ErrInvalidTransition = errors.New("invalid trade status transition")

	// ErrValidation means the trade request itself is malformed.
	ErrValidation = errors.New("invalid trade request")
)
