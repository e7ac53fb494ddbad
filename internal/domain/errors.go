package domain

import "errors"

// An absent, expired or already resolved proposal is not an error: it is
// reported as ledger.OutcomeExpired.
var (
	// ErrInvalidTransition: the request may not be applied by this user (self-response, self-query).
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrMalformedInput: the request is not a recognized action.
	ErrMalformedInput = errors.New("malformed input")
)
