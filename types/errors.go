package types

import "errors"

// Vote and validation error kinds surfaced synchronously to callers.
// Storage-level errors (not found, duplicate, conflict) live in the store
// package; the service translates them into these where appropriate.
var (
	// ErrInvalidInput covers missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyFinalized is returned for votes on verified/rejected reports.
	ErrAlreadyFinalized = errors.New("report already finalized")
	// ErrSelfVote is returned when a report owner votes on their own report.
	ErrSelfVote = errors.New("cannot vote on own report")
	// ErrAlreadyVoted is returned on a second vote from the same wallet.
	ErrAlreadyVoted = errors.New("already voted on this report")
)
