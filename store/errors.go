package store

import "errors"

var (
	// ErrNotFound signals a fetch for an unknown id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateVote signals that (reportID, voterWallet) already exists in
	// the vote ledger. Enforced by the storage layer, not pre-checked, so
	// concurrent duplicate submissions race safely.
	ErrDuplicateVote = errors.New("duplicate vote")
	// ErrConflict signals a concurrent-write version mismatch; callers retry
	// the whole unit of work.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrInvalidInput signals a create with missing required fields.
	ErrInvalidInput = errors.New("invalid record")
)
