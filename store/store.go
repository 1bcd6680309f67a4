// Package store defines the durable-store contract consumed by the
// verification service. Implementations must provide per-report atomic
// updates (optimistic version check), a storage-level uniqueness constraint
// on votes, and idempotent transaction upserts keyed by signature.
package store

import (
	"context"
	"io"

	"github.com/Lingaraj-Patil/farm-yield/types"
)

// Store is the durable record of reports, votes, users and captured
// transactions.
type Store interface {
	ReportStore
	VoteLedger
	UserStore
	TransactionLog

	io.Closer
}

// ReportStore is durable CRUD for reports.
type ReportStore interface {
	// CreateReport persists a new report. Returns ErrInvalidInput when
	// required fields are missing.
	CreateReport(ctx context.Context, report *types.Report) error

	// GetReport fetches by internal id or external short code.
	// Returns ErrNotFound for unknown ids.
	GetReport(ctx context.Context, id string) (*types.Report, error)

	// ListReports returns a filtered page plus the total match count.
	ListReports(ctx context.Context, filter ReportFilter) ([]*types.Report, int, error)

	// UpdateReport writes the report guarded by the version it was loaded
	// at, bumping it on success. Returns ErrConflict when another writer
	// committed first.
	UpdateReport(ctx context.Context, report *types.Report) error

	// AggregatedRegions returns per-region per-crop report statistics.
	AggregatedRegions(ctx context.Context) ([]RegionStat, error)
}

// VoteLedger is the append-only deduplicated vote record.
type VoteLedger interface {
	// ApplyVote commits the ledger entry and the updated report as one
	// atomic unit: the vote insert happens first and ErrDuplicateVote is
	// reported without touching the report; the report write is guarded by
	// its loaded version and fails the whole unit with ErrConflict.
	ApplyVote(ctx context.Context, report *types.Report, vote *types.Vote) error

	// VotesFor lists the ledger entries for a report, oldest first.
	VotesFor(ctx context.Context, reportID string) ([]*types.Vote, error)
}

// UserStore is durable CRUD for per-wallet profiles.
type UserStore interface {
	// EnsureUser fetches the profile for wallet, creating it if absent.
	EnsureUser(ctx context.Context, wallet string) (*types.User, error)

	// GetUser returns ErrNotFound for wallets that never interacted.
	GetUser(ctx context.Context, wallet string) (*types.User, error)

	// MutateUser loads the profile for wallet (creating it if absent),
	// applies mutate, and persists the result as one atomic unit. Concurrent
	// mutations of the same profile serialize, so no counter increment is
	// ever lost. Returns the profile as persisted.
	MutateUser(ctx context.Context, wallet string, mutate func(*types.User) error) (*types.User, error)

	// TopUsers returns up to limit profiles ranked by the requested column,
	// best first.
	TopUsers(ctx context.Context, by LeaderboardSort, limit int) ([]*types.User, error)
}

// TransactionLog captures on-chain transactions, keyed by signature.
type TransactionLog interface {
	// RecordOrUpdateTransaction upserts by tx.Signature; webhook redelivery
	// and out-of-order confirmation both resolve to the latest fields.
	RecordOrUpdateTransaction(ctx context.Context, tx *types.Transaction) error

	// UserTransactions lists transactions sent to or from wallet, newest
	// first.
	UserTransactions(ctx context.Context, wallet string) ([]*types.Transaction, error)
}
