// Package sql implements the store contract on top of a generic SQL
// database abstraction with interchangeable drivers (pgx, sqlx).
package sql

import (
	"context"

	"github.com/Lingaraj-Patil/farm-yield/store/metrics"
)

// Database interfaces to accommodate different concrete SQL libraries.
type Database interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) ScannableRow
	Exec(ctx context.Context, sql string, args ...interface{}) (Result, error)
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Begin(ctx context.Context) (Tx, error)
	Stats() metrics.DbStats
	Context() context.Context
	Close() error
}

// Tx interfaces to accommodate different concrete SQL transaction types.
type Tx interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) ScannableRow
	Exec(ctx context.Context, sql string, args ...interface{}) (Result, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ScannableRow interfaces to accommodate different concrete row types.
type ScannableRow interface {
	Scan(dest ...interface{}) error
}

// Result interfaces to accommodate different concrete result types.
type Result interface {
	RowsAffected() (int64, error)
}
