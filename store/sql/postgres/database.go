// Package postgres provides the pgx and sqlx drivers behind the sql store.
package postgres

import (
	"context"

	"github.com/Lingaraj-Patil/farm-yield/store/sql"
)

// NewDatabase opens the driver selected by config.Driver.
func NewDatabase(ctx context.Context, config Config) (sql.Database, error) {
	switch config.Driver {
	case PGX:
		return NewPGXDriver(ctx, config)
	case SQLX:
		return NewSQLXDriver(ctx, config)
	default:
		return NewSQLXDriver(ctx, config)
	}
}
