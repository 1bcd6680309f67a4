package sql

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"

	"github.com/Lingaraj-Patil/farm-yield/utils/log"
)

// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

type insertError struct {
	table     string
	err       error
	stmt      string
	arguments interface{}
}

var _ error = insertError{}

func (dbe insertError) Error() string {
	return fmt.Sprintf("error inserting %s entry: %v\r\nstatement: %s\r\narguments: %+v",
		dbe.table, dbe.err, dbe.stmt, dbe.arguments)
}

func (dbe insertError) Unwrap() error {
	return dbe.err
}

func rollback(ctx context.Context, tx Tx) {
	if err := tx.Rollback(ctx); err != nil {
		log.Error("error during rollback", "error", err)
	}
}

func pgErrCode(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isUniqueViolation identifies a unique-constraint insert failure from
// either driver.
func isUniqueViolation(err error) bool {
	return pgErrCode(err) == pgUniqueViolation ||
		strings.Contains(err.Error(), "duplicate key value")
}

// isRetryable identifies serialization and deadlock failures worth retrying.
func isRetryable(err error) bool {
	switch pgErrCode(err) {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return strings.Contains(err.Error(), "deadlock detected")
}

// isNoRows identifies an empty single-row result from either driver.
func isNoRows(err error) bool {
	return errors.Is(err, stdsql.ErrNoRows) ||
		strings.Contains(err.Error(), "no rows in result set")
}
