package postgres

import (
	"fmt"
)

const (
	DbConnectionFailedMsg = "db connection failed"
)

func ErrDBConnectionFailed(connectErr error) error {
	return fmt.Errorf("%s: %w", DbConnectionFailedMsg, connectErr)
}
