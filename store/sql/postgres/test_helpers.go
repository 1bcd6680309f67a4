package postgres

import (
	"context"

	"github.com/Lingaraj-Patil/farm-yield/store/sql"
)

// SetupSQLXDB is used to setup a sqlx db for tests
func SetupSQLXDB() (sql.Database, error) {
	conf, err := TestConfig.WithEnv()
	if err != nil {
		return nil, err
	}
	conf.MaxIdle = 0
	return NewSQLXDriver(context.Background(), conf)
}

// SetupPGXDB is used to setup a pgx db for tests
func SetupPGXDB(config Config) (sql.Database, error) {
	return NewPGXDriver(context.Background(), config)
}
