package postgres

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DriverType to explicitly type the kind of sql driver we are using
type DriverType string

const (
	PGX     DriverType = "PGX"
	SQLX    DriverType = "SQLX"
	Unknown DriverType = "Unknown"
)

// Env variables
const (
	DATABASE_NAME     = "DATABASE_NAME"
	DATABASE_HOSTNAME = "DATABASE_HOSTNAME"
	DATABASE_PORT     = "DATABASE_PORT"
	DATABASE_USER     = "DATABASE_USER"
	DATABASE_PASSWORD = "DATABASE_PASSWORD"
)

// ResolveDriverType resolves a DriverType from a provided string
func ResolveDriverType(str string) (DriverType, error) {
	switch strings.ToLower(str) {
	case "pgx", "pgxpool":
		return PGX, nil
	case "sqlx":
		return SQLX, nil
	default:
		return Unknown, fmt.Errorf("unrecognized driver type string: %s", str)
	}
}

// String satisfies flag.Value
func (d *DriverType) String() string {
	return string(*d)
}

// Set satisfies flag.Value
func (d *DriverType) Set(v string) error {
	resolved, err := ResolveDriverType(v)
	if err != nil {
		return err
	}
	*d = resolved
	return nil
}

// TestConfig specifies default parameters for connecting to a testing DB
var TestConfig = Config{
	Hostname:     "localhost",
	Port:         8077,
	DatabaseName: "harvest_testing",
	Username:     "hrvdbm",
	Password:     "password",
	Driver:       SQLX,
}

// Config holds params for a Postgres db
type Config struct {
	// conn string params
	Hostname     string
	Port         int
	DatabaseName string
	Username     string
	Password     string

	// conn settings
	MaxConns        int
	MaxIdle         int
	MinConns        int
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
	ConnTimeout     time.Duration
	LogStatements   bool

	// driver type
	Driver DriverType
}

// DbConnectionString constructs and returns the connection string from the config
func (c Config) DbConnectionString() string {
	if len(c.Username) > 0 && len(c.Password) > 0 {
		return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=disable",
			c.Username, c.Password, c.Hostname, c.Port, c.DatabaseName)
	}
	if len(c.Username) > 0 && len(c.Password) == 0 {
		return fmt.Sprintf("postgresql://%s@%s:%d/%s?sslmode=disable",
			c.Username, c.Hostname, c.Port, c.DatabaseName)
	}
	return fmt.Sprintf("postgresql://%s:%d/%s?sslmode=disable", c.Hostname, c.Port, c.DatabaseName)
}

func (c Config) WithEnv() (Config, error) {
	if val := os.Getenv(DATABASE_NAME); val != "" {
		c.DatabaseName = val
	}
	if val := os.Getenv(DATABASE_HOSTNAME); val != "" {
		c.Hostname = val
	}
	if val := os.Getenv(DATABASE_PORT); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return c, err
		}
		c.Port = port
	}
	if val := os.Getenv(DATABASE_USER); val != "" {
		c.Username = val
	}
	if val := os.Getenv(DATABASE_PASSWORD); val != "" {
		c.Password = val
	}
	return c, nil
}
