package main

import (
	"context"
	"flag"

	"github.com/Lingaraj-Patil/farm-yield"
	"github.com/Lingaraj-Patil/farm-yield/chain"
	"github.com/Lingaraj-Patil/farm-yield/store/sql/postgres"
)

var (
	Flags = *flag.NewFlagSet("harvest", flag.ExitOnError)

	config = harvest.Config{
		Context: context.Background(),
	}
	dbConfig    = postgres.Config{Driver: postgres.PGX}
	chainConfig chain.ClientConfig

	httpAddr     string
	jwtSecret    string
	rewardAmount string
)

func init() {
	Flags.StringVar(&httpAddr,
		"http.addr", ":8080",
		"Address the HTTP API listens on",
	)
	Flags.StringVar(&jwtSecret,
		"auth.secret", "",
		"HMAC secret for bearer-token verification",
	)

	Flags.IntVar(&config.Params.ApproveThreshold,
		"verify.approve", 3,
		"Approve votes required to verify a report",
	)
	Flags.IntVar(&config.Params.RejectThreshold,
		"verify.reject", 3,
		"Reject votes required to reject a report",
	)
	Flags.StringVar(&rewardAmount,
		"verify.reward", "0.01",
		"Reward paid on verification, in native token units",
	)
	Flags.UintVar(&config.NumWorkers,
		"verify.workers", 4,
		"Number of concurrent settlement workers",
	)
	Flags.StringVar(&config.MetadataBaseURL,
		"verify.metadata.baseurl", "http://localhost:8080",
		"Base URL used to build report metadata URIs",
	)

	Flags.StringVar(&chainConfig.Endpoint,
		"chain.endpoint", "http://localhost:8899",
		"Settlement RPC endpoint for rewards and mints",
	)
	Flags.StringVar(&chainConfig.AuthToken,
		"chain.token", "",
		"Bearer token for the settlement RPC endpoint",
	)
	Flags.DurationVar(&chainConfig.Timeout,
		"chain.timeout", 0,
		"Timeout for settlement RPC calls (default 30s)",
	)

	Flags.Var(&dbConfig.Driver,
		"db.driver",
		"Database driver type (pgx, sqlx)",
	)
	Flags.StringVar(&dbConfig.Hostname,
		"db.host", "localhost",
		"Database hostname/ip",
	)
	Flags.IntVar(&dbConfig.Port,
		"db.port", 5432,
		"Database port",
	)
	Flags.StringVar(&dbConfig.DatabaseName,
		"db.name", "",
		"Database name",
	)
	Flags.StringVar(&dbConfig.Username,
		"db.user", "",
		"Database username",
	)
	Flags.StringVar(&dbConfig.Password,
		"db.password", "",
		"Database password",
	)
	Flags.IntVar(&dbConfig.MaxConns,
		"db.maxconns", 0,
		"Database maximum open connections",
	)
	Flags.IntVar(&dbConfig.MinConns,
		"db.minconns", 0,
		"Database minimum open connections",
	)
	Flags.IntVar(&dbConfig.MaxIdle,
		"db.maxidle", 0,
		"Database maximum idle connections",
	)
	Flags.DurationVar(&dbConfig.MaxConnLifetime,
		"db.maxconnlifetime", 0,
		"Database maximum connection lifetime",
	)
	Flags.DurationVar(&dbConfig.ConnTimeout,
		"db.conntimeout", 0,
		"Database connection timeout",
	)
	Flags.BoolVar(&dbConfig.LogStatements,
		"db.logstatements", false,
		"Log executed database statements",
	)
}
