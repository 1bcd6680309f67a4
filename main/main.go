package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Lingaraj-Patil/farm-yield"
	"github.com/Lingaraj-Patil/farm-yield/auth"
	"github.com/Lingaraj-Patil/farm-yield/chain"
	"github.com/Lingaraj-Patil/farm-yield/store/sql"
	"github.com/Lingaraj-Patil/farm-yield/store/sql/postgres"
	"github.com/Lingaraj-Patil/farm-yield/utils/log"
)

const dbMetricsInterval = 10 * time.Second

func main() {
	if err := Flags.Parse(os.Args[1:]); err != nil {
		log.Crit("failed to parse flags", "error", err)
	}

	reward, err := decimal.NewFromString(rewardAmount)
	if err != nil {
		log.Crit("invalid reward amount", "value", rewardAmount, "error", err)
	}
	config.Params.RewardAmount = reward

	dbConf, err := dbConfig.WithEnv()
	if err != nil {
		log.Crit("failed to read database environment", "error", err)
	}
	db, err := postgres.NewDatabase(config.Context, dbConf)
	if err != nil {
		log.Crit("failed to connect to database", "error", err)
	}
	st := sql.NewStore(db)

	quitDBMetrics := make(chan bool)
	st.ReportDBMetrics(dbMetricsInterval, quitDBMetrics)

	client := chain.NewClient(chainConfig)
	service := harvest.NewService(config, st, client, client, client)
	if err := service.Start(); err != nil {
		log.Crit("failed to start verification service", "error", err)
	}

	api := harvest.NewAPI(service, auth.New(jwtSecret))
	server := &http.Server{
		Addr:              httpAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP API listening", "addr", httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Crit("HTTP server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", "error", err)
	}
	close(quitDBMetrics)
	if err := service.Stop(); err != nil {
		log.Error("service shutdown failed", "error", err)
	}
}
