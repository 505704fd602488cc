package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/edvin/serverdir/internal/config"
	"github.com/edvin/serverdir/internal/core"
	"github.com/edvin/serverdir/internal/db"
	"github.com/edvin/serverdir/internal/logging"
	"github.com/edvin/serverdir/internal/metrics"
	"github.com/edvin/serverdir/internal/worker"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations/core", "Migration files directory")
	metricsAddr := flag.String("metrics-addr", ":9102", "Metrics listen address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.CoreDatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()

	metrics.RegisterPgxPoolMetrics(corePool)

	metricsServer := metrics.NewServer(*metricsAddr)
	go func() {
		logger.Info().Str("addr", *metricsAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	services := core.NewServices(corePool, logger, cfg.StalenessTolerance)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("shutting down workers")
		cancel()
	}()

	logger.Info().Int("count", cfg.WorkerCount).Msg("starting recompute workers")
	if err := worker.RunPool(ctx, cfg.WorkerCount, services, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker pool failed")
	}

	metricsServer.Close()
}
