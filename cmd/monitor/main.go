package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"energy-flow-monitor-go/internal/broadcast"
	"energy-flow-monitor-go/internal/config"
	"energy-flow-monitor-go/internal/forecast"
	"energy-flow-monitor-go/internal/logger"
	"energy-flow-monitor-go/internal/metrics"
	"energy-flow-monitor-go/internal/models"
	"energy-flow-monitor-go/internal/persistence"
	"energy-flow-monitor-go/internal/query"
	"energy-flow-monitor-go/internal/reporter"
	"energy-flow-monitor-go/internal/server"
	"energy-flow-monitor-go/internal/simulator"

	"github.com/joho/godotenv"
)

const writerQueueDepth = 256

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	// Bootstrap logger so config loading itself can be logged; replaced
	// below once the file config is in.
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err != nil {
		logger.S().Info("no .env file found, reading from system environment")
	} else {
		logger.S().Info("loaded environment from .env file")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("failed to load config file: %v", err)
	}

	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	// DATABASE_URL takes precedence over the file config, so deployments
	// can keep credentials out of the config file.
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			cfg.Database.Driver = "postgres"
		}
	}

	repo, err := persistence.NewSQLRepository(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.S().Fatalf("failed to initialize database: %v", err)
	}
	defer repo.Close()
	logger.S().Infof("connected to %s store", cfg.Database.Driver)

	var stateRepo persistence.StateRepository
	if cfg.StatePath != "" {
		stateRepo, err = persistence.NewBadgerRepository(cfg.StatePath)
		if err != nil {
			logger.S().Fatalf("failed to open state store: %v", err)
		}
		defer stateRepo.Close()
	}

	ledger := simulator.NewLedger()
	if cfg.ResumeState && stateRepo != nil {
		state, err := stateRepo.LoadState()
		if err != nil {
			logger.S().Warnf("failed to load ledger snapshot: %v, starting from zero", err)
		} else if state != nil {
			ledger.Restore(state.Levels)
			logger.S().Infof("resumed ledger from snapshot taken at %s", state.SavedAt.Format(time.RFC3339))
		}
	}

	m := metrics.Register()
	gen := simulator.NewGenerator(cfg.Profiles)

	writer := broadcast.NewWriter(repo, writerQueueDepth, m)
	writer.Start()

	bc := broadcast.New(gen, ledger, writer, broadcast.Options{
		Interval:       time.Duration(cfg.TickIntervalSec) * time.Second,
		ObserverBuffer: cfg.ObserverBuffer,
		StateSaveEvery: cfg.StateSaveEvery,
		StateRepo:      stateRepo,
		Metrics:        m,
	})
	go bc.Run()

	forecaster := forecast.NewHTTPClient(cfg.Forecast)
	svc := query.NewService(repo, repo, forecaster)

	srv := server.New(cfg.ListenAddr, bc, svc)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.S().Fatalf("server failed: %v", err)
		}
	}()

	// Wait for interrupt, then tear everything down in dependency order:
	// loop first, then the write queue, then the transport.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.S().Info("shutting down...")
	bc.Stop()
	bc.SaveStateNow()
	writer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.S().Errorf("server shutdown failed: %v", err)
	}

	reporter.PrintSummary(bc.Stats(), bc.StartedAt(), time.Now())
	logger.S().Info("stopped")
}
