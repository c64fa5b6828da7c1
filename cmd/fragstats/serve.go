package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/khaugen/fragstats/internal/api"
	"github.com/khaugen/fragstats/internal/bootstrap"
	"github.com/khaugen/fragstats/internal/config"
	"github.com/khaugen/fragstats/internal/job"
	"github.com/khaugen/fragstats/internal/migrations"
	"github.com/khaugen/fragstats/internal/repository/sqlite"
	"github.com/khaugen/fragstats/internal/security"
	"github.com/khaugen/fragstats/internal/service"
	"github.com/khaugen/fragstats/internal/support/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FragStats server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:     cfg.Log.SlogLevel(),
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return err
	}

	infra, err := bootstrap.BuildInfrastructure(cfg, logger)
	if err != nil {
		return err
	}

	store := sqlite.NewStore(db)

	statsService := service.NewStatsService(store.MapStats(), store.PlayerStats())
	matchService := service.NewMatchService(store.MapStats(), store, logger)
	gateLogService := service.NewGateLogService(store.GateLogs(), logger)

	recorders := security.MultiRecorder{security.NewLoggerRecorder(logger)}
	if cfg.Audit.Persist {
		recorders = append(recorders, gateLogService)
	}

	scheduler := job.NewScheduler(logger)
	if cfg.Audit.Persist {
		cleanupJob := job.NewGateLogCleanupJob(gateLogService, cfg.Audit.Retention, logger)
		if _, err := scheduler.Register("@every 1h", cleanupJob); err != nil {
			return err
		}
	}
	scheduler.Start()

	router := api.NewRouter(
		api.Services{
			Stats:   statsService,
			Matches: matchService,
		},
		api.Deps{
			Logger:   logger,
			Pipeline: infra.Pipeline,
			Recorder: recorders,
			Metrics:  cfg.Metrics,
		},
	)

	server := bootstrap.NewHTTPServer(cfg, router)

	go func() {
		logger.Info("http server starting",
			"addr", cfg.HTTP.Addr,
			"env", cfg.Log.Environment,
			"version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server exited cleanly")
	return nil
}
