package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaugen/fragstats/internal/service"
)

// GateLogCleanupJob prunes persisted gate denials past retention.
type GateLogCleanupJob struct {
	GateLogs  *service.GateLogService
	Retention time.Duration
	Logger    *slog.Logger
}

// NewGateLogCleanupJob creates a new GateLogCleanupJob.
func NewGateLogCleanupJob(gateLogs *service.GateLogService, retention time.Duration, logger *slog.Logger) *GateLogCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GateLogCleanupJob{
		GateLogs:  gateLogs,
		Retention: retention,
		Logger:    logger,
	}
}

// Name implements Runnable interface.
func (j *GateLogCleanupJob) Name() string {
	return "gate_log.cleanup"
}

// Run implements Runnable interface.
func (j *GateLogCleanupJob) Run(ctx context.Context) error {
	if j == nil || j.GateLogs == nil {
		return fmt.Errorf("gate log cleanup job dependencies not configured")
	}
	if j.Retention <= 0 {
		return nil
	}

	deleted, err := j.GateLogs.CleanupOldLogs(ctx, j.Retention)
	if err != nil {
		return fmt.Errorf("gate log cleanup job: %w", err)
	}

	if deleted > 0 {
		j.Logger.Info("cleaned up old gate logs", "deleted_rows", deleted)
	}

	return nil
}
