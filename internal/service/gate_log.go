package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaugen/fragstats/internal/repository"
	"github.com/khaugen/fragstats/internal/security"
)

// GateLogService persists gate denials and prunes old ones.
type GateLogService struct {
	repo   repository.GateLogRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewGateLogService constructs the denial log service.
func NewGateLogService(repo repository.GateLogRepository, logger *slog.Logger) *GateLogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GateLogService{repo: repo, logger: logger, now: time.Now}
}

// Record implements security.Recorder. Persistence failures are logged and
// swallowed so a broken database never blocks request handling.
func (s *GateLogService) Record(ctx context.Context, event security.Event) {
	if s == nil || s.repo == nil {
		return
	}
	occurred := event.Occurred
	if occurred.IsZero() {
		occurred = s.now().UTC()
	}
	err := s.repo.Insert(ctx, repository.GateLogRecord{
		Reason:     event.Reason,
		Method:     event.Method,
		Path:       event.Path,
		Address:    event.Address,
		Country:    event.Country,
		UserAgent:  event.UserAgent,
		OccurredAt: occurred.Unix(),
	})
	if err != nil {
		s.logger.Warn("persist gate denial failed", slog.Any("error", err))
	}
}

// CleanupOldLogs deletes denials older than retention and reports the count.
func (s *GateLogService) CleanupOldLogs(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).Unix()
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("gate log cleanup", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}

var _ security.Recorder = (*GateLogService)(nil)
