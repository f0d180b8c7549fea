package core

import (
	"context"
	"log/slog"
	"time"
)

// RunPruner deletes stored scrape runs older than a cutoff.
type RunPruner interface {
	DeleteOldRuns(ctx context.Context, olderThan time.Duration) (int64, error)
}

type SchedulerService struct {
	store     RunPruner
	retention time.Duration
	interval  time.Duration
}

func NewSchedulerService(store RunPruner, retention time.Duration) *SchedulerService {
	return &SchedulerService{
		store:     store,
		retention: retention,
		interval:  24 * time.Hour,
	}
}

func (s *SchedulerService) Start(ctx context.Context) {
	go s.runRetentionPolicy(ctx)
}

// runRetentionPolicy deletes runs older than the retention window, once on
// startup and then every interval until ctx is done.
func (s *SchedulerService) runRetentionPolicy(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(ctx)
		}
	}
}

func (s *SchedulerService) cleanup(ctx context.Context) {
	count, err := s.store.DeleteOldRuns(ctx, s.retention)
	if err != nil {
		slog.Error("retention policy: failed to delete old runs", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention policy: deleted old runs", "count", count, "retention", s.retention)
	}
}
