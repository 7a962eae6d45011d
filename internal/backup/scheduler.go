package backup

import (
	"context"
	"log/slog"
	"time"
)

// Run takes one snapshot after InitialDelay and then one every Interval until
// ctx is done or a restore has happened. A failed run is logged and waits for
// the next tick. Manual snapshots do not move the schedule.
func (s *Service) Run(ctx context.Context) error {
	initial := time.NewTimer(s.cfg.InitialDelay)
	defer initial.Stop()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	slog.Info("backup scheduler started", "interval", s.cfg.Interval, "initial_delay", s.cfg.InitialDelay)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.reload:
			return nil
		case <-initial.C:
			s.scheduled(ctx, "initial")
		case <-ticker.C:
			s.scheduled(ctx, "scheduled")
		}
	}
}

func (s *Service) scheduled(ctx context.Context, kind string) {
	rec, err := s.Create(ctx)
	if err != nil {
		slog.Error("failed to create backup", "kind", kind, "error", err)
		return
	}

	slog.Info("backup run finished", "kind", kind, "file", rec.Filename)
}
