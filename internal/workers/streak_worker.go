package workers

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"reclaimAPI/internal/logger"
	"reclaimAPI/internal/types/progress"
)

// StreakAdvancer is the part of the progression service the worker drives.
type StreakAdvancer interface {
	ListActiveUsers(ctx context.Context) ([]string, error)
	AdvanceStreak(ctx context.Context, userID string) (*progress.UserProgress, bool, error)
}

// RunStats summarises one pass.
type RunStats struct {
	Users    int
	Advanced int
	Failed   int
}

// StreakWorker advances every active user's streak on a fixed interval.
// AdvanceStreak counts a day at most once, so ticking more often than daily
// only picks up the day change sooner.
type StreakWorker struct {
	progression StreakAdvancer
	interval    time.Duration
	parallelism int
	log         *logger.Logger
}

func NewStreakWorker(progression StreakAdvancer, interval time.Duration, log *logger.Logger) *StreakWorker {
	return &StreakWorker{
		progression: progression,
		interval:    interval,
		parallelism: 8,
		log:         log,
	}
}

// Start runs a pass immediately and then once per interval until ctx is done.
func (w *StreakWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("streak worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *StreakWorker) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	stats, err := w.RunOnce(runCtx)
	if err != nil {
		w.log.Error("streak pass failed", "error", err)
		return
	}
	w.log.Info("streak pass finished", "users", stats.Users, "advanced", stats.Advanced, "failed", stats.Failed)
}

// RunOnce advances every active user. Individual failures are logged and
// counted; only failing to list users aborts the pass.
func (w *StreakWorker) RunOnce(ctx context.Context) (RunStats, error) {
	userIDs, err := w.progression.ListActiveUsers(ctx)
	if err != nil {
		return RunStats{}, err
	}

	var advanced, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			_, ok, err := w.progression.AdvanceStreak(gctx, userID)
			switch {
			case err != nil:
				failed.Add(1)
				w.log.Warn("advance streak failed", "userId", userID, "error", err)
			case ok:
				advanced.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	return RunStats{
		Users:    len(userIDs),
		Advanced: int(advanced.Load()),
		Failed:   int(failed.Load()),
	}, nil
}
