package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupDeps holds dependencies for the past-activity sweep.
type CleanupDeps struct {
	Activities ActivityStore
	Calendar   CalendarService

	Now func() time.Time
}

// ExecuteCleanupPastActivities deletes activities that ended before now and
// never attracted a single participation, releasing any occupancy they still
// hold. Activities with history are kept for the ledger's audit trail.
// PRE: Deps are wired
// POST: Returns how many activities were removed
func ExecuteCleanupPastActivities(ctx context.Context, deps CleanupDeps) (int, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	ids, err := deps.Activities.ListPastEmptyIDs(ctx, deps.Now())
	if err != nil {
		return 0, fmt.Errorf("list past empty activities: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	removed := 0
	for _, id := range ids {
		if err := deps.Calendar.Release(ctx, id); err != nil {
			slog.Error("cleanup_release_failed", "activity_id", id, "error", err)
			continue
		}
		if err := deps.Activities.Delete(ctx, id); err != nil {
			slog.Error("cleanup_delete_failed", "activity_id", id, "error", err)
			continue
		}
		removed++
	}

	slog.Info("cleanup_past_activities", "candidates", len(ids), "removed", removed)
	return removed, nil
}

// CleanupConfig holds configuration for the cleanup scheduler.
type CleanupConfig struct {
	Interval time.Duration
	Enabled  bool
}

// DefaultCleanupConfig returns sensible defaults.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{Interval: time.Hour, Enabled: true}
}

// StartCleanupScheduler starts a background goroutine that periodically
// sweeps past empty activities.
// PRE: Context is valid, deps are initialized
// POST: Goroutine started, returns cancel function
func StartCleanupScheduler(ctx context.Context, deps CleanupDeps, cfg CleanupConfig) func() {
	if !cfg.Enabled {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := ExecuteCleanupPastActivities(ctx, deps); err != nil {
					slog.Error("cleanup_scheduler_error", "error", err)
				}
			}
		}
	}()

	return cancel
}
