package tasks

import (
	"context"
	"time"

	"github.com/collectarr/collectarr/internal/scheduler"
	"github.com/collectarr/collectarr/internal/synclog"
)

const SyncLogCleanupTaskID = "synclog-cleanup"

// RegisterSyncLogCleanupTask registers the daily sync history prune. Runs at
// 3 AM and deletes entries older than the configured retention period.
func RegisterSyncLogCleanupTask(sched *scheduler.Scheduler, logs *synclog.Store, retentionDays int) error {
	if retentionDays <= 0 {
		retentionDays = 30
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          SyncLogCleanupTaskID,
		Name:        "Sync Log Cleanup",
		Description: "Deletes sync log entries older than the configured retention period",
		Cron:        "0 3 * * *",
		RunOnStart:  false,
		Func: func(ctx context.Context) error {
			cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
			_, err := logs.Prune(ctx, cutoff)
			return err
		},
	})
}
