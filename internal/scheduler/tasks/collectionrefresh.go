// Package tasks registers the application's scheduled background tasks.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/collectarr/collectarr/internal/refresh"
	"github.com/collectarr/collectarr/internal/scheduler"
)

const CollectionRefreshTaskID = "collection-refresh"

// RegisterCollectionRefreshTask registers the periodic list refresh. Each
// tick checks every list-backed collection against its refresh schedule and
// pulls the ones that are due.
func RegisterCollectionRefreshTask(sched *scheduler.Scheduler, refreshService *refresh.Service, tickMinutes int) error {
	if tickMinutes <= 0 {
		tickMinutes = 15
	}
	tick := time.Duration(tickMinutes) * time.Minute

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CollectionRefreshTaskID,
		Name:        "Collection Refresh",
		Description: "Pulls due collections from their upstream list sources",
		Cron:        fmt.Sprintf("*/%d * * * *", tickMinutes),
		RunOnStart:  true,
		Func: func(ctx context.Context) error {
			return refreshService.RefreshDue(ctx, tick)
		},
	})
}
