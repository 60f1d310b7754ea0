package scheduler

import (
	"context"

	appLog "shiftcal/internal/log"
)

// Invalidator is implemented by anything holding derived pages that go stale
// when the day changes.
type Invalidator interface {
	InvalidateCache()
}

// RefreshJob drops cached pages and, when snapshot is non-nil, captures a
// fresh preview afterwards.
func RefreshJob(inv Invalidator, snapshot Job) Job {
	return func(ctx context.Context) error {
		if inv != nil {
			inv.InvalidateCache()
		}
		if snapshot == nil {
			return nil
		}
		appLog.Debug("refresh: capturing snapshot")
		return snapshot(ctx)
	}
}
