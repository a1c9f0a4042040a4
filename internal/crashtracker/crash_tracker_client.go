package crashtracker

import (
	"context"
	"time"
)

// CrashTrackerClient reports unexpected errors and panics from the engine's
// background goroutines. Every poller and scheduler worker gets its own Clone
// so reports carry per-goroutine scope, and defers Recover at its top.
type CrashTrackerClient interface {
	LogAndReportErrors(ctx context.Context, err error, msg string)
	LogAndReportMessages(ctx context.Context, msg string)
	Recover()
	FlushEvents(waitTime time.Duration) bool
	Clone() CrashTrackerClient
}
