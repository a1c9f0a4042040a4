package jobs

import (
	"context"
	"time"
)

// DefaultMinimumJobIntervalSeconds is the floor applied to configured job
// intervals so a misconfigured sweep cannot spin the scheduler.
const DefaultMinimumJobIntervalSeconds = 5

// Job is a unit of scheduled work. The two implementations wrap the
// verification engine's slow sweep and expiry sweep.
type Job interface {
	Execute(context.Context) error
	GetInterval() time.Duration
	GetName() string
}
