package jobs

import (
	"context"
	"fmt"
	"time"
)

const (
	verificationSweepJobName = "verification_sweep_job"
)

// SweepRunner runs one engine-wide slow sweep batch.
type SweepRunner interface {
	RunSweep(ctx context.Context) error
}

// verificationSweepJob triggers the slow-sweep safety net that re-checks stale PENDING
// transactions the fast pollers have left behind.
type verificationSweepJob struct {
	runner   SweepRunner
	interval time.Duration
}

type VerificationSweepJobOptions struct {
	Runner   SweepRunner
	Interval time.Duration
}

func NewVerificationSweepJob(opts VerificationSweepJobOptions) *verificationSweepJob {
	if opts.Interval < DefaultMinimumJobIntervalSeconds*time.Second {
		opts.Interval = DefaultMinimumJobIntervalSeconds * time.Second
	}
	return &verificationSweepJob{
		runner:   opts.Runner,
		interval: opts.Interval,
	}
}

func (j verificationSweepJob) GetName() string {
	return verificationSweepJobName
}

func (j verificationSweepJob) GetInterval() time.Duration {
	return j.interval
}

func (j verificationSweepJob) Execute(ctx context.Context) error {
	if err := j.runner.RunSweep(ctx); err != nil {
		return fmt.Errorf("executing %s: %w", verificationSweepJobName, err)
	}
	return nil
}

var _ Job = (*verificationSweepJob)(nil)
