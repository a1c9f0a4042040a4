package verification

import (
	"fmt"
	"time"
)

// Config carries every timing knob of the verification engine. Zero values are filled in
// by SetDefaults; Validate rejects combinations that would break the two-phase handoff.
type Config struct {
	ServiceName string

	// Fast poll phase (per transaction).
	FastPollInterval    time.Duration
	FastPollMaxDuration time.Duration

	// Slow sweep phase (engine wide).
	SlowSweepInterval      time.Duration
	SlowSweepBuffer        time.Duration
	SlowSweepBatchSize     int
	SlowSweepInterRowDelay time.Duration
	// SweepUnverified also sweeps transactions that never entered verification.
	SweepUnverified bool

	// Lease staleness threshold for crash recovery and lease stealing.
	LeaseStale time.Duration

	// External call deadlines.
	ProviderTimeout time.Duration
	WebhookTimeout  time.Duration

	// Provider retry policy.
	RetryInitialDelay time.Duration
	RetryMultiplier   float64
	RetryMaxDelay     time.Duration
	RetryMaxAttempts  uint

	// Expiry window applied by the out-of-scope creation flow; used for stats only.
	ExpiryWindow time.Duration

	// Stop() waits this long for in-flight work before abandoning it.
	ShutdownGracePeriod time.Duration
}

func DefaultConfig() Config {
	return Config{
		ServiceName:            "HatchPay",
		FastPollInterval:       3 * time.Second,
		FastPollMaxDuration:    15 * time.Minute,
		SlowSweepInterval:      5 * time.Minute,
		SlowSweepBuffer:        1 * time.Minute,
		SlowSweepBatchSize:     100,
		SlowSweepInterRowDelay: 100 * time.Millisecond,
		SweepUnverified:        false,
		LeaseStale:             60 * time.Second,
		ProviderTimeout:        10 * time.Second,
		WebhookTimeout:         8 * time.Second,
		RetryInitialDelay:      1 * time.Second,
		RetryMultiplier:        2.0,
		RetryMaxDelay:          30 * time.Second,
		RetryMaxAttempts:       3,
		ExpiryWindow:           24 * time.Hour,
		ShutdownGracePeriod:    10 * time.Second,
	}
}

// SetDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) SetDefaults() {
	defaults := DefaultConfig()

	if c.ServiceName == "" {
		c.ServiceName = defaults.ServiceName
	}
	if c.FastPollInterval <= 0 {
		c.FastPollInterval = defaults.FastPollInterval
	}
	if c.FastPollMaxDuration <= 0 {
		c.FastPollMaxDuration = defaults.FastPollMaxDuration
	}
	if c.SlowSweepInterval <= 0 {
		c.SlowSweepInterval = defaults.SlowSweepInterval
	}
	if c.SlowSweepBuffer <= 0 {
		c.SlowSweepBuffer = defaults.SlowSweepBuffer
	}
	if c.SlowSweepBatchSize <= 0 {
		c.SlowSweepBatchSize = defaults.SlowSweepBatchSize
	}
	if c.SlowSweepInterRowDelay <= 0 {
		c.SlowSweepInterRowDelay = defaults.SlowSweepInterRowDelay
	}
	if c.LeaseStale <= 0 {
		c.LeaseStale = defaults.LeaseStale
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = defaults.ProviderTimeout
	}
	if c.WebhookTimeout <= 0 {
		c.WebhookTimeout = defaults.WebhookTimeout
	}
	if c.RetryInitialDelay <= 0 {
		c.RetryInitialDelay = defaults.RetryInitialDelay
	}
	if c.RetryMultiplier <= 0 {
		c.RetryMultiplier = defaults.RetryMultiplier
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = defaults.RetryMaxDelay
	}
	if c.RetryMaxAttempts == 0 {
		c.RetryMaxAttempts = defaults.RetryMaxAttempts
	}
	if c.ExpiryWindow <= 0 {
		c.ExpiryWindow = defaults.ExpiryWindow
	}
	if c.ShutdownGracePeriod <= 0 {
		c.ShutdownGracePeriod = defaults.ShutdownGracePeriod
	}
}

// SweepStartedBefore is the slow-sweep eligibility cutoff for verificationStartedAt: the
// fast-poll window plus the policy buffer, 16 minutes with default settings. The buffer
// guarantees the fast poller's window has fully closed before the sweeper touches a row.
func (c Config) SweepStartedBefore(now time.Time) time.Time {
	return now.Add(-(c.FastPollMaxDuration + c.SlowSweepBuffer))
}

func (c Config) Validate() error {
	if c.FastPollInterval <= 0 {
		return fmt.Errorf("fast poll interval must be positive")
	}
	if c.FastPollMaxDuration <= c.FastPollInterval {
		return fmt.Errorf("fast poll max duration must exceed the poll interval")
	}
	if c.SlowSweepInterval <= 0 {
		return fmt.Errorf("slow sweep interval must be positive")
	}
	if c.SlowSweepBuffer <= 0 {
		return fmt.Errorf("slow sweep buffer must be positive")
	}
	if c.SlowSweepBatchSize <= 0 {
		return fmt.Errorf("slow sweep batch size must be positive")
	}
	if c.LeaseStale <= 0 {
		return fmt.Errorf("lease staleness threshold must be positive")
	}
	if c.LeaseStale < c.ProviderTimeout {
		return fmt.Errorf("lease staleness threshold must cover at least one provider call")
	}
	if c.RetryMaxAttempts == 0 {
		return fmt.Errorf("retry max attempts must be positive")
	}
	return nil
}
