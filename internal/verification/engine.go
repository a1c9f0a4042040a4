package verification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/internal/crashtracker"
	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/monitor"
	"github.com/hatchpay/offramp-backend/internal/notifier"
	"github.com/hatchpay/offramp-backend/internal/provider"
	"github.com/hatchpay/offramp-backend/internal/scheduler"
	"github.com/hatchpay/offramp-backend/internal/scheduler/jobs"
)

// VerificationPayload is the caller-supplied input to StartVerification. Amount and
// currency must match the stored transaction; the sender fields patch the payer record.
type VerificationPayload struct {
	SenderName    string
	SenderPhone   string
	SenderEmail   string
	Currency      string
	ProviderTxID  string
	PaymentType   string
	Amount        string
	SuccessURL    string
	PaymentLinkID string
}

// Schedule describes the polling plan returned to the caller of StartVerification.
type Schedule struct {
	Phase        string        `json:"phase"`
	PollInterval time.Duration `json:"pollInterval"`
	MaxDuration  time.Duration `json:"maxDuration"`
}

// StatusSnapshot is the read-only view returned by GetStatus.
type StatusSnapshot struct {
	State                 data.TransactionStatus `json:"state"`
	Amount                string                 `json:"amount"`
	Currency              data.Currency          `json:"currency"`
	ProviderRef           *string                `json:"providerRef"`
	SenderName            *string                `json:"senderName"`
	SenderEmail           *string                `json:"senderEmail"`
	SenderPhone           *string                `json:"senderPhone"`
	VerificationStartedAt *time.Time             `json:"verificationStartedAt"`
	LastVerificationCheck *time.Time             `json:"lastVerificationCheck"`
	ExpiresAt             time.Time              `json:"expiresAt"`
}

// Stats is the engine's operational snapshot.
type Stats struct {
	Runs              int64         `json:"runs"`
	Processed         int64         `json:"processed"`
	Errors            int64         `json:"errors"`
	Uptime            time.Duration `json:"uptime"`
	LastRunAt         time.Time     `json:"lastRunAt"`
	LastRunDurationMs int64         `json:"lastRunDurationMs"`
	IsRunning         bool          `json:"isRunning"`
	ActivePollers     int           `json:"activePollers"`
}

// Engine is the two-phase payment verification engine. A fast poller per transaction
// covers the first 15 minutes after verification starts; an engine-wide slow sweeper
// covers everything the pollers leave behind until expiry.
type Engine struct {
	cfg            Config
	store          TransactionStore
	audit          AuditLogger
	provider       provider.ClientInterface
	sink           notifier.NotifySink
	clock          Clock
	monitorService monitor.MonitorServiceInterface
	crashTracker   crashtracker.CrashTrackerClient

	ownerID string
	sched   *scheduler.Scheduler

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	runCtx    context.Context
	cancel    context.CancelFunc
	stopping  chan struct{}
	pollers   map[string]*fastPoller
	pollersWG sync.WaitGroup

	sweepInFlight atomic.Bool
	runs          atomic.Int64
	processed     atomic.Int64
	errorCount    atomic.Int64
	lastRunAt     atomic.Int64 // unix nanos
	lastRunMs     atomic.Int64
}

type EngineOptions struct {
	Config         Config
	Store          TransactionStore
	AuditLogger    AuditLogger
	Provider       provider.ClientInterface
	NotifySink     notifier.NotifySink
	Clock          Clock
	MonitorService monitor.MonitorServiceInterface
	CrashTracker   crashtracker.CrashTrackerClient
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("transaction store is required")
	}
	if opts.AuditLogger == nil {
		return nil, fmt.Errorf("audit logger is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if opts.NotifySink == nil {
		return nil, fmt.Errorf("notify sink is required")
	}
	if opts.CrashTracker == nil {
		return nil, fmt.Errorf("crash tracker client is required")
	}
	if opts.Clock == nil {
		opts.Clock = NewClock()
	}

	opts.Config.SetDefaults()
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("validating engine config: %w", err)
	}

	return &Engine{
		cfg:            opts.Config,
		store:          opts.Store,
		audit:          opts.AuditLogger,
		provider:       opts.Provider,
		sink:           opts.NotifySink,
		clock:          opts.Clock,
		monitorService: opts.MonitorService,
		crashTracker:   opts.CrashTracker,
		ownerID:        fmt.Sprintf("engine-%s", uuid.NewString()),
		pollers:        make(map[string]*fastPoller),
	}, nil
}

// OwnerID identifies this engine instance in lease rows.
func (e *Engine) OwnerID() string {
	return e.ownerID
}

// Start performs the crash-recovery sweep and starts the background sweeper. It does not
// block; the engine runs until Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrEngineAlreadyRunning
	}

	e.runCtx, e.cancel = context.WithCancel(ctx)
	e.stopping = make(chan struct{})

	if err := e.recoverStaleLeases(e.runCtx); err != nil {
		e.cancel()
		return fmt.Errorf("running crash-recovery sweep: %w", err)
	}

	// RunSweep already finishes with an expiry pass, so the sweep job is the only one
	// the scheduler needs.
	e.sched = scheduler.NewScheduler(e.crashTracker,
		scheduler.WithVerificationSweepJobOption(jobs.VerificationSweepJobOptions{
			Runner:   e,
			Interval: e.cfg.SlowSweepInterval,
		}),
	)
	if err := e.sched.Start(e.runCtx); err != nil {
		e.cancel()
		return fmt.Errorf("starting sweep scheduler: %w", err)
	}

	e.running = true
	e.startedAt = e.clock.Now()
	log.WithContext(ctx).Infof("verification engine %s started", e.ownerID)

	return nil
}

// recoverStaleLeases clears leases abandoned by crashed instances, regardless of owner.
func (e *Engine) recoverStaleLeases(ctx context.Context) error {
	staleBefore := e.clock.Now().Add(-e.cfg.LeaseStale)
	stolen, err := e.store.ReleaseStaleLeases(ctx, staleBefore)
	if err != nil {
		return fmt.Errorf("releasing stale leases: %w", err)
	}

	for _, lease := range stolen {
		log.WithContext(ctx).Warnf("reclaimed stale lease on transaction %s from owner %q", lease.TransactionID, lease.PreviousOwner.String)
		e.audit.Record(ctx, data.AuditEventInsert{
			EntityType: data.AuditEntityTransaction,
			EntityID:   lease.TransactionID,
			Action:     data.AuditActionLeaseStolen,
			Metadata: map[string]any{
				"previousOwner": lease.PreviousOwner.String,
				"newOwner":      e.ownerID,
			},
		})
	}

	return nil
}

// Stop signals all pollers and the sweeper to terminate, waits up to the grace period for
// in-flight work, then releases every lease held by this instance. The shutdown signal is
// cooperative: pollers observe it between ticks, so a provider call already in flight keeps
// its context and is awaited rather than aborted. The hard cancel only fires once the grace
// period has lapsed or every poller has unwound.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrEngineNotRunning
	}
	e.running = false
	stopping := e.stopping
	cancel := e.cancel
	e.mu.Unlock()

	log.Infof("stopping verification engine %s...", e.ownerID)
	close(stopping)

	done := make(chan struct{})
	go func() {
		e.pollersWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(e.cfg.ShutdownGracePeriod):
		log.Warnf("shutdown grace period elapsed with pollers still in flight, abandoning them")
	}

	// The sweep scheduler drains its in-flight job before the run context is torn down;
	// the provider client's own timeout bounds that wait.
	e.sched.Stop()
	cancel()

	// The run context is gone; lease cleanup gets its own deadline.
	ctx, cancelCleanup := context.WithTimeout(context.Background(), e.cfg.ShutdownGracePeriod)
	defer cancelCleanup()

	released, err := e.store.ReleaseLeasesOwnedBy(ctx, e.ownerID)
	if err != nil {
		return fmt.Errorf("releasing leases on shutdown: %w", err)
	}
	if released > 0 {
		log.Infof("released %d leases held by %s", released, e.ownerID)
	}

	return nil
}

// StartVerification stamps the transaction with the payer's details and launches a fast
// poller for it. A second call for the same reference while its poller is live is a no-op
// that returns the existing schedule.
func (e *Engine) StartVerification(ctx context.Context, reference string, payload VerificationPayload) (*Schedule, error) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil, ErrEngineNotRunning
	}
	if _, alive := e.pollers[reference]; alive {
		e.mu.Unlock()
		return e.schedule(), nil
	}
	e.mu.Unlock()

	tx, err := e.store.GetByReference(ctx, reference)
	if err != nil {
		if err == data.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching transaction %s: %w", reference, err)
	}

	if err = e.validatePayload(tx, payload); err != nil {
		if err == ErrInvalidState {
			e.recordTransitionRejected(ctx, tx, "transaction state does not allow verification")
		}
		return nil, err
	}

	updated, err := e.store.BeginVerification(ctx, tx.ID, data.VerificationUpdate{
		ProviderRef:   payload.ProviderTxID,
		PaymentMethod: data.PaymentMethod(payload.PaymentType),
		SenderName:    payload.SenderName,
		SenderEmail:   payload.SenderEmail,
		SenderPhone:   payload.SenderPhone,
		SuccessURL:    payload.SuccessURL,
		StartedAt:     e.clock.Now(),
	})
	if err != nil {
		if err == data.ErrRecordNotFound {
			// The guard failed: the transaction left PENDING/INITIALIZED underneath us.
			e.recordTransitionRejected(ctx, tx, "transaction state changed concurrently")
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("beginning verification for transaction %s: %w", reference, err)
	}

	e.audit.Record(ctx, data.AuditEventInsert{
		EntityType: data.AuditEntityTransaction,
		EntityID:   updated.ID,
		Action:     data.AuditActionVerificationStarted,
		Changes: map[string]any{
			"providerRef":           payload.ProviderTxID,
			"verificationStartedAt": updated.VerificationStartedAt,
		},
		CorrelationID: reference,
	})

	e.launchPoller(updated)

	return e.schedule(), nil
}

// recordTransitionRejected audits a verification attempt against a transaction whose state
// does not admit the PENDING/INITIALIZED edge, with the attempted edge in the changes.
func (e *Engine) recordTransitionRejected(ctx context.Context, tx *data.Transaction, reason string) {
	e.audit.Record(ctx, data.AuditEventInsert{
		EntityType: data.AuditEntityTransaction,
		EntityID:   tx.ID,
		Action:     data.AuditActionStateTransitionRejected,
		Changes: map[string]any{
			"from": string(tx.Status),
			"to":   string(data.InitializedTransactionStatus),
		},
		Metadata:      map[string]any{"reason": reason},
		CorrelationID: tx.Reference,
	})
}

func (e *Engine) schedule() *Schedule {
	return &Schedule{
		Phase:        "immediate",
		PollInterval: e.cfg.FastPollInterval,
		MaxDuration:  e.cfg.FastPollMaxDuration,
	}
}

func (e *Engine) validatePayload(tx *data.Transaction, payload VerificationPayload) error {
	if !strings.EqualFold(string(tx.Currency), payload.Currency) {
		return ErrCurrencyMismatch
	}

	storedAmount, err := decimal.NewFromString(tx.Amount)
	if err != nil {
		return fmt.Errorf("parsing stored amount %q: %w", tx.Amount, err)
	}
	payloadAmount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return ErrAmountMismatch
	}
	if !storedAmount.Equal(payloadAmount) {
		return ErrAmountMismatch
	}

	if tx.Status != data.PendingTransactionStatus && tx.Status != data.InitializedTransactionStatus {
		return ErrInvalidState
	}

	return nil
}

func (e *Engine) launchPoller(tx *data.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	if _, alive := e.pollers[tx.Reference]; alive {
		return
	}

	p := newFastPoller(e, tx.ID, tx.Reference)
	e.pollers[tx.Reference] = p
	e.pollersWG.Add(1)

	go func() {
		defer e.pollersWG.Done()
		defer e.removePoller(tx.Reference)
		defer e.crashTracker.Clone().Recover()
		p.run(e.runCtx)
	}()
}

// stopRequested reports whether Stop has been called. Pollers and the sweeper check it
// between ticks and between rows; it never interrupts a call already in flight.
func (e *Engine) stopRequested() bool {
	e.mu.Lock()
	stopping := e.stopping
	e.mu.Unlock()

	if stopping == nil {
		return false
	}
	select {
	case <-stopping:
		return true
	default:
		return false
	}
}

func (e *Engine) removePoller(reference string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pollers, reference)
}

func (e *Engine) activePollers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pollers)
}

// GetStatus returns a read-only snapshot of the transaction. No side effects.
func (e *Engine) GetStatus(ctx context.Context, reference string) (*StatusSnapshot, error) {
	tx, err := e.store.GetByReference(ctx, reference)
	if err != nil {
		if err == data.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching transaction %s: %w", reference, err)
	}

	return &StatusSnapshot{
		State:                 tx.Status,
		Amount:                tx.Amount,
		Currency:              tx.Currency,
		ProviderRef:           nullableString(tx.ProviderRef.String),
		SenderName:            nullableString(tx.SenderName.String),
		SenderEmail:           nullableString(tx.SenderEmail.String),
		SenderPhone:           nullableString(tx.SenderPhone.String),
		VerificationStartedAt: tx.VerificationStartedAt,
		LastVerificationCheck: tx.LastVerificationCheck,
		ExpiresAt:             tx.ExpiresAt,
	}, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Stats returns the engine's operational counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	running := e.running
	startedAt := e.startedAt
	e.mu.Unlock()

	var uptime time.Duration
	if running {
		uptime = e.clock.Now().Sub(startedAt)
	}

	var lastRunAt time.Time
	if nanos := e.lastRunAt.Load(); nanos > 0 {
		lastRunAt = time.Unix(0, nanos)
	}

	return Stats{
		Runs:              e.runs.Load(),
		Processed:         e.processed.Load(),
		Errors:            e.errorCount.Load(),
		Uptime:            uptime,
		LastRunAt:         lastRunAt,
		LastRunDurationMs: e.lastRunMs.Load(),
		IsRunning:         running,
		ActivePollers:     e.activePollers(),
	}
}
