package verification

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/message"
	"github.com/hatchpay/offramp-backend/internal/monitor"
	"github.com/hatchpay/offramp-backend/internal/provider"
	"github.com/hatchpay/offramp-backend/internal/scheduler/jobs"
)

var _ jobs.SweepRunner = (*Engine)(nil)

// RunSweep executes one engine-wide slow-sweep batch followed by an expiry pass. Ticks
// that fire while a sweep is still running are dropped and audited.
func (e *Engine) RunSweep(ctx context.Context) error {
	if !e.sweepInFlight.CompareAndSwap(false, true) {
		log.WithContext(ctx).Warnf("slow sweep tick dropped, previous sweep still running")
		e.audit.Record(ctx, data.AuditEventInsert{
			EntityType: "engine",
			EntityID:   e.ownerID,
			Action:     data.AuditActionSweepSkipped,
			Metadata:   map[string]any{"reason": "previous sweep still in progress"},
		})
		return nil
	}
	defer e.sweepInFlight.Store(false)

	startedAt := e.clock.Now()
	e.runs.Add(1)

	err := e.sweepBatch(ctx)

	finishedAt := e.clock.Now()
	e.lastRunAt.Store(finishedAt.UnixNano())
	e.lastRunMs.Store(finishedAt.Sub(startedAt).Milliseconds())

	if err != nil {
		e.errorCount.Add(1)
		return err
	}

	// Expiry runs after every batch.
	return e.RunExpirySweep(ctx)
}

func (e *Engine) sweepBatch(ctx context.Context) error {
	now := e.clock.Now()
	batch, err := e.store.GetSweepBatch(ctx, data.SweepQuery{
		Now:               now,
		StartedBefore:     e.cfg.SweepStartedBefore(now),
		CheckedBefore:     now.Add(-e.cfg.SlowSweepInterval),
		LeaseStaleBefore:  now.Add(-e.cfg.LeaseStale),
		Limit:             e.cfg.SlowSweepBatchSize,
		IncludeUnverified: e.cfg.SweepUnverified,
	})
	if err != nil {
		return fmt.Errorf("querying sweep batch: %w", err)
	}

	if e.monitorService != nil {
		if monitorErr := e.monitorService.MonitorHistogram(float64(len(batch)), monitor.SweepBatchSizeTag, map[string]string{"phase": "slow"}); monitorErr != nil {
			log.Errorf("monitoring sweep batch size: %v", monitorErr)
		}
	}

	if len(batch) == 0 {
		log.WithContext(ctx).Debug("slow sweep found no eligible transactions")
		return nil
	}

	log.WithContext(ctx).Infof("slow sweep processing %d transactions", len(batch))

	for i, tx := range batch {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.stopRequested() {
			log.WithContext(ctx).Info("slow sweep interrupted by shutdown, abandoning remainder of batch")
			return nil
		}

		e.sweepOne(ctx, tx)

		// Inter-row delay to respect provider rate limits, skipped after the last row.
		if i < len(batch)-1 {
			if sleepErr := e.clock.Sleep(ctx, e.cfg.SlowSweepInterRowDelay); sleepErr != nil {
				return sleepErr
			}
		}
	}

	return nil
}

// sweepOne re-checks a single stale transaction under a lease. Errors are logged and
// audited; they never abort the batch.
func (e *Engine) sweepOne(ctx context.Context, tx *data.Transaction) {
	now := e.clock.Now()

	leased, err := e.store.AcquireLease(ctx, tx.ID, e.ownerID, now, now.Add(-e.cfg.LeaseStale))
	if err != nil {
		if err == data.ErrRecordNotFound {
			log.WithContext(ctx).Debugf("lease on transaction %s unavailable, skipping", tx.Reference)
			return
		}
		e.errorCount.Add(1)
		log.WithContext(ctx).Errorf("acquiring lease on transaction %s: %v", tx.Reference, err)
		return
	}

	e.audit.Record(ctx, data.AuditEventInsert{
		EntityType:    data.AuditEntityTransaction,
		EntityID:      leased.ID,
		Action:        data.AuditActionLeaseAcquired,
		Metadata:      map[string]any{"owner": e.ownerID},
		CorrelationID: leased.Reference,
	})

	status, err := e.provider.QueryClearance(ctx, provider.ClearanceRequest{
		Currency:    string(leased.Currency),
		ProviderRef: leased.ProviderRef.String,
		PaymentType: leased.PaymentMethod.String,
	})
	if err != nil {
		e.errorCount.Add(1)
		e.audit.Record(ctx, data.AuditEventInsert{
			EntityType:    data.AuditEntityTransaction,
			EntityID:      leased.ID,
			Action:        data.AuditActionProviderQueryFailed,
			Metadata:      map[string]any{"error": err.Error(), "phase": "slow"},
			CorrelationID: leased.Reference,
		})
		e.releaseLease(ctx, leased)
		return
	}

	e.audit.Record(ctx, data.AuditEventInsert{
		EntityType:    data.AuditEntityTransaction,
		EntityID:      leased.ID,
		Action:        data.AuditActionProviderQueryOK,
		Metadata:      map[string]any{"status": string(status), "phase": "slow"},
		CorrelationID: leased.Reference,
	})

	if status == provider.ClearanceStatusConfirmed {
		// The confirmation CAS clears the lease as part of the transition to PAID.
		if err = e.handleConfirmation(ctx, leased.ID, leased.Reference); err != nil {
			e.errorCount.Add(1)
			log.WithContext(ctx).Errorf("confirming transaction %s during sweep: %v", leased.Reference, err)
			e.releaseLease(ctx, leased)
		}
		return
	}

	e.releaseLease(ctx, leased)
}

func (e *Engine) releaseLease(ctx context.Context, tx *data.Transaction) {
	if err := e.store.ReleaseLease(ctx, tx.ID, e.ownerID); err != nil {
		if err != data.ErrRecordNotFound {
			log.WithContext(ctx).Errorf("releasing lease on transaction %s: %v", tx.Reference, err)
		}
		return
	}

	e.audit.Record(ctx, data.AuditEventInsert{
		EntityType:    data.AuditEntityTransaction,
		EntityID:      tx.ID,
		Action:        data.AuditActionLeaseReleased,
		Metadata:      map[string]any{"owner": e.ownerID},
		CorrelationID: tx.Reference,
	})
}

// RunExpirySweep finalizes PENDING transactions whose payment window has closed: a CAS to
// PAYOUT_FAILED, a TRANSACTION_EXPIRED audit, and a best-effort expiration notice. No
// webhook is sent for expirations.
func (e *Engine) RunExpirySweep(ctx context.Context) error {
	now := e.clock.Now()

	expired, err := e.store.GetExpired(ctx, now, e.cfg.SlowSweepBatchSize)
	if err != nil {
		e.errorCount.Add(1)
		return fmt.Errorf("querying expired transactions: %w", err)
	}

	for _, tx := range expired {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.stopRequested() {
			return nil
		}
		e.expireOne(ctx, tx)
	}

	return nil
}

func (e *Engine) expireOne(ctx context.Context, tx *data.Transaction) {
	updated, err := e.store.ExpireTransaction(ctx, tx.ID, e.clock.Now())
	if err != nil {
		if err == data.ErrRecordNotFound {
			// Someone confirmed or expired it first.
			return
		}
		e.errorCount.Add(1)
		log.WithContext(ctx).Errorf("expiring transaction %s: %v", tx.Reference, err)
		return
	}

	e.audit.Record(ctx, data.AuditEventInsert{
		EntityType: data.AuditEntityTransaction,
		EntityID:   updated.ID,
		Action:     data.AuditActionTransactionExpired,
		Changes: map[string]any{
			"status":    string(updated.Status),
			"expiresAt": updated.ExpiresAt,
		},
		CorrelationID: updated.Reference,
	})
	e.recordCounter(monitor.TransactionsExpiredCounterTag)
	e.processed.Add(1)

	log.WithContext(ctx).Infof("transaction %s expired unconfirmed", updated.Reference)

	channel, err := e.sink.SendExpirationNotice(ctx, updated)
	if err != nil {
		action := data.AuditActionEmailFailed
		if channel == message.MessageChannelSMS {
			action = data.AuditActionSMSFailed
		}
		e.audit.Record(ctx, data.AuditEventInsert{
			EntityType:    data.AuditEntityTransaction,
			EntityID:      updated.ID,
			Action:        action,
			Metadata:      map[string]any{"error": err.Error()},
			CorrelationID: updated.Reference,
		})
		return
	}

	if channel != "" {
		action := data.AuditActionEmailSent
		if channel == message.MessageChannelSMS {
			action = data.AuditActionSMSSent
		}
		e.audit.Record(ctx, data.AuditEventInsert{
			EntityType:    data.AuditEntityTransaction,
			EntityID:      updated.ID,
			Action:        action,
			CorrelationID: updated.Reference,
		})
	}
}
