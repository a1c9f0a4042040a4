package verification

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/provider"
)

// fastPoller is the per-transaction immediate verification phase: one cooperative task
// polling the provider every FastPollInterval for up to FastPollMaxDuration. After that
// window the slow sweeper owns the transaction.
type fastPoller struct {
	engine    *Engine
	txID      string
	reference string
}

func newFastPoller(engine *Engine, txID, reference string) *fastPoller {
	return &fastPoller{
		engine:    engine,
		txID:      txID,
		reference: reference,
	}
}

// run polls until confirmation, state change, window close, or shutdown. The window is
// measured from the task's start, so transient delays do not extend it.
func (p *fastPoller) run(ctx context.Context) {
	e := p.engine
	deadline := e.clock.Now().Add(e.cfg.FastPollMaxDuration)

	log.WithContext(ctx).Infof("fast poller started for transaction %s", p.reference)

	for {
		if ctx.Err() != nil || e.stopRequested() {
			log.WithContext(ctx).Debugf("fast poller for %s stopping on shutdown", p.reference)
			return
		}
		if !e.clock.Now().Before(deadline) {
			log.WithContext(ctx).Infof("fast poll window closed for transaction %s, handing over to slow sweeper", p.reference)
			return
		}

		if done := p.tick(ctx); done {
			return
		}

		if err := e.clock.Sleep(ctx, e.cfg.FastPollInterval); err != nil {
			return
		}
	}
}

// tick performs one poll. Returns true when the poller should exit.
func (p *fastPoller) tick(ctx context.Context) bool {
	e := p.engine

	tx, err := e.store.GetByReference(ctx, p.reference)
	if err != nil {
		if err == data.ErrRecordNotFound {
			log.WithContext(ctx).Warnf("transaction %s disappeared, stopping fast poller", p.reference)
			return true
		}
		e.errorCount.Add(1)
		log.WithContext(ctx).Errorf("fast poller re-reading transaction %s: %v", p.reference, err)
		return false
	}

	if tx.Status != data.PendingTransactionStatus && tx.Status != data.InitializedTransactionStatus {
		log.WithContext(ctx).Debugf("transaction %s reached state %s, stopping fast poller", p.reference, tx.Status)
		return true
	}

	now := e.clock.Now()
	if _, err = e.store.TouchVerificationCheck(ctx, tx.ID, now); err != nil {
		if err == data.ErrRecordNotFound {
			// State changed between the read and the touch.
			return true
		}
		e.errorCount.Add(1)
		log.WithContext(ctx).Errorf("fast poller touching transaction %s: %v", p.reference, err)
		return false
	}

	status, err := e.provider.QueryClearance(ctx, provider.ClearanceRequest{
		Currency:    string(tx.Currency),
		ProviderRef: tx.ProviderRef.String,
		PaymentType: tx.PaymentMethod.String,
	})
	if err != nil {
		// Provider errors never terminate the loop; the tick counts as "not yet".
		e.errorCount.Add(1)
		e.audit.Record(ctx, data.AuditEventInsert{
			EntityType:    data.AuditEntityTransaction,
			EntityID:      tx.ID,
			Action:        data.AuditActionProviderQueryFailed,
			Metadata:      map[string]any{"error": err.Error(), "phase": "fast"},
			CorrelationID: p.reference,
		})
		return false
	}

	e.audit.Record(ctx, data.AuditEventInsert{
		EntityType:    data.AuditEntityTransaction,
		EntityID:      tx.ID,
		Action:        data.AuditActionProviderQueryOK,
		Metadata:      map[string]any{"status": string(status), "phase": "fast"},
		CorrelationID: p.reference,
	})

	if status == provider.ClearanceStatusConfirmed {
		if err = e.handleConfirmation(ctx, tx.ID, p.reference); err != nil {
			e.errorCount.Add(1)
			log.WithContext(ctx).Errorf("fast poller confirming transaction %s: %v", p.reference, err)
			return false
		}
		return true
	}

	return false
}
