package verification

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/monitor"
)

// handleConfirmation runs the exactly-once confirmation sequence: state CAS, audit, email,
// webhook, in that order. A CAS miss means another owner already handled the transaction
// and the caller stands down silently. Notification failures are audited but never block
// state progression.
func (e *Engine) handleConfirmation(ctx context.Context, txID, reference string) error {
	paidAt := e.clock.Now()

	tx, err := e.store.ConfirmPayment(ctx, txID, paidAt)
	if err != nil {
		if err == data.ErrRecordNotFound {
			log.WithContext(ctx).Debugf("confirmation CAS lost for transaction %s, standing down", reference)
			return nil
		}
		return fmt.Errorf("confirming payment for transaction %s: %w", reference, err)
	}

	e.audit.Record(ctx, data.AuditEventInsert{
		EntityType: data.AuditEntityTransaction,
		EntityID:   tx.ID,
		Action:     data.AuditActionPaymentConfirmed,
		Changes: map[string]any{
			"status":           string(tx.Status),
			"paidAt":           tx.PaidAt,
			"actualAmountPaid": tx.ActualAmountPaid.String,
		},
		CorrelationID: reference,
	})
	e.audit.Record(ctx, data.AuditEventInsert{
		EntityType:    data.AuditEntityTransaction,
		EntityID:      tx.ID,
		Action:        data.AuditActionStateTransition,
		Changes:       map[string]any{"to": string(data.PaidTransactionStatus)},
		CorrelationID: reference,
	})
	e.recordCounter(monitor.PaymentsConfirmedCounterTag)
	e.processed.Add(1)

	log.WithContext(ctx).Infof("payment confirmed for transaction %s", reference)

	// Best-effort email; failure does not block the webhook.
	if tx.SenderEmail.Valid && tx.SenderEmail.String != "" {
		if emailErr := e.sink.SendConfirmationEmail(ctx, tx); emailErr != nil {
			e.audit.Record(ctx, data.AuditEventInsert{
				EntityType:    data.AuditEntityTransaction,
				EntityID:      tx.ID,
				Action:        data.AuditActionEmailFailed,
				Metadata:      map[string]any{"error": emailErr.Error()},
				CorrelationID: reference,
			})
		} else {
			e.audit.Record(ctx, data.AuditEventInsert{
				EntityType:    data.AuditEntityTransaction,
				EntityID:      tx.ID,
				Action:        data.AuditActionEmailSent,
				CorrelationID: reference,
			})
		}
	}

	// Best-effort webhook, one attempt, no retries.
	if tx.SuccessURL.Valid && tx.SuccessURL.String != "" {
		if webhookErr := e.sink.SendConfirmationWebhook(ctx, tx); webhookErr != nil {
			e.audit.Record(ctx, data.AuditEventInsert{
				EntityType:    data.AuditEntityTransaction,
				EntityID:      tx.ID,
				Action:        data.AuditActionWebhookFailed,
				Metadata:      map[string]any{"error": webhookErr.Error()},
				CorrelationID: reference,
			})
		} else {
			e.audit.Record(ctx, data.AuditEventInsert{
				EntityType:    data.AuditEntityTransaction,
				EntityID:      tx.ID,
				Action:        data.AuditActionWebhookSent,
				CorrelationID: reference,
			})
		}
	}

	return nil
}

func (e *Engine) recordCounter(tag monitor.MetricTag) {
	if e.monitorService == nil {
		return
	}
	if err := e.monitorService.MonitorCounters(tag, nil); err != nil {
		log.Errorf("monitoring counter %s: %v", tag, err)
	}
}
