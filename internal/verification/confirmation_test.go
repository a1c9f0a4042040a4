package verification

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hatchpay/offramp-backend/internal/data"
)

func Test_Engine_handleConfirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("stands down silently when the CAS is lost", func(t *testing.T) {
		f := newEngineFixture(t)
		f.store.On("ConfirmPayment", mock.Anything, "tx-1", f.clock.Now()).Return(nil, data.ErrRecordNotFound).Once()

		err := f.engine.handleConfirmation(ctx, "tx-1", "TX123")
		require.NoError(t, err)

		// No side effects at all: the winning owner already produced them.
		assert.Empty(t, f.audit.Events)
		assert.Zero(t, f.engine.processed.Load())
		f.sink.AssertNotCalled(t, "SendConfirmationEmail", mock.Anything, mock.Anything)
		f.sink.AssertNotCalled(t, "SendConfirmationWebhook", mock.Anything, mock.Anything)
	})

	t.Run("surfaces unexpected store errors", func(t *testing.T) {
		f := newEngineFixture(t)
		f.store.On("ConfirmPayment", mock.Anything, "tx-1", mock.Anything).Return(nil, assert.AnError).Once()

		err := f.engine.handleConfirmation(ctx, "tx-1", "TX123")
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, f.audit.Events)
	})

	t.Run("🎉 confirms, audits and notifies exactly once", func(t *testing.T) {
		f := newEngineFixture(t)
		paidAt := f.clock.Now()
		paid := newVerifiableTransaction(data.PaidTransactionStatus)
		paid.PaidAt = &paidAt
		paid.ActualAmountPaid = sql.NullString{String: "150.00", Valid: true}
		paid.SenderEmail = sql.NullString{String: "aisha@example.com", Valid: true}
		paid.SuccessURL = sql.NullString{String: "https://merchant.example.com/callback", Valid: true}

		f.store.On("ConfirmPayment", mock.Anything, "tx-1", paidAt).Return(paid, nil).Once()
		f.sink.On("SendConfirmationEmail", mock.Anything, paid).Return(nil).Once()
		f.sink.On("SendConfirmationWebhook", mock.Anything, paid).Return(nil).Once()

		require.NoError(t, f.engine.handleConfirmation(ctx, "tx-1", "TX123"))

		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionPaymentConfirmed))
		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionStateTransition))
		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionEmailSent))
		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionWebhookSent))
		assert.Equal(t, int64(1), f.engine.processed.Load())

		confirmed := f.audit.Events[0]
		assert.Equal(t, string(data.PaidTransactionStatus), confirmed.Changes["status"])
		assert.Equal(t, "150.00", confirmed.Changes["actualAmountPaid"])
		assert.Equal(t, "TX123", confirmed.CorrelationID)

		f.sink.AssertExpectations(t)
	})

	t.Run("an email failure is audited but does not block the webhook", func(t *testing.T) {
		f := newEngineFixture(t)
		paid := newVerifiableTransaction(data.PaidTransactionStatus)
		paid.SenderEmail = sql.NullString{String: "aisha@example.com", Valid: true}
		paid.SuccessURL = sql.NullString{String: "https://merchant.example.com/callback", Valid: true}

		f.store.On("ConfirmPayment", mock.Anything, "tx-1", mock.Anything).Return(paid, nil).Once()
		f.sink.On("SendConfirmationEmail", mock.Anything, paid).Return(assert.AnError).Once()
		f.sink.On("SendConfirmationWebhook", mock.Anything, paid).Return(nil).Once()

		require.NoError(t, f.engine.handleConfirmation(ctx, "tx-1", "TX123"))

		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionEmailFailed))
		assert.Equal(t, 0, f.audit.CountByAction(data.AuditActionEmailSent))
		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionWebhookSent))
		f.sink.AssertExpectations(t)
	})

	t.Run("a webhook failure is audited", func(t *testing.T) {
		f := newEngineFixture(t)
		paid := newVerifiableTransaction(data.PaidTransactionStatus)
		paid.SuccessURL = sql.NullString{String: "https://merchant.example.com/callback", Valid: true}

		f.store.On("ConfirmPayment", mock.Anything, "tx-1", mock.Anything).Return(paid, nil).Once()
		f.sink.On("SendConfirmationWebhook", mock.Anything, paid).Return(assert.AnError).Once()

		require.NoError(t, f.engine.handleConfirmation(ctx, "tx-1", "TX123"))

		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionWebhookFailed))
		assert.Equal(t, 0, f.audit.CountByAction(data.AuditActionWebhookSent))
	})

	t.Run("skips notifications the transaction has no recipients for", func(t *testing.T) {
		f := newEngineFixture(t)
		paid := newVerifiableTransaction(data.PaidTransactionStatus)

		f.store.On("ConfirmPayment", mock.Anything, "tx-1", mock.Anything).Return(paid, nil).Once()

		require.NoError(t, f.engine.handleConfirmation(ctx, "tx-1", "TX123"))

		f.sink.AssertNotCalled(t, "SendConfirmationEmail", mock.Anything, mock.Anything)
		f.sink.AssertNotCalled(t, "SendConfirmationWebhook", mock.Anything, mock.Anything)
		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionPaymentConfirmed))
	})
}
