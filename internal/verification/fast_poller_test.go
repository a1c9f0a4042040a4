package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/provider"
)

func Test_fastPoller_tick(t *testing.T) {
	ctx := context.Background()

	t.Run("exits when the transaction disappeared", func(t *testing.T) {
		f := newEngineFixture(t)
		p := newFastPoller(f.engine, "tx-1", "TX123")
		f.store.On("GetByReference", mock.Anything, "TX123").Return(nil, data.ErrRecordNotFound).Once()

		assert.True(t, p.tick(ctx))
	})

	t.Run("exits when the transaction left the verifiable states", func(t *testing.T) {
		f := newEngineFixture(t)
		p := newFastPoller(f.engine, "tx-1", "TX123")
		f.store.On("GetByReference", mock.Anything, "TX123").Return(newVerifiableTransaction(data.PaidTransactionStatus), nil).Once()

		assert.True(t, p.tick(ctx))
		f.store.AssertNotCalled(t, "TouchVerificationCheck", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("keeps polling after a transient read error", func(t *testing.T) {
		f := newEngineFixture(t)
		p := newFastPoller(f.engine, "tx-1", "TX123")
		f.store.On("GetByReference", mock.Anything, "TX123").Return(nil, assert.AnError).Once()

		assert.False(t, p.tick(ctx))
		assert.Equal(t, int64(1), f.engine.errorCount.Load())
	})

	t.Run("exits when the touch guard fails", func(t *testing.T) {
		f := newEngineFixture(t)
		p := newFastPoller(f.engine, "tx-1", "TX123")
		tx := newVerifiableTransaction(data.PendingTransactionStatus)
		f.store.On("GetByReference", mock.Anything, "TX123").Return(tx, nil).Once()
		f.store.On("TouchVerificationCheck", mock.Anything, "tx-1", f.clock.Now()).Return(nil, data.ErrRecordNotFound).Once()

		assert.True(t, p.tick(ctx))
		f.provider.AssertNotCalled(t, "QueryClearance", mock.Anything, mock.Anything)
	})

	t.Run("provider errors are audited and do not terminate the loop", func(t *testing.T) {
		f := newEngineFixture(t)
		p := newFastPoller(f.engine, "tx-1", "TX123")
		tx := newVerifiableTransaction(data.PendingTransactionStatus)
		f.store.On("GetByReference", mock.Anything, "TX123").Return(tx, nil).Once()
		f.store.On("TouchVerificationCheck", mock.Anything, "tx-1", mock.Anything).Return(tx, nil).Once()
		f.provider.On("QueryClearance", mock.Anything, mock.Anything).Return(provider.ClearanceStatus(""), assert.AnError).Once()

		assert.False(t, p.tick(ctx))
		require.Equal(t, 1, f.audit.CountByAction(data.AuditActionProviderQueryFailed))
		event := f.audit.Events[0]
		assert.Equal(t, "fast", event.Metadata["phase"])
		assert.Equal(t, 0, f.audit.CountByAction(data.AuditActionProviderQueryOK))
	})

	t.Run("a NOT_YET answer keeps the loop going", func(t *testing.T) {
		f := newEngineFixture(t)
		p := newFastPoller(f.engine, "tx-1", "TX123")
		tx := newVerifiableTransaction(data.PendingTransactionStatus)
		f.store.On("GetByReference", mock.Anything, "TX123").Return(tx, nil).Once()
		f.store.On("TouchVerificationCheck", mock.Anything, "tx-1", mock.Anything).Return(tx, nil).Once()
		f.provider.
			On("QueryClearance", mock.Anything, provider.ClearanceRequest{
				Currency:    "NGN",
				ProviderRef: "prov-abc",
			}).
			Return(provider.ClearanceStatusNotYet, nil).
			Once()

		assert.False(t, p.tick(ctx))
		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionProviderQueryOK))
		assert.Equal(t, 0, f.audit.CountByAction(data.AuditActionPaymentConfirmed))
	})

	t.Run("🎉 a CONFIRMED answer confirms the payment and exits", func(t *testing.T) {
		f := newEngineFixture(t)
		p := newFastPoller(f.engine, "tx-1", "TX123")
		tx := newVerifiableTransaction(data.PendingTransactionStatus)
		paid := newVerifiableTransaction(data.PaidTransactionStatus)

		f.store.On("GetByReference", mock.Anything, "TX123").Return(tx, nil).Once()
		f.store.On("TouchVerificationCheck", mock.Anything, "tx-1", mock.Anything).Return(tx, nil).Once()
		f.provider.On("QueryClearance", mock.Anything, mock.Anything).Return(provider.ClearanceStatusConfirmed, nil).Once()
		f.store.On("ConfirmPayment", mock.Anything, "tx-1", f.clock.Now()).Return(paid, nil).Once()

		assert.True(t, p.tick(ctx))
		assert.Equal(t, 1, f.audit.CountByAction(data.AuditActionPaymentConfirmed))
		f.store.AssertExpectations(t)
	})
}

func Test_fastPoller_run(t *testing.T) {
	t.Run("stops immediately on a cancelled context", func(t *testing.T) {
		f := newEngineFixture(t)
		p := newFastPoller(f.engine, "tx-1", "TX123")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p.run(ctx)

		f.store.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything)
	})

	t.Run("polls on the configured cadence until the window closes", func(t *testing.T) {
		f := newEngineFixture(t)
		f.engine.cfg.FastPollInterval = 3 * time.Second
		f.engine.cfg.FastPollMaxDuration = 10 * time.Second

		tx := newVerifiableTransaction(data.PendingTransactionStatus)
		f.store.On("GetByReference", mock.Anything, "TX123").Return(tx, nil)
		f.store.On("TouchVerificationCheck", mock.Anything, "tx-1", mock.Anything).Return(tx, nil)
		f.provider.On("QueryClearance", mock.Anything, mock.Anything).Return(provider.ClearanceStatusNotYet, nil)

		p := newFastPoller(f.engine, "tx-1", "TX123")
		p.run(context.Background())

		// Ticks land at t=0s, 3s, 6s and 9s; the 12s mark is past the 10s window.
		f.provider.AssertNumberOfCalls(t, "QueryClearance", 4)
	})

	t.Run("the window is measured from the poller's start", func(t *testing.T) {
		f := newEngineFixture(t)
		f.engine.cfg.FastPollInterval = 3 * time.Second
		f.engine.cfg.FastPollMaxDuration = 10 * time.Second

		// The transaction confirms on the second tick; the poller must not outlive it.
		tx := newVerifiableTransaction(data.PendingTransactionStatus)
		paid := newVerifiableTransaction(data.PaidTransactionStatus)
		f.store.On("GetByReference", mock.Anything, "TX123").Return(tx, nil).Once()
		f.store.On("GetByReference", mock.Anything, "TX123").Return(paid, nil).Once()
		f.store.On("TouchVerificationCheck", mock.Anything, "tx-1", mock.Anything).Return(tx, nil)
		f.provider.On("QueryClearance", mock.Anything, mock.Anything).Return(provider.ClearanceStatusNotYet, nil)

		p := newFastPoller(f.engine, "tx-1", "TX123")
		p.run(context.Background())

		f.provider.AssertNumberOfCalls(t, "QueryClearance", 1)
	})
}
