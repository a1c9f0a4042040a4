package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The action strings are persisted and consumed by downstream reporting; they are part of
// the audit trail's storage format and must not drift.
func Test_AuditAction_persistedVocabulary(t *testing.T) {
	assert.Equal(t, AuditAction("VERIFICATION_STARTED"), AuditActionVerificationStarted)
	assert.Equal(t, AuditAction("PROVIDER_QUERY_OK"), AuditActionProviderQueryOK)
	assert.Equal(t, AuditAction("PROVIDER_QUERY_FAIL"), AuditActionProviderQueryFailed)
	assert.Equal(t, AuditAction("PAYMENT_CONFIRMED"), AuditActionPaymentConfirmed)
	assert.Equal(t, AuditAction("TRANSACTION_EXPIRED"), AuditActionTransactionExpired)
	assert.Equal(t, AuditAction("WEBHOOK_SENT"), AuditActionWebhookSent)
	assert.Equal(t, AuditAction("WEBHOOK_FAILED"), AuditActionWebhookFailed)
	assert.Equal(t, AuditAction("EMAIL_SENT"), AuditActionEmailSent)
	assert.Equal(t, AuditAction("EMAIL_FAILED"), AuditActionEmailFailed)
	assert.Equal(t, AuditAction("SMS_SENT"), AuditActionSMSSent)
	assert.Equal(t, AuditAction("SMS_FAILED"), AuditActionSMSFailed)
	assert.Equal(t, AuditAction("LEASE_ACQUIRED"), AuditActionLeaseAcquired)
	assert.Equal(t, AuditAction("LEASE_RELEASED"), AuditActionLeaseReleased)
	assert.Equal(t, AuditAction("LEASE_STOLEN"), AuditActionLeaseStolen)
	assert.Equal(t, AuditAction("STATE_TRANSITION"), AuditActionStateTransition)
	assert.Equal(t, AuditAction("STATE_TRANSITION_REJECTED"), AuditActionStateTransitionRejected)
	assert.Equal(t, AuditAction("SWEEP_SKIPPED"), AuditActionSweepSkipped)
}

func Test_marshalNullable(t *testing.T) {
	empty, err := marshalNullable(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	got, err := marshalNullable(map[string]any{"from": "PENDING"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from": "PENDING"}`, string(got))
}
