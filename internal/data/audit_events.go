package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/db"
)

type AuditAction string

const (
	AuditActionVerificationStarted     AuditAction = "VERIFICATION_STARTED"
	AuditActionProviderQueryOK         AuditAction = "PROVIDER_QUERY_OK"
	AuditActionProviderQueryFailed     AuditAction = "PROVIDER_QUERY_FAIL"
	AuditActionPaymentConfirmed        AuditAction = "PAYMENT_CONFIRMED"
	AuditActionTransactionExpired      AuditAction = "TRANSACTION_EXPIRED"
	AuditActionWebhookSent             AuditAction = "WEBHOOK_SENT"
	AuditActionWebhookFailed           AuditAction = "WEBHOOK_FAILED"
	AuditActionEmailSent               AuditAction = "EMAIL_SENT"
	AuditActionEmailFailed             AuditAction = "EMAIL_FAILED"
	AuditActionSMSSent                 AuditAction = "SMS_SENT"
	AuditActionSMSFailed               AuditAction = "SMS_FAILED"
	AuditActionLeaseAcquired           AuditAction = "LEASE_ACQUIRED"
	AuditActionLeaseReleased           AuditAction = "LEASE_RELEASED"
	AuditActionLeaseStolen             AuditAction = "LEASE_STOLEN"
	AuditActionStateTransition         AuditAction = "STATE_TRANSITION"
	AuditActionStateTransitionRejected AuditAction = "STATE_TRANSITION_REJECTED"
	AuditActionSweepSkipped            AuditAction = "SWEEP_SKIPPED"
)

const AuditEntityTransaction = "transaction"

// AuditEvent is an append-only record of something the engine did or observed. Events are
// advisory; the transaction row remains the source of truth.
type AuditEvent struct {
	ID            string          `db:"id"`
	EntityType    string          `db:"entity_type"`
	EntityID      string          `db:"entity_id"`
	Action        AuditAction     `db:"action"`
	Changes       json.RawMessage `db:"changes"`
	Metadata      json.RawMessage `db:"metadata"`
	CorrelationID sql.NullString  `db:"correlation_id"`
	CreatedAt     time.Time       `db:"created_at"`
}

type AuditEventModel struct {
	dbConnectionPool db.DBConnectionPool
}

func NewAuditEventModel(dbConnectionPool db.DBConnectionPool) *AuditEventModel {
	return &AuditEventModel{dbConnectionPool: dbConnectionPool}
}

type AuditEventInsert struct {
	EntityType    string
	EntityID      string
	Action        AuditAction
	Changes       map[string]any
	Metadata      map[string]any
	CorrelationID string
}

func (m *AuditEventModel) Insert(ctx context.Context, insert AuditEventInsert) (*AuditEvent, error) {
	if insert.EntityType == "" || insert.EntityID == "" || insert.Action == "" {
		return nil, fmt.Errorf("entity type, entity ID and action are required")
	}

	changesJSON, err := marshalNullable(insert.Changes)
	if err != nil {
		return nil, fmt.Errorf("marshalling changes: %w", err)
	}
	metadataJSON, err := marshalNullable(insert.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshalling metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events
			(id, entity_type, entity_id, action, changes, metadata, correlation_id)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)
		RETURNING
			id, entity_type, entity_id, action, changes, metadata, correlation_id, created_at
		`

	var correlationID sql.NullString
	if insert.CorrelationID != "" {
		correlationID = sql.NullString{String: insert.CorrelationID, Valid: true}
	}

	var event AuditEvent
	err = m.dbConnectionPool.GetContext(ctx, &event, query,
		uuid.NewString(),
		insert.EntityType,
		insert.EntityID,
		insert.Action,
		changesJSON,
		metadataJSON,
		correlationID,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting audit event: %w", err)
	}

	return &event, nil
}

// Record inserts an audit event and logs instead of failing when the insert errors out.
// Audit writes must never break the operation they describe.
func (m *AuditEventModel) Record(ctx context.Context, insert AuditEventInsert) {
	if _, err := m.Insert(ctx, insert); err != nil {
		log.WithContext(ctx).Errorf("recording audit event %s for %s %s: %v", insert.Action, insert.EntityType, insert.EntityID, err)
	}
}

// GetByEntityID returns the audit trail for an entity, oldest first.
func (m *AuditEventModel) GetByEntityID(ctx context.Context, entityType, entityID string) ([]*AuditEvent, error) {
	query := `
		SELECT
			id, entity_type, entity_id, action, changes, metadata, correlation_id, created_at
		FROM
			audit_events
		WHERE
			entity_type = $1
			AND entity_id = $2
		ORDER BY
			created_at ASC
		`
	events := []*AuditEvent{}
	err := m.dbConnectionPool.SelectContext(ctx, &events, query, entityType, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying audit events for %s %s: %w", entityType, entityID, err)
	}

	return events, nil
}

func marshalNullable(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
