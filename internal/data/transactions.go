package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hatchpay/offramp-backend/db"
	"github.com/hatchpay/offramp-backend/internal/utils"
)

type PaymentMethod string

const (
	PaymentMethodBank PaymentMethod = "bank"
	PaymentMethodCard PaymentMethod = "card"
)

func (pm PaymentMethod) Validate() error {
	switch pm {
	case PaymentMethodBank, PaymentMethodCard:
		return nil
	default:
		return fmt.Errorf("invalid payment method: %s", pm)
	}
}

type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
)

func (c Currency) Validate() error {
	switch Currency(strings.ToUpper(string(c))) {
	case CurrencyNGN, CurrencyUSD, CurrencyGBP, CurrencyEUR:
		return nil
	default:
		return fmt.Errorf("invalid currency: %s", c)
	}
}

// Transaction is the central entity of the off-ramp verification flow. The engine drives it
// from PENDING to a terminal state through CAS updates only; don't mutate status directly,
// use the model methods instead.
type Transaction struct {
	ID            string            `db:"id"`
	Reference     string            `db:"reference"`
	PaymentLinkID string            `db:"payment_link_id"`
	Status        TransactionStatus `db:"status"`
	Amount        string            `db:"amount"`
	// ActualAmountPaid is copied from Amount when the provider confirms clearance.
	ActualAmountPaid sql.NullString `db:"actual_amount_paid"`
	Currency         Currency       `db:"currency"`
	// ProviderRef is the external payment provider's handle for this attempt.
	ProviderRef   sql.NullString `db:"provider_ref"`
	PaymentMethod sql.NullString `db:"payment_method"`
	SenderName    sql.NullString `db:"sender_name"`
	SenderEmail   sql.NullString `db:"sender_email"`
	SenderPhone   sql.NullString `db:"sender_phone"`
	SuccessURL    sql.NullString `db:"success_url"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	// VerificationStartedAt is stamped by StartVerification and opens the fast-poll window.
	VerificationStartedAt *time.Time `db:"verification_started_at"`
	// LastVerificationCheck is the last time any poller queried the provider for this row.
	LastVerificationCheck *time.Time `db:"last_verification_check"`
	ExpiresAt             time.Time  `db:"expires_at"`
	// ProcessingOwner and ProcessingStartedAt form a row-level soft lock. A lease older than
	// the staleness threshold may be stolen by another engine instance.
	ProcessingOwner     sql.NullString `db:"processing_owner"`
	ProcessingStartedAt *time.Time     `db:"processing_started_at"`
	PaidAt              *time.Time     `db:"paid_at"`
}

// IsLeased reports whether the row holds a lease that is still fresh at now.
func (t *Transaction) IsLeased(now time.Time, staleAfter time.Duration) bool {
	if !t.ProcessingOwner.Valid || t.ProcessingStartedAt == nil {
		return false
	}
	return t.ProcessingStartedAt.After(now.Add(-staleAfter))
}

func (t *Transaction) validate() error {
	if t.Reference == "" {
		return fmt.Errorf("reference is required")
	}
	if t.PaymentLinkID == "" {
		return fmt.Errorf("payment link ID is required")
	}
	if err := utils.ValidateAmount(t.Amount); err != nil {
		return fmt.Errorf("validating amount: %w", err)
	}
	if err := t.Currency.Validate(); err != nil {
		return fmt.Errorf("validating currency: %w", err)
	}
	if t.ExpiresAt.IsZero() {
		return fmt.Errorf("expiresAt is required")
	}
	return nil
}

// verifiableStatuses are the states in which the engine may still confirm a payment.
// Expiry is narrower: only PENDING may transition to PAYOUT_FAILED.
func verifiableStatuses() []TransactionStatus {
	return []TransactionStatus{PendingTransactionStatus, InitializedTransactionStatus}
}

type TransactionModel struct {
	dbConnectionPool db.DBConnectionPool
}

func NewTransactionModel(dbConnectionPool db.DBConnectionPool) *TransactionModel {
	return &TransactionModel{dbConnectionPool: dbConnectionPool}
}

func transactionColumnNames() string {
	columns := []string{
		"id",
		"reference",
		"payment_link_id",
		"status",
		"amount::text AS amount",
		"actual_amount_paid::text AS actual_amount_paid",
		"currency",
		"provider_ref",
		"payment_method",
		"sender_name",
		"sender_email",
		"sender_phone",
		"success_url",
		"created_at",
		"updated_at",
		"verification_started_at",
		"last_verification_check",
		"expires_at",
		"processing_owner",
		"processing_started_at",
		"paid_at",
	}
	return strings.Join(columns, ",\n\t\t\t\t")
}

// Insert adds a new Transaction to the database in PENDING state. The expiry deadline is
// computed by the caller (created_at + expiry window).
func (m *TransactionModel) Insert(ctx context.Context, tx Transaction) (*Transaction, error) {
	if err := tx.validate(); err != nil {
		return nil, fmt.Errorf("validating transaction for insertion: %w", err)
	}

	query := `
		INSERT INTO transactions
			(reference, payment_link_id, amount, currency, payment_method, sender_name, sender_email, sender_phone, success_url, expires_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING
			` + transactionColumnNames()

	var inserted Transaction
	err := m.dbConnectionPool.GetContext(ctx, &inserted, query,
		tx.Reference,
		tx.PaymentLinkID,
		tx.Amount,
		tx.Currency,
		tx.PaymentMethod,
		tx.SenderName,
		tx.SenderEmail,
		tx.SenderPhone,
		tx.SuccessURL,
		tx.ExpiresAt,
	)
	if err != nil {
		if pqErr := (&pq.Error{}); errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}

	return &inserted, nil
}

// Get gets a Transaction from the database by ID.
func (m *TransactionModel) Get(ctx context.Context, txID string) (*Transaction, error) {
	query := `
		SELECT
			` + transactionColumnNames() + `
		FROM
			transactions
		WHERE
			id = $1
		`
	var transaction Transaction
	err := m.dbConnectionPool.GetContext(ctx, &transaction, query, txID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying transaction ID %s: %w", txID, err)
	}
	return &transaction, nil
}

// GetByReference gets a Transaction from the database by its external reference.
func (m *TransactionModel) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	query := `
		SELECT
			` + transactionColumnNames() + `
		FROM
			transactions
		WHERE
			reference = $1
		`
	var transaction Transaction
	err := m.dbConnectionPool.GetContext(ctx, &transaction, query, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying transaction reference %s: %w", reference, err)
	}
	return &transaction, nil
}

// VerificationUpdate carries the fields StartVerification stamps on the transaction in one
// atomic update. Empty sender fields keep their stored values.
type VerificationUpdate struct {
	ProviderRef   string
	PaymentMethod PaymentMethod
	SenderName    string
	SenderEmail   string
	SenderPhone   string
	SuccessURL    string
	StartedAt     time.Time
}

// BeginVerification stamps verification_started_at, the provider reference and the payer
// fields in one atomic update, guarded by the transaction still being PENDING or
// INITIALIZED. Returns ErrRecordNotFound when the guard fails.
func (m *TransactionModel) BeginVerification(ctx context.Context, txID string, upd VerificationUpdate) (*Transaction, error) {
	query := `
		UPDATE
			transactions
		SET
			provider_ref = $1,
			verification_started_at = $2,
			sender_name = COALESCE(NULLIF($3, ''), sender_name),
			sender_email = COALESCE(NULLIF($4, ''), sender_email),
			sender_phone = COALESCE(NULLIF($5, ''), sender_phone),
			success_url = COALESCE(NULLIF($6, ''), success_url),
			payment_method = COALESCE(payment_method, $7),
			updated_at = $2
		WHERE
			id = $8
			AND status = ANY($9)
		RETURNING
			` + transactionColumnNames()

	allowedStatuses := []TransactionStatus{PendingTransactionStatus, InitializedTransactionStatus}
	var updated Transaction
	err := m.dbConnectionPool.GetContext(ctx, &updated, query,
		upd.ProviderRef,
		upd.StartedAt,
		upd.SenderName,
		upd.SenderEmail,
		upd.SenderPhone,
		upd.SuccessURL,
		utils.SQLNullString(string(upd.PaymentMethod)),
		txID,
		pq.Array(allowedStatuses),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("beginning verification for transaction %s: %w", txID, err)
	}

	return &updated, nil
}

// TouchVerificationCheck bumps last_verification_check, keeping it monotonically
// non-decreasing, guarded by the transaction still being verifiable.
func (m *TransactionModel) TouchVerificationCheck(ctx context.Context, txID string, checkedAt time.Time) (*Transaction, error) {
	query := `
		UPDATE
			transactions
		SET
			last_verification_check = GREATEST(COALESCE(last_verification_check, $1), $1)
		WHERE
			id = $2
			AND status = ANY($3)
		RETURNING
			` + transactionColumnNames()

	var updated Transaction
	err := m.dbConnectionPool.GetContext(ctx, &updated, query, checkedAt, txID, pq.Array(verifiableStatuses()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("touching verification check for transaction %s: %w", txID, err)
	}

	return &updated, nil
}

// AcquireLease claims the row-level soft lock for owner. The CAS succeeds only while the
// transaction is still verifiable and the lease is free or stale (processing_started_at
// older than staleBefore). Returns ErrRecordNotFound when another owner holds a fresh lease.
func (m *TransactionModel) AcquireLease(ctx context.Context, txID, owner string, now, staleBefore time.Time) (*Transaction, error) {
	query := `
		UPDATE
			transactions
		SET
			processing_owner = $1,
			processing_started_at = $2,
			last_verification_check = GREATEST(COALESCE(last_verification_check, $2), $2)
		WHERE
			id = $3
			AND status = ANY($4)
			AND (processing_owner IS NULL OR processing_started_at < $5)
		RETURNING
			` + transactionColumnNames()

	var updated Transaction
	err := m.dbConnectionPool.GetContext(ctx, &updated, query, owner, now, txID, pq.Array(verifiableStatuses()), staleBefore)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("acquiring lease on transaction %s for owner %s: %w", txID, owner, err)
	}

	return &updated, nil
}

// ReleaseLease lifts the soft lock, but only if owner still holds it.
func (m *TransactionModel) ReleaseLease(ctx context.Context, txID, owner string) error {
	query := `
		UPDATE
			transactions
		SET
			processing_owner = NULL,
			processing_started_at = NULL
		WHERE
			id = $1
			AND processing_owner = $2
		`
	result, err := m.dbConnectionPool.ExecContext(ctx, query, txID, owner)
	if err != nil {
		return fmt.Errorf("releasing lease on transaction %s for owner %s: %w", txID, owner, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// ReleaseLeasesOwnedBy clears every lease held by owner. Used during engine shutdown.
func (m *TransactionModel) ReleaseLeasesOwnedBy(ctx context.Context, owner string) (int64, error) {
	query := `
		UPDATE
			transactions
		SET
			processing_owner = NULL,
			processing_started_at = NULL
		WHERE
			processing_owner = $1
		`
	result, err := m.dbConnectionPool.ExecContext(ctx, query, owner)
	if err != nil {
		return 0, fmt.Errorf("releasing leases owned by %s: %w", owner, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected, nil
}

// StolenLease identifies a stale lease cleared during crash recovery.
type StolenLease struct {
	TransactionID string         `db:"id"`
	PreviousOwner sql.NullString `db:"previous_owner"`
}

// ReleaseStaleLeases clears every lease whose processing_started_at is older than
// staleBefore, regardless of owner. A crashed engine cannot orphan a row forever.
func (m *TransactionModel) ReleaseStaleLeases(ctx context.Context, staleBefore time.Time) ([]StolenLease, error) {
	query := `
		UPDATE
			transactions
		SET
			processing_owner = NULL,
			processing_started_at = NULL
		FROM
			(SELECT id, processing_owner AS previous_owner FROM transactions
			 WHERE processing_owner IS NOT NULL AND processing_started_at < $1) stale
		WHERE
			transactions.id = stale.id
		RETURNING
			stale.id, stale.previous_owner
		`
	var stolen []StolenLease
	err := m.dbConnectionPool.SelectContext(ctx, &stolen, query, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("releasing stale leases: %w", err)
	}

	return stolen, nil
}

// ConfirmPayment performs the single atomic transition to PAID: sets paid_at, copies
// actual_amount_paid from amount and clears the lease. Returns ErrRecordNotFound when
// another owner already won the CAS; the caller must stand down without side effects.
func (m *TransactionModel) ConfirmPayment(ctx context.Context, txID string, paidAt time.Time) (*Transaction, error) {
	for _, status := range verifiableStatuses() {
		if err := status.TransitionTo(PaidTransactionStatus); err != nil {
			return nil, fmt.Errorf("attempting to transition transaction status to PaidTransactionStatus: %w", err)
		}
	}

	query := `
		UPDATE
			transactions
		SET
			status = $1,
			paid_at = $2,
			actual_amount_paid = amount,
			processing_owner = NULL,
			processing_started_at = NULL,
			updated_at = $2
		WHERE
			id = $3
			AND status = ANY($4)
		RETURNING
			` + transactionColumnNames()

	var updated Transaction
	err := m.dbConnectionPool.GetContext(ctx, &updated, query, PaidTransactionStatus, paidAt, txID, pq.Array(verifiableStatuses()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("confirming payment for transaction %s: %w", txID, err)
	}

	return &updated, nil
}

// ExpireTransaction performs the atomic PENDING->PAYOUT_FAILED transition for a transaction
// whose deadline has passed. expires_at <= now counts as expired.
func (m *TransactionModel) ExpireTransaction(ctx context.Context, txID string, now time.Time) (*Transaction, error) {
	if err := PendingTransactionStatus.TransitionTo(PayoutFailedTransactionStatus); err != nil {
		return nil, fmt.Errorf("attempting to transition transaction status to PayoutFailedTransactionStatus: %w", err)
	}

	query := `
		UPDATE
			transactions
		SET
			status = $1,
			processing_owner = NULL,
			processing_started_at = NULL,
			updated_at = $2
		WHERE
			id = $3
			AND status = $4
			AND expires_at <= $2
		RETURNING
			` + transactionColumnNames()

	var updated Transaction
	err := m.dbConnectionPool.GetContext(ctx, &updated, query, PayoutFailedTransactionStatus, now, txID, PendingTransactionStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("expiring transaction %s: %w", txID, err)
	}

	return &updated, nil
}

// SweepQuery narrows the slow-sweep batch. All cutoffs are computed by the engine from its
// own clock so that every instance applies the same policy.
type SweepQuery struct {
	Now time.Time
	// StartedBefore excludes rows still inside the fast-poll window plus the policy buffer.
	StartedBefore time.Time
	// CheckedBefore excludes rows polled more recently than one slow-sweep interval ago.
	CheckedBefore time.Time
	// LeaseStaleBefore marks the lease-staleness boundary; fresher leases exclude the row.
	LeaseStaleBefore time.Time
	Limit            int
	// IncludeUnverified also selects rows that never went through StartVerification.
	IncludeUnverified bool
}

// GetSweepBatch returns up to Limit verifiable transactions eligible for the slow-sweep
// phase, oldest verification_started_at first.
func (m *TransactionModel) GetSweepBatch(ctx context.Context, q SweepQuery) ([]*Transaction, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}

	startedFilter := "verification_started_at < $2"
	if q.IncludeUnverified {
		startedFilter = "(verification_started_at IS NULL OR verification_started_at < $2)"
	}

	query := `
		SELECT
			` + transactionColumnNames() + `
		FROM
			transactions
		WHERE
			status = ANY($1)
			AND expires_at > $3
			AND ` + startedFilter + `
			AND (last_verification_check IS NULL OR last_verification_check < $4)
			AND (processing_owner IS NULL OR processing_started_at < $5)
		ORDER BY
			verification_started_at ASC NULLS LAST
		LIMIT
			$6
		`

	transactions := []*Transaction{}
	err := m.dbConnectionPool.SelectContext(ctx, &transactions, query,
		pq.Array(verifiableStatuses()),
		q.StartedBefore,
		q.Now,
		q.CheckedBefore,
		q.LeaseStaleBefore,
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sweep batch: %w", err)
	}

	return transactions, nil
}

// GetExpired returns up to limit PENDING transactions whose deadline has passed.
func (m *TransactionModel) GetExpired(ctx context.Context, now time.Time, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	query := `
		SELECT
			` + transactionColumnNames() + `
		FROM
			transactions
		WHERE
			status = $1
			AND expires_at <= $2
		ORDER BY
			expires_at ASC
		LIMIT
			$3
		`

	transactions := []*Transaction{}
	err := m.dbConnectionPool.SelectContext(ctx, &transactions, query, PendingTransactionStatus, now, limit)
	if err != nil {
		return nil, fmt.Errorf("querying expired transactions: %w", err)
	}

	return transactions, nil
}
