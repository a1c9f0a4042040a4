package verification

import (
	"context"
	"time"

	"github.com/hatchpay/offramp-backend/internal/data"
)

// TransactionStore is the slice of the data layer the engine drives. Every mutation is a
// CAS; data.ErrRecordNotFound means the guard failed and the caller must stand down.
type TransactionStore interface {
	GetByReference(ctx context.Context, reference string) (*data.Transaction, error)
	BeginVerification(ctx context.Context, txID string, upd data.VerificationUpdate) (*data.Transaction, error)
	TouchVerificationCheck(ctx context.Context, txID string, checkedAt time.Time) (*data.Transaction, error)
	AcquireLease(ctx context.Context, txID, owner string, now, staleBefore time.Time) (*data.Transaction, error)
	ReleaseLease(ctx context.Context, txID, owner string) error
	ReleaseStaleLeases(ctx context.Context, staleBefore time.Time) ([]data.StolenLease, error)
	ReleaseLeasesOwnedBy(ctx context.Context, owner string) (int64, error)
	ConfirmPayment(ctx context.Context, txID string, paidAt time.Time) (*data.Transaction, error)
	ExpireTransaction(ctx context.Context, txID string, now time.Time) (*data.Transaction, error)
	GetSweepBatch(ctx context.Context, q data.SweepQuery) ([]*data.Transaction, error)
	GetExpired(ctx context.Context, now time.Time, limit int) ([]*data.Transaction, error)
}

var _ TransactionStore = (*data.TransactionModel)(nil)

// AuditLogger appends audit events. Record is fire-and-forget; audit failures never break
// the operation they describe.
type AuditLogger interface {
	Record(ctx context.Context, insert data.AuditEventInsert)
}

var _ AuditLogger = (*data.AuditEventModel)(nil)
