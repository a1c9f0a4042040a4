package verification

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hatchpay/offramp-backend/internal/data"
)

type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) GetByReference(ctx context.Context, reference string) (*data.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transaction), args.Error(1)
}

func (m *MockTransactionStore) BeginVerification(ctx context.Context, txID string, upd data.VerificationUpdate) (*data.Transaction, error) {
	args := m.Called(ctx, txID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transaction), args.Error(1)
}

func (m *MockTransactionStore) TouchVerificationCheck(ctx context.Context, txID string, checkedAt time.Time) (*data.Transaction, error) {
	args := m.Called(ctx, txID, checkedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transaction), args.Error(1)
}

func (m *MockTransactionStore) AcquireLease(ctx context.Context, txID, owner string, now, staleBefore time.Time) (*data.Transaction, error) {
	args := m.Called(ctx, txID, owner, now, staleBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transaction), args.Error(1)
}

func (m *MockTransactionStore) ReleaseLease(ctx context.Context, txID, owner string) error {
	return m.Called(ctx, txID, owner).Error(0)
}

func (m *MockTransactionStore) ReleaseStaleLeases(ctx context.Context, staleBefore time.Time) ([]data.StolenLease, error) {
	args := m.Called(ctx, staleBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.StolenLease), args.Error(1)
}

func (m *MockTransactionStore) ReleaseLeasesOwnedBy(ctx context.Context, owner string) (int64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionStore) ConfirmPayment(ctx context.Context, txID string, paidAt time.Time) (*data.Transaction, error) {
	args := m.Called(ctx, txID, paidAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transaction), args.Error(1)
}

func (m *MockTransactionStore) ExpireTransaction(ctx context.Context, txID string, now time.Time) (*data.Transaction, error) {
	args := m.Called(ctx, txID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Transaction), args.Error(1)
}

func (m *MockTransactionStore) GetSweepBatch(ctx context.Context, q data.SweepQuery) ([]*data.Transaction, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*data.Transaction), args.Error(1)
}

func (m *MockTransactionStore) GetExpired(ctx context.Context, now time.Time, limit int) ([]*data.Transaction, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*data.Transaction), args.Error(1)
}

var _ TransactionStore = (*MockTransactionStore)(nil)

// RecordingAuditLogger captures audit events in memory for assertions.
type RecordingAuditLogger struct {
	mu     sync.Mutex
	Events []data.AuditEventInsert
}

func (r *RecordingAuditLogger) Record(_ context.Context, insert data.AuditEventInsert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, insert)
}

// CountByAction returns how many captured events carry the given action.
func (r *RecordingAuditLogger) CountByAction(action data.AuditAction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.Events {
		if e.Action == action {
			count++
		}
	}
	return count
}

var _ AuditLogger = (*RecordingAuditLogger)(nil)

// ManualClock is a deterministic Clock for tests: Sleep advances the clock instead of
// blocking on the wall clock.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ Clock = (*ManualClock)(nil)
