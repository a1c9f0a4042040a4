package httphandler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hatchpay/offramp-backend/internal/verification"
)

type MockVerificationEngine struct {
	mock.Mock
}

func (m *MockVerificationEngine) StartVerification(ctx context.Context, reference string, payload verification.VerificationPayload) (*verification.Schedule, error) {
	args := m.Called(ctx, reference, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Schedule), args.Error(1)
}

func (m *MockVerificationEngine) GetStatus(ctx context.Context, reference string) (*verification.StatusSnapshot, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.StatusSnapshot), args.Error(1)
}

func (m *MockVerificationEngine) Stats() verification.Stats {
	return m.Called().Get(0).(verification.Stats)
}

var _ VerificationEngineInterface = (*MockVerificationEngine)(nil)
