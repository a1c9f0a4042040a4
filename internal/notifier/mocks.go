package notifier

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/message"
)

type MockNotifySink struct {
	mock.Mock
}

func (m *MockNotifySink) SendConfirmationEmail(ctx context.Context, tx *data.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockNotifySink) SendExpirationNotice(ctx context.Context, tx *data.Transaction) (message.MessageChannel, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(message.MessageChannel), args.Error(1)
}

func (m *MockNotifySink) SendConfirmationWebhook(ctx context.Context, tx *data.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

var _ NotifySink = (*MockNotifySink)(nil)
