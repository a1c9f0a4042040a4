package provider

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryClearance(ctx context.Context, req ClearanceRequest) (ClearanceStatus, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ClearanceStatus), args.Error(1)
}

var _ ClientInterface = (*MockClient)(nil)
