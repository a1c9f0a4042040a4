package jobs

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockJob struct {
	mock.Mock
}

func (m *MockJob) Execute(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockJob) GetInterval() time.Duration {
	return m.Called().Get(0).(time.Duration)
}

func (m *MockJob) GetName() string {
	return m.Called().Get(0).(string)
}

var _ Job = (*MockJob)(nil)

type MockSweepRunner struct {
	mock.Mock
}

func (m *MockSweepRunner) RunSweep(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ SweepRunner = (*MockSweepRunner)(nil)
