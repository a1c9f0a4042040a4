package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hatchpay/offramp-backend/internal/crashtracker"
	"github.com/hatchpay/offramp-backend/internal/scheduler/jobs"
)

func Test_Scheduler_Start(t *testing.T) {
	crashTrackerClient, err := crashtracker.NewDryRunClient()
	require.NoError(t, err)

	t.Run("fails with no jobs registered", func(t *testing.T) {
		s := NewScheduler(crashTrackerClient)
		err := s.Start(context.Background())
		assert.EqualError(t, err, "no jobs registered in the scheduler")
	})

	t.Run("skips ticks while a previous run is still in progress", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		var startedOnce sync.Once

		jobMock := &jobs.MockJob{}
		jobMock.On("GetName").Return("slow_job")
		jobMock.On("GetInterval").Return(10 * time.Millisecond)
		jobMock.On("Execute", mock.Anything).
			Run(func(_ mock.Arguments) {
				startedOnce.Do(func() { close(started) })
				<-release
			}).
			Return(nil)

		s := NewScheduler(crashTrackerClient, func(s *Scheduler) { s.addJob(jobMock) })
		require.NoError(t, s.Start(context.Background()))

		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not start before the deadline")
		}

		// Let several intervals elapse while the first run is blocked. The
		// ticks must be dropped instead of queueing up behind it.
		time.Sleep(100 * time.Millisecond)
		jobMock.AssertNumberOfCalls(t, "Execute", 1)

		close(release)
		s.Stop()
	})

	t.Run("stop unblocks tickers waiting behind a saturated worker pool", func(t *testing.T) {
		release := make(chan struct{})
		var started atomic.Int64

		newBlockingJob := func(name string) *jobs.MockJob {
			jobMock := &jobs.MockJob{}
			jobMock.On("GetName").Return(name)
			jobMock.On("GetInterval").Return(10 * time.Millisecond)
			jobMock.On("Execute", mock.Anything).
				Run(func(_ mock.Arguments) {
					started.Add(1)
					<-release
				}).
				Return(nil)
			return jobMock
		}

		// One more job than there are workers, so at least one ticker goroutine ends up
		// blocked sending to the queue.
		var registers []SchedulerJobRegisterOption
		for i := 0; i <= SchedulerWorkerCount; i++ {
			jobMock := newBlockingJob(fmt.Sprintf("blocking_job_%d", i))
			registers = append(registers, func(s *Scheduler) { s.addJob(jobMock) })
		}

		s := NewScheduler(crashTrackerClient, registers...)
		require.NoError(t, s.Start(context.Background()))

		require.Eventually(t, func() bool {
			return started.Load() == SchedulerWorkerCount
		}, 2*time.Second, 5*time.Millisecond)
		time.Sleep(50 * time.Millisecond)

		close(release)

		stopped := make(chan struct{})
		go func() {
			s.Stop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop did not return before the deadline")
		}
	})

	t.Run("🎉 ticks a registered job until stopped", func(t *testing.T) {
		executed := make(chan struct{}, 10)

		jobMock := &jobs.MockJob{}
		jobMock.On("GetName").Return("mock_job")
		jobMock.On("GetInterval").Return(10 * time.Millisecond)
		jobMock.On("Execute", mock.Anything).
			Run(func(_ mock.Arguments) { executed <- struct{}{} }).
			Return(nil)

		s := NewScheduler(crashTrackerClient, func(s *Scheduler) { s.addJob(jobMock) })
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()

		select {
		case <-executed:
		case <-time.After(2 * time.Second):
			t.Fatal("job was not executed before the deadline")
		}
	})
}
