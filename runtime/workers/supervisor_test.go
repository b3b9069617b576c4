package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"keychat/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	var calls atomic.Int32
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		}).
		AnyTimes()

	sup := NewSupervisor(log, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(ctx)
		close(done)
	}()

	// Waiting for panics and restarts
	<-done
	req.GreaterOrEqual(calls.Load(), int32(2))
}

func TestSupervisor_RestartOnError(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker failing once then finishing
	gomock.InOrder(
		workerMock.EXPECT().Run(gomock.Any()).Return(context.DeadlineExceeded),
		workerMock.EXPECT().Run(gomock.Any()).Return(nil),
	)

	sup := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelDebug), time.Millisecond)

	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Supervisor should have stopped after the second run")
	}
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker running only once
	workerMock.EXPECT().
		Run(gomock.Any()).
		Return(nil).
		Times(1)

	sup := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelDebug), time.Millisecond)

	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then supervisor detected a success and stopped
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

func TestSupervisor_Stop(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	started := make(chan struct{})
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)

	sup := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelDebug), time.Millisecond)
	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	// When the supervisor is stopped
	<-started
	sup.Stop()

	// Then the worker is not restarted
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Supervisor did not stop")
	}
}
