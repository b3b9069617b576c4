package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"keychat/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestTelemetryWorker_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	calls := make(chan struct{}, 10)
	worker := NewTelemetryWorker(logs.GetLoggerFromLevel(slog.LevelDebug), 5*time.Millisecond, func() observability.Snapshot {
		select {
		case calls <- struct{}{}:
		default:
		}
		return observability.Snapshot{}
	}, NamedChannel{Name: "events", Channel: make(chan int, 4)}, NamedChannel{Name: "bogus", Channel: 42})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	<-calls
	cancel()
	req.NoError(<-done)
}
