package server

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServerWorker_Serving(t *testing.T) {
	req := require.New(t)
	worker := NewHealthServerWorker(logs.GetLoggerFromLevel(slog.LevelDebug), "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	req.Eventually(func() bool { return worker.Addr() != "" }, time.Second, 5*time.Millisecond)

	// Given a client of the health service
	conn, err := grpc.NewClient("passthrough:///"+worker.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	checkCtx, cancelCheck := context.WithTimeout(context.Background(), time.Second)
	defer cancelCheck()

	// When the overall and relay statuses are checked
	overall, err := client.Check(checkCtx, &healthpb.HealthCheckRequest{})
	req.NoError(err)
	relay, err := client.Check(checkCtx, &healthpb.HealthCheckRequest{Service: RelayServiceName})
	req.NoError(err)

	// Then both are serving
	req.Equal(healthpb.HealthCheckResponse_SERVING, overall.GetStatus())
	req.Equal(healthpb.HealthCheckResponse_SERVING, relay.GetStatus())

	// When the worker is cancelled it stops cleanly
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("health server did not stop")
	}
}
