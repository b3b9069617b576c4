package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"sync"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RelayServiceName is the service reported next to the overall ("") status.
const RelayServiceName = "keychat.Relay"

// HealthServerWorker exposes grpc.health.v1.Health for orchestrators probing the relay.
type HealthServerWorker struct {
	log  *slog.Logger
	addr string

	mu       sync.Mutex
	listener net.Addr
}

func NewHealthServerWorker(log *slog.Logger, addr string) *HealthServerWorker {
	return &HealthServerWorker{log: log, addr: addr}
}

// Addr is the bound address once the worker listens, empty before.
func (w *HealthServerWorker) Addr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listener == nil {
		return ""
	}
	return w.listener.String()
}

func (w *HealthServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.addr)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.listener = listener.Addr()
	w.mu.Unlock()

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(w.log)))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(RelayServiceName, healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC health server", "address", listener.Addr().String())
		if err := s.Serve(listener); err != nil && !stderrors.Is(err, grpc.ErrServerStopped) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Watchers see NOT_SERVING before the server goes away
		healthServer.Shutdown()
		s.GracefulStop()
		return nil
	case err := <-errChan:
		s.Stop()
		return err
	}
}
