package workers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const shutdownTimeout = 5 * time.Second

// HTTPServerWorker serves handler until its context is cancelled.
// Requests inherit the worker context, so open sessions end with it.
type HTTPServerWorker struct {
	log     *slog.Logger
	addr    string
	handler http.Handler

	mu       sync.Mutex
	listener net.Addr
}

func NewHTTPServerWorker(log *slog.Logger, addr string, handler http.Handler) *HTTPServerWorker {
	return &HTTPServerWorker{log: log, addr: addr, handler: handler}
}

// Addr is the bound address once the worker listens, empty before.
func (w *HTTPServerWorker) Addr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listener == nil {
		return ""
	}
	return w.listener.String()
}

func (w *HTTPServerWorker) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", w.addr)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.listener = lis.Addr()
	w.mu.Unlock()

	srv := &http.Server{
		Handler:           w.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(lis)
	}()
	w.log.Info("HTTP server listening", "addr", lis.Addr().String())

	select {
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			w.log.Warn("HTTP server shutdown", "error", err)
		}
		w.log.Info("HTTP server stopped")
		return nil
	}
}
