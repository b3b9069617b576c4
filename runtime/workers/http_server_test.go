package workers

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHTTPServerWorker_Serves_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	worker := NewHTTPServerWorker(logs.GetLoggerFromLevel(slog.LevelDebug), "127.0.0.1:0", handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Given the server is listening
	req.Eventually(func() bool { return worker.Addr() != "" }, time.Second, 5*time.Millisecond)

	// When a request is sent
	resp, err := http.Get("http://" + worker.Addr() + "/ping")
	req.NoError(err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	// Then it is served
	req.NoError(err)
	req.Equal("pong", string(body))

	// When the context is cancelled the worker returns cleanly
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("server did not stop")
	}
}

func TestHTTPServerWorker_Cancels_Hijacked_Connections(t *testing.T) {
	req := require.New(t)
	hijacked := make(chan struct{})
	released := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		defer conn.Close()
		close(hijacked)
		<-r.Context().Done()
		close(released)
	})
	worker := NewHTTPServerWorker(logs.GetLoggerFromLevel(slog.LevelDebug), "127.0.0.1:0", handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	req.Eventually(func() bool { return worker.Addr() != "" }, time.Second, 5*time.Millisecond)

	// Given a long lived connection taken over by its handler
	conn, err := net.Dial("tcp", worker.Addr())
	req.NoError(err)
	defer conn.Close()
	_, err = io.WriteString(conn, "GET /ws HTTP/1.1\r\nHost: relay\r\n\r\n")
	req.NoError(err)
	<-hijacked

	// When the worker stops
	cancel()

	// Then the handler context ends too, Shutdown alone would not reach it
	select {
	case <-released:
	case <-time.After(time.Second):
		req.Fail("hijacked handler was not cancelled")
	}
	req.NoError(<-done)
}

func TestHTTPServerWorker_Listen_Error(t *testing.T) {
	worker := NewHTTPServerWorker(logs.GetLoggerFromLevel(slog.LevelDebug), "256.0.0.1:bad", http.NotFoundHandler())

	require.Error(t, worker.Run(context.Background()))
}
