package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"keychat/domain"
	"keychat/domain/event"
	"keychat/errors"
	"keychat/runtime"
	"keychat/services"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const (
	challenge = domain.Challenge("Hiro Hacks Fun 2023")
	room      = "ST203SGZM0XR3P4YSVD2XVMF1N63CRG2DRXT4C7AE"
)

// fakeAuthenticator admits every key except "bad", the holder being "ST" + key.
type fakeAuthenticator struct{}

func (fakeAuthenticator) Authenticate(_ context.Context, h domain.Handshake) (domain.Admission, error) {
	if h.Subject == "" {
		return domain.Admission{}, errors.ErrMissingSubject
	}
	if h.PublicKey == "bad" {
		return domain.Admission{}, errors.ErrBadSignature
	}
	return domain.Admission{Identity: domain.Identity("ST" + h.PublicKey), Room: h.Subject}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(event.SessionEvent) {}

type testServer struct {
	*httptest.Server
	registry *runtime.Registry
}

func newTestServer(t *testing.T, options Options, stats StatsProvider) testServer {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry()
	relay := services.NewRelayService(log, challenge, fakeAuthenticator{}, registry, nopPublisher{}, 16)
	srv := httptest.NewServer(NewServer(log, relay, options, stats).Handler())
	t.Cleanup(srv.Close)
	return testServer{Server: srv, registry: registry}
}

func defaultOptions() Options {
	return Options{
		AllowedOrigins: []string{"*"},
		Conn:           ConnOptions{MaxMessageSize: 64, WriteTimeout: time.Second, PongTimeout: time.Minute},
	}
}

func (s testServer) dial(t *testing.T, publicKey, subject string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set(HeaderPublicKey, publicKey)
	header.Set(HeaderSignature, "00")
	if subject != "" {
		header.Set(HeaderSubject, subject)
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	frame, err := MessageFrame(text)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func receive(t *testing.T, conn *websocket.Conn) OutboundFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame OutboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestServer_Challenge(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, defaultOptions(), nil)

	resp, err := http.Get(srv.URL + "/challenge")
	req.NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(challenge.String(), string(body))
	req.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
	req.True(strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}

func TestServer_Challenge_Restricted_Origins(t *testing.T) {
	req := require.New(t)
	options := defaultOptions()
	options.AllowedOrigins = []string{"https://app.example"}
	srv := newTestServer(t, options, nil)

	request, err := http.NewRequest(http.MethodGet, srv.URL+"/challenge", nil)
	req.NoError(err)
	request.Header.Set("Origin", "https://app.example")
	resp, err := http.DefaultClient.Do(request)
	req.NoError(err)
	_ = resp.Body.Close()
	req.Equal("https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))

	// And a WebSocket upgrade from another origin is refused
	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestServer_Stats(t *testing.T) {
	req := require.New(t)

	disabled := newTestServer(t, defaultOptions(), nil)
	resp, err := http.Get(disabled.URL + "/stats")
	req.NoError(err)
	_ = resp.Body.Close()
	req.Equal(http.StatusNotFound, resp.StatusCode)

	enabled := newTestServer(t, defaultOptions(), func() any { return map[string]int{"members": 3} })
	resp, err = http.Get(enabled.URL + "/stats")
	req.NoError(err)
	defer resp.Body.Close()
	var body map[string]int
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Equal(3, body["members"])
}

func TestServer_Broadcast_Between_Two_Clients(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, defaultOptions(), nil)

	// Given two admitted clients in the same room
	alice := srv.dial(t, "alice", room)
	bob := srv.dial(t, "bob", room)
	req.Eventually(func() bool { return len(srv.registry.Members(room)) == 2 }, 2*time.Second, 10*time.Millisecond)

	// When alice sends a message
	send(t, alice, "gm")

	// Then both receive the same broadcast, sender included
	expected := OutboundFrame{Event: EventMessageBroadcast, Data: domain.Broadcast{Message: "gm", Holder: "STalice"}}
	req.Equal(expected, receive(t, alice))
	req.Equal(expected, receive(t, bob))

	// When bob hangs up the room keeps alice only
	_ = bob.Close()
	req.Eventually(func() bool { return len(srv.registry.Members(room)) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Rejects_With_Policy_Violation(t *testing.T) {
	tests := []struct {
		name      string
		publicKey string
		subject   string
	}{
		{"missing subject", "alice", ""},
		{"bad signature", "bad", room},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			srv := newTestServer(t, defaultOptions(), nil)
			conn := srv.dial(t, tt.publicKey, tt.subject)

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err := conn.ReadMessage()

			// Then the close frame carries 1008 and no reason
			var closeErr *websocket.CloseError
			req.ErrorAs(err, &closeErr)
			req.Equal(websocket.ClosePolicyViolation, closeErr.Code)
			req.Empty(closeErr.Text)
			req.Empty(srv.registry.Rooms())
		})
	}
}

func TestServer_Oversized_Message_Disconnects(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, defaultOptions(), nil)
	conn := srv.dial(t, "alice", room)
	req.Eventually(func() bool { return len(srv.registry.Members(room)) == 1 }, 2*time.Second, 10*time.Millisecond)

	send(t, conn, strings.Repeat("x", 65))

	req.Eventually(func() bool { return len(srv.registry.Rooms()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Unbounded_Message_Size(t *testing.T) {
	req := require.New(t)
	options := defaultOptions()
	options.Conn.MaxMessageSize = 0
	srv := newTestServer(t, options, nil)
	conn := srv.dial(t, "alice", room)
	req.Eventually(func() bool { return len(srv.registry.Members(room)) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Given MAX_MESSAGE_SIZE=0, any size is relayed like the reference server does
	large := strings.Repeat("x", 256*1024)
	send(t, conn, large)

	req.Equal(large, receive(t, conn).Data.Message)
	req.Len(srv.registry.Members(room), 1)
}

// The message rate is deliberately not limited: a burst is relayed in full and
// the session stays joined.
func TestServer_Burst_Is_Not_Throttled(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, defaultOptions(), nil)
	conn := srv.dial(t, "alice", room)
	req.Eventually(func() bool { return len(srv.registry.Members(room)) == 1 }, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 10; i++ {
		send(t, conn, fmt.Sprintf("burst %d", i))
	}

	for i := 0; i < 10; i++ {
		req.Equal(fmt.Sprintf("burst %d", i), receive(t, conn).Data.Message)
	}
	req.Len(srv.registry.Members(room), 1)
}

func TestHandshakeFromRequest(t *testing.T) {
	req := require.New(t)

	// Given metadata split between a header and the query string
	r := httptest.NewRequest(http.MethodGet, "/ws?public-key=02ab&signature=cd&subject=fromquery", nil)
	r.Header.Set("Subject", "fromheader")

	handshake := HandshakeFromRequest(r)

	// Then headers win and the query fills the gaps
	req.Equal(domain.Handshake{PublicKey: "02ab", Signature: "cd", Subject: "fromheader"}, handshake)
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		text   string
		isChat bool
	}{
		{"string payload", `{"event":"message","data":"hi"}`, "hi", true},
		{"object payload", `{"event":"message","data":{"a":1}}`, `{"a":1}`, true},
		{"no payload", `{"event":"message"}`, "", true},
		{"other event", `{"event":"typing","data":"hi"}`, "", false},
		{"not json", `hello`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := parseMessage([]byte(tt.raw))
			require.Equal(t, tt.isChat, ok)
			require.Equal(t, tt.text, text)
		})
	}
}

func TestServer_KeepAlive(t *testing.T) {
	req := require.New(t)
	options := defaultOptions()
	options.Conn.PongTimeout = 300 * time.Millisecond
	srv := newTestServer(t, options, nil)

	// Given a client answering pings, its reads process control frames
	live := srv.dial(t, "alive", room)
	go func() {
		for {
			if _, _, err := live.ReadMessage(); err != nil {
				return
			}
		}
	}()
	// And a client that never reads, so never answers
	srv.dial(t, "silent", room)
	req.Eventually(func() bool { return len(srv.registry.Members(room)) == 2 }, 2*time.Second, 10*time.Millisecond)

	// Then only the silent one is dropped once its pong deadline passes
	req.Eventually(func() bool { return len(srv.registry.Members(room)) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(700 * time.Millisecond)
	req.Len(srv.registry.Members(room), 1)
}
