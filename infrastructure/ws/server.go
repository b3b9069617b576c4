package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"keychat/domain"
	"keychat/services"

	"github.com/gorilla/websocket"
)

// Handshake metadata names, read from headers first then from the query string.
const (
	HeaderPublicKey = "public-key"
	HeaderSignature = "signature"
	HeaderSubject   = "subject"
)

// StatsProvider returns the JSON document served on /stats.
type StatsProvider func() any

type Options struct {
	AllowedOrigins []string
	Conn           ConnOptions
}

type Server struct {
	log      *slog.Logger
	relay    services.IRelayService
	options  Options
	stats    StatsProvider
	upgrader websocket.Upgrader
}

// NewServer wires the HTTP surface of the relay. A nil stats provider disables /stats.
func NewServer(log *slog.Logger, relay services.IRelayService, options Options, stats StatsProvider) *Server {
	s := &Server{log: log, relay: relay, options: options, stats: stats}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /challenge", s.handleChallenge)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	if s.stats != nil {
		mux.HandleFunc("GET /stats", s.handleStats)
	}
	return mux
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	s.allowCORS(w, r)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.relay.Challenge().String())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.allowCORS(w, r)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.stats()); err != nil {
		s.log.Warn("Stats encoding failed", "error", err)
	}
}

// handleWebSocket blocks for the whole life of the session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	handshake := HandshakeFromRequest(r)

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		s.log.Debug("Failed to upgrade connection", "error", err)
		return
	}

	conn := NewConn(wsConn, s.log, s.options.Conn)
	go conn.KeepAlive(r.Context())

	state := s.relay.Serve(r.Context(), conn, handshake)
	s.log.Debug("Connection ended", "remote_addr", conn.RemoteAddr(), "state", state)
}

// HandshakeFromRequest reads the connection metadata. Browsers cannot set headers
// on a WebSocket upgrade, so each missing header falls back to the query parameter.
func HandshakeFromRequest(r *http.Request) domain.Handshake {
	value := func(name string) string {
		if v := r.Header.Get(name); v != "" {
			return v
		}
		return r.URL.Query().Get(name)
	}
	return domain.Handshake{
		PublicKey: value(HeaderPublicKey),
		Signature: value(HeaderSignature),
		Subject:   domain.RoomID(value(HeaderSubject)),
	}
}

func (s *Server) anyOrigin() bool {
	return len(s.options.AllowedOrigins) == 0 || slices.Contains(s.options.AllowedOrigins, "*")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.anyOrigin() || slices.Contains(s.options.AllowedOrigins, origin)
}

func (s *Server) allowCORS(w http.ResponseWriter, r *http.Request) {
	if s.anyOrigin() {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		return
	}
	if origin := r.Header.Get("Origin"); origin != "" && slices.Contains(s.options.AllowedOrigins, origin) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
}
