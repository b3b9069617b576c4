// Package client connects to a relay as a key holder: it fetches the challenge,
// signs it with the holder's private key and opens the chat WebSocket.
package client

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"keychat/domain"
	"keychat/errors"
	"keychat/infrastructure/stacks"
	"keychat/infrastructure/ws"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/gorilla/websocket"
)

type Client struct {
	baseURL *url.URL
	http    *http.Client
	dialer  *websocket.Dialer
}

// New targets the relay at baseURL (http or https).
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid relay url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, http: httpClient, dialer: websocket.DefaultDialer}, nil
}

func (c *Client) Challenge(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/challenge")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Stats decodes the /stats document into out.
func (c *Client) Stats(ctx context.Context, out any) error {
	body, err := c.get(ctx, "/stats")
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// Connect signs the current challenge and opens a session on subject.
// A relay refusing the credentials still completes the upgrade: the refusal
// surfaces on the first Receive, see IsRejected.
func (c *Client) Connect(ctx context.Context, key *secp256k1.PrivateKey, subject domain.RoomID) (*Session, error) {
	challenge, err := c.Challenge(ctx)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set(ws.HeaderPublicKey, hex.EncodeToString(key.PubKey().SerializeCompressed()))
	header.Set(ws.HeaderSignature, stacks.SignMessage(key, challenge))
	header.Set(ws.HeaderSubject, subject.String())
	return c.Dial(ctx, header)
}

// Dial opens the chat WebSocket with raw handshake headers.
func (c *Client) Dial(ctx context.Context, header http.Header) (*Session, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.wsURL(), err)
	}
	return &Session{conn: conn}, nil
}

func (c *Client) wsURL() string {
	u := *c.baseURL
	u.Scheme = "ws"
	if c.baseURL.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return body, nil
}

// Session is one open chat connection. Send and Receive may be used from two
// different goroutines.
type Session struct {
	conn *websocket.Conn
}

func (s *Session) Send(text string) error {
	frame, err := ws.MessageFrame(text)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Receive blocks until the next broadcast of the room.
func (s *Session) Receive() (domain.Broadcast, error) {
	for {
		var frame ws.OutboundFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			return domain.Broadcast{}, err
		}
		if frame.Event == ws.EventMessageBroadcast {
			return frame.Data, nil
		}
	}
}

func (s *Session) Close() error {
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

// IsRejected reports whether err is the relay refusing the handshake.
func IsRejected(err error) bool {
	return websocket.IsCloseError(err, websocket.ClosePolicyViolation)
}

// ParsePrivateKey reads a hex secp256k1 key. The trailing 01 compression flag
// of Stacks private keys is accepted.
func ParsePrivateKey(s string) (*secp256k1.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPrivateKey, err)
	}
	if len(raw) == 33 && raw[32] == 0x01 {
		raw = raw[:32]
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", errors.ErrInvalidPrivateKey, len(raw))
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}
