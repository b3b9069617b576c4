package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"keychat/client"
	"keychat/domain"
	"keychat/infrastructure/ws"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type testRelaySuite struct {
	BaseRelaySuite
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, &testRelaySuite{})
}

func (s *testRelaySuite) TestHealth() {
	s.WithHealth("Relay health service", func(ctx context.Context, health grpc_health_v1.HealthClient) {
		resp, err := health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: "keychat.Relay"})
		s.Require().NoError(err)
		s.Require().Equal(grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
	})
}

func (s *testRelaySuite) TestChatFlow() {
	// --- STEP 1: CHALLENGE ---
	var challenge string
	s.Run("Step 1: Fetch the challenge", func() {
		s.WithRelay("GET /challenge", func(ctx context.Context, relay *client.Client) {
			var err error
			challenge, err = relay.Challenge(ctx)
			s.Require().NoError(err)
			s.Require().NotEmpty(challenge)
		})
	})

	// --- STEP 2: UNSIGNED HANDSHAKE ---
	s.Run("Step 2: A garbage signature is refused", func() {
		s.WithRelay("Unsigned handshake", func(ctx context.Context, relay *client.Client) {
			header := http.Header{}
			header.Set(ws.HeaderPublicKey, "02"+"00")
			header.Set(ws.HeaderSignature, "00")
			header.Set(ws.HeaderSubject, s.Config.Subject)

			session, err := relay.Dial(ctx, header)
			s.Require().NoError(err)
			defer func() { _ = session.Close() }()

			_, err = session.Receive()
			s.Require().True(client.IsRejected(err), "expected a policy violation, got %v", err)
		})
	})

	// --- STEP 3: HOLDER CHAT ---
	s.Run("Step 3: A key holder receives its own broadcast", func() {
		if s.Config.PrivateKey == "" || s.Config.Subject == "" {
			s.T().Skip("E2E_PRIVATE_KEY and E2E_SUBJECT are required")
		}
		key, err := client.ParsePrivateKey(s.Config.PrivateKey)
		s.Require().NoError(err)

		s.WithRelay("Holder session", func(ctx context.Context, relay *client.Client) {
			session, err := relay.Connect(ctx, key, domain.RoomID(s.Config.Subject))
			s.Require().NoError(err)
			defer func() { _ = session.Close() }()

			s.Require().NoError(session.Send("e2e ping"))
			broadcast, err := session.Receive()
			s.Require().NoError(err)
			s.Require().Equal("e2e ping", broadcast.Message)
			s.Require().NotEmpty(broadcast.Holder)
		})
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("E2E_RELAY_URL", "")

	cfg, err := LoadConfig()

	req.NoError(err)
	req.True(cfg.Colours)
	req.Equal(30*time.Second, cfg.Timeout)
}
