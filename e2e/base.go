package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"keychat/client"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayURL == "" {
		s.T().Skip("E2E_RELAY_URL is not set")
	}
}

func (s *BaseRelaySuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// GrpcConn initializes a gRPC connection with logging, colors, and JSON debugging
func (s *BaseRelaySuite) GrpcConn(t *testing.T, name string, addr string) *grpc.ClientConn {
	s.header(t, name)

	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))

			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+addr)
	return conn
}

// WithHealth provides a health client of the relay within a contextual test step
func (s *BaseRelaySuite) WithHealth(name string, fn func(ctx context.Context, client grpc_health_v1.HealthClient)) {
	if s.Config.HealthAddr == "" {
		s.T().Skip("E2E_HEALTH_ADDR is not set")
	}
	conn := s.GrpcConn(s.T(), name, s.Config.HealthAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Timeout)
	defer cancel()

	fn(ctx, grpc_health_v1.NewHealthClient(conn))
}

// WithRelay provides a relay client within a contextual test step
func (s *BaseRelaySuite) WithRelay(name string, fn func(ctx context.Context, relay *client.Client)) {
	s.header(s.T(), name)
	relay, err := client.New(s.Config.RelayURL, &http.Client{Timeout: s.Config.Timeout})
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Timeout)
	defer cancel()

	fn(ctx, relay)
}
