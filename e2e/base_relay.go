package e2e

import (
	"chat-relay/client"
	"chat-relay/domain/event"
	"context"
	"fmt"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration and skips when no relay is configured
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, no relay to test against")
	}
}

// Step prints a colorized header for a scenario step in logs
func (s *BaseRelaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Connect dials the relay and closes the client when the test ends
func (s *BaseRelaySuite) Connect(ctx context.Context) *client.Client {
	c, err := client.Dial(ctx, s.Config.RelayAddr)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayAddr)
	s.T().Cleanup(func() { _ = c.Close() })
	return c
}

// Expect waits for the next frame on c and decodes it into v
func (s *BaseRelaySuite) Expect(ctx context.Context, c *client.Client, name event.Name, v any) {
	err := c.Expect(ctx, name, v)
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		s.T().Logf("RECEIVED %s: %+v", name, v)
	}
}

// ExpectNothing fails when c receives any frame within wait
func (s *BaseRelaySuite) ExpectNothing(ctx context.Context, c *client.Client, wait time.Duration) {
	s.Require().NoError(c.ExpectNothing(ctx, wait))
}

// WithHealth provides a gRPC health client, skipping when no health address is configured
func (s *BaseRelaySuite) WithHealth(fn func(ctx context.Context, client healthpb.HealthClient)) {
	if s.Config.HealthAddr == "" {
		s.T().Skip("RELAY_HEALTH_ADDR not set")
	}
	conn, err := grpc.NewClient(s.Config.HealthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.HealthAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, healthpb.NewHealthClient(conn))
}
