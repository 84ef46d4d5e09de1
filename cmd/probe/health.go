package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func healthCmd() *cobra.Command {
	var (
		healthAddr string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health endpoint of the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runHealth(ctx, healthAddr)
		},
	}

	cmd.Flags().StringVar(&healthAddr, "health-addr", "localhost:3001", "gRPC health address of the relay")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request deadline")
	return cmd
}

func runHealth(ctx context.Context, addr string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("relay reports %s", resp.GetStatus())
	}
	success("relay %s", resp.GetStatus())
	return nil
}
