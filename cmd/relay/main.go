package main

import (
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/transport/httpapi"
	"chat-relay/transport/ws"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning instead of exiting lets every defer run before the process ends.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env file is fine, the environment alone is enough.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// 3. Supervision & Orchestration
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, supervisor, metrics, runtime.Config{
		BufferSize:        config.BufferSize,
		SinkTimeout:       config.SinkTimeout,
		PublishTimeout:    config.PublishTimeout,
		TelemetryInterval: config.TelemetryInterval,
	})

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orchestrator.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("orchestrator failed to start: %w", err)
	}
	defer orchestrator.Stop()

	// 5. HTTP + WebSocket
	relay := ws.NewServer(log, ws.Config{
		SendBufferSize: config.ConnectionBufferSize,
		WriteTimeout:   config.WriteTimeout,
		PongWait:       config.PongWait,
		PingInterval:   config.PingInterval,
		ReadLimit:      config.ReadLimit,
		AllowedOrigins: config.Origins(),
	}, orchestrator.Coordinator(), metrics)

	httpServer := &http.Server{
		Addr: config.Address(),
		Handler: httpapi.NewRouter(log, relay, orchestrator.Coordinator(), httpapi.Options{
			StaticDir: config.StaticDir,
			Gatherer:  registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          observability.NewErrorLog(log, "http"),
	}

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting relay", "address", config.Address(), "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Optional gRPC health endpoint
	var healthServer *health.Server
	var grpcServer *grpc.Server
	if config.HealthPort > 0 {
		address := fmt.Sprintf("%s:%d", config.Host, config.HealthPort)
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
		}
		grpcServer = grpc.NewServer()
		healthServer = health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			log.Info("Starting gRPC health server", "address", address)
			if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errChan <- fmt.Errorf("gRPC health server error: %w", err)
			}
		}()
	}

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Final Cleanup
	if healthServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := relay.Shutdown(shutdownCtx); err != nil {
		log.Warn("WebSocket shutdown incomplete", "error", err)
	}
	log.Info("Program stopped cleanly")

	return code, runErr
}
