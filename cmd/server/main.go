package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/anujgoenka9/autocoder/internal/app"
	"github.com/anujgoenka9/autocoder/internal/config"
	"github.com/anujgoenka9/autocoder/internal/coordination"
	"github.com/anujgoenka9/autocoder/internal/httpserver"
	"github.com/anujgoenka9/autocoder/internal/logging"
	"github.com/anujgoenka9/autocoder/internal/registry"
	"github.com/anujgoenka9/autocoder/internal/sse"
	"github.com/anujgoenka9/autocoder/internal/version"
)

const sweepLeaseKey = "leader:sse_sweep"

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func instanceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "instance"
	}
	return hostname + "-" + uuid.NewString()[:8]
}

func setupHealthChecks(redisClient *goredis.Client) []httpserver.HealthCheck {
	if redisClient == nil {
		return nil
	}
	return []httpserver.HealthCheck{
		{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	}
}

func runGracefulShutdown(srv *httpserver.Server, cancel context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Stops the sweeper and releases the sweep lease.
		cancel()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"version", version.Get().Version,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, redisClient := registry.New(ctx, cfg.EffectiveRedisURL(), cfg.ConnectionTTL, clock)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	slog.Info("Connection registry ready", "backend", reg.Backend())

	controllers := sse.NewControllerTable()
	broadcaster := sse.NewBroadcaster(reg, controllers, clock, cfg.MaxConnectionsPerProject)

	// With a shared registry, elect a single sweeper across instances. The
	// lease outlives one interval so leadership is sticky between ticks.
	var election *coordination.Election
	if redisClient != nil {
		election = coordination.NewElection(redisClient, instanceID(), sweepLeaseKey, cfg.SweepInterval+30*time.Second)
	}
	sweeper := app.NewSweeper(reg, election, cfg.SweepInterval, clock)
	go sweeper.Run(ctx)

	srv := httpserver.NewServer(cfg, broadcaster, clock, setupHealthChecks(redisClient))

	done := runGracefulShutdown(srv, cancel)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
