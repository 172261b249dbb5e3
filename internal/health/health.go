// Package health reports liveness and readiness over HTTP and gRPC.
package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check is one named dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Checker runs every check with a shared timeout.
type Checker struct {
	checks  []Check
	timeout time.Duration
}

func NewChecker(timeout time.Duration, checks ...Check) *Checker {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Checker{checks: checks, timeout: timeout}
}

// Ready returns the first failing check.
func (c *Checker) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	for _, check := range c.checks {
		if err := check.Ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", check.Name, err)
		}
	}
	return nil
}

// Handler serves /healthz and /readyz.
func (c *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := c.Ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}

// Update sets the overall serving status of hs from Ready.
func (c *Checker) Update(ctx context.Context, hs *health.Server) error {
	err := c.Ready(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	return err
}

// ServeGRPC exposes the standard gRPC health service on addr and refreshes
// its status every interval until ctx ends.
func (c *Checker) ServeGRPC(ctx context.Context, addr string, interval time.Duration, logger *zerolog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := c.Update(ctx, hs); err != nil {
				logger.Warn().Err(err).Msg("readiness check failed")
			}
			select {
			case <-ctx.Done():
				hs.Shutdown()
				gs.GracefulStop()
				return
			case <-ticker.C:
			}
		}
	}()

	logger.Info().Str("addr", addr).Msg("grpc health server started")
	return gs.Serve(lis)
}
