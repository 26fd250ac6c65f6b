package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"retail-insights/internal/config"
)

// GracefulServer runs the HTTP server next to background workers and drains
// both on SIGINT/SIGTERM.
type GracefulServer struct {
	server *http.Server
	logger *slog.Logger
	cfg    config.ServerConfig

	mu      sync.Mutex
	workers []func(ctx context.Context) error
	hooks   []shutdownHook
}

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

func NewGracefulServer(server *http.Server, logger *slog.Logger, cfg config.ServerConfig) *GracefulServer {
	return &GracefulServer{
		server: server,
		logger: logger,
		cfg:    cfg,
	}
}

// Go registers a background worker. Its context is cancelled when shutdown
// starts; a worker should return nil once that happens.
func (gs *GracefulServer) Go(fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.workers = append(gs.workers, fn)
}

// RegisterShutdownHook adds a hook that runs, in registration order, after
// the HTTP server has drained.
func (gs *GracefulServer) RegisterShutdownHook(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, shutdownHook{name: name, fn: fn})
}

func (gs *GracefulServer) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", gs.server.Addr, err)
	}
	return gs.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or the server fails.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	gs.logger.Info("starting server",
		"addr", ln.Addr().String(),
		"read_timeout", gs.cfg.ReadTimeout,
		"write_timeout", gs.cfg.WriteTimeout,
	)
	g.Go(func() error {
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	gs.mu.Lock()
	workers := slices.Clone(gs.workers)
	gs.mu.Unlock()
	for _, worker := range workers {
		g.Go(func() error { return worker(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			gs.logger.Info("shutdown signal received", "cause", context.Cause(ctx))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gs.shutdownTimeout())
		defer cancel()
		return gs.shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (gs *GracefulServer) shutdownTimeout() time.Duration {
	if gs.cfg.ShutdownTimeout <= 0 {
		return 30 * time.Second
	}
	return gs.cfg.ShutdownTimeout
}

func (gs *GracefulServer) shutdown(ctx context.Context) error {
	gs.logger.Info("starting graceful shutdown", "timeout", gs.shutdownTimeout())

	var errs []error
	if err := gs.server.Shutdown(ctx); err != nil {
		gs.logger.Error("HTTP server shutdown failed", "error", err)
		errs = append(errs, fmt.Errorf("HTTP server shutdown failed: %w", err))
	} else {
		gs.logger.Info("HTTP server stopped gracefully")
	}

	gs.mu.Lock()
	hooks := slices.Clone(gs.hooks)
	gs.mu.Unlock()

	for _, hook := range hooks {
		if err := hook.fn(ctx); err != nil {
			gs.logger.Error("shutdown hook failed", "hook", hook.name, "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %s: %w", hook.name, err))
			continue
		}
		gs.logger.Debug("shutdown hook completed", "hook", hook.name)
	}

	gs.logger.Info("graceful shutdown completed")
	return errors.Join(errs...)
}
