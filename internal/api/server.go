package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 5 * time.Second

// healthCheckTimeout bounds the broker check behind /healthz.
const healthCheckTimeout = 2 * time.Second

// HealthChecker is implemented by bus connections that can check their broker.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the admin server.
type Deps struct {
	Config  config.MetricsConfig
	Logger  *logging.Logger
	Metrics http.Handler  // Prometheus handler served at Config.Path
	Health  HealthChecker // optional; without it /healthz only reports liveness
	Backend string
	Version string
}

// Server is the HTTP admin server of a running graybus process.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg       config.MetricsConfig
	logger    *logging.Logger
	metrics   http.Handler
	health    HealthChecker
	backend   string
	version   string
	startTime time.Time
}

// New creates a new admin server with the given dependencies.
//
// The server is not started until Serve() is called.
//
// Returns:
//   - *Server: Configured server ready to serve
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Metrics == nil {
		return nil, fmt.Errorf("metrics handler is required")
	}

	path := deps.Config.Path
	if path == "" {
		path = "/metrics"
	}
	deps.Config.Path = path

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		health:    deps.Health,
		backend:   deps.Backend,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Serve handles HTTP requests on ln until ctx ends, then shuts down
// gracefully. It always closes ln.
//
// Returns:
//   - error: nil after a clean shutdown, or the listener failure
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		s.logger.Info("admin server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("admin server shutdown", "error", err)
		}
	}()

	s.logger.Info("admin server listening",
		"address", ln.Addr().String(),
		"metrics_path", s.cfg.Path,
	)
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
		return nil
	}
	return fmt.Errorf("admin server: %w", err)
}
