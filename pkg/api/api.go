// Package api exposes the HTTP surface of the race feed: the public
// positions endpoints and the token-protected simulation controls.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gridfeed/gridfeed/pkg/logging"
	"github.com/gridfeed/gridfeed/pkg/metrics"
	"github.com/gridfeed/gridfeed/pkg/sim"
)

// DefaultPushInterval is the cadence of the websocket feed.
const DefaultPushInterval = time.Second

// Simulation is the controller surface the HTTP layer depends on.
// *sim.Controller satisfies it; tests substitute stubs.
type Simulation interface {
	Start(ctx context.Context) (string, error)
	Stop()
	Reset(ctx context.Context) error
	Status() sim.Status
	Positions(ctx context.Context, k int) (sim.Snapshot, error)
}

// Config holds the HTTP server configuration.
type Config struct {
	Port         int
	AdminToken   string
	PushInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the race feed API.
type Server struct {
	sim          Simulation
	log          *slog.Logger
	adminToken   string
	pushInterval time.Duration
	httpServer   *http.Server
	port         int
	startTime    time.Time

	registry      *metrics.Registry
	requestsTotal *metrics.Counter
	wsPushesTotal *metrics.Counter
	gridSize      *metrics.Gauge
	simTicks      *metrics.Gauge
	simOn         *metrics.Gauge
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Server over the given simulation controller.
func New(cfg Config, simulation Simulation, opts ...Option) *Server {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = DefaultPushInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}

	s := &Server{
		sim:          simulation,
		log:          logging.Nop(),
		adminToken:   cfg.AdminToken,
		pushInterval: cfg.PushInterval,
		port:         cfg.Port,
		registry:     metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.requestsTotal = s.registry.NewCounter("gridfeed_http_requests_total", "Total HTTP requests served.")
	s.wsPushesTotal = s.registry.NewCounter("gridfeed_ws_pushes_total", "Total websocket feed pushes.")
	s.gridSize = s.registry.NewGauge("gridfeed_grid_size", "Current number of drivers in the grid.")
	s.simTicks = s.registry.NewGauge("gridfeed_sim_ticks", "Ticks performed since the last reset.")
	s.simOn = s.registry.NewGauge("gridfeed_sim_on", "Whether the simulation is running (1) or not (0).")

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withMiddleware(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Public surface
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /positions", s.handlePositions)
	mux.HandleFunc("GET /positions/ws", s.handlePositionsWS)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Simulation control (admin token required)
	mux.Handle("GET /sim/status", s.requireAdmin(http.HandlerFunc(s.handleSimStatus)))
	mux.Handle("POST /sim/start", s.requireAdmin(http.HandlerFunc(s.handleSimStart)))
	mux.Handle("POST /sim/stop", s.requireAdmin(http.HandlerFunc(s.handleSimStop)))
	mux.Handle("POST /sim/reset", s.requireAdmin(http.HandlerFunc(s.handleSimReset)))
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.startTime = time.Now()
	s.log.Info("starting gridfeed API", "port", s.port)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("gridfeed API error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime in seconds.
func (s *Server) Uptime() int {
	if s.startTime.IsZero() {
		return 0
	}
	return int(time.Since(s.startTime).Seconds())
}
