// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and routes,
// and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go creates the Config and logger. Server.New() creates:
//
//	service.Registry → handler.RoomHandler / handler.HealthHandler
//	                 → realtime.Handler (websocket)
//	                 → service.Collector (room garbage collection)
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/whiteboard/internal/clock"
	"github.com/sakif/whiteboard/internal/discovery"
	"github.com/sakif/whiteboard/internal/handler"
	"github.com/sakif/whiteboard/internal/middleware"
	"github.com/sakif/whiteboard/internal/realtime"
	"github.com/sakif/whiteboard/internal/service"
)

// DefaultCORSOrigins are the local dev servers the browser client runs on.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:5173",
}

// Config holds server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// Room garbage collection.
	EmptyRoomTTL  time.Duration
	StaleRoomAge  time.Duration
	SweepInterval time.Duration

	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int

	// MDNSEnabled advertises the server on the LAN as MDNSInstance.
	MDNSEnabled  bool
	MDNSInstance string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	gc := service.DefaultCollectorConfig()
	return Config{
		Port:          5000,
		CORSOrigins:   DefaultCORSOrigins,
		EmptyRoomTTL:  gc.EmptyRoomTTL,
		StaleRoomAge:  gc.StaleRoomAge,
		SweepInterval: gc.SweepInterval,
		SendBuffer:    256,
	}
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the collector's background goroutine and, when enabled,
// the mDNS responder. Both are stopped during graceful shutdown in Run.
type Server struct {
	router    *chi.Mux
	config    Config
	logger    *slog.Logger
	registry  *service.Registry
	collector *service.Collector
	started   time.Time
}

// New creates a new Server with the given config.
//
// The clock is injected so tests can drive room garbage collection without
// waiting; main passes clock.Real().
func New(cfg Config, logger *slog.Logger, clk clock.Clock) *Server {
	registry := service.NewRegistry(
		service.WithClock(clk),
		service.WithLogger(logger),
	)
	collector := service.NewCollector(registry, service.CollectorConfig{
		EmptyRoomTTL:  cfg.EmptyRoomTTL,
		StaleRoomAge:  cfg.StaleRoomAge,
		SweepInterval: cfg.SweepInterval,
	}, clk, logger)

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		registry:  registry,
		collector: collector,
		started:   clk.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry exposes the room registry.
func (s *Server) Registry() *service.Registry {
	return s.registry
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health                          → Liveness + counts (JSON)
// GET    /api                             → Endpoint index (JSON)
// GET    /api/test                        → Reachability probe (JSON)
// POST   /api/rooms/create                → Create room (JSON)
// GET    /api/rooms                       → List rooms (JSON)
// GET    /api/rooms/{roomId}              → Get room (JSON)
// GET    /api/rooms/{roomId}/export.pdf   → Room canvas as PDF
// GET    /ws                              → Websocket upgrade
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID, assigns unique ID to each request (for tracing)
// 2. RealIP, extracts real client IP from proxy headers
// 3. Recoverer, catches panics and returns 500 instead of crashing
// 4. Logger, logs each request with timing info
// 5. CORS, answers preflight requests from the browser client
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handler.NewHealthHandler(s.registry, s.started)
	rooms := handler.NewRoomHandler(s.registry, s.logger)
	ws := realtime.NewHandler(s.registry, realtime.Config{
		AllowedOrigins: s.config.CORSOrigins,
		SendBuffer:     s.config.SendBuffer,
	}, s.logger)

	s.router.Get("/health", health.HandleHealth)
	s.router.Handle("/ws", ws)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/", health.HandleIndex)
		r.Get("/test", health.HandleTest)
		r.Post("/rooms/create", rooms.HandleCreate)
		r.Get("/rooms", rooms.HandleList)
		r.Get("/rooms/{roomId}", rooms.HandleGet)
		r.Get("/rooms/{roomId}/export.pdf", rooms.HandleExportPDF)
	})

	s.router.NotFound(handler.HandleNotFound)
}

// Start runs the server until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled or the listener fails.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Stop the collector and the mDNS responder
//
// Websocket connections are hijacked, so Shutdown does not wait for them;
// they close when the process exits.
func (s *Server) Run(ctx context.Context) error {
	s.collector.Start()
	defer s.collector.Stop()

	if s.config.MDNSEnabled {
		adv, err := discovery.Advertise(s.config.MDNSInstance, s.config.Port)
		if err != nil {
			// LAN discovery is optional; the server works without it.
			s.logger.Warn("mDNS advertisement unavailable", slog.String("error", err.Error()))
		} else {
			s.logger.Info("advertising on mDNS", slog.String("service", discovery.ServiceType))
			defer adv.Close()
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Any("corsOrigins", s.config.CORSOrigins),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
