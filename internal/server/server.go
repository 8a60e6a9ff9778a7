// Package server exposes configured endpoints and recorded exchanges over
// HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/courier/internal/runtime"
)

type Server struct {
	Router *chi.Mux
	Addr   string

	client     *runtime.Client
	logger     *slog.Logger
	httpServer *http.Server
}

// Config holds the listener settings.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	// Token, when set, protects every route except /healthz and /metrics.
	Token string
}

func New(cfg Config, client *runtime.Client, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(cfg.RequestTimeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "courier")
	})

	s := &Server{
		Router: r,
		Addr:   cfg.Addr,
		client: client,
		logger: logger,
	}

	r.Get("/healthz", s.handleHealth)
	if registry := client.Registry(); registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Token))
		r.Get("/endpoints", s.handleListEndpoints)
		r.Post("/calls/{name}", s.handleCall)
		r.Get("/exchanges", s.handleListExchanges)
		r.Get("/exchanges/{id}", s.handleGetExchange)
	})

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.String("addr", s.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
