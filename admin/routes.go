package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the admin routes. /healthz is left unauthenticated so
// supervisors can probe it.
func NewRouter(handlers *AdminHandlers, token string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handlers.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(token))
		r.Get("/status", handlers.handleStatus)

		if metrics := telemetry.GetMetricsHandler(); metrics != nil {
			r.Method(http.MethodGet, "/metrics", metrics)
		} else {
			r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
				writeErrorResponse(w, http.StatusNotFound, "prometheus metrics are disabled")
			})
		}
	})

	return r
}

// Server runs the admin router on its own goroutine
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// NewServer listens on the configured address. Port 0 picks a free port.
func NewServer(config cfg.AdminConfiguration, handlers *AdminHandlers) (*Server, error) {
	addr := net.JoinHostPort(config.BindAddress, strconv.Itoa(config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &Server{
		httpServer: &http.Server{
			Handler:           NewRouter(handlers, config.Token),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
	}, nil
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves in the background
func (s *Server) Start() {
	log.Info().Str("addr", s.Addr()).Msg("Admin server listening")

	go func() {
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Admin server failed")
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
