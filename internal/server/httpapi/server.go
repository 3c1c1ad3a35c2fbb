// Package httpapi exposes the capsule service over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/geocapsule/internal/logging"
	"github.com/gorilla/mux"
)

// Server wraps an http.Server with the routed API and graceful shutdown.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer wires the handlers onto a mux router. Auth routes are public;
// everything else requires a valid Bearer token.
func NewServer(addr string, h *Handler, jwtSecret []byte, logger logging.Logger) *Server {
	r := mux.NewRouter()

	r.HandleFunc("/api/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(authMiddleware(jwtSecret))
	protected.HandleFunc("/collections/{collection}/ctag", h.GetCtag).Methods(http.MethodGet)
	protected.HandleFunc("/collections/{collection}", h.ListCollection).Methods(http.MethodGet)
	protected.HandleFunc("/capsules", h.UpsertCapsule).Methods(http.MethodPut)
	protected.HandleFunc("/capsules/{syncID}", h.DeleteCapsule).Methods(http.MethodDelete)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info(shutdownCtx, "shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}
