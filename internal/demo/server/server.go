// Package server exposes the demo API, health and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

// Server wraps http.Server with graceful shutdown and lifecycle logging.
type Server struct {
	httpServer      *http.Server
	logger          zerolog.Logger
	shutdownTimeout time.Duration
}

// New creates a Server listening on addr.
func New(addr string, handler http.Handler, logger zerolog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
		},
		logger:          logger,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server starting")

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error().Err(err).Msg("server error")
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info().Err(ctx.Err()).Msg("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("graceful shutdown failed, forcing close")
		_ = s.httpServer.Close()
		return err
	}

	s.logger.Info().Msg("server stopped gracefully")
	return nil
}
