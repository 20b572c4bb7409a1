// Package server wraps http.Server with the timeouts from configuration and a
// bounded graceful shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nadmax/teamplan/internal/config"
)

const DefaultShutdownTimeout = 10 * time.Second

type HTTPServer struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPServer{
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

func (s *HTTPServer) Addr() string {
	return s.srv.Addr
}

// Start blocks until the server stops. A server closed by Shutdown returns
// nil.
func (s *HTTPServer) Start() error {
	s.logger.Info("http server listening", "addr", s.srv.Addr)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown drains open connections, giving up at the ctx deadline or after
// DefaultShutdownTimeout, whichever comes first.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()

	return s.srv.Shutdown(ctx)
}
