package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"StockAnalysis/internal/recorder"
	"StockAnalysis/internal/stocks"
)

// Options sets the listener address and timeouts.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server wraps the HTTP server and the services behind it.
type Server struct {
	stocks   *stocks.Service
	recorder recorder.Recorder
	server   *http.Server
	logger   *zap.Logger
}

// NewServer creates the web app and JSON API server.
func NewServer(svc *stocks.Service, rec recorder.Recorder, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Server{
		stocks:   svc,
		recorder: rec,
		logger:   logger.With(zap.String("component", "http")),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      applyMiddleware(mux, s.logger),
		ReadTimeout:  orDefault(opts.ReadTimeout, 15*time.Second),
		WriteTimeout: orDefault(opts.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(opts.IdleTimeout, 60*time.Second),
	}
	return s
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.logger.Info("starting web server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
