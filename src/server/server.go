// Package server exposes the read-only status endpoints of the daemon.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"intradaybot/src/model"
	"intradaybot/src/trade"
)

// Positions is satisfied by trade.Book.
type Positions interface {
	Snapshot() []trade.ManagedPosition
}

// Signals is satisfied by the orchestrator.
type Signals interface {
	LatestSignals() []model.RankedSignal
}

type Server struct {
	positions Positions
	signals   Signals
	metrics   http.Handler
	extra     map[string]http.Handler
	log       *logger.Entry
}

// New builds the status server. metricsHandler may be nil to omit /metrics.
func New(positions Positions, signals Signals, metricsHandler http.Handler, log *logger.Entry) *Server {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Server{
		positions: positions,
		signals:   signals,
		metrics:   metricsHandler,
		extra:     make(map[string]http.Handler),
		log:       log.WithField("component", "server"),
	}
}

// Handle adds a GET route served by h.
func (s *Server) Handle(pattern string, h http.Handler) *Server {
	s.extra[pattern] = h
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			s.log.WithError(err).Error("/healthcheck write error")
		}
	})
	r.Get("/positions", func(w http.ResponseWriter, r *http.Request) {
		positions := s.positions.Snapshot()
		if positions == nil {
			positions = []trade.ManagedPosition{}
		}
		s.writeJSON(w, positions)
	})
	r.Get("/signals/latest", func(w http.ResponseWriter, r *http.Request) {
		signals := s.signals.LatestSignals()
		if signals == nil {
			signals = []model.RankedSignal{}
		}
		s.writeJSON(w, signals)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	for pattern, h := range s.extra {
		r.Method(http.MethodGet, pattern, h)
	}
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port string, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	addr := net.JoinHostPort("", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.log.WithError(err).Error("server crashed")
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
