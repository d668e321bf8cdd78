package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rx3lixir/ci-analytics/pkg/logger"
)

// Server exposes the health checks over HTTP.
type Server struct {
	health *Health
	server *http.Server
	log    logger.Logger
}

// NewServer creates a health server on the given address.
func NewServer(addr string, health *Health, log logger.Logger) *Server {
	s := &Server{
		health: health,
		log:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ALIVE"))
	})

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := s.health.Check(r.Context())

	statusCode := http.StatusOK
	if response.Status == StatusDown {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// Start runs the server until shutdown.
func (s *Server) Start() error {
	s.log.Info("starting health server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down health server")
	return s.server.Shutdown(ctx)
}
