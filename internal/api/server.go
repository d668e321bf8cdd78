// Package api exposes the sync trigger endpoints and the read endpoints
// built on the document store.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rx3lixir/ci-analytics/internal/search"
	syncsvc "github.com/rx3lixir/ci-analytics/internal/sync"
	"github.com/rx3lixir/ci-analytics/pkg/logger"
	"github.com/rx3lixir/ci-analytics/pkg/metrics"
)

// Triggerer starts background sync runs. It is satisfied by the sync
// service.
type Triggerer interface {
	Trigger(kind syncsvc.Kind, mode syncsvc.Mode) error
}

// Searcher is the read-side document store surface. It is satisfied by the
// search client.
type Searcher interface {
	SearchBody(ctx context.Context, index string, query any) (*search.Result, error)
	LatestAlias(ctx context.Context, prefix string) (string, error)
}

// Server is the analytics HTTP API.
type Server struct {
	syncer Triggerer
	store  Searcher
	server *http.Server
	logger logger.Logger
}

// NewServer creates the API server on the given address.
func NewServer(addr string, syncer Triggerer, store Searcher, log logger.Logger) *Server {
	s := &Server{
		syncer: syncer,
		store:  store,
		logger: log,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestMetrics)

	router.Post("/sync/{kind}", s.handleSync)
	router.Get("/jobs", s.handleJobs)
	router.Post("/pipelines_status", s.handlePipelinesStatus)
	router.Post("/junit_topics_comparison", s.handleJunitComparison)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start runs the server until shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting api server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down api server")
	return s.server.Shutdown(ctx)
}

func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(recorder, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}
		metrics.RecordHTTPRequest(r.Method, path, fmt.Sprintf("%d", recorder.Status()), time.Since(start))
	})
}
