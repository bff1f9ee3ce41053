// Package api exposes the master's client RPC surface over HTTP with JSON
// bodies: ping, create, read, write, remove, setTablets, and recover, plus
// the operational endpoints (health, metrics).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-ramstore/pkg/api/middleware"
	"github.com/dd0wney/cluso-ramstore/pkg/health"
	"github.com/dd0wney/cluso-ramstore/pkg/logging"
	"github.com/dd0wney/cluso-ramstore/pkg/master"
	"github.com/dd0wney/cluso-ramstore/pkg/metrics"
)

// Server is the HTTP API server in front of a master.
type Server struct {
	master    *master.Master
	logger    logging.Logger
	metrics   *metrics.Registry
	health    *health.HealthChecker
	startTime time.Time

	httpServer *http.Server
}

// NewServer creates an API server. The metrics registry may be nil.
func NewServer(m *master.Master, addr string, logger logging.Logger, registry *metrics.Registry) *Server {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	hc := health.NewHealthChecker()
	hc.RegisterCheck("log", health.LogCheck(m))
	hc.RegisterCheck("tablets", health.TabletCheck(m))
	hc.RegisterReadinessCheck("tablets", health.TabletCheck(m))
	hc.RegisterLivenessCheck("up", func() health.Check {
		return health.Check{Name: "up", Status: health.StatusHealthy}
	})

	s := &Server{
		master:    m,
		logger:    logger,
		metrics:   registry,
		health:    hc,
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.Routes(),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// Routes builds the request mux wrapped in the middleware chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health and metrics
	mux.HandleFunc("GET /health", s.health.HTTPHandler())
	mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	mux.HandleFunc("GET /health/live", s.health.LivenessHandler())
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Client RPC surface
	mux.HandleFunc("POST /ping", s.handlePing)
	mux.HandleFunc("POST /tables/{table}/objects", s.handleCreate)
	mux.HandleFunc("GET /tables/{table}/objects/{id}", s.handleRead)
	mux.HandleFunc("PUT /tables/{table}/objects/{id}", s.handleWrite)
	mux.HandleFunc("DELETE /tables/{table}/objects/{id}", s.handleRemove)

	// Management surface
	mux.HandleFunc("PUT /tablets", s.handleSetTablets)
	mux.HandleFunc("GET /tablets", s.handleGetTablets)
	mux.HandleFunc("POST /recover", s.handleRecover)

	var handler http.Handler = mux
	handler = middleware.Metrics(metricsRecorder(s.metrics))(handler)
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.PanicRecovery(s.logger)(handler)
	return handler
}

// metricsRecorder keeps the nil registry from becoming a typed non-nil
// interface value inside the middleware.
func metricsRecorder(r *metrics.Registry) middleware.MetricsRecorder {
	if r == nil {
		return nil
	}
	return r
}

// Start serves HTTP until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("API server listening", logging.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
