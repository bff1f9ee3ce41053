// Package server wraps long-running services with signal-driven graceful
// shutdown.
package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-ramstore/pkg/logging"
)

// Service is anything that serves until Shutdown.
type Service interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// GracefulRunner runs a service and shuts it down cleanly on SIGINT or
// SIGTERM.
type GracefulRunner struct {
	service      Service
	logger       logging.Logger
	timeout      time.Duration
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewGracefulRunner wraps a service with graceful shutdown handling.
func NewGracefulRunner(service Service, logger logging.Logger, timeout time.Duration) *GracefulRunner {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &GracefulRunner{
		service:    service,
		logger:     logger,
		timeout:    timeout,
		shutdownCh: make(chan struct{}),
	}
}

// Run starts the service and blocks until it stops or a shutdown signal
// arrives.
func (gr *GracefulRunner) Run() error {
	go gr.handleSignals()
	return gr.service.Start()
}

// Shutdown initiates a graceful shutdown.
func (gr *GracefulRunner) Shutdown() error {
	var err error
	gr.shutdownOnce.Do(func() {
		close(gr.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), gr.timeout)
		defer cancel()

		gr.logger.Info("initiating graceful shutdown",
			logging.Duration("timeout", gr.timeout))

		if shutdownErr := gr.service.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gr.logger.Error("error during shutdown", logging.Error(shutdownErr))
		} else {
			gr.logger.Info("shutdown complete")
		}
	})
	return err
}

func (gr *GracefulRunner) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		gr.logger.Info("received signal, shutting down", logging.String("signal", sig.String()))
		gr.Shutdown()
	case <-gr.shutdownCh:
	}
}
