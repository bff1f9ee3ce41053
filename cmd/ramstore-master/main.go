package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-ramstore/pkg/api"
	"github.com/dd0wney/cluso-ramstore/pkg/backup"
	"github.com/dd0wney/cluso-ramstore/pkg/config"
	"github.com/dd0wney/cluso-ramstore/pkg/coordinator"
	"github.com/dd0wney/cluso-ramstore/pkg/logging"
	"github.com/dd0wney/cluso-ramstore/pkg/master"
	"github.com/dd0wney/cluso-ramstore/pkg/metrics"
	"github.com/dd0wney/cluso-ramstore/pkg/server"
	"github.com/dd0wney/cluso-ramstore/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	httpAddr := flag.String("http", "", "HTTP listen address (overrides config)")
	logSize := flag.String("log-size", "", "Log size in MB (overrides config)")
	hashSize := flag.String("hash-size", "", "Hash table size in MB (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.Master.HTTPAddr = *httpAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logSize != "" || *hashSize != "" {
		ls, hs := cfg.Master.LogSize, cfg.Master.HashSize
		if *logSize != "" {
			ls = *logSize
		}
		if *hashSize != "" {
			hs = *hashSize
		}
		if err := config.SizeLogAndHashTable(ls, hs, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Logging.Level))
	logger.Info("ramstore master starting",
		logging.String("locator", cfg.Master.Locator),
		logging.String("http_addr", cfg.Master.HTTPAddr),
		logging.Int("max_segments", cfg.Master.MaxSegments))

	registry := metrics.DefaultRegistry()
	cluster := transport.NewMangosTransport(10 * time.Second)

	// Enlist with the coordinator; the assigned id names this master in
	// recovery traffic.
	var serverID uint64
	if cfg.Coordinator.Locator != "" {
		coordClient := coordinator.NewClient(cluster, cfg.Coordinator.Locator)
		serverID, err = coordClient.EnlistServer(coordinator.ServerTypeMaster, cfg.Master.Locator)
		if err != nil {
			logger.Warn("coordinator enlistment failed; continuing unenlisted",
				logging.Error(err),
				logging.Locator(cfg.Coordinator.Locator))
		} else {
			logger.Info("enlisted with coordinator", logging.Uint64("server_id", serverID))
		}
	}

	m := master.NewMaster(master.Config{
		ServerID:      serverID,
		Locator:       cfg.Master.Locator,
		SegmentSize:   cfg.Master.SegmentSize,
		MaxSegments:   cfg.Master.MaxSegments,
		IndexSizeHint: cfg.Master.IndexSizeHint,
	}, logger)
	m.SetMetrics(registry)
	m.SetRecoveryBackend(backup.NewClient(cluster))
	if cfg.Coordinator.Locator != "" {
		m.SetCoordinator(coordinator.NewClient(cluster, cfg.Coordinator.Locator))
	}

	apiServer := api.NewServer(m, cfg.Master.HTTPAddr, logger, registry)

	// Keep system gauges fresh while serving.
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			registry.UpdateSystemMetrics(startTime)
		}
	}()

	runner := server.NewGracefulRunner(apiServer, logger, 30*time.Second)
	if err := runner.Run(); err != nil {
		logger.Error("server failed", logging.Error(err))
		os.Exit(1)
	}
}
