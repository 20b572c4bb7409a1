package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nadmax/teamplan/internal/api"
	"github.com/nadmax/teamplan/internal/cache"
	"github.com/nadmax/teamplan/internal/config"
	"github.com/nadmax/teamplan/internal/logging"
	"github.com/nadmax/teamplan/internal/middleware"
	"github.com/nadmax/teamplan/internal/planning"
	"github.com/nadmax/teamplan/internal/queue"
	"github.com/nadmax/teamplan/internal/repository"
	"github.com/nadmax/teamplan/internal/server"
	"github.com/nadmax/teamplan/internal/snapshot"
	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/tracker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.NewLogger(cfg.Env)
	logger.Info("starting server", "env", cfg.Env)

	if err := run(cfg, logger.Logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred closes happen before main exits.
func run(cfg *config.Config, logger *slog.Logger) error {
	store, err := repository.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close postgres store", "err", err)
		}
	}()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	lookups, err := cache.NewLookupCache(cfg.RedisAddr, store, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("failed to connect lookup cache: %w", err)
	}

	defer func() {
		if err := lookups.Close(); err != nil {
			logger.Error("failed to close lookup cache", "err", err)
		}
	}()

	q, err := queue.NewQueue(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect job queue: %w", err)
	}

	defer func() {
		if err := q.Close(); err != nil {
			logger.Error("failed to close job queue", "err", err)
		}
	}()

	client := tracker.NewHTTPClient(cfg.Tracker.URL, cfg.Tracker.APIKey, cfg.Tracker.Timeout)
	assembler := snapshot.NewAssembler(client, store, lookups, snapshot.Fields{
		Department:    cfg.Tracker.DepartmentField,
		Responsible:   cfg.Tracker.ResponsibleField,
		FunctionalDoc: cfg.Tracker.FunctionalDocField,
	})

	classifier := task.NewClassifier(task.NewStatusCatalog(cfg.Tracker.DoneStatuses, cfg.Tracker.ActiveStatuses))
	svc := planning.NewService(assembler, lookups, store, planning.WithClassifier(classifier))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api.NewAPI(svc, q, logger))

	httpServer := server.NewHTTPServer(cfg.HTTP, middleware.CORS(cfg.HTTP.AllowedOrigins)(mux), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go startMetricsCollector(ctx, svc, q, logger, metricsInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info("server started", "addr", cfg.HTTP.Addr(), "tracker", cfg.Tracker.URL)

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server error", "err", err)
		}
	}

	if err := httpServer.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
