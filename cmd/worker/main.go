package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nadmax/teamplan/internal/config"
	"github.com/nadmax/teamplan/internal/logging"
	"github.com/nadmax/teamplan/internal/queue"
	"github.com/nadmax/teamplan/internal/tracker"
	"github.com/nadmax/teamplan/internal/worker"
	"github.com/nadmax/teamplan/internal/worker/handlers"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.NewLogger(cfg.Env)

	q, err := queue.NewQueue(cfg.RedisAddr)
	if err != nil {
		logger.Error("failed to connect job queue", "err", err)
		os.Exit(1)
	}

	defer func() {
		if err := q.Close(); err != nil {
			logger.Error("failed to close worker queue", "err", err)
		}
	}()

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%d", time.Now().Unix())
	}

	w := worker.NewWorker(workerID, q, logger.Logger)

	client := tracker.NewHTTPClient(cfg.Tracker.URL, cfg.Tracker.APIKey, cfg.Tracker.Timeout)
	w.RegisterHandler(queue.JobSyncTrackerDates, handlers.SyncTrackerDatesHandler(client))

	if cfg.Mail.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set, team notifications will fail and retry")
	}
	mailer := handlers.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.FromAddress, logger.Logger)
	w.RegisterHandler(queue.JobNotifyTeam, mailer.NotifyTeamHandler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker starting", "worker_id", workerID, "redis", cfg.RedisAddr)
	w.Start(ctx)
	logger.Info("worker shut down")
}
