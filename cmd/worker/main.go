package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/batasku/periodgate/internal/app"
	"github.com/batasku/periodgate/internal/audit"
	"github.com/batasku/periodgate/internal/balance"
	"github.com/batasku/periodgate/internal/erpnext"
	"github.com/batasku/periodgate/internal/notify"
	"github.com/batasku/periodgate/internal/observability"
	"github.com/batasku/periodgate/internal/period"
	"github.com/batasku/periodgate/internal/platform/cache"
	"github.com/batasku/periodgate/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	metrics := observability.NewMetrics()
	upstream := erpnext.NewClient(cfg.ERPNextURL, cfg.ERPAPIKey, cfg.ERPAPISecret, cfg.UpstreamTimeout).
		WithObserver(metrics)

	var store *cache.Store
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, config reads go straight upstream", slog.Any("error", err))
	} else {
		store = cache.NewStore(redisClient, cfg.CacheTTL)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditor := audit.NewWriter(upstream, logger, metrics)
	configStore := period.NewConfigStore(upstream, store, auditor)
	service := period.NewService(upstream, balance.NewAggregator(upstream), period.NewValidator(upstream), configStore, auditor, nil, logger)

	var mailer notify.Mailer
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	} else {
		logger.Warn("no SMTP relay configured, mail will be dropped")
		mailer = &notify.LogMailer{Sink: func(to []string, subject string) {
			logger.Info("mail dropped", slog.Int("recipients", len(to)), slog.String("subject", subject))
		}}
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:    asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:       logger,
		Notify:       jobs.NewPeriodNotifyJob(configStore, mailer, cfg.NotifyRecipients, logger),
		ReminderScan: jobs.NewReminderScanJob(service, configStore, mailer, cfg.NotifyRecipients, logger),
		ReminderCron: cfg.ReminderCron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
