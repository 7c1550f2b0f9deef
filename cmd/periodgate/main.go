package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/batasku/periodgate/internal/app"
	"github.com/batasku/periodgate/internal/audit"
	"github.com/batasku/periodgate/internal/authz"
	"github.com/batasku/periodgate/internal/balance"
	"github.com/batasku/periodgate/internal/erpnext"
	"github.com/batasku/periodgate/internal/observability"
	"github.com/batasku/periodgate/internal/period"
	periodhttp "github.com/batasku/periodgate/internal/period/http"
	"github.com/batasku/periodgate/internal/platform/cache"
	"github.com/batasku/periodgate/internal/platform/lock"
	"github.com/batasku/periodgate/internal/proxy"
	"github.com/batasku/periodgate/jobs"
	"github.com/batasku/periodgate/report"
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

	var (
		store  *cache.Store
		locker period.Locker
	)
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, running without cache and locks", slog.Any("error", err))
	} else {
		store = cache.NewStore(redisClient, cfg.CacheTTL)
		locker = lock.NewLocker(redisClient, cfg.LockTTL)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditor := audit.NewWriter(upstream, logger, metrics)
	configStore := period.NewConfigStore(upstream, store, auditor)
	balances := balance.NewAggregator(upstream)
	validator := period.NewValidator(upstream)

	service := period.NewService(upstream, balances, validator, configStore, auditor, locker, logger)

	notifier := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()
	service = service.WithNotifier(notifier)

	var pdf *report.Client
	if cfg.GotenbergURL != "" {
		pdf = report.NewClient(cfg.GotenbergURL)
	}
	reports := report.NewService(service, pdf)

	periodHandler := periodhttp.NewHandler(logger, service, configStore, audit.NewReader(upstream), reports)
	proxyHandler := proxy.NewHandler(upstream)
	resolver := authz.NewResolver(upstream)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Upstream:      upstream,
		Resolver:      resolver,
		PeriodHandler: periodHandler,
		ProxyHandler:  proxyHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
