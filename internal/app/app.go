// Package app wires configuration into the stores, channels and jobs shared
// by the daemon and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ogulcanaydogan/campus-guardian/internal/config"
	"github.com/ogulcanaydogan/campus-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
	"github.com/ogulcanaydogan/campus-guardian/pkg/cache"
	"github.com/ogulcanaydogan/campus-guardian/pkg/dedup"
	"github.com/ogulcanaydogan/campus-guardian/pkg/dispatch"
	"github.com/ogulcanaydogan/campus-guardian/pkg/ledger"
	"github.com/ogulcanaydogan/campus-guardian/pkg/recipients"
	"github.com/ogulcanaydogan/campus-guardian/pkg/storage"
)

// App holds the wired components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *storage.SQLStore
	Cache      cache.Store
	Ledger     *ledger.Ledger
	Resolver   *recipients.Resolver
	Dispatcher *dispatch.Dispatcher
	Stats      *automation.StatsCache
	Stock      *automation.StockMonitor
	Budget     *automation.BudgetMonitor
	Runner     *automation.Runner
}

// New opens storage and the cache and builds every job. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	dsn := cfg.Storage.DSN
	if cfg.Storage.Driver == "sqlite" {
		dsn = cfg.Storage.Path
	}
	store, err := storage.Open(ctx, cfg.Storage.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	kv, err := newCache(ctx, cfg.Cache)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Cache:  kv,
		Ledger: ledger.New(store),
		Resolver: recipients.NewResolver(store,
			recipients.WithAmountTiers(cfg.Alerts.AmountTiers),
			recipients.WithUserCacheTTL(cfg.Alerts.UserCacheTTL),
		),
		Stats: automation.NewStatsCache(kv, cfg.Automation.StatsTTL),
	}
	a.Dispatcher = dispatch.New(channels(cfg.Alerts, store), logger)

	pipeline := automation.NewPipeline(a.Ledger, dedup.NewGuard(kv, cfg.Alerts.Cooldowns), a.Resolver, a.Dispatcher, a.Stats,
		automation.PipelineConfig{
			Concurrency:   cfg.Automation.Concurrency,
			BulkThreshold: cfg.Alerts.BulkThreshold,
			BulkMode:      automation.BulkMode(cfg.Alerts.BulkMode),
		}, logger)

	// automation.auto_reorder only sets the default; a request may still ask for orders.
	reorderer := automation.NewReorderer(store, a.Resolver, a.Dispatcher,
		automation.ReorderConfig{QuantityFloor: cfg.Automation.ReorderFloor}, logger)
	a.Stock = automation.NewStockMonitor(store, pipeline, a.Ledger, reorderer, logger)
	a.Budget = automation.NewBudgetMonitor(store, pipeline, a.Ledger, cfg.Alerts.BudgetCutoffs, logger)

	registry := automation.NewRegistry()
	for _, job := range []automation.Job{a.Stock, a.Budget} {
		if err := registry.Register(job); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Runner = automation.NewRunner(registry, store, a.Resolver, a.Dispatcher, automation.RunnerConfig{
		MaxAttempts:    cfg.Automation.MaxAttempts,
		AttemptTimeout: cfg.Automation.AttemptTimeout,
		RetryDelay:     cfg.Automation.RetryDelay,
	}, logger)

	return a, nil
}

// DefaultOptions returns the configured run options.
func (a *App) DefaultOptions() automation.Options {
	c := a.Config.Automation
	return automation.Options{
		AutoApproveLimit:  c.AutoApproveLimit,
		SendNotifications: c.SendNotifications,
		UpdateCache:       c.UpdateCache,
		AutoReorder:       c.AutoReorder,
		Priority:          automation.PriorityNormal,
	}
}

// NewQueue creates a background queue over the app's runner.
func (a *App) NewQueue(onComplete func(automation.Event)) *automation.Queue {
	return automation.NewQueue(a.Runner, automation.QueueConfig{
		Workers:  a.Config.Automation.QueueWorkers,
		Capacity: a.Config.Automation.QueueCapacity,
	}, onComplete, a.Logger)
}

// Close drains pending deliveries and closes the cache and storage.
func (a *App) Close() error {
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	return errors.Join(a.Cache.Close(), a.Store.Close())
}

func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	if cfg.Driver == "redis" {
		return cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	}
	return cache.NewMemory(), nil
}

// channels builds the delivery channels. Outbound HTTP channels share one rate limit each.
func channels(cfg config.AlertsConfig, inbox alerts.InboxWriter) dispatch.Config {
	dc := dispatch.Config{Workers: cfg.Workers}
	if cfg.InApp.Enabled {
		dc.Personal = append(dc.Personal, alerts.NewInAppNotifier(inbox))
	}

	throttle := func(n alerts.Notifier) alerts.Notifier {
		if cfg.RateLimit.PerSecond <= 0 {
			return n
		}
		return alerts.NewThrottled(n, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	}
	if cfg.Slack.Enabled && cfg.Slack.WebhookURL != "" {
		dc.Broadcast = append(dc.Broadcast, throttle(alerts.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.Channel)))
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		dc.Broadcast = append(dc.Broadcast, throttle(alerts.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Secret)))
	}
	return dc
}

// NewLogger creates a structured logger from config.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}
