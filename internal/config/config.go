package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ogulcanaydogan/campus-guardian/pkg/dedup"
	"github.com/ogulcanaydogan/campus-guardian/pkg/recipients"
	"github.com/ogulcanaydogan/campus-guardian/pkg/threshold"
)

// Config holds all Campus Guardian configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Automation AutomationConfig `mapstructure:"automation"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Server     ServerConfig     `mapstructure:"server"`
	Bus        BusConfig        `mapstructure:"bus"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig selects the expiring key-value store behind dedup and stats.
type CacheConfig struct {
	Driver string      `mapstructure:"driver"` // memory or redis
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// AlertsConfig defines thresholds, recipients and delivery channels.
type AlertsConfig struct {
	Cooldowns     dedup.Cooldowns         `mapstructure:"cooldowns"`
	BudgetCutoffs threshold.BudgetCutoffs `mapstructure:"budget_cutoffs"`
	AmountTiers   []recipients.AmountTier `mapstructure:"amount_tiers"`
	UserCacheTTL  time.Duration           `mapstructure:"user_cache_ttl"`
	BulkThreshold int                     `mapstructure:"bulk_threshold"`
	BulkMode      string                  `mapstructure:"bulk_mode"`
	Workers       int                     `mapstructure:"workers"`
	InApp         InAppConfig             `mapstructure:"in_app"`
	Slack         SlackConfig             `mapstructure:"slack"`
	Webhook       WebhookConfig           `mapstructure:"webhook"`
	RateLimit     RateLimitConfig         `mapstructure:"rate_limit"`
}

// InAppConfig toggles the per-user inbox channel.
type InAppConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// RateLimitConfig caps outbound calls to slack and webhook endpoints. Zero disables it.
type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

// AutomationConfig defines job execution and default run options.
type AutomationConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	StatsTTL          time.Duration `mapstructure:"stats_ttl"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	AttemptTimeout    time.Duration `mapstructure:"attempt_timeout"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	QueueWorkers      int           `mapstructure:"queue_workers"`
	QueueCapacity     int           `mapstructure:"queue_capacity"`
	AutoApproveLimit  float64       `mapstructure:"auto_approve_limit"`
	SendNotifications bool          `mapstructure:"send_notifications"`
	UpdateCache       bool          `mapstructure:"update_cache"`
	AutoReorder       bool          `mapstructure:"auto_reorder"`
	ReorderFloor      float64       `mapstructure:"reorder_floor"`
}

// ScheduleConfig defines the recurring sweeps. A zero interval disables a sweep.
type ScheduleConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	StockInterval  time.Duration `mapstructure:"stock_interval"`
	BudgetInterval time.Duration `mapstructure:"budget_interval"`
}

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// BusConfig defines the NATS connection and subjects.
type BusConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	URL              string `mapstructure:"url"`
	TriggerSubject   string `mapstructure:"trigger_subject"`
	CompletedSubject string `mapstructure:"completed_subject"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".cg"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("CG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Alerts.AmountTiers) == 0 {
		cfg.Alerts.AmountTiers = recipients.DefaultAmountTiers()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(home, ".cg", "campus.db"))

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.prefix", "cg:")

	cooldowns := dedup.DefaultCooldowns()
	v.SetDefault("alerts.cooldowns.exhausted", cooldowns.Exhausted)
	v.SetDefault("alerts.cooldowns.exceeded", cooldowns.Exceeded)
	v.SetDefault("alerts.cooldowns.critical", cooldowns.Critical)
	v.SetDefault("alerts.cooldowns.low", cooldowns.Low)
	v.SetDefault("alerts.cooldowns.warning", cooldowns.Warning)
	cutoffs := threshold.DefaultBudgetCutoffs()
	v.SetDefault("alerts.budget_cutoffs.warning", cutoffs.Warning)
	v.SetDefault("alerts.budget_cutoffs.critical", cutoffs.Critical)
	v.SetDefault("alerts.budget_cutoffs.exceeded", cutoffs.Exceeded)
	v.SetDefault("alerts.user_cache_ttl", time.Minute)
	v.SetDefault("alerts.bulk_threshold", 5)
	v.SetDefault("alerts.bulk_mode", "replace")
	v.SetDefault("alerts.workers", 4)
	v.SetDefault("alerts.in_app.enabled", true)
	v.SetDefault("alerts.slack.channel", "#campus-alerts")
	v.SetDefault("alerts.rate_limit.per_second", 1.0)
	v.SetDefault("alerts.rate_limit.burst", 5)

	v.SetDefault("automation.concurrency", 4)
	v.SetDefault("automation.stats_ttl", 24*time.Hour)
	v.SetDefault("automation.max_attempts", 3)
	v.SetDefault("automation.attempt_timeout", 300*time.Second)
	v.SetDefault("automation.retry_delay", 5*time.Second)
	v.SetDefault("automation.queue_workers", 1)
	v.SetDefault("automation.queue_capacity", 64)
	v.SetDefault("automation.auto_approve_limit", 0.0)
	v.SetDefault("automation.send_notifications", true)
	v.SetDefault("automation.update_cache", true)
	v.SetDefault("automation.auto_reorder", true)
	v.SetDefault("automation.reorder_floor", 10.0)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.stock_interval", time.Hour)
	v.SetDefault("schedule.budget_interval", 6*time.Hour)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("bus.enabled", false)
	v.SetDefault("bus.url", "nats://127.0.0.1:4222")
	v.SetDefault("bus.trigger_subject", "campus.jobs.trigger")
	v.SetDefault("bus.completed_subject", "campus.jobs.completed")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "pgx":
	default:
		return fmt.Errorf("storage.driver: unsupported %q", c.Storage.Driver)
	}
	if c.Storage.Driver != "sqlite" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for %s", c.Storage.Driver)
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.driver: unsupported %q", c.Cache.Driver)
	}
	switch c.Alerts.BulkMode {
	case "replace", "supplement":
	default:
		return fmt.Errorf("alerts.bulk_mode: unsupported %q", c.Alerts.BulkMode)
	}
	b := c.Alerts.BudgetCutoffs
	if !(b.Warning < b.Critical && b.Critical <= b.Exceeded) {
		return fmt.Errorf("alerts.budget_cutoffs must ascend: %v < %v <= %v", b.Warning, b.Critical, b.Exceeded)
	}
	if c.Automation.AutoApproveLimit < 0 {
		return fmt.Errorf("automation.auto_approve_limit must not be negative")
	}
	return nil
}
