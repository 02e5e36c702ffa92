package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/campus-guardian/internal/config"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Hour, cfg.Alerts.Cooldowns.Exhausted)
	assert.Equal(t, 4*time.Hour, cfg.Alerts.Cooldowns.Critical)
	assert.Equal(t, 24*time.Hour, cfg.Alerts.Cooldowns.Low)
	assert.Equal(t, 75.0, cfg.Alerts.BudgetCutoffs.Warning)
	assert.Equal(t, 5, cfg.Alerts.BulkThreshold)
	assert.Equal(t, "replace", cfg.Alerts.BulkMode)
	assert.Len(t, cfg.Alerts.AmountTiers, 3)
	assert.Equal(t, 3, cfg.Automation.MaxAttempts)
	assert.Equal(t, 300*time.Second, cfg.Automation.AttemptTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Automation.StatsTTL)
	assert.True(t, cfg.Automation.SendNotifications)
	assert.Zero(t, cfg.Automation.AutoApproveLimit)
	assert.Equal(t, "campus.jobs.trigger", cfg.Bus.TriggerSubject)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
storage:
  path: /tmp/test.db
cache:
  driver: redis
  redis:
    addr: redis:6379
alerts:
  bulk_mode: supplement
  cooldowns:
    low: 12h
  amount_tiers:
    - min: 1000
      roles: [principal]
    - min: 0
      inclusive: true
      roles: [finance_manager]
automation:
  auto_approve_limit: 250
  attempt_timeout: 90s
schedule:
  stock_interval: 15m
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(cfgPath, data, 0o644))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "supplement", cfg.Alerts.BulkMode)
	assert.Equal(t, 12*time.Hour, cfg.Alerts.Cooldowns.Low)
	assert.Equal(t, time.Hour, cfg.Alerts.Cooldowns.Exhausted)
	require.Len(t, cfg.Alerts.AmountTiers, 2)
	assert.Equal(t, []model.Role{model.RolePrincipal}, cfg.Alerts.AmountTiers[0].Roles)
	assert.True(t, cfg.Alerts.AmountTiers[1].Inclusive)
	assert.Equal(t, 250.0, cfg.Automation.AutoApproveLimit)
	assert.Equal(t, 90*time.Second, cfg.Automation.AttemptTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Schedule.StockInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CG_LOGGING_LEVEL", "error")
	t.Setenv("CG_SERVER_LISTEN", ":7070")
	t.Setenv("CG_AUTOMATION_MAX_ATTEMPTS", "5")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
	assert.Equal(t, 5, cfg.Automation.MaxAttempts)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644))

	_, err := config.Load(cfgPath)
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := map[string]string{
		"unknown storage driver": "storage:\n  driver: mysql\n",
		"postgres without dsn":   "storage:\n  driver: postgres\n",
		"unknown cache driver":   "cache:\n  driver: memcached\n",
		"unknown bulk mode":      "alerts:\n  bulk_mode: merge\n",
		"descending cutoffs":     "alerts:\n  budget_cutoffs:\n    warning: 95\n",
		"negative approve limit": "automation:\n  auto_approve_limit: -1\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}
