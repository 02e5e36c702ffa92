package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/campus-guardian/pkg/cache"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// StatsKey is the cache key holding the latest stats of a job.
func StatsKey(job string) string { return "stats:" + job }

// StatsCache keeps the latest run stats per job for dashboards.
type StatsCache struct {
	store cache.Store
	ttl   time.Duration
}

// NewStatsCache stores entries for ttl (24h when zero).
func NewStatsCache(store cache.Store, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatsCache{store: store, ttl: ttl}
}

// Put replaces the cached stats of stats.Job.
func (c *StatsCache) Put(ctx context.Context, stats *model.RunStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	return c.store.Set(ctx, StatsKey(stats.Job), data, c.ttl)
}

// Get returns the cached stats of a job. ok is false when nothing is cached.
func (c *StatsCache) Get(ctx context.Context, job string) (*model.RunStats, bool, error) {
	data, ok, err := c.store.Get(ctx, StatsKey(job))
	if err != nil || !ok {
		return nil, false, err
	}
	var stats model.RunStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false, fmt.Errorf("unmarshal stats: %w", err)
	}
	return &stats, true, nil
}
