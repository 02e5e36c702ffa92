// Package dedup suppresses repeat notifications for the same alert within a
// severity-dependent cooldown window.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogulcanaydogan/campus-guardian/pkg/cache"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// Cooldowns maps severities to notification cooldowns. More severe levels get shorter windows.
type Cooldowns struct {
	Exhausted time.Duration `mapstructure:"exhausted"`
	Exceeded  time.Duration `mapstructure:"exceeded"`
	Critical  time.Duration `mapstructure:"critical"`
	Low       time.Duration `mapstructure:"low"`
	Warning   time.Duration `mapstructure:"warning"`
}

// DefaultCooldowns returns the stock policy: 1h for depleted or overspent, 4h critical, 24h otherwise.
func DefaultCooldowns() Cooldowns {
	return Cooldowns{
		Exhausted: time.Hour,
		Exceeded:  time.Hour,
		Critical:  4 * time.Hour,
		Low:       24 * time.Hour,
		Warning:   24 * time.Hour,
	}
}

// For returns the cooldown for a severity. Unknown severities use the least severe window.
func (c Cooldowns) For(s model.Severity) time.Duration {
	switch s {
	case model.SeverityExhausted:
		return c.Exhausted
	case model.SeverityExceeded:
		return c.Exceeded
	case model.SeverityCritical:
		return c.Critical
	case model.SeverityWarning:
		return c.Warning
	default:
		return c.Low
	}
}

// Key builds the dedup key for an (entity, kind[, scope...]) pair.
func Key(entityID string, kind model.AlertKind, scope ...string) string {
	parts := append([]string{"alert", string(kind), entityID}, scope...)
	return strings.Join(parts, ":")
}

// Guard gates notifications through an expiring store.
type Guard struct {
	store     cache.Store
	cooldowns Cooldowns
}

// NewGuard creates a guard over the given store.
func NewGuard(store cache.Store, cooldowns Cooldowns) *Guard {
	return &Guard{store: store, cooldowns: cooldowns}
}

// ShouldNotify reports whether a notification for key may be sent now.
func (g *Guard) ShouldNotify(ctx context.Context, key string, forced bool) (bool, error) {
	if forced {
		return true, nil
	}
	_, found, err := g.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check cooldown: %w", err)
	}
	return !found, nil
}

// MarkNotified starts (or restarts) the cooldown for key.
func (g *Guard) MarkNotified(ctx context.Context, key string, severity model.Severity) error {
	if err := g.store.Set(ctx, key, []byte(severity), g.cooldowns.For(severity)); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// Acquire atomically checks and claims the cooldown for key. An open cooldown
// recorded at a lower severity does not block an escalation: the entry is
// replaced and the shorter window of the new level starts. A forced acquire
// always succeeds and refreshes the entry so the next unforced check stays quiet.
func (g *Guard) Acquire(ctx context.Context, key string, severity model.Severity, forced bool) (bool, error) {
	if forced {
		if err := g.MarkNotified(ctx, key, severity); err != nil {
			return false, err
		}
		return true, nil
	}
	ok, err := g.store.SetIf(ctx, key, []byte(severity), g.cooldowns.For(severity), func(current []byte) bool {
		return severity.Rank() > model.Severity(current).Rank()
	})
	if err != nil {
		return false, fmt.Errorf("claim cooldown: %w", err)
	}
	return ok, nil
}

// Reset clears the cooldown for key.
func (g *Guard) Reset(ctx context.Context, key string) error {
	return g.store.Delete(ctx, key)
}
