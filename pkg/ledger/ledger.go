// Package ledger keeps the persistent record of active and resolved alerts.
// At most one active row exists per (entity, kind); the storage layer's
// partial unique index enforces that even under concurrent evaluations.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/storage"
	"github.com/ogulcanaydogan/campus-guardian/pkg/threshold"
)

// Ledger records alert lifecycle transitions.
type Ledger struct {
	store storage.AlertStore
	now   func() time.Time
}

// New creates a ledger over the given alert store.
func New(store storage.AlertStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// RecordActive creates or refreshes the active alert for the entity.
// A repeated call for the same (entity, kind) never adds a row.
func (l *Ledger) RecordActive(ctx context.Context, alert *model.Alert) error {
	if !alert.Severity.Classified() {
		return fmt.Errorf("record alert for %s: severity %q is not alertable", alert.EntityID, alert.Severity)
	}
	alert.TriggeredAt = l.now().UTC()
	if err := l.store.UpsertActiveAlert(ctx, alert); err != nil {
		return fmt.Errorf("record alert for %s: %w", alert.EntityID, err)
	}
	return nil
}

// ResolveIfRecovered resolves the active low-stock alert once quantity climbs
// strictly above max(minimum, reorder point). It reports whether a row was resolved.
func (l *Ledger) ResolveIfRecovered(ctx context.Context, entityID string, minimum, reorder, current float64) (bool, error) {
	if !threshold.StockRecovered(current, minimum, reorder) {
		return false, nil
	}
	return l.Resolve(ctx, entityID, model.KindLowStock)
}

// Resolve closes the active alert for (entity, kind) if one exists.
func (l *Ledger) Resolve(ctx context.Context, entityID string, kind model.AlertKind) (bool, error) {
	ok, err := l.store.ResolveActiveAlert(ctx, entityID, kind, l.now().UTC())
	if err != nil {
		return false, fmt.Errorf("resolve %s alert for %s: %w", kind, entityID, err)
	}
	return ok, nil
}

// Active returns the active alert for (entity, kind), or nil when there is none.
func (l *Ledger) Active(ctx context.Context, entityID string, kind model.AlertKind) (*model.Alert, error) {
	a, err := l.store.GetActiveAlert(ctx, entityID, kind)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// List returns ledger rows matching the filter, newest first.
func (l *Ledger) List(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error) {
	return l.store.ListAlerts(ctx, filter)
}
