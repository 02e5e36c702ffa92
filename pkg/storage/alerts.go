package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

var alertColumns = []string{
	"id", "entity_id", "kind", "severity", "observed_value", "threshold", "message",
	"suggested_action", "status", "triggered_at", "resolved_at", "created_at", "updated_at",
}

const activeAlertUpsert = `ON CONFLICT (entity_id, kind) WHERE status = 'active' DO UPDATE SET
	severity = excluded.severity,
	observed_value = excluded.observed_value,
	threshold = excluded.threshold,
	message = excluded.message,
	suggested_action = excluded.suggested_action,
	triggered_at = excluded.triggered_at,
	updated_at = excluded.updated_at`

func scanAlert(r rowScanner) (model.Alert, error) {
	var a model.Alert
	var kind, severity, status string
	var resolvedAt sql.NullTime
	err := r.Scan(&a.ID, &a.EntityID, &kind, &severity, &a.ObservedValue, &a.Threshold, &a.Message,
		&a.SuggestedAction, &status, &a.TriggeredAt, &resolvedAt, &a.CreatedAt, &a.UpdatedAt)
	a.Kind = model.AlertKind(kind)
	a.Severity = model.Severity(severity)
	a.Status = model.AlertStatus(status)
	a.ResolvedAt = timePtr(resolvedAt)
	return a, err
}

// UpsertActiveAlert writes the alert through the partial unique index on
// active rows, so concurrent evaluations of one entity never produce two
// active rows. The alert is reloaded afterwards to pick up the surviving id.
func (s *SQLStore) UpsertActiveAlert(ctx context.Context, alert *model.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if alert.TriggeredAt.IsZero() {
		alert.TriggeredAt = now
	}

	q := s.sb.Insert("alerts").
		Columns(alertColumns...).
		Values(alert.ID, alert.EntityID, string(alert.Kind), string(alert.Severity), alert.ObservedValue,
			alert.Threshold, alert.Message, alert.SuggestedAction, string(model.AlertActive),
			alert.TriggeredAt.UTC(), sql.NullTime{}, now, now).
		Suffix(activeAlertUpsert)
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("upsert alert: %w", err)
	}

	stored, err := s.GetActiveAlert(ctx, alert.EntityID, alert.Kind)
	if err != nil {
		return err
	}
	*alert = *stored
	return nil
}

func (s *SQLStore) ResolveActiveAlert(ctx context.Context, entityID string, kind model.AlertKind, at time.Time) (bool, error) {
	q := s.sb.Update("alerts").
		Set("status", string(model.AlertResolved)).
		Set("resolved_at", at.UTC()).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"entity_id": entityID, "kind": string(kind), "status": string(model.AlertActive)})
	result, err := s.exec(ctx, q)
	if err != nil {
		return false, fmt.Errorf("resolve alert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve alert: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) GetActiveAlert(ctx context.Context, entityID string, kind model.AlertKind) (*model.Alert, error) {
	row, err := s.queryRow(ctx, s.sb.Select(alertColumns...).From("alerts").
		Where(sq.Eq{"entity_id": entityID, "kind": string(kind), "status": string(model.AlertActive)}))
	if err != nil {
		return nil, err
	}
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active %s alert for %q: %w", kind, entityID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get active alert: %w", err)
	}
	return &a, nil
}

func (s *SQLStore) ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error) {
	q := s.sb.Select(alertColumns...).From("alerts").
		OrderBy("triggered_at DESC", "id").
		Limit(limitOr(filter.Limit, 100))
	if filter.EntityID != "" {
		q = q.Where(sq.Eq{"entity_id": filter.EntityID})
	}
	if filter.Kind != "" {
		q = q.Where(sq.Eq{"kind": string(filter.Kind)})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
