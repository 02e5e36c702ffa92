package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// NotificationType identifies the shape of a notification.
type NotificationType string

const (
	TypeAlert         NotificationType = "alert"          // One entity crossed a threshold
	TypeBulkAlert     NotificationType = "bulk_alert"     // Summary of many entities in one run
	TypePurchaseOrder NotificationType = "purchase_order" // Follow-up order awaiting or granted approval
	TypeJobFailed     NotificationType = "job_failed"     // Run exhausted its attempts
)

// Notification is the channel-agnostic message handed to notifiers.
type Notification struct {
	Type            NotificationType       `json:"type"`
	Kind            model.AlertKind        `json:"kind,omitempty"`
	Severity        model.Severity         `json:"severity,omitempty"`
	Title           string                 `json:"title"`
	Message         string                 `json:"message"`
	SuggestedAction string                 `json:"suggested_action,omitempty"`
	EntityID        string                 `json:"entity_id,omitempty"`
	Entities        []model.AffectedEntity `json:"entities,omitempty"`
	Reference       string                 `json:"reference,omitempty"`
	Amount          float64                `json:"amount,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Delivery addresses a notification to one recipient. Broadcast channels
// receive a zero Recipient.
type Delivery struct {
	Recipient    model.User   `json:"recipient"`
	Notification Notification `json:"notification"`
}

// Notifier sends notifications to an external system.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a notification. Implementations must be safe for concurrent use.
	Send(ctx context.Context, d Delivery) error
}

// NewAlert builds a single-entity notification from a ledger row.
func NewAlert(a model.Alert, entityName string) Notification {
	if entityName == "" {
		entityName = a.EntityID
	}
	return Notification{
		Type:            TypeAlert,
		Kind:            a.Kind,
		Severity:        a.Severity,
		Title:           fmt.Sprintf("%s: %s (%s)", kindTitle(a.Kind), entityName, a.Severity),
		Message:         a.Message,
		SuggestedAction: a.SuggestedAction,
		EntityID:        a.EntityID,
		CreatedAt:       time.Now().UTC(),
	}
}

// NewBulkAlert summarises many affected entities in one notification.
func NewBulkAlert(kind model.AlertKind, entities []model.AffectedEntity) Notification {
	highest := model.SeverityNone
	counts := make(map[model.Severity]int)
	for _, e := range entities {
		counts[e.Severity]++
		if e.Severity.Rank() > highest.Rank() {
			highest = e.Severity
		}
	}

	var parts []string
	for _, sev := range []model.Severity{
		model.SeverityExhausted, model.SeverityExceeded, model.SeverityCritical, model.SeverityLow, model.SeverityWarning,
	} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}

	return Notification{
		Type:      TypeBulkAlert,
		Kind:      kind,
		Severity:  highest,
		Title:     fmt.Sprintf("%s: %d entities need attention", kindTitle(kind), len(entities)),
		Message:   strings.Join(parts, ", "),
		Entities:  entities,
		CreatedAt: time.Now().UTC(),
	}
}

// NewPurchaseOrder announces a generated follow-up order.
func NewPurchaseOrder(order model.PurchaseOrder, supplierName string) Notification {
	if supplierName == "" {
		supplierName = order.SupplierID
	}
	title := fmt.Sprintf("Purchase order %s awaiting approval", order.Number)
	if order.Status == model.OrderApproved {
		title = fmt.Sprintf("Purchase order %s auto-approved", order.Number)
	}
	return Notification{
		Type:      TypePurchaseOrder,
		Title:     title,
		Message:   fmt.Sprintf("%d line(s) for %s totalling %.2f", len(order.Lines), supplierName, order.Total),
		Reference: order.Number,
		Amount:    order.Total,
		CreatedAt: time.Now().UTC(),
	}
}

// NewJobFailed tells administrators that a run gave up.
func NewJobFailed(job, runID, params string, attempts int, err error) Notification {
	return Notification{
		Type:      TypeJobFailed,
		Severity:  model.SeverityCritical,
		Title:     fmt.Sprintf("Job %s failed", job),
		Message:   fmt.Sprintf("failed after %d attempt(s) with params %s: %v", attempts, params, err),
		Reference: runID,
		CreatedAt: time.Now().UTC(),
	}
}

func kindTitle(kind model.AlertKind) string {
	switch kind {
	case model.KindLowStock:
		return "Low stock"
	case model.KindBudgetVariance:
		return "Budget variance"
	default:
		return string(kind)
	}
}
