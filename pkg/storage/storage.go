package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ItemStore persists inventory items and their suppliers.
type ItemStore interface {
	// UpsertItem creates or updates an item by id.
	UpsertItem(ctx context.Context, item *model.Item) error

	// GetItem retrieves an item by id.
	GetItem(ctx context.Context, id string) (*model.Item, error)

	// GetItems retrieves the items with the given ids. Missing ids are omitted.
	GetItems(ctx context.Context, ids []string) ([]model.Item, error)

	// ListItems returns items matching the filter.
	ListItems(ctx context.Context, filter model.ItemFilter) ([]model.Item, error)

	// MarkItemsOrdered stamps last_ordered_at on the given items.
	MarkItemsOrdered(ctx context.Context, ids []string, at time.Time) error

	// UpsertSupplier creates or updates a supplier by id.
	UpsertSupplier(ctx context.Context, supplier *model.Supplier) error

	// GetSupplier retrieves a supplier by id.
	GetSupplier(ctx context.Context, id string) (*model.Supplier, error)
}

// BudgetStore persists departmental budgets.
type BudgetStore interface {
	UpsertBudget(ctx context.Context, budget *model.Budget) error
	GetBudget(ctx context.Context, id string) (*model.Budget, error)
	GetBudgets(ctx context.Context, ids []string) ([]model.Budget, error)
	ListBudgets(ctx context.Context, filter model.BudgetFilter) ([]model.Budget, error)

	// UpdateBudgetSpend atomically adds amount to the budget's spend.
	UpdateBudgetSpend(ctx context.Context, id string, amount float64) error
}

// UserStore persists staff and their in-app notifications.
type UserStore interface {
	UpsertUser(ctx context.Context, user *model.User) error
	ListActiveUsers(ctx context.Context) ([]model.User, error)
	CreateUserNotification(ctx context.Context, n *model.UserNotification) error
	ListUserNotifications(ctx context.Context, userID string, limit int) ([]model.UserNotification, error)
}

// AlertStore persists the alert ledger.
type AlertStore interface {
	// UpsertActiveAlert inserts an active alert or refreshes the existing active row for
	// the same (entity, kind) in a single statement.
	UpsertActiveAlert(ctx context.Context, alert *model.Alert) error

	// ResolveActiveAlert marks the active row for (entity, kind) resolved.
	// It reports false when no active row existed.
	ResolveActiveAlert(ctx context.Context, entityID string, kind model.AlertKind, at time.Time) (bool, error)

	GetActiveAlert(ctx context.Context, entityID string, kind model.AlertKind) (*model.Alert, error)
	ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error)
}

// OrderStore persists purchase orders.
type OrderStore interface {
	// CreatePurchaseOrder inserts an order and its lines in one transaction.
	CreatePurchaseOrder(ctx context.Context, order *model.PurchaseOrder) error

	// OpenOrderItemIDs reports which of the given items already sit on a pending or approved order.
	OpenOrderItemIDs(ctx context.Context, itemIDs []string) (map[string]bool, error)

	ListPurchaseOrders(ctx context.Context, limit int) ([]model.PurchaseOrder, error)
}

// JobRunStore persists orchestrator invocations.
type JobRunStore interface {
	CreateJobRun(ctx context.Context, run *model.JobRun) error
	FinishJobRun(ctx context.Context, run *model.JobRun) error
	ListJobRuns(ctx context.Context, job string, limit int) ([]model.JobRun, error)
}

// Storage is the full persistence layer.
type Storage interface {
	ItemStore
	BudgetStore
	UserStore
	AlertStore
	OrderStore
	JobRunStore

	// Close releases resources.
	Close() error
}
