package model

import (
	"strings"
	"time"
)

// Severity is the discrete alert level produced by threshold evaluation.
type Severity string

const (
	SeverityNone      Severity = "none"
	SeverityLow       Severity = "low"       // Stock at or below the reorder point
	SeverityWarning   Severity = "warning"   // Budget past the first cutoff
	SeverityCritical  Severity = "critical"  // Stock at half the minimum, budget past the second cutoff
	SeverityExhausted Severity = "exhausted" // Stock depleted
	SeverityExceeded  Severity = "exceeded"  // Budget overspent
)

// Rank orders severities so that more severe levels compare greater.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow, SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	case SeverityExhausted, SeverityExceeded:
		return 3
	default:
		return 0
	}
}

// Classified reports whether the severity warrants an alert.
func (s Severity) Classified() bool { return s.Rank() > 0 }

// AlertKind identifies the metric family an alert belongs to.
type AlertKind string

const (
	KindLowStock       AlertKind = "low_stock"
	KindBudgetVariance AlertKind = "budget_variance"
)

// AlertStatus is the lifecycle state of a ledger row.
type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// Role is a staff role used for recipient selection.
type Role string

const (
	RoleAdmin            Role = "admin"
	RolePrincipal        Role = "principal"
	RoleFinanceManager   Role = "finance_manager"
	RoleInventoryManager Role = "inventory_manager"
	RoleDepartmentHead   Role = "department_head"
	RoleTeacher          Role = "teacher"
)

// Item is an inventory record monitored for stock levels.
type Item struct {
	ID                  string     `json:"id" yaml:"id"`
	Name                string     `json:"name" yaml:"name"`
	Category            string     `json:"category" yaml:"category"`
	Unit                string     `json:"unit,omitempty" yaml:"unit"`
	Quantity            float64    `json:"quantity" yaml:"quantity"`
	MinimumLevel        float64    `json:"minimum_level" yaml:"minimum_level"`
	ReorderPoint        float64    `json:"reorder_point" yaml:"reorder_point"`
	MaximumLevel        float64    `json:"maximum_level" yaml:"maximum_level"`
	EconomicOrderQty    float64    `json:"economic_order_qty" yaml:"economic_order_qty"`
	UnitCost            float64    `json:"unit_cost" yaml:"unit_cost"`
	PreferredSupplierID string     `json:"preferred_supplier_id,omitempty" yaml:"preferred_supplier_id"`
	Active              bool       `json:"active" yaml:"active"`
	LastOrderedAt       *time.Time `json:"last_ordered_at,omitempty" yaml:"-"`
	CreatedAt           time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt           time.Time  `json:"updated_at" yaml:"-"`
}

// Supplier provides items and receives purchase orders.
type Supplier struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email,omitempty" yaml:"email"`
	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// Budget is a departmental spending allocation monitored for variance.
type Budget struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Department string    `json:"department" yaml:"department"`
	Period     string    `json:"period" yaml:"period"`
	Allocated  float64   `json:"allocated" yaml:"allocated"`
	Spent      float64   `json:"spent" yaml:"spent"`
	Active     bool      `json:"active" yaml:"active"`
	CreatedAt  time.Time `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"-"`
}

// User is a staff member who may receive notifications.
type User struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email,omitempty" yaml:"email"`
	Role       Role   `json:"role" yaml:"role"`
	Department string `json:"department,omitempty" yaml:"department"`
	Active     bool   `json:"active" yaml:"active"`
}

// HasRole reports whether the user holds any of the given roles.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// InDepartment compares departments case-insensitively.
func (u User) InDepartment(dept string) bool {
	return dept != "" && strings.EqualFold(u.Department, dept)
}

// Alert is a ledger row: at most one active row exists per (entity, kind).
type Alert struct {
	ID              string      `json:"id"`
	EntityID        string      `json:"entity_id"`
	Kind            AlertKind   `json:"kind"`
	Severity        Severity    `json:"severity"`
	ObservedValue   float64     `json:"observed_value"`
	Threshold       float64     `json:"threshold"`
	Message         string      `json:"message"`
	SuggestedAction string      `json:"suggested_action,omitempty"`
	Status          AlertStatus `json:"status"`
	TriggeredAt     time.Time   `json:"triggered_at"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// AlertFilter controls which ledger rows are listed.
type AlertFilter struct {
	EntityID string      `json:"entity_id,omitempty"`
	Kind     AlertKind   `json:"kind,omitempty"`
	Status   AlertStatus `json:"status,omitempty"`
	Limit    int         `json:"limit,omitempty"`
}

// ItemFilter selects items for listing and monitoring.
type ItemFilter struct {
	Category   string `json:"category,omitempty"`
	ActiveOnly bool   `json:"active_only,omitempty"`
}

// BudgetFilter selects budgets for listing and monitoring.
type BudgetFilter struct {
	Department string `json:"department,omitempty"`
	ActiveOnly bool   `json:"active_only,omitempty"`
}

// UserNotification is an in-app inbox entry for one user.
type UserNotification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Data      string     `json:"data,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// OrderStatus is the approval state of a purchase order.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderApproved OrderStatus = "approved"
	OrderReceived OrderStatus = "received"
)

// PurchaseOrder is a follow-up restock order for one supplier.
type PurchaseOrder struct {
	ID            string              `json:"id"`
	Number        string              `json:"number"`
	SupplierID    string              `json:"supplier_id"`
	Status        OrderStatus         `json:"status"`
	Total         float64             `json:"total"`
	AutoGenerated bool                `json:"auto_generated"`
	ApprovedBy    string              `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time          `json:"approved_at,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	Lines         []PurchaseOrderLine `json:"lines,omitempty"`
}

// PurchaseOrderLine is a single item quantity on a purchase order.
type PurchaseOrderLine struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"order_id"`
	ItemID    string  `json:"item_id"`
	Quantity  float64 `json:"quantity"`
	UnitCost  float64 `json:"unit_cost"`
	LineTotal float64 `json:"line_total"`
}

// JobStatus is the state of one orchestrator invocation.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobRun records one orchestrator invocation and its outcome.
type JobRun struct {
	ID         string     `json:"id"`
	Job        string     `json:"job"`
	Status     JobStatus  `json:"status"`
	Params     string     `json:"params"`
	Stats      string     `json:"stats,omitempty"`
	Error      string     `json:"error,omitempty"`
	Attempts   int        `json:"attempts"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
