// Package threshold classifies numeric metrics against configured lines.
package threshold

import (
	"math"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// criticalFraction of the minimum level marks a stock level as critical.
const criticalFraction = 0.5

// ReorderPoint returns the reorder line in effect. A reorder point <= 0 falls back to the minimum level.
func ReorderPoint(minimum, reorder float64) float64 {
	if reorder <= 0 {
		return minimum
	}
	return reorder
}

// ClassifyStock maps a stock level to a severity.
func ClassifyStock(current, minimum, reorder float64) model.Severity {
	reorder = ReorderPoint(minimum, reorder)
	switch {
	case current <= 0:
		return model.SeverityExhausted
	case current <= minimum*criticalFraction:
		return model.SeverityCritical
	case current <= reorder:
		return model.SeverityLow
	default:
		return model.SeverityNone
	}
}

// RecoveryLevel is the level a stock metric must strictly exceed before its alert resolves.
func RecoveryLevel(minimum, reorder float64) float64 {
	return math.Max(minimum, reorder)
}

// StockRecovered reports whether current has climbed above both the minimum and the reorder point.
func StockRecovered(current, minimum, reorder float64) bool {
	return current > RecoveryLevel(minimum, reorder)
}

// BudgetCutoffs are ascending percentage-of-allocation lines.
type BudgetCutoffs struct {
	Warning  float64 `mapstructure:"warning" json:"warning"`
	Critical float64 `mapstructure:"critical" json:"critical"`
	Exceeded float64 `mapstructure:"exceeded" json:"exceeded"`
}

// DefaultBudgetCutoffs returns the 75/90/100 policy.
func DefaultBudgetCutoffs() BudgetCutoffs {
	return BudgetCutoffs{Warning: 75, Critical: 90, Exceeded: 100}
}

// BudgetUsage returns spent as a percentage of allocated. ok is false for a non-positive allocation.
func BudgetUsage(spent, allocated float64) (pct float64, ok bool) {
	if allocated <= 0 {
		return 0, false
	}
	return (spent / allocated) * 100, true
}

// ClassifyBudget maps budget consumption to a severity.
func ClassifyBudget(spent, allocated float64, cutoffs BudgetCutoffs) model.Severity {
	pct, ok := BudgetUsage(spent, allocated)
	if !ok {
		return model.SeverityNone
	}
	switch {
	case pct >= cutoffs.Exceeded:
		return model.SeverityExceeded
	case pct >= cutoffs.Critical:
		return model.SeverityCritical
	case pct >= cutoffs.Warning:
		return model.SeverityWarning
	default:
		return model.SeverityNone
	}
}

// CutoffFor returns the percentage line that produced the given budget severity.
func (c BudgetCutoffs) CutoffFor(s model.Severity) float64 {
	switch s {
	case model.SeverityExceeded:
		return c.Exceeded
	case model.SeverityCritical:
		return c.Critical
	default:
		return c.Warning
	}
}

// BudgetRecovered reports whether consumption dropped strictly below the warning line.
func BudgetRecovered(spent, allocated float64, cutoffs BudgetCutoffs) bool {
	pct, ok := BudgetUsage(spent, allocated)
	if !ok {
		return true
	}
	return pct < cutoffs.Warning
}
