package automation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/threshold"
)

func TestReorderQuantity(t *testing.T) {
	tests := []struct {
		name string
		item model.Item
		want float64
	}{
		{"economic order quantity wins", model.Item{EconomicOrderQty: 40, MaximumLevel: 100, Quantity: 5}, 40},
		{"gap to maximum", model.Item{MaximumLevel: 100, Quantity: 30}, 70},
		{"gap to maximum from negative stock", model.Item{MaximumLevel: 50, Quantity: -5}, 50},
		{"twice the reorder point", model.Item{ReorderPoint: 20, Quantity: 5}, 40},
		{"floor", model.Item{ReorderPoint: 2, Quantity: 1}, 10},
		{"unset reorder point uses the minimum", model.Item{MinimumLevel: 40, Quantity: 3}, 80},
		{"maximum not above current falls through", model.Item{MaximumLevel: 10, Quantity: 10, ReorderPoint: 8}, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, automation.ReorderQuantity(tt.item, 10))
		})
	}
}

func TestEvaluateItem(t *testing.T) {
	ev := automation.EvaluateItem(model.Item{ID: "a", Name: "Chalk", Quantity: 0, MinimumLevel: 10, ReorderPoint: 20}, 10)
	assert.Equal(t, model.SeverityExhausted, ev.Entity.Severity)
	assert.Contains(t, ev.Message, "out of stock")
	assert.Equal(t, "Reorder 40 units", ev.SuggestedAction)

	ev = automation.EvaluateItem(model.Item{ID: "b", Name: "Paper", Quantity: 5, MinimumLevel: 10, ReorderPoint: 20, Unit: "reams"}, 10)
	assert.Equal(t, model.SeverityCritical, ev.Entity.Severity)
	assert.Equal(t, 5.0, ev.Entity.Threshold)

	ev = automation.EvaluateItem(model.Item{ID: "c", Quantity: 20, MinimumLevel: 10, ReorderPoint: 20}, 10)
	assert.Equal(t, model.SeverityLow, ev.Entity.Severity)
	assert.Equal(t, 20.0, ev.Entity.Threshold)

	ev = automation.EvaluateItem(model.Item{ID: "d", Quantity: 21, MinimumLevel: 10, ReorderPoint: 20}, 10)
	assert.Equal(t, model.SeverityNone, ev.Entity.Severity)
	assert.Empty(t, ev.Message)
}

func TestEvaluateBudget(t *testing.T) {
	cut := threshold.DefaultBudgetCutoffs()

	ev := automation.EvaluateBudget(model.Budget{ID: "s", Name: "Science", Allocated: 1000, Spent: 920}, cut)
	assert.Equal(t, model.SeverityCritical, ev.Entity.Severity)
	assert.InDelta(t, 92.0, ev.Entity.Value, 0.001)
	assert.Equal(t, 90.0, ev.Entity.Threshold)
	assert.Contains(t, ev.SuggestedAction, "80.00")

	ev = automation.EvaluateBudget(model.Budget{ID: "s", Name: "Science", Allocated: 1000, Spent: 1100}, cut)
	assert.Equal(t, model.SeverityExceeded, ev.Entity.Severity)
	assert.Contains(t, ev.SuggestedAction, "overspent by 100.00")

	ev = automation.EvaluateBudget(model.Budget{ID: "z", Allocated: 0, Spent: 50}, cut)
	assert.Equal(t, model.SeverityNone, ev.Entity.Severity)
}
