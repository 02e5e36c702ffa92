package threshold_test

import (
	"testing"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/threshold"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStock(t *testing.T) {
	tests := []struct {
		name             string
		current, min, ro float64
		want             model.Severity
	}{
		{"zero", 0, 10, 20, model.SeverityExhausted},
		{"negative", -3, 10, 20, model.SeverityExhausted},
		{"half minimum boundary", 5, 10, 20, model.SeverityCritical},
		{"below half minimum", 2, 10, 20, model.SeverityCritical},
		{"just above half minimum", 5.01, 10, 20, model.SeverityLow},
		{"reorder boundary", 20, 10, 20, model.SeverityLow},
		{"above reorder", 20.5, 10, 20, model.SeverityNone},
		{"reorder unset falls back to minimum", 10, 10, 0, model.SeverityLow},
		{"reorder unset above minimum", 11, 10, 0, model.SeverityNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, threshold.ClassifyStock(tt.current, tt.min, tt.ro))
		})
	}
}

func TestClassifyStock_Properties(t *testing.T) {
	minimum, reorder := 40.0, 60.0
	for v := reorder + 0.5; v < 500; v += 7.3 {
		assert.Equal(t, model.SeverityNone, threshold.ClassifyStock(v, minimum, reorder), "value %v", v)
	}
	for v := 0.25; v <= minimum*0.5; v += 0.25 {
		assert.Equal(t, model.SeverityCritical, threshold.ClassifyStock(v, minimum, reorder), "value %v", v)
	}
}

func TestReorderPoint(t *testing.T) {
	assert.Equal(t, 20.0, threshold.ReorderPoint(10, 20))
	assert.Equal(t, 40.0, threshold.ReorderPoint(40, 0))
	assert.Equal(t, 40.0, threshold.ReorderPoint(40, -1))
}

func TestStockRecovered(t *testing.T) {
	assert.False(t, threshold.StockRecovered(20, 10, 20))
	assert.True(t, threshold.StockRecovered(25, 10, 20))
	// minimum above reorder point still gates recovery
	assert.False(t, threshold.StockRecovered(15, 30, 10))
	assert.True(t, threshold.StockRecovered(31, 30, 10))
}

func TestClassifyBudget(t *testing.T) {
	cutoffs := threshold.DefaultBudgetCutoffs()
	tests := []struct {
		spent, allocated float64
		want             model.Severity
	}{
		{50, 100, model.SeverityNone},
		{75, 100, model.SeverityWarning},
		{89.9, 100, model.SeverityWarning},
		{90, 100, model.SeverityCritical},
		{100, 100, model.SeverityExceeded},
		{130, 100, model.SeverityExceeded},
		{10, 0, model.SeverityNone},
		{10, -5, model.SeverityNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, threshold.ClassifyBudget(tt.spent, tt.allocated, cutoffs),
			"spent=%v allocated=%v", tt.spent, tt.allocated)
	}
}

func TestBudgetUsage_ZeroAllocation(t *testing.T) {
	pct, ok := threshold.BudgetUsage(10, 0)
	assert.False(t, ok)
	assert.Zero(t, pct)
}

func TestBudgetRecovered(t *testing.T) {
	cutoffs := threshold.DefaultBudgetCutoffs()
	assert.True(t, threshold.BudgetRecovered(70, 100, cutoffs))
	assert.False(t, threshold.BudgetRecovered(75, 100, cutoffs))
	assert.Equal(t, 90.0, cutoffs.CutoffFor(model.SeverityCritical))
	assert.Equal(t, 75.0, cutoffs.CutoffFor(model.SeverityWarning))
}
