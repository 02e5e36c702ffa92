package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/ogulcanaydogan/campus-guardian/pkg/ledger"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/threshold"
)

// BudgetSource loads and updates departmental budgets.
type BudgetSource interface {
	GetBudgets(ctx context.Context, ids []string) ([]model.Budget, error)
	ListBudgets(ctx context.Context, filter model.BudgetFilter) ([]model.Budget, error)
	UpdateBudgetSpend(ctx context.Context, id string, amount float64) error
}

// BudgetMonitor raises budget variance alerts.
type BudgetMonitor struct {
	budgets  BudgetSource
	pipeline *Pipeline
	ledger   *ledger.Ledger
	cutoffs  threshold.BudgetCutoffs
	logger   *slog.Logger
}

// NewBudgetMonitor creates the budget_monitor job.
func NewBudgetMonitor(budgets BudgetSource, pipeline *Pipeline, l *ledger.Ledger, cutoffs threshold.BudgetCutoffs, logger *slog.Logger) *BudgetMonitor {
	return &BudgetMonitor{
		budgets:  budgets,
		pipeline: pipeline,
		ledger:   l,
		cutoffs:  cutoffs,
		logger:   logger,
	}
}

func (m *BudgetMonitor) Name() string { return JobBudgetMonitor }

func (m *BudgetMonitor) Run(ctx context.Context, req Request) (*model.RunStats, error) {
	budgets, notFound, err := m.targets(ctx, req)
	if err != nil {
		return nil, err
	}

	evals := make([]Evaluation, 0, len(budgets))
	for _, b := range budgets {
		evals = append(evals, m.evaluate(b))
	}

	stats, err := m.pipeline.Run(ctx, JobBudgetMonitor, model.KindBudgetVariance, req, evals)
	if err != nil {
		return nil, err
	}
	stats.NotFound = notFound
	m.pipeline.Complete(ctx, stats, req)
	return stats, nil
}

// RecordSpend adds amount to a budget and re-checks that budget right away.
func (m *BudgetMonitor) RecordSpend(ctx context.Context, budgetID string, amount float64, opts Options) (*model.RunStats, error) {
	if err := m.budgets.UpdateBudgetSpend(ctx, budgetID, amount); err != nil {
		return nil, fmt.Errorf("record spend: %w", err)
	}
	m.logger.Info("budget spend recorded", "budget", budgetID, "amount", amount)
	return m.Run(ctx, Request{EntityIDs: []string{budgetID}, Options: opts})
}

func (m *BudgetMonitor) targets(ctx context.Context, req Request) ([]model.Budget, []string, error) {
	if len(req.EntityIDs) > 0 {
		ids := lo.Uniq(req.EntityIDs)
		found, err := m.budgets.GetBudgets(ctx, ids)
		if err != nil {
			return nil, nil, fmt.Errorf("load budgets: %w", err)
		}
		notFound, _ := lo.Difference(ids, lo.Map(found, func(b model.Budget, _ int) string { return b.ID }))
		if len(notFound) > 0 {
			m.logger.Warn("budgets not found", "job", JobBudgetMonitor, "ids", notFound)
		}
		return lo.Filter(found, func(b model.Budget, _ int) bool { return b.Active }), notFound, nil
	}

	budgets, err := m.budgets.ListBudgets(ctx, model.BudgetFilter{Department: req.Category, ActiveOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil, nil
}

func (m *BudgetMonitor) evaluate(b model.Budget) Evaluation {
	ev := EvaluateBudget(b, m.cutoffs)
	ev.Resolve = func(ctx context.Context) (bool, error) {
		if !threshold.BudgetRecovered(b.Spent, b.Allocated, m.cutoffs) {
			return false, nil
		}
		return m.ledger.Resolve(ctx, b.ID, model.KindBudgetVariance)
	}
	return ev
}

// EvaluateBudget classifies a budget by percentage used and drafts its alert text.
func EvaluateBudget(b model.Budget, cutoffs threshold.BudgetCutoffs) Evaluation {
	sev := threshold.ClassifyBudget(b.Spent, b.Allocated, cutoffs)
	pct, _ := threshold.BudgetUsage(b.Spent, b.Allocated)

	ev := Evaluation{
		Entity: model.AffectedEntity{
			ID:        b.ID,
			Name:      b.Name,
			Category:  b.Department,
			Kind:      model.KindBudgetVariance,
			Severity:  sev,
			Value:     pct,
			Threshold: cutoffs.CutoffFor(sev),
		},
	}
	if !sev.Classified() {
		return ev
	}

	ev.Message = fmt.Sprintf("%s budget at %.1f%% (%.2f of %.2f spent)", b.Name, pct, b.Spent, b.Allocated)
	remaining := b.Allocated - b.Spent
	switch sev {
	case model.SeverityExceeded:
		ev.SuggestedAction = fmt.Sprintf("Freeze discretionary spending; overspent by %.2f", -remaining)
	case model.SeverityCritical:
		ev.SuggestedAction = fmt.Sprintf("Review pending purchases against the remaining %.2f", remaining)
	default:
		ev.SuggestedAction = fmt.Sprintf("Monitor spending; %.2f remains", remaining)
	}
	return ev
}
