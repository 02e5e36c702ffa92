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

// ItemSource loads inventory items.
type ItemSource interface {
	GetItems(ctx context.Context, ids []string) ([]model.Item, error)
	ListItems(ctx context.Context, filter model.ItemFilter) ([]model.Item, error)
}

// StockMonitor raises low-stock alerts and optionally drafts purchase orders.
type StockMonitor struct {
	items     ItemSource
	pipeline  *Pipeline
	ledger    *ledger.Ledger
	reorderer *Reorderer
	floor     float64
	logger    *slog.Logger
}

// NewStockMonitor creates the stock_monitor job. reorderer may be nil.
func NewStockMonitor(items ItemSource, pipeline *Pipeline, l *ledger.Ledger, reorderer *Reorderer, logger *slog.Logger) *StockMonitor {
	floor := defaultQuantityFloor
	if reorderer != nil {
		floor = reorderer.cfg.QuantityFloor
	}
	return &StockMonitor{
		items:     items,
		pipeline:  pipeline,
		ledger:    l,
		reorderer: reorderer,
		floor:     floor,
		logger:    logger,
	}
}

func (m *StockMonitor) Name() string { return JobStockMonitor }

func (m *StockMonitor) Run(ctx context.Context, req Request) (*model.RunStats, error) {
	items, notFound, err := m.targets(ctx, req)
	if err != nil {
		return nil, err
	}

	evals := make([]Evaluation, 0, len(items))
	for _, it := range items {
		evals = append(evals, m.evaluate(it))
	}

	stats, err := m.pipeline.Run(ctx, JobStockMonitor, model.KindLowStock, req, evals)
	if err != nil {
		return nil, err
	}
	stats.NotFound = notFound

	if req.Options.AutoReorder && m.reorderer != nil {
		classified := lo.Filter(items, func(it model.Item, _ int) bool {
			return threshold.ClassifyStock(it.Quantity, it.MinimumLevel, it.ReorderPoint).Classified()
		})
		if err := m.reorderer.Reorder(ctx, classified, req.Options, stats); err != nil {
			return nil, err
		}
	}

	m.pipeline.Complete(ctx, stats, req)
	return stats, nil
}

func (m *StockMonitor) targets(ctx context.Context, req Request) ([]model.Item, []string, error) {
	if len(req.EntityIDs) > 0 {
		ids := lo.Uniq(req.EntityIDs)
		found, err := m.items.GetItems(ctx, ids)
		if err != nil {
			return nil, nil, fmt.Errorf("load items: %w", err)
		}
		notFound, _ := lo.Difference(ids, lo.Map(found, func(it model.Item, _ int) string { return it.ID }))
		if len(notFound) > 0 {
			m.logger.Warn("items not found", "job", JobStockMonitor, "ids", notFound)
		}
		active := lo.Filter(found, func(it model.Item, _ int) bool {
			if !it.Active {
				m.logger.Warn("skipping inactive item", "job", JobStockMonitor, "item", it.ID)
			}
			return it.Active
		})
		return active, notFound, nil
	}

	items, err := m.items.ListItems(ctx, model.ItemFilter{Category: req.Category, ActiveOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil, nil
}

func (m *StockMonitor) evaluate(it model.Item) Evaluation {
	ev := EvaluateItem(it, m.floor)
	ev.Resolve = func(ctx context.Context) (bool, error) {
		return m.ledger.ResolveIfRecovered(ctx, it.ID, it.MinimumLevel, it.ReorderPoint, it.Quantity)
	}
	return ev
}

// EvaluateItem classifies an item and drafts its alert text.
func EvaluateItem(it model.Item, floor float64) Evaluation {
	sev := threshold.ClassifyStock(it.Quantity, it.MinimumLevel, it.ReorderPoint)
	reorder := threshold.ReorderPoint(it.MinimumLevel, it.ReorderPoint)

	var line float64
	switch sev {
	case model.SeverityCritical:
		line = it.MinimumLevel * 0.5
	case model.SeverityLow:
		line = reorder
	}

	ev := Evaluation{
		Entity: model.AffectedEntity{
			ID:        it.ID,
			Name:      it.Name,
			Category:  it.Category,
			Kind:      model.KindLowStock,
			Severity:  sev,
			Value:     it.Quantity,
			Threshold: line,
		},
	}
	if !sev.Classified() {
		return ev
	}

	unit := it.Unit
	if unit == "" {
		unit = "units"
	}
	switch sev {
	case model.SeverityExhausted:
		ev.Message = fmt.Sprintf("%s is out of stock (minimum %.0f %s)", it.Name, it.MinimumLevel, unit)
	case model.SeverityCritical:
		ev.Message = fmt.Sprintf("%s is critically low: %.0f %s left (minimum %.0f)", it.Name, it.Quantity, unit, it.MinimumLevel)
	default:
		ev.Message = fmt.Sprintf("%s is at or below its reorder point: %.0f %s left (reorder at %.0f)", it.Name, it.Quantity, unit, reorder)
	}
	ev.SuggestedAction = fmt.Sprintf("Reorder %.0f %s", ReorderQuantity(it, floor), unit)
	return ev
}
