package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ogulcanaydogan/campus-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/threshold"
)

const defaultQuantityFloor float64 = 10

// OrderStore is what the reorderer reads and writes.
type OrderStore interface {
	OpenOrderItemIDs(ctx context.Context, itemIDs []string) (map[string]bool, error)
	CreatePurchaseOrder(ctx context.Context, order *model.PurchaseOrder) error
	MarkItemsOrdered(ctx context.Context, ids []string, at time.Time) error
	GetSupplier(ctx context.Context, id string) (*model.Supplier, error)
}

// ReorderConfig tunes purchase-order drafting.
type ReorderConfig struct {
	// QuantityFloor is the smallest fallback order quantity.
	QuantityFloor float64
	// ApprovedBy is recorded on auto-approved orders.
	ApprovedBy string
}

// Reorderer drafts purchase orders for classified items, one per supplier.
type Reorderer struct {
	store      OrderStore
	resolver   RecipientResolver
	dispatcher Dispatcher
	cfg        ReorderConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewReorderer creates a reorderer.
func NewReorderer(store OrderStore, resolver RecipientResolver, dispatcher Dispatcher, cfg ReorderConfig, logger *slog.Logger) *Reorderer {
	if cfg.QuantityFloor <= 0 {
		cfg.QuantityFloor = defaultQuantityFloor
	}
	if cfg.ApprovedBy == "" {
		cfg.ApprovedBy = "system"
	}
	return &Reorderer{
		store:      store,
		resolver:   resolver,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// ReorderQuantity picks the order size: the economic order quantity when set,
// else the gap to the maximum level, else twice the effective reorder point but at least floor.
func ReorderQuantity(it model.Item, floor float64) float64 {
	if it.EconomicOrderQty > 0 {
		return it.EconomicOrderQty
	}
	if it.MaximumLevel > it.Quantity {
		return it.MaximumLevel - math.Max(it.Quantity, 0)
	}
	return math.Max(threshold.ReorderPoint(it.MinimumLevel, it.ReorderPoint)*2, floor)
}

// Reorder groups items by preferred supplier and creates one order per group.
// Items without a supplier or already on an open order are skipped. A failing
// group is logged and does not stop the others.
func (r *Reorderer) Reorder(ctx context.Context, items []model.Item, opts Options, stats *model.RunStats) error {
	candidates := lo.Filter(items, func(it model.Item, _ int) bool {
		if it.PreferredSupplierID == "" {
			r.logger.Warn("no preferred supplier, skipping reorder", "item", it.ID)
			return false
		}
		return true
	})
	if len(candidates) == 0 {
		return nil
	}

	open, err := r.store.OpenOrderItemIDs(ctx, lo.Map(candidates, func(it model.Item, _ int) string { return it.ID }))
	if err != nil {
		return fmt.Errorf("check open orders: %w", err)
	}
	candidates = lo.Filter(candidates, func(it model.Item, _ int) bool {
		if open[it.ID] {
			r.logger.Info("item already on an open order", "item", it.ID)
			return false
		}
		return true
	})

	groups := lo.GroupBy(candidates, func(it model.Item) string { return it.PreferredSupplierID })
	suppliers := lo.Keys(groups)
	sort.Strings(suppliers)

	for _, supplierID := range suppliers {
		order, err := r.createOrder(ctx, supplierID, groups[supplierID], opts)
		if err != nil {
			r.logger.Error("create purchase order",
				"supplier", supplierID,
				"items", len(groups[supplierID]),
				"error", err,
			)
			continue
		}
		stats.OrdersCreated++
		if order.Status == model.OrderApproved {
			stats.OrdersAutoApproved++
		}
		if opts.SendNotifications {
			r.notify(ctx, order)
		}
	}
	return nil
}

func (r *Reorderer) createOrder(ctx context.Context, supplierID string, items []model.Item, opts Options) (*model.PurchaseOrder, error) {
	now := r.now().UTC()
	order := &model.PurchaseOrder{
		Number:        orderNumber(now),
		SupplierID:    supplierID,
		Status:        model.OrderPending,
		AutoGenerated: true,
		Notes:         "Drafted from low stock alerts",
		CreatedAt:     now,
	}
	for _, it := range items {
		qty := ReorderQuantity(it, r.cfg.QuantityFloor)
		line := model.PurchaseOrderLine{
			ItemID:    it.ID,
			Quantity:  qty,
			UnitCost:  it.UnitCost,
			LineTotal: qty * it.UnitCost,
		}
		order.Lines = append(order.Lines, line)
		order.Total += line.LineTotal
	}

	if opts.AutoApproveLimit > 0 && order.Total <= opts.AutoApproveLimit {
		order.Status = model.OrderApproved
		order.ApprovedBy = r.cfg.ApprovedBy
		order.ApprovedAt = &now
	}

	if err := r.store.CreatePurchaseOrder(ctx, order); err != nil {
		return nil, err
	}
	r.logger.Info("purchase order created",
		"order", order.Number,
		"supplier", supplierID,
		"lines", len(order.Lines),
		"total", order.Total,
		"status", order.Status,
	)

	ids := lo.Map(items, func(it model.Item, _ int) string { return it.ID })
	if err := r.store.MarkItemsOrdered(ctx, ids, now); err != nil {
		r.logger.Error("stamp last ordered", "order", order.Number, "error", err)
	}
	return order, nil
}

func (r *Reorderer) notify(ctx context.Context, order *model.PurchaseOrder) {
	users, err := r.resolver.ResolveForAmount(ctx, order.Total)
	if err != nil {
		r.logger.Error("resolve order approvers", "order", order.Number, "error", err)
		return
	}
	supplierName := order.SupplierID
	if sup, err := r.store.GetSupplier(ctx, order.SupplierID); err == nil {
		supplierName = sup.Name
	}
	r.dispatcher.Dispatch(ctx, users, alerts.NewPurchaseOrder(*order, supplierName))
}

func orderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("PO-%s-%s", now.Format("20060102"), suffix)
}
