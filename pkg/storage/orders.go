package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

var orderColumns = []string{
	"id", "number", "supplier_id", "status", "total", "auto_generated",
	"approved_by", "approved_at", "notes", "created_at",
}

func (s *SQLStore) CreatePurchaseOrder(ctx context.Context, order *model.PurchaseOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = model.OrderPending
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query, args, err := s.sb.Insert("purchase_orders").
		Columns(orderColumns...).
		Values(order.ID, order.Number, order.SupplierID, string(order.Status), order.Total,
			order.AutoGenerated, order.ApprovedBy, nullTime(order.ApprovedAt), order.Notes, order.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build order insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert purchase order: %w", err)
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		if line.ID == "" {
			line.ID = uuid.New().String()
		}
		line.OrderID = order.ID
		query, args, err := s.sb.Insert("purchase_order_lines").
			Columns("id", "order_id", "item_id", "quantity", "unit_cost", "line_total").
			Values(line.ID, line.OrderID, line.ItemID, line.Quantity, line.UnitCost, line.LineTotal).
			ToSql()
		if err != nil {
			return fmt.Errorf("build line insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purchase order: %w", err)
	}
	return nil
}

func (s *SQLStore) OpenOrderItemIDs(ctx context.Context, itemIDs []string) (map[string]bool, error) {
	open := make(map[string]bool)
	if len(itemIDs) == 0 {
		return open, nil
	}
	q := s.sb.Select("DISTINCT l.item_id").
		From("purchase_order_lines l").
		Join("purchase_orders o ON o.id = l.order_id").
		Where(sq.Eq{
			"o.status":  []string{string(model.OrderPending), string(model.OrderApproved)},
			"l.item_id": itemIDs,
		})
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query open orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan open order item: %w", err)
		}
		open[id] = true
	}
	return open, rows.Err()
}

func (s *SQLStore) ListPurchaseOrders(ctx context.Context, limit int) ([]model.PurchaseOrder, error) {
	q := s.sb.Select(orderColumns...).From("purchase_orders").
		OrderBy("created_at DESC", "number DESC").
		Limit(limitOr(limit, 50))
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query purchase orders: %w", err)
	}

	var orders []model.PurchaseOrder
	index := make(map[string]int)
	for rows.Next() {
		var o model.PurchaseOrder
		var status string
		var approvedAt sql.NullTime
		if err := rows.Scan(&o.ID, &o.Number, &o.SupplierID, &status, &o.Total, &o.AutoGenerated,
			&o.ApprovedBy, &approvedAt, &o.Notes, &o.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		o.ApprovedAt = timePtr(approvedAt)
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	lineRows, err := s.query(ctx, s.sb.
		Select("id", "order_id", "item_id", "quantity", "unit_cost", "line_total").
		From("purchase_order_lines").
		Where(sq.Eq{"order_id": ids}).
		OrderBy("item_id"))
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var l model.PurchaseOrderLine
		if err := lineRows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Quantity, &l.UnitCost, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if i, ok := index[l.OrderID]; ok {
			orders[i].Lines = append(orders[i].Lines, l)
		}
	}
	return orders, lineRows.Err()
}
