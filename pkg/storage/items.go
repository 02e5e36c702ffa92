package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

var itemColumns = []string{
	"id", "name", "category", "unit", "quantity", "minimum_level", "reorder_point",
	"maximum_level", "economic_order_qty", "unit_cost", "preferred_supplier_id",
	"active", "last_ordered_at", "created_at", "updated_at",
}

func scanItem(r rowScanner) (model.Item, error) {
	var it model.Item
	var lastOrdered sql.NullTime
	err := r.Scan(&it.ID, &it.Name, &it.Category, &it.Unit, &it.Quantity, &it.MinimumLevel,
		&it.ReorderPoint, &it.MaximumLevel, &it.EconomicOrderQty, &it.UnitCost,
		&it.PreferredSupplierID, &it.Active, &lastOrdered, &it.CreatedAt, &it.UpdatedAt)
	it.LastOrderedAt = timePtr(lastOrdered)
	return it, err
}

func (s *SQLStore) UpsertItem(ctx context.Context, item *model.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	q := s.sb.Insert("items").
		Columns(itemColumns...).
		Values(item.ID, item.Name, item.Category, item.Unit, item.Quantity, item.MinimumLevel,
			item.ReorderPoint, item.MaximumLevel, item.EconomicOrderQty, item.UnitCost,
			item.PreferredSupplierID, item.Active, nullTime(item.LastOrderedAt), item.CreatedAt, item.UpdatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, category = excluded.category, unit = excluded.unit,
			quantity = excluded.quantity, minimum_level = excluded.minimum_level,
			reorder_point = excluded.reorder_point, maximum_level = excluded.maximum_level,
			economic_order_qty = excluded.economic_order_qty, unit_cost = excluded.unit_cost,
			preferred_supplier_id = excluded.preferred_supplier_id, active = excluded.active,
			updated_at = excluded.updated_at`)
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

func (s *SQLStore) GetItem(ctx context.Context, id string) (*model.Item, error) {
	row, err := s.queryRow(ctx, s.sb.Select(itemColumns...).From("items").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

func (s *SQLStore) GetItems(ctx context.Context, ids []string) ([]model.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.listItems(ctx, s.sb.Select(itemColumns...).From("items").Where(sq.Eq{"id": ids}).OrderBy("id"))
}

func (s *SQLStore) ListItems(ctx context.Context, filter model.ItemFilter) ([]model.Item, error) {
	q := s.sb.Select(itemColumns...).From("items").OrderBy("category", "name")
	if filter.Category != "" {
		q = q.Where(sq.Eq{"category": filter.Category})
	}
	if filter.ActiveOnly {
		q = q.Where(sq.Eq{"active": true})
	}
	return s.listItems(ctx, q)
}

func (s *SQLStore) listItems(ctx context.Context, q sq.SelectBuilder) ([]model.Item, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLStore) MarkItemsOrdered(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q := s.sb.Update("items").
		Set("last_ordered_at", at.UTC()).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": ids})
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("mark items ordered: %w", err)
	}
	return nil
}

func (s *SQLStore) UpsertSupplier(ctx context.Context, supplier *model.Supplier) error {
	if supplier.ID == "" {
		supplier.ID = uuid.New().String()
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	q := s.sb.Insert("suppliers").
		Columns("id", "name", "email", "active", "created_at").
		Values(supplier.ID, supplier.Name, supplier.Email, supplier.Active, supplier.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email, active = excluded.active")
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("upsert supplier: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSupplier(ctx context.Context, id string) (*model.Supplier, error) {
	row, err := s.queryRow(ctx, s.sb.Select("id", "name", "email", "active", "created_at").
		From("suppliers").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var sup model.Supplier
	err = row.Scan(&sup.ID, &sup.Name, &sup.Email, &sup.Active, &sup.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("supplier %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &sup, nil
}
