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

var budgetColumns = []string{
	"id", "name", "department", "period", "allocated", "spent", "active", "created_at", "updated_at",
}

func scanBudget(r rowScanner) (model.Budget, error) {
	var b model.Budget
	err := r.Scan(&b.ID, &b.Name, &b.Department, &b.Period, &b.Allocated, &b.Spent,
		&b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// UpsertBudget creates a budget or updates its definition. Spend is only
// written on insert; use UpdateBudgetSpend to move it afterwards.
func (s *SQLStore) UpsertBudget(ctx context.Context, budget *model.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = now
	}
	budget.UpdatedAt = now

	q := s.sb.Insert("budgets").
		Columns(budgetColumns...).
		Values(budget.ID, budget.Name, budget.Department, budget.Period, budget.Allocated,
			budget.Spent, budget.Active, budget.CreatedAt, budget.UpdatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, department = excluded.department, period = excluded.period,
			allocated = excluded.allocated, active = excluded.active, updated_at = excluded.updated_at`)
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *SQLStore) GetBudget(ctx context.Context, id string) (*model.Budget, error) {
	row, err := s.queryRow(ctx, s.sb.Select(budgetColumns...).From("budgets").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

func (s *SQLStore) GetBudgets(ctx context.Context, ids []string) ([]model.Budget, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.listBudgets(ctx, s.sb.Select(budgetColumns...).From("budgets").Where(sq.Eq{"id": ids}).OrderBy("id"))
}

func (s *SQLStore) ListBudgets(ctx context.Context, filter model.BudgetFilter) ([]model.Budget, error) {
	q := s.sb.Select(budgetColumns...).From("budgets").OrderBy("department", "name")
	if filter.Department != "" {
		q = q.Where(sq.Eq{"department": filter.Department})
	}
	if filter.ActiveOnly {
		q = q.Where(sq.Eq{"active": true})
	}
	return s.listBudgets(ctx, q)
}

func (s *SQLStore) listBudgets(ctx context.Context, q sq.SelectBuilder) ([]model.Budget, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (s *SQLStore) UpdateBudgetSpend(ctx context.Context, id string, amount float64) error {
	q := s.sb.Update("budgets").
		Set("spent", sq.Expr("spent + ?", amount)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})
	result, err := s.exec(ctx, q)
	if err != nil {
		return fmt.Errorf("update budget spend: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("budget %q: %w", id, ErrNotFound)
	}
	return nil
}
