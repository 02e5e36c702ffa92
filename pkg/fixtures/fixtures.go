// Package fixtures loads seed data for suppliers, items, budgets and staff.
package fixtures

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// Set is the contents of a seed file.
type Set struct {
	Suppliers []model.Supplier `yaml:"suppliers"`
	Items     []model.Item     `yaml:"items"`
	Budgets   []model.Budget   `yaml:"budgets"`
	Users     []model.User     `yaml:"users"`
}

// Counts reports how many records of each kind were written.
type Counts struct {
	Suppliers int
	Items     int
	Budgets   int
	Users     int
}

// Store is the subset of storage a seed is applied to.
type Store interface {
	UpsertSupplier(ctx context.Context, s *model.Supplier) error
	UpsertItem(ctx context.Context, it *model.Item) error
	UpsertBudget(ctx context.Context, b *model.Budget) error
	UpsertUser(ctx context.Context, u *model.User) error
}

// Load reads and validates a YAML seed file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes YAML seed data. Records default to active unless the file
// says otherwise.
func Parse(data []byte) (*Set, error) {
	var raw struct {
		Suppliers []yamlActive[model.Supplier] `yaml:"suppliers"`
		Items     []yamlActive[model.Item]     `yaml:"items"`
		Budgets   []yamlActive[model.Budget]   `yaml:"budgets"`
		Users     []yamlActive[model.User]     `yaml:"users"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}

	set := &Set{
		Suppliers: unwrap(raw.Suppliers, func(s *model.Supplier, active bool) { s.Active = active }),
		Items:     unwrap(raw.Items, func(it *model.Item, active bool) { it.Active = active }),
		Budgets:   unwrap(raw.Budgets, func(b *model.Budget, active bool) { b.Active = active }),
		Users:     unwrap(raw.Users, func(u *model.User, active bool) { u.Active = active }),
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// yamlActive decodes a record and notes whether "active" was present.
type yamlActive[T any] struct {
	value  T
	active *bool
}

func (y *yamlActive[T]) UnmarshalYAML(node *yaml.Node) error {
	if err := node.Decode(&y.value); err != nil {
		return err
	}
	var probe struct {
		Active *bool `yaml:"active"`
	}
	if err := node.Decode(&probe); err != nil {
		return err
	}
	y.active = probe.Active
	return nil
}

func unwrap[T any](in []yamlActive[T], setActive func(*T, bool)) []T {
	return lo.Map(in, func(y yamlActive[T], _ int) T {
		v := y.value
		setActive(&v, y.active == nil || *y.active)
		return v
	})
}

func (s *Set) validate() error {
	for kind, ids := range map[string][]string{
		"supplier": lo.Map(s.Suppliers, func(v model.Supplier, _ int) string { return v.ID }),
		"item":     lo.Map(s.Items, func(v model.Item, _ int) string { return v.ID }),
		"budget":   lo.Map(s.Budgets, func(v model.Budget, _ int) string { return v.ID }),
		"user":     lo.Map(s.Users, func(v model.User, _ int) string { return v.ID }),
	} {
		if lo.Contains(ids, "") {
			return fmt.Errorf("%s without id", kind)
		}
		if dup := lo.FindDuplicates(ids); len(dup) > 0 {
			return fmt.Errorf("duplicate %s ids: %v", kind, dup)
		}
	}

	supplierIDs := lo.Map(s.Suppliers, func(v model.Supplier, _ int) string { return v.ID })
	for _, it := range s.Items {
		if it.PreferredSupplierID != "" && !lo.Contains(supplierIDs, it.PreferredSupplierID) {
			return fmt.Errorf("item %s: unknown supplier %s", it.ID, it.PreferredSupplierID)
		}
	}
	return nil
}

// Apply upserts every record, suppliers first.
func (s *Set) Apply(ctx context.Context, store Store) (Counts, error) {
	var c Counts
	for i := range s.Suppliers {
		if err := store.UpsertSupplier(ctx, &s.Suppliers[i]); err != nil {
			return c, fmt.Errorf("seed supplier %s: %w", s.Suppliers[i].ID, err)
		}
		c.Suppliers++
	}
	for i := range s.Items {
		if err := store.UpsertItem(ctx, &s.Items[i]); err != nil {
			return c, fmt.Errorf("seed item %s: %w", s.Items[i].ID, err)
		}
		c.Items++
	}
	for i := range s.Budgets {
		if err := store.UpsertBudget(ctx, &s.Budgets[i]); err != nil {
			return c, fmt.Errorf("seed budget %s: %w", s.Budgets[i].ID, err)
		}
		c.Budgets++
	}
	for i := range s.Users {
		if err := store.UpsertUser(ctx, &s.Users[i]); err != nil {
			return c, fmt.Errorf("seed user %s: %w", s.Users[i].ID, err)
		}
		c.Users++
	}
	return c, nil
}
