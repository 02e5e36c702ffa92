package fixtures_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/campus-guardian/pkg/fixtures"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/storage"
)

const seed = `
suppliers:
  - id: office
    name: Office Supplies Ltd
users:
  - id: admin
    name: Admin
    role: admin
  - id: retired
    name: Former Bursar
    role: finance_manager
    active: false
items:
  - id: paper
    name: A4 Paper
    category: Stationery
    quantity: 4
    minimum_level: 10
    reorder_point: 20
    unit_cost: 1.5
    preferred_supplier_id: office
budgets:
  - id: sci
    name: Science Lab
    department: Science
    allocated: 1000
    spent: 200
`

func TestParse(t *testing.T) {
	set, err := fixtures.Parse([]byte(seed))
	require.NoError(t, err)

	require.Len(t, set.Items, 1)
	assert.True(t, set.Items[0].Active)
	assert.Equal(t, 20.0, set.Items[0].ReorderPoint)
	assert.Equal(t, "office", set.Items[0].PreferredSupplierID)

	require.Len(t, set.Users, 2)
	assert.True(t, set.Users[0].Active)
	assert.False(t, set.Users[1].Active)
	assert.Equal(t, model.RoleFinanceManager, set.Users[1].Role)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":         "items: [",
		"missing id":       "items:\n  - name: nothing\n",
		"duplicate ids":    "users:\n  - id: a\n  - id: a\n",
		"unknown supplier": "items:\n  - id: a\n    preferred_supplier_id: ghost\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := fixtures.Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadAndApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "campus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	set, err := fixtures.Load(path)
	require.NoError(t, err)

	store, err := storage.NewSQLite(filepath.Join(dir, "campus.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	counts, err := set.Apply(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, fixtures.Counts{Suppliers: 1, Items: 1, Budgets: 1, Users: 2}, counts)

	users, err := store.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	// Applying twice is an upsert
	_, err = set.Apply(ctx, store)
	require.NoError(t, err)
	items, err := store.ListItems(ctx, model.ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := fixtures.Load("/nonexistent/campus.yaml")
	assert.Error(t, err)
}
