package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedFile = `
suppliers:
  - id: office
    name: Office Supplies Ltd
users:
  - id: inv
    name: Stores
    role: inventory_manager
  - id: fin
    name: Bursar
    role: finance_manager
items:
  - id: paper
    name: A4 Paper
    category: Stationery
    quantity: 3
    minimum_level: 10
    reorder_point: 20
    economic_order_qty: 50
    unit_cost: 2
    preferred_supplier_id: office
  - id: pens
    name: Pens
    category: Stationery
    quantity: 100
    minimum_level: 10
budgets:
  - id: sci
    name: Science Lab
    department: Science
    allocated: 1000
    spent: 700
`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("storage:\n  path: %s\nlogging:\n  level: error\nautomation:\n  auto_approve_limit: 500\n", filepath.Join(dir, "campus.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedFile), 0o644))
	conf := "--config=" + cfgPath

	assert.Contains(t, run(t, "version"), "cg version dev")

	out := run(t, "seed", seedPath, conf)
	assert.Contains(t, out, "1 supplier(s), 2 item(s), 1 budget(s), 2 user(s)")

	out = run(t, "item", "list", conf)
	assert.Contains(t, out, "A4 Paper")
	assert.Contains(t, out, "critical")

	out = run(t, "check", "stock", conf)
	assert.Contains(t, out, "Evaluated:   2")
	assert.Contains(t, out, "Affected:    1")
	assert.Contains(t, out, "Orders:      1 (1 auto-approved)")

	out = run(t, "alerts", "list", "--kind=low_stock", conf)
	assert.Contains(t, out, "paper")

	out = run(t, "orders", "list", conf)
	assert.Contains(t, out, "approved")
	assert.Contains(t, out, "100.00")

	out = run(t, "item", "set", "paper", "--quantity=80", "--check", conf)
	assert.Contains(t, out, "Severity:  none")
	assert.Contains(t, out, "Resolved:    1")

	out = run(t, "budget", "spend", "sci", "150", conf)
	assert.Contains(t, out, "Recorded 150.00 against sci")
	assert.Contains(t, out, "warning")

	out = run(t, "budget", "status", conf)
	assert.Contains(t, out, "85.0% [WARNING]")

	out = run(t, "runs", "list", "--job=stock_monitor", conf)
	assert.Contains(t, out, "completed")
}
