package ledger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/campus-guardian/pkg/ledger"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/storage"
)

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return ledger.New(db)
}

func TestLedger_RecordTwiceKeepsOneActive(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	a := &model.Alert{EntityID: "paper", Kind: model.KindLowStock, Severity: model.SeverityLow, ObservedValue: 18}
	require.NoError(t, l.RecordActive(ctx, a))
	b := &model.Alert{EntityID: "paper", Kind: model.KindLowStock, Severity: model.SeverityLow, ObservedValue: 16}
	require.NoError(t, l.RecordActive(ctx, b))

	rows, err := l.List(ctx, model.AlertFilter{EntityID: "paper"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 16.0, rows[0].ObservedValue)
}

func TestLedger_RejectsUnclassified(t *testing.T) {
	l := newLedger(t)
	err := l.RecordActive(context.Background(), &model.Alert{EntityID: "x", Kind: model.KindLowStock, Severity: model.SeverityNone})
	assert.Error(t, err)
}

func TestLedger_ResolveIfRecovered(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordActive(ctx, &model.Alert{EntityID: "paper", Kind: model.KindLowStock, Severity: model.SeverityExhausted}))

	// Exactly at the recovery level is not recovered
	ok, err := l.ResolveIfRecovered(ctx, "paper", 10, 20, 20)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.ResolveIfRecovered(ctx, "paper", 10, 20, 25)
	require.NoError(t, err)
	assert.True(t, ok)

	active, err := l.Active(ctx, "paper", model.KindLowStock)
	require.NoError(t, err)
	assert.Nil(t, active)

	// Recovered with nothing active is a no-op
	ok, err = l.ResolveIfRecovered(ctx, "paper", 10, 20, 25)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_Resolve(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordActive(ctx, &model.Alert{EntityID: "sci", Kind: model.KindBudgetVariance, Severity: model.SeverityExceeded}))
	active, err := l.Active(ctx, "sci", model.KindBudgetVariance)
	require.NoError(t, err)
	require.NotNil(t, active)

	ok, err := l.Resolve(ctx, "sci", model.KindBudgetVariance)
	require.NoError(t, err)
	assert.True(t, ok)

	resolved, err := l.List(ctx, model.AlertFilter{Status: model.AlertResolved})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.NotNil(t, resolved[0].ResolvedAt)
}
