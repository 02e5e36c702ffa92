package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

func newMockPostgres(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newSQLStore(db, postgresDialect), mock
}

func TestPostgres_ResolveUsesDollarPlaceholders(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE alerts SET status = $1, resolved_at = $2, updated_at = $3 WHERE entity_id = $4 AND kind = $5 AND status = $6")).
		WithArgs("resolved", sqlmock.AnyArg(), sqlmock.AnyArg(), "paper", "low_stock", "active").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.ResolveActiveAlert(context.Background(), "paper", model.KindLowStock, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertTargetsPartialIndex(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO alerts .* VALUES \(\$1,\$2,.*\$13\) ON CONFLICT \(entity_id, kind\) WHERE status = 'active' DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	rows := sqlmock.NewRows(alertColumns).
		AddRow("a1", "paper", "low_stock", "critical", 4.0, 5.0, "m", "", "active", now, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, entity_id")).
		WithArgs("paper", "low_stock", "active").
		WillReturnRows(rows)

	alert := &model.Alert{EntityID: "paper", Kind: model.KindLowStock, Severity: model.SeverityCritical}
	require.NoError(t, s.UpsertActiveAlert(context.Background(), alert))
	assert.Equal(t, "a1", alert.ID)
	assert.Nil(t, alert.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_OrderRollsBackOnLineFailure(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchase_orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchase_order_lines")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.CreatePurchaseOrder(context.Background(), &model.PurchaseOrder{
		Number: "PO-1", SupplierID: "s", Lines: []model.PurchaseOrderLine{{ItemID: "paper", Quantity: 1}},
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(2))
	mock.ExpectBegin()
	for range postgresMigrations[2] {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (version,applied_at) VALUES ($1,$2)")).
		WithArgs(3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
