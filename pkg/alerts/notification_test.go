package alerts_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/campus-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

func TestNewBulkAlert_Summary(t *testing.T) {
	n := alerts.NewBulkAlert(model.KindLowStock, []model.AffectedEntity{
		{ID: "a", Severity: model.SeverityLow},
		{ID: "b", Severity: model.SeverityExhausted},
		{ID: "c", Severity: model.SeverityLow},
	})
	assert.Equal(t, alerts.TypeBulkAlert, n.Type)
	assert.Equal(t, model.SeverityExhausted, n.Severity)
	assert.Equal(t, "1 exhausted, 2 low", n.Message)
	assert.Contains(t, n.Title, "3 entities")
}

func TestNewPurchaseOrder_Title(t *testing.T) {
	pending := alerts.NewPurchaseOrder(model.PurchaseOrder{Number: "PO-1", Status: model.OrderPending, Total: 10}, "Office Co")
	assert.Contains(t, pending.Title, "awaiting approval")
	assert.Equal(t, 10.0, pending.Amount)

	approved := alerts.NewPurchaseOrder(model.PurchaseOrder{Number: "PO-2", Status: model.OrderApproved}, "")
	assert.Contains(t, approved.Title, "auto-approved")
}

func TestNewJobFailed(t *testing.T) {
	n := alerts.NewJobFailed("stock_monitor", "run-1", `{"force":true}`, 3, errors.New("db locked"))
	assert.Equal(t, alerts.TypeJobFailed, n.Type)
	assert.Equal(t, "run-1", n.Reference)
	assert.Contains(t, n.Message, "3 attempt(s)")
	assert.Contains(t, n.Message, `{"force":true}`)
	assert.Contains(t, n.Message, "db locked")
}

type memoryInbox struct {
	mu    sync.Mutex
	items []model.UserNotification
}

func (m *memoryInbox) CreateUserNotification(_ context.Context, n *model.UserNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *n)
	return nil
}

func TestInAppNotifier_Send(t *testing.T) {
	inbox := &memoryInbox{}
	n := alerts.NewInAppNotifier(inbox)
	assert.Equal(t, "in_app", n.Name())

	note := alerts.NewAlert(model.Alert{EntityID: "paper", Kind: model.KindLowStock, Severity: model.SeverityLow, Message: "low"}, "Paper")
	require.NoError(t, n.Send(context.Background(), alerts.Delivery{Recipient: model.User{ID: "u1"}, Notification: note}))

	require.Len(t, inbox.items, 1)
	assert.Equal(t, "u1", inbox.items[0].UserID)
	assert.Equal(t, "alert", inbox.items[0].Type)

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(inbox.items[0].Data), &data))
	assert.Equal(t, "paper", data["entity_id"])

	assert.Error(t, n.Send(context.Background(), alerts.Delivery{Notification: note}))
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (c *countingNotifier) Name() string { return "counting" }

func (c *countingNotifier) Send(context.Context, alerts.Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func TestThrottled_LimitsRate(t *testing.T) {
	inner := &countingNotifier{}
	th := alerts.NewThrottled(inner, 1, 1)
	assert.Equal(t, "counting", th.Name())

	require.NoError(t, th.Send(context.Background(), alerts.Delivery{}))

	// The bucket is empty; a short deadline cannot wait a full second
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := th.Send(ctx, alerts.Delivery{})
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
