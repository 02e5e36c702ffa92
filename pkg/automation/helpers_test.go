package automation_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/campus-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
	"github.com/ogulcanaydogan/campus-guardian/pkg/cache"
	"github.com/ogulcanaydogan/campus-guardian/pkg/dedup"
	"github.com/ogulcanaydogan/campus-guardian/pkg/dispatch"
	"github.com/ogulcanaydogan/campus-guardian/pkg/ledger"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/recipients"
	"github.com/ogulcanaydogan/campus-guardian/pkg/storage"
	"github.com/ogulcanaydogan/campus-guardian/pkg/threshold"
)

type sent struct {
	users        []model.User
	notification alerts.Notification
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []sent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, users []model.User, n alerts.Notification) []dispatch.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, sent{users: users, notification: n})
	results := make([]dispatch.Result, len(users))
	for i, u := range users {
		results[i] = dispatch.Result{RecipientID: u.ID}
	}
	return results
}

func (d *recordingDispatcher) ofType(tp alerts.NotificationType) []sent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []sent
	for _, c := range d.calls {
		if c.notification.Type == tp {
			out = append(out, c)
		}
	}
	return out
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

type harness struct {
	store    *storage.SQLStore
	mr       *miniredis.Miniredis
	cache    cache.Store
	disp     *recordingDispatcher
	ledger   *ledger.Ledger
	stats    *automation.StatsCache
	resolver *recipients.Resolver
	pipeline *automation.Pipeline
	stock    *automation.StockMonitor
	budget   *automation.BudgetMonitor
	registry *automation.Registry
	runner   *automation.Runner
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, cfg automation.PipelineConfig) *harness {
	t.Helper()

	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "campus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mr := miniredis.RunT(t)
	kv := cache.NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "cg:")
	t.Cleanup(func() { kv.Close() })

	logger := discardLogger()
	h := &harness{
		store:    store,
		mr:       mr,
		cache:    kv,
		disp:     &recordingDispatcher{},
		ledger:   ledger.New(store),
		stats:    automation.NewStatsCache(kv, 0),
		resolver: recipients.NewResolver(store, recipients.WithUserCacheTTL(0)),
	}
	h.pipeline = automation.NewPipeline(h.ledger, dedup.NewGuard(kv, dedup.DefaultCooldowns()), h.resolver, h.disp, h.stats, cfg, logger)
	reorderer := automation.NewReorderer(store, h.resolver, h.disp, automation.ReorderConfig{}, logger)
	h.stock = automation.NewStockMonitor(store, h.pipeline, h.ledger, reorderer, logger)
	h.budget = automation.NewBudgetMonitor(store, h.pipeline, h.ledger, threshold.DefaultBudgetCutoffs(), logger)

	h.registry = automation.NewRegistry()
	require.NoError(t, h.registry.Register(h.stock))
	require.NoError(t, h.registry.Register(h.budget))
	h.runner = automation.NewRunner(h.registry, store, h.resolver, h.disp, automation.RunnerConfig{MaxAttempts: 3, RetryDelay: 0}, logger)

	h.seedStaff(t)
	return h
}

func (h *harness) seedStaff(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []model.User{
		{ID: "admin", Name: "Admin", Role: model.RoleAdmin, Active: true},
		{ID: "inv", Name: "Stores", Role: model.RoleInventoryManager, Active: true},
		{ID: "fin", Name: "Bursar", Role: model.RoleFinanceManager, Active: true},
		{ID: "prin", Name: "Principal", Role: model.RolePrincipal, Active: true},
		{ID: "head", Name: "Head of Stationery", Role: model.RoleDepartmentHead, Department: "Stationery", Active: true},
		{ID: "sci", Name: "Head of Science", Role: model.RoleDepartmentHead, Department: "Science", Active: true},
	} {
		require.NoError(t, h.store.UpsertUser(ctx, &u))
	}
}

func (h *harness) addItem(t *testing.T, it model.Item) {
	t.Helper()
	it.Active = true
	if it.Category == "" {
		it.Category = "Stationery"
	}
	if it.Name == "" {
		it.Name = it.ID
	}
	require.NoError(t, h.store.UpsertItem(context.Background(), &it))
}

func (h *harness) setQuantity(t *testing.T, id string, qty float64) {
	t.Helper()
	it, err := h.store.GetItem(context.Background(), id)
	require.NoError(t, err)
	it.Quantity = qty
	require.NoError(t, h.store.UpsertItem(context.Background(), it))
}

func notifyOnly() automation.Options {
	return automation.Options{SendNotifications: true, Priority: automation.PriorityNormal}
}
