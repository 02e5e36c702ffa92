package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/campus-guardian/internal/app"
	"github.com/ogulcanaydogan/campus-guardian/internal/config"
	"github.com/ogulcanaydogan/campus-guardian/internal/server"
	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

type fixture struct {
	app   *app.App
	queue *automation.Queue
	srv   *server.Server
}

func setupServer(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := fmt.Sprintf("storage:\n  path: %s\nautomation:\n  queue_capacity: 1\n", filepath.Join(dir, "campus.db"))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ctx := context.Background()
	require.NoError(t, a.Store.UpsertUser(ctx, &model.User{ID: "inv", Name: "Stores", Role: model.RoleInventoryManager, Active: true}))
	require.NoError(t, a.Store.UpsertItem(ctx, &model.Item{ID: "chalk", Name: "Chalk", Category: "Stationery", Quantity: 0, MinimumLevel: 10, Active: true}))
	_, err = a.Runner.Run(ctx, automation.JobStockMonitor, automation.Request{Options: a.DefaultOptions()})
	require.NoError(t, err)

	queue := a.NewQueue(nil)
	srv := server.NewServer(server.Deps{
		Alerts:   a.Ledger,
		Stats:    a.Stats,
		Queue:    queue,
		History:  a.Store,
		Defaults: a.DefaultOptions(),
	}, logger)
	return &fixture{app: a, queue: queue, srv: srv}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	f := setupServer(t)
	w := f.do("GET", "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestServer_Alerts(t *testing.T) {
	f := setupServer(t)

	w := f.do("GET", "/api/v1/alerts?status=active&kind=low_stock", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rows []model.Alert
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "chalk", rows[0].EntityID)
	assert.Equal(t, model.SeverityExhausted, rows[0].Severity)

	w = f.do("GET", "/api/v1/alerts?status=resolved", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rows))
	assert.Empty(t, rows)
}

func TestServer_Stats(t *testing.T) {
	f := setupServer(t)

	w := f.do("GET", "/api/v1/stats/stock_monitor", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.RunStats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Evaluated)

	w = f.do("GET", "/api/v1/stats/budget_monitor", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Trigger(t *testing.T) {
	f := setupServer(t)

	w := f.do("POST", "/api/v1/jobs/stock_monitor", `{"category":"Stationery","priority":"high"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var ticket automation.Ticket
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ticket))
	assert.Equal(t, automation.JobStockMonitor, ticket.Job)
	assert.Equal(t, automation.PriorityHigh, ticket.Priority)
	assert.Equal(t, 1, f.queue.Pending())

	// capacity is one per lane
	w = f.do("POST", "/api/v1/jobs/stock_monitor", `{"priority":"high"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = f.do("POST", "/api/v1/jobs/attendance", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do("POST", "/api/v1/jobs/stock_monitor", `{"priority":"urgent"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do("POST", "/api/v1/jobs/stock_monitor", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_History(t *testing.T) {
	f := setupServer(t)

	w := f.do("GET", "/api/v1/runs?job=stock_monitor&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []model.JobRun
	require.NoError(t, json.NewDecoder(w.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, model.JobCompleted, runs[0].Status)

	w = f.do("GET", "/api/v1/notifications?user=inv", "")
	require.Equal(t, http.StatusOK, w.Code)
	var inbox []model.UserNotification
	require.NoError(t, json.NewDecoder(w.Body).Decode(&inbox))
	assert.Len(t, inbox, 1)

	w = f.do("GET", "/api/v1/notifications", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do("GET", "/api/v1/orders", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	f := setupServer(t)
	w := f.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "campus_guardian_job_runs_total")
}
