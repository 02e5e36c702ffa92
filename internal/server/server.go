package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// AlertLister lists ledger rows.
type AlertLister interface {
	List(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error)
}

// StatsReader returns cached run statistics.
type StatsReader interface {
	Get(ctx context.Context, job string) (*model.RunStats, bool, error)
}

// Enqueuer accepts deferred job runs.
type Enqueuer interface {
	Enqueue(job string, req automation.Request) (automation.Ticket, error)
}

// HistoryReader reads run history, inboxes and purchase orders.
type HistoryReader interface {
	ListJobRuns(ctx context.Context, job string, limit int) ([]model.JobRun, error)
	ListUserNotifications(ctx context.Context, userID string, limit int) ([]model.UserNotification, error)
	ListPurchaseOrders(ctx context.Context, limit int) ([]model.PurchaseOrder, error)
}

// Deps are the components the API reads from and writes to.
type Deps struct {
	Alerts   AlertLister
	Stats    StatsReader
	Queue    Enqueuer
	History  HistoryReader
	Defaults automation.Options
}

// Server provides health, alert, job and metrics API endpoints.
type Server struct {
	deps   Deps
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates an API server.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		deps:   deps,
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	s.mux.HandleFunc("GET /api/v1/stats/{job}", s.handleStats)
	s.mux.HandleFunc("POST /api/v1/jobs/{job}", s.handleTrigger)
	s.mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	s.mux.HandleFunc("GET /api/v1/notifications", s.handleNotifications)
	s.mux.HandleFunc("GET /api/v1/orders", s.handleOrders)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := model.AlertFilter{
		EntityID: q.Get("entity"),
		Kind:     model.AlertKind(q.Get("kind")),
		Status:   model.AlertStatus(q.Get("status")),
		Limit:    queryInt(q.Get("limit"), 100),
	}

	rows, err := s.deps.Alerts.List(ctx, filter)
	if err != nil {
		s.logger.Error("list alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, ok, err := s.deps.Stats.Get(ctx, r.PathValue("job"))
	if err != nil {
		s.logger.Error("read run stats", "job", r.PathValue("job"), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no recent run", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	job := r.PathValue("job")

	var params automation.TriggerParams
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	req, err := params.Request(s.deps.Defaults)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ticket, err := s.deps.Queue.Enqueue(job, req)
	switch {
	case errors.Is(err, automation.ErrUnknownJob):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, automation.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		s.logger.Error("enqueue job", "job", job, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, ticket)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	runs, err := s.deps.History.ListJobRuns(ctx, r.URL.Query().Get("job"), queryInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		s.logger.Error("list job runs", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}
	inbox, err := s.deps.History.ListUserNotifications(ctx, user, queryInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		s.logger.Error("list notifications", "user", user, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orders, err := s.deps.History.ListPurchaseOrders(ctx, queryInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		s.logger.Error("list purchase orders", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
