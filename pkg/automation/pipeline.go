package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/campus-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/campus-guardian/pkg/dedup"
	"github.com/ogulcanaydogan/campus-guardian/pkg/dispatch"
	"github.com/ogulcanaydogan/campus-guardian/pkg/ledger"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
	"github.com/ogulcanaydogan/campus-guardian/pkg/recipients"
)

// BulkMode decides what happens to per-entity messages once a run crosses the
// bulk threshold.
type BulkMode string

const (
	// BulkReplace sends only the summary.
	BulkReplace BulkMode = "replace"
	// BulkSupplement sends the summary and the per-entity messages.
	BulkSupplement BulkMode = "supplement"
)

// Dispatcher delivers a notification to recipients.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipients []model.User, n alerts.Notification) []dispatch.Result
}

// RecipientResolver picks who hears about alerts, orders and failures.
type RecipientResolver interface {
	ResolveForAlert(ctx context.Context, ac recipients.AlertContext) ([]model.User, error)
	ResolveForAmount(ctx context.Context, amount float64) ([]model.User, error)
	ResolveRoles(ctx context.Context, roles ...model.Role) ([]model.User, error)
}

// Evaluation is the classified state of one entity, computed before any I/O.
type Evaluation struct {
	Entity          model.AffectedEntity
	Message         string
	SuggestedAction string

	// Resolve closes the entity's active alert when it has recovered. It is
	// only called for unclassified entities and may be nil.
	Resolve func(ctx context.Context) (bool, error)
}

// PipelineConfig tunes the shared evaluation pipeline.
type PipelineConfig struct {
	Concurrency   int
	BulkThreshold int
	BulkMode      BulkMode
}

// Pipeline turns evaluations into ledger rows and notifications.
type Pipeline struct {
	ledger     *ledger.Ledger
	guard      *dedup.Guard
	resolver   RecipientResolver
	dispatcher Dispatcher
	stats      *StatsCache
	cfg        PipelineConfig
	logger     *slog.Logger
}

// NewPipeline creates the shared pipeline. stats may be nil to disable caching.
func NewPipeline(l *ledger.Ledger, guard *dedup.Guard, resolver RecipientResolver, dispatcher Dispatcher,
	stats *StatsCache, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BulkThreshold <= 0 {
		cfg.BulkThreshold = 5
	}
	if cfg.BulkMode == "" {
		cfg.BulkMode = BulkReplace
	}
	return &Pipeline{
		ledger:     l,
		guard:      guard,
		resolver:   resolver,
		dispatcher: dispatcher,
		stats:      stats,
		cfg:        cfg,
		logger:     logger,
	}
}

type pendingAlert struct {
	eval  Evaluation
	alert model.Alert
}

type runState struct {
	mu      sync.Mutex
	stats   *model.RunStats
	pending []pendingAlert
}

// Run evaluates every entity concurrently, records the ledger, and sends the
// resulting notifications. Per-entity failures are logged and counted. An
// error is returned only when the run itself cannot continue, such as a
// cancelled context.
func (p *Pipeline) Run(ctx context.Context, job string, kind model.AlertKind, req Request, evals []Evaluation) (*model.RunStats, error) {
	state := &runState{stats: model.NewRunStats(job, time.Now().UTC())}
	state.stats.Evaluated = len(evals)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, ev := range evals {
		g.Go(func() error {
			if err := p.processEntity(gctx, job, kind, req, ev, state); err != nil {
				p.logger.Error("entity processing failed",
					"job", job,
					"entity", ev.Entity.ID,
					"error", err,
				)
				state.mu.Lock()
				state.stats.Failed++
				state.mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s evaluation interrupted: %w", job, err)
	}

	stats := state.stats
	stats.SortAffected()
	sort.Slice(state.pending, func(i, j int) bool {
		a, b := state.pending[i].eval.Entity, state.pending[j].eval.Entity
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return a.ID < b.ID
	})
	if len(state.pending) > 0 {
		p.notify(ctx, kind, state.pending, stats)
	}
	return stats, nil
}

func (p *Pipeline) processEntity(ctx context.Context, job string, kind model.AlertKind, req Request,
	ev Evaluation, state *runState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	e := ev.Entity
	if !e.Severity.Classified() {
		if ev.Resolve == nil {
			return nil
		}
		resolved, err := ev.Resolve(ctx)
		if err != nil {
			return err
		}
		if resolved {
			p.logger.Info("alert resolved", "job", job, "entity", e.ID, "kind", kind, "value", e.Value)
			state.mu.Lock()
			state.stats.Resolved++
			state.mu.Unlock()
		}
		return nil
	}

	p.logger.Warn("entity classified",
		"job", job,
		"entity", e.ID,
		"name", e.Name,
		"kind", kind,
		"severity", e.Severity,
		"value", e.Value,
		"threshold", e.Threshold,
	)
	alertsClassified.WithLabelValues(string(kind), string(e.Severity)).Inc()

	alert := model.Alert{
		EntityID:        e.ID,
		Kind:            kind,
		Severity:        e.Severity,
		ObservedValue:   e.Value,
		Threshold:       e.Threshold,
		Message:         ev.Message,
		SuggestedAction: ev.SuggestedAction,
	}
	if err := p.ledger.RecordActive(ctx, &alert); err != nil {
		return err
	}

	notify := false
	if req.Options.SendNotifications {
		notify, err = p.guard.Acquire(ctx, dedup.Key(e.ID, kind), e.Severity, req.Force)
		if err != nil {
			return fmt.Errorf("dedup: %w", err)
		}
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	state.stats.AddAffected(e)
	switch {
	case notify:
		state.pending = append(state.pending, pendingAlert{eval: ev, alert: alert})
	case req.Options.SendNotifications:
		state.stats.Suppressed++
		notificationsSuppressed.WithLabelValues(string(kind)).Inc()
		p.logger.Info("notification suppressed by cooldown", "job", job, "entity", e.ID, "severity", e.Severity)
	}
	return nil
}

func (p *Pipeline) notify(ctx context.Context, kind model.AlertKind, pending []pendingAlert, stats *model.RunStats) {
	bulk := len(pending) >= p.cfg.BulkThreshold
	if bulk {
		p.sendBulk(ctx, kind, pending, stats)
		if p.cfg.BulkMode == BulkReplace {
			return
		}
	}
	for _, pa := range pending {
		users, err := p.resolver.ResolveForAlert(ctx, recipients.AlertContext{
			Kind:     kind,
			Category: pa.eval.Entity.Category,
			Severity: pa.eval.Entity.Severity,
		})
		if err != nil {
			p.logger.Error("resolve recipients", "entity", pa.eval.Entity.ID, "error", err)
			stats.DeliveryFailures++
			continue
		}
		if len(users) == 0 {
			p.logger.Warn("no recipients for alert", "entity", pa.eval.Entity.ID, "kind", kind)
			continue
		}
		results := p.dispatcher.Dispatch(ctx, users, alerts.NewAlert(pa.alert, pa.eval.Entity.Name))
		stats.Notified++
		stats.DeliveryFailures += dispatch.Failed(results)
	}
}

// sendBulk sends one summary to the union of every pending entity's recipients.
func (p *Pipeline) sendBulk(ctx context.Context, kind model.AlertKind, pending []pendingAlert, stats *model.RunStats) {
	var users []model.User
	for _, pa := range pending {
		got, err := p.resolver.ResolveForAlert(ctx, recipients.AlertContext{
			Kind:     kind,
			Category: pa.eval.Entity.Category,
			Severity: pa.eval.Entity.Severity,
		})
		if err != nil {
			p.logger.Error("resolve bulk recipients", "entity", pa.eval.Entity.ID, "error", err)
			continue
		}
		users = append(users, got...)
	}
	users = lo.UniqBy(users, func(u model.User) string { return u.ID })

	entities := lo.Map(pending, func(pa pendingAlert, _ int) model.AffectedEntity { return pa.eval.Entity })
	note := alerts.NewBulkAlert(kind, entities)
	p.logger.Info("sending bulk notification", "kind", kind, "entities", len(entities), "recipients", len(users))

	results := p.dispatcher.Dispatch(ctx, users, note)
	stats.BulkNotified = true
	stats.DeliveryFailures += dispatch.Failed(results)
}

// Complete stamps the finish time and caches the stats when requested.
func (p *Pipeline) Complete(ctx context.Context, stats *model.RunStats, req Request) {
	stats.FinishedAt = time.Now().UTC()
	if !req.Options.UpdateCache || p.stats == nil {
		return
	}
	if err := p.stats.Put(ctx, stats); err != nil {
		p.logger.Error("cache run stats", "job", stats.Job, "error", err)
	}
}
