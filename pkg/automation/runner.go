package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ogulcanaydogan/campus-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// RunStore persists run records.
type RunStore interface {
	CreateJobRun(ctx context.Context, run *model.JobRun) error
	FinishJobRun(ctx context.Context, run *model.JobRun) error
}

// RunnerConfig bounds retries.
type RunnerConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
}

// DefaultRunnerConfig allows 3 attempts of 300s each.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{MaxAttempts: 3, AttemptTimeout: 300 * time.Second, RetryDelay: 5 * time.Second}
}

// Execution is the outcome of one Runner.Run call.
type Execution struct {
	Run   *model.JobRun   `json:"run"`
	Stats *model.RunStats `json:"stats,omitempty"`
}

// Runner executes registered jobs with retries and a failure hook.
type Runner struct {
	registry   *Registry
	runs       RunStore
	resolver   RecipientResolver
	dispatcher Dispatcher
	cfg        RunnerConfig
	logger     *slog.Logger
}

// NewRunner creates a job runner.
func NewRunner(registry *Registry, runs RunStore, resolver RecipientResolver, dispatcher Dispatcher, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 300 * time.Second
	}
	return &Runner{
		registry:   registry,
		runs:       runs,
		resolver:   resolver,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Registry returns the runner's job registry.
func (r *Runner) Registry() *Registry { return r.registry }

// Run executes the named job. Each attempt gets its own timeout; the whole job
// is re-run on failure since every state transition it makes is idempotent.
// When the last attempt fails, the run is marked failed and admins are told.
func (r *Runner) Run(ctx context.Context, name string, req Request) (*Execution, error) {
	job, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}

	params, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	run := &model.JobRun{Job: name, Status: model.JobRunning, Params: string(params)}
	if err := r.runs.CreateJobRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create job run: %w", err)
	}

	start := time.Now()
	r.logger.Info("job started", "job", name, "run_id", run.ID, "params", run.Params)

	var stats *model.RunStats
	operation := func() error {
		run.Attempts++
		s, err := r.attempt(ctx, job, req)
		if err != nil {
			r.logger.Warn("job attempt failed",
				"job", name,
				"run_id", run.ID,
				"attempt", run.Attempts,
				"error", err,
			)
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		stats = s
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.RetryDelay), uint64(r.cfg.MaxAttempts-1)),
		ctx,
	)
	runErr := backoff.Retry(operation, policy)
	jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	// Record the outcome even when the caller's context is gone.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if runErr != nil {
		r.fail(finishCtx, run, runErr)
		return &Execution{Run: run}, fmt.Errorf("job %s failed after %d attempt(s): %w", name, run.Attempts, runErr)
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("marshal stats: %w", err)
	}
	run.Status = model.JobCompleted
	run.Stats = string(data)
	if err := r.runs.FinishJobRun(finishCtx, run); err != nil {
		r.logger.Error("finish job run", "run_id", run.ID, "error", err)
	}
	jobRuns.WithLabelValues(name, string(model.JobCompleted)).Inc()

	r.logger.Info("job completed",
		"job", name,
		"run_id", run.ID,
		"attempts", run.Attempts,
		"evaluated", stats.Evaluated,
		"affected", len(stats.Affected),
		"notified", stats.Notified,
		"suppressed", stats.Suppressed,
		"resolved", stats.Resolved,
		"failed", stats.Failed,
		"duration", time.Since(start),
	)
	return &Execution{Run: run, Stats: stats}, nil
}

// attempt runs the job once under the attempt timeout, turning panics into errors.
func (r *Runner) attempt(ctx context.Context, job Job, req Request) (stats *model.RunStats, err error) {
	actx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), p)
		}
	}()

	stats, err = job.Run(actx, req)
	if err == nil && stats == nil {
		err = errors.New("job returned no stats")
	}
	return stats, err
}

func (r *Runner) fail(ctx context.Context, run *model.JobRun, runErr error) {
	run.Status = model.JobFailed
	run.Error = runErr.Error()
	if err := r.runs.FinishJobRun(ctx, run); err != nil {
		r.logger.Error("finish job run", "run_id", run.ID, "error", err)
	}
	jobRuns.WithLabelValues(run.Job, string(model.JobFailed)).Inc()

	r.logger.Error("job failed",
		"job", run.Job,
		"run_id", run.ID,
		"params", run.Params,
		"attempts", run.Attempts,
		"error", runErr,
	)

	admins, err := r.resolver.ResolveRoles(ctx, model.RoleAdmin)
	if err != nil {
		r.logger.Error("resolve admins for failure notice", "run_id", run.ID, "error", err)
		return
	}
	r.dispatcher.Dispatch(ctx, admins, alerts.NewJobFailed(run.Job, run.ID, run.Params, run.Attempts, runErr))
}
