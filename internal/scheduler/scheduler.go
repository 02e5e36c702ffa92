// Package scheduler enqueues recurring sweeps over all active entities.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
)

// Enqueuer accepts deferred job runs.
type Enqueuer interface {
	Enqueue(job string, req automation.Request) (automation.Ticket, error)
}

// Entry schedules one job. A non-positive interval disables it.
type Entry struct {
	Job      string
	Interval time.Duration
}

// Scheduler runs one ticker per entry.
type Scheduler struct {
	queue    Enqueuer
	entries  []Entry
	defaults automation.Options
	logger   *slog.Logger
}

// New creates a scheduler. Every sweep uses defaults as its run options.
func New(queue Enqueuer, entries []Entry, defaults automation.Options, logger *slog.Logger) *Scheduler {
	return &Scheduler{queue: queue, entries: entries, defaults: defaults, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range s.entries {
		if e.Interval <= 0 {
			s.logger.Info("sweep disabled", "job", e.Job)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runTicker(ctx, e)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) runTicker(ctx context.Context, e Entry) {
	s.logger.Info("sweep scheduled", "job", e.Job, "interval", e.Interval)
	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(e.Job)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) sweep(job string) {
	ticket, err := s.queue.Enqueue(job, automation.Request{Options: s.defaults})
	switch {
	case errors.Is(err, automation.ErrQueueFull):
		// the previous sweep is still waiting; it covers the same entities
		s.logger.Warn("sweep skipped, queue full", "job", job)
	case err != nil:
		s.logger.Error("enqueue sweep", "job", job, "error", err)
	default:
		s.logger.Debug("sweep enqueued", "job", job, "ticket", ticket.ID)
	}
}
