package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// Event describes a finished queued run.
type Event struct {
	TicketID   string          `json:"ticket_id"`
	Job        string          `json:"job"`
	RunID      string          `json:"run_id,omitempty"`
	Status     model.JobStatus `json:"status"`
	Priority   Priority        `json:"priority"`
	Stats      *model.RunStats `json:"stats,omitempty"`
	Error      string          `json:"error,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Ticket acknowledges an enqueued run.
type Ticket struct {
	ID       string   `json:"id"`
	Job      string   `json:"job"`
	Priority Priority `json:"priority"`
}

type queued struct {
	ticket Ticket
	req    Request
}

// QueueConfig sizes the queue.
type QueueConfig struct {
	Workers  int
	Capacity int // per priority lane
}

// Queue defers runs to background workers, taking high priority runs first.
type Queue struct {
	runner     *Runner
	lanes      map[Priority]chan queued
	workers    int
	onComplete func(Event)
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a queue. onComplete may be nil.
func NewQueue(runner *Runner, cfg QueueConfig, onComplete func(Event), logger *slog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 64
	}
	return &Queue{
		runner: runner,
		lanes: map[Priority]chan queued{
			PriorityHigh:   make(chan queued, cfg.Capacity),
			PriorityNormal: make(chan queued, cfg.Capacity),
			PriorityLow:    make(chan queued, cfg.Capacity),
		},
		workers:    cfg.Workers,
		onComplete: onComplete,
		logger:     logger,
	}
}

// Enqueue schedules a run. It fails fast for unknown jobs and full lanes.
func (q *Queue) Enqueue(job string, req Request) (Ticket, error) {
	if _, err := q.runner.Registry().Get(job); err != nil {
		return Ticket{}, err
	}
	prio := req.Options.Priority
	lane, ok := q.lanes[prio]
	if !ok {
		prio = PriorityNormal
		lane = q.lanes[prio]
	}

	t := Ticket{ID: uuid.New().String(), Job: job, Priority: prio}
	select {
	case lane <- queued{ticket: t, req: req}:
		q.logger.Info("job enqueued", "job", job, "ticket", t.ID, "priority", prio)
		return t, nil
	default:
		return Ticket{}, fmt.Errorf("%s lane: %w", prio, ErrQueueFull)
	}
}

// Pending returns the number of runs waiting in all lanes.
func (q *Queue) Pending() int {
	n := 0
	for _, lane := range q.lanes {
		n += len(lane)
	}
	return n
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return
	}
	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

// Stop cancels the workers and waits for the current runs to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	q.wg.Wait()
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		item, ok := q.next(ctx)
		if !ok {
			return
		}
		q.execute(ctx, item)
	}
}

// next prefers high over normal over low; it blocks only when all lanes are empty.
func (q *Queue) next(ctx context.Context) (queued, bool) {
	for _, prio := range []Priority{PriorityHigh, PriorityNormal, PriorityLow} {
		select {
		case item := <-q.lanes[prio]:
			return item, true
		default:
		}
	}
	select {
	case <-ctx.Done():
		return queued{}, false
	case item := <-q.lanes[PriorityHigh]:
		return item, true
	case item := <-q.lanes[PriorityNormal]:
		return item, true
	case item := <-q.lanes[PriorityLow]:
		return item, true
	}
}

func (q *Queue) execute(ctx context.Context, item queued) {
	exec, err := q.runner.Run(ctx, item.ticket.Job, item.req)
	ev := Event{
		TicketID:   item.ticket.ID,
		Job:        item.ticket.Job,
		Priority:   item.ticket.Priority,
		Status:     model.JobCompleted,
		FinishedAt: time.Now().UTC(),
	}
	if exec != nil && exec.Run != nil {
		ev.RunID = exec.Run.ID
		ev.Stats = exec.Stats
	}
	if err != nil {
		ev.Status = model.JobFailed
		ev.Error = err.Error()
	}
	if q.onComplete != nil {
		q.onComplete(ev)
	}
}
