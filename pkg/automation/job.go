package automation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// Job names.
const (
	JobStockMonitor  = "stock_monitor"
	JobBudgetMonitor = "budget_monitor"
)

var (
	// ErrUnknownJob is returned for a job name that was never registered.
	ErrUnknownJob = errors.New("unknown job")
	// ErrQueueFull is returned when a priority lane has no room left.
	ErrQueueFull = errors.New("job queue full")
)

// Job is one kind of orchestrated run.
type Job interface {
	// Name returns the job identifier.
	Name() string

	// Run evaluates the requested entities. Only run-level faults are returned;
	// per-entity problems are recorded in the stats.
	Run(ctx context.Context, req Request) (*model.RunStats, error)
}

// Registry manages jobs by name.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]Job),
	}
}

// Register adds a job to the registry.
func (r *Registry) Register(j Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := j.Name()
	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	r.jobs[name] = j
	return nil
}

// Get returns a job by name.
func (r *Registry) Get(name string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("job %q: %w", name, ErrUnknownJob)
	}
	return j, nil
}

// List returns all registered job names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
