package automation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

type eventLog struct {
	mu     sync.Mutex
	events []automation.Event
	done   chan struct{}
	want   int
}

func newEventLog(want int) *eventLog {
	return &eventLog{done: make(chan struct{}), want: want}
}

func (l *eventLog) record(ev automation.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	if len(l.events) == l.want {
		close(l.done)
	}
}

func (l *eventLog) wait(t *testing.T) []automation.Event {
	t.Helper()
	select {
	case <-l.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for queued runs")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]automation.Event(nil), l.events...)
}

func TestQueue_HighPriorityFirst(t *testing.T) {
	h := newHarness(t, automation.PipelineConfig{})
	r := newRunner(t, h,
		&scriptedJob{name: "low-job"},
		&scriptedJob{name: "normal-job"},
		&scriptedJob{name: "high-job"},
	)
	log := newEventLog(3)
	q := automation.NewQueue(r, automation.QueueConfig{Workers: 1}, log.record, discardLogger())

	// Enqueue before starting so the worker sees all three lanes filled
	for _, tc := range []struct {
		job  string
		prio automation.Priority
	}{
		{"low-job", automation.PriorityLow},
		{"normal-job", automation.PriorityNormal},
		{"high-job", automation.PriorityHigh},
	} {
		_, err := q.Enqueue(tc.job, automation.Request{Options: automation.Options{Priority: tc.prio}})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, q.Pending())

	q.Start(context.Background())
	defer q.Stop()

	events := log.wait(t)
	require.Len(t, events, 3)
	assert.Equal(t, "high-job", events[0].Job)
	assert.Equal(t, "normal-job", events[1].Job)
	assert.Equal(t, "low-job", events[2].Job)
	for _, ev := range events {
		assert.Equal(t, model.JobCompleted, ev.Status)
		assert.NotEmpty(t, ev.RunID)
	}
}

func TestQueue_FailedRunEvent(t *testing.T) {
	h := newHarness(t, automation.PipelineConfig{})
	r := newRunner(t, h, &scriptedJob{name: "broken", failures: -1})
	log := newEventLog(1)
	q := automation.NewQueue(r, automation.QueueConfig{}, log.record, discardLogger())
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue("broken", automation.Request{})
	require.NoError(t, err)

	events := log.wait(t)
	assert.Equal(t, model.JobFailed, events[0].Status)
	assert.Contains(t, events[0].Error, "database is locked")
}

func TestQueue_Rejects(t *testing.T) {
	h := newHarness(t, automation.PipelineConfig{})
	r := newRunner(t, h, &scriptedJob{name: "job"})
	q := automation.NewQueue(r, automation.QueueConfig{Capacity: 1}, nil, discardLogger())

	_, err := q.Enqueue("nope", automation.Request{})
	assert.ErrorIs(t, err, automation.ErrUnknownJob)

	_, err = q.Enqueue("job", automation.Request{})
	require.NoError(t, err)
	_, err = q.Enqueue("job", automation.Request{})
	assert.ErrorIs(t, err, automation.ErrQueueFull)
}
