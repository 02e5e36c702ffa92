// Package bus accepts job triggers and announces finished runs over NATS.
package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/ogulcanaydogan/campus-guardian/pkg/automation"
)

// Enqueuer accepts deferred job runs.
type Enqueuer interface {
	Enqueue(job string, req automation.Request) (automation.Ticket, error)
}

// Trigger is the message published on the trigger subject.
type Trigger struct {
	Job    string                   `json:"job"`
	Params automation.TriggerParams `json:"params"`
}

// Reply answers a trigger sent with a reply subject.
type Reply struct {
	Ticket *automation.Ticket `json:"ticket,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// Config names the subjects.
type Config struct {
	TriggerSubject   string
	CompletedSubject string
}

// Bus bridges NATS and the job queue.
type Bus struct {
	nc       *nats.Conn
	cfg      Config
	queue    Enqueuer
	defaults automation.Options
	logger   *slog.Logger
	sub      *nats.Subscription
}

// Connect dials NATS and returns a bus over the new connection.
func Connect(url string, cfg Config, queue Enqueuer, defaults automation.Options, logger *slog.Logger) (*Bus, error) {
	nc, err := nats.Connect(url, nats.Name("campus-guardian"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return New(nc, cfg, queue, defaults, logger), nil
}

// New wraps an existing connection. Close drains it.
func New(nc *nats.Conn, cfg Config, queue Enqueuer, defaults automation.Options, logger *slog.Logger) *Bus {
	return &Bus{nc: nc, cfg: cfg, queue: queue, defaults: defaults, logger: logger}
}

// Start subscribes to the trigger subject.
func (b *Bus) Start() error {
	sub, err := b.nc.Subscribe(b.cfg.TriggerSubject, b.handleTrigger)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.cfg.TriggerSubject, err)
	}
	b.sub = sub
	if err := b.nc.Flush(); err != nil {
		return fmt.Errorf("flush subscription: %w", err)
	}
	b.logger.Info("listening for job triggers", "subject", b.cfg.TriggerSubject)
	return nil
}

func (b *Bus) handleTrigger(msg *nats.Msg) {
	ticket, err := b.enqueue(msg.Data)
	if err != nil {
		b.logger.Warn("job trigger rejected", "subject", msg.Subject, "error", err)
	}
	if msg.Reply == "" {
		return
	}
	reply := Reply{}
	if err != nil {
		reply.Error = err.Error()
	} else {
		reply.Ticket = &ticket
	}
	data, _ := json.Marshal(reply)
	if err := msg.Respond(data); err != nil {
		b.logger.Error("reply to job trigger", "error", err)
	}
}

func (b *Bus) enqueue(data []byte) (automation.Ticket, error) {
	var t Trigger
	if err := json.Unmarshal(data, &t); err != nil {
		return automation.Ticket{}, fmt.Errorf("decode trigger: %w", err)
	}
	if t.Job == "" {
		return automation.Ticket{}, errors.New("trigger without job")
	}
	req, err := t.Params.Request(b.defaults)
	if err != nil {
		return automation.Ticket{}, err
	}
	return b.queue.Enqueue(t.Job, req)
}

// Publish announces a finished run on the completed subject. It matches the
// queue's completion callback.
func (b *Bus) Publish(ev automation.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("encode run event", "job", ev.Job, "error", err)
		return
	}
	if err := b.nc.Publish(b.cfg.CompletedSubject, data); err != nil {
		b.logger.Error("publish run event", "job", ev.Job, "run_id", ev.RunID, "error", err)
	}
}

// Close unsubscribes and drains the connection.
func (b *Bus) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	return b.nc.Drain()
}
