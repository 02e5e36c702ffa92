// Package dispatch fans notifications out to recipients and channels.
package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alitto/pond/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ogulcanaydogan/campus-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

var deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "campus_guardian",
	Name:      "notification_deliveries_total",
	Help:      "Notification delivery attempts by channel and outcome.",
}, []string{"channel", "outcome"})

func init() {
	prometheus.MustRegister(deliveries)
}

// Result is the outcome of delivering one notification to one recipient.
type Result struct {
	RecipientID string
	Err         error // joined channel errors, nil when every channel succeeded
}

// OK reports whether every channel accepted the delivery.
func (r Result) OK() bool { return r.Err == nil }

// Failed counts results with at least one channel error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}

// Config selects channels and pool size.
type Config struct {
	// Personal channels receive one delivery per recipient.
	Personal []alerts.Notifier
	// Broadcast channels receive one delivery per notification.
	Broadcast []alerts.Notifier
	Workers   int
	QueueSize int
}

// Dispatcher delivers notifications on a shared worker pool.
type Dispatcher struct {
	personal  []alerts.Notifier
	broadcast []alerts.Notifier
	pool      pond.Pool
	logger    *slog.Logger
}

// New creates a dispatcher. Call Close to drain the pool.
func New(cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Dispatcher{
		personal:  cfg.Personal,
		broadcast: cfg.Broadcast,
		pool:      pond.NewPool(cfg.Workers, pond.WithQueueSize(cfg.QueueSize)),
		logger:    logger,
	}
}

// Dispatch delivers n to every recipient and broadcast channel and waits for
// all attempts. It returns one result per recipient, in input order. A failed
// delivery never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []model.User, n alerts.Notification) []Result {
	if len(recipients) == 0 {
		return nil
	}

	results := make([]Result, len(recipients))
	tasks := make([]pond.Task, 0, len(recipients)+len(d.broadcast))

	for i, user := range recipients {
		tasks = append(tasks, d.pool.Submit(func() {
			var errs []error
			for _, ch := range d.personal {
				if err := d.deliver(ctx, ch, alerts.Delivery{Recipient: user, Notification: n}); err != nil {
					errs = append(errs, err)
				}
			}
			results[i] = Result{RecipientID: user.ID, Err: errors.Join(errs...)}
		}))
	}
	for _, ch := range d.broadcast {
		tasks = append(tasks, d.pool.Submit(func() {
			_ = d.deliver(ctx, ch, alerts.Delivery{Notification: n})
		}))
	}

	for _, t := range tasks {
		_ = t.Wait()
	}
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, ch alerts.Notifier, del alerts.Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("notifier panicked")
			d.logger.Error("notifier panicked", "channel", ch.Name(), "panic", r)
		}
	}()

	attrs := []any{
		"recipient", del.Recipient.ID,
		"type", del.Notification.Type,
		"entity", del.Notification.EntityID,
		"channel", ch.Name(),
	}
	if err = ch.Send(ctx, del); err != nil {
		deliveries.WithLabelValues(ch.Name(), "failure").Inc()
		d.logger.Error("notification delivery failed", append(attrs, "error", err)...)
		return err
	}
	deliveries.WithLabelValues(ch.Name(), "success").Inc()
	d.logger.Info("notification delivered", attrs...)
	return nil
}

// Close waits for queued deliveries and stops the pool.
func (d *Dispatcher) Close() {
	d.pool.StopAndWait()
}
