package alerts

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled limits how fast an outbound notifier may be called.
type Throttled struct {
	next    Notifier
	limiter *rate.Limiter
}

// NewThrottled wraps next with a token bucket of perSecond events and the given burst.
func NewThrottled(next Notifier, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *Throttled) Name() string { return t.next.Name() }

func (t *Throttled) Send(ctx context.Context, d Delivery) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", t.next.Name(), err)
	}
	return t.next.Send(ctx, d)
}
