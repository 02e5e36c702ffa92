package alerts

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// WebhookNotifier posts notification envelopes to an integration endpoint.
// A non-empty secret signs each body with HMAC-SHA256.
type WebhookNotifier struct {
	endpoint endpoint
	secret   []byte
}

// NewWebhookNotifier creates a generic webhook notifier.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{endpoint: newEndpoint("webhook", url, any2xx), secret: []byte(secret)}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Send(ctx context.Context, d Delivery) error {
	env := newEnvelope(d, time.Now())
	return w.endpoint.post(ctx, env, func(h http.Header, body []byte) {
		h.Set(deliveryHeader, env.DeliveryID)
		if len(w.secret) > 0 {
			h.Set(signatureHeader, sign(body, w.secret))
		}
	})
}

// envelope is the webhook body. Receivers deduplicate retries on DeliveryID.
type envelope struct {
	DeliveryID   string       `json:"delivery_id"`
	Event        string       `json:"event"`
	Timestamp    string       `json:"timestamp"`
	Recipient    *model.User  `json:"recipient,omitempty"`
	Notification Notification `json:"notification"`
}

func newEnvelope(d Delivery, now time.Time) envelope {
	env := envelope{
		DeliveryID:   uuid.NewString(),
		Event:        string(d.Notification.Type),
		Timestamp:    now.UTC().Format(time.RFC3339),
		Notification: d.Notification,
	}
	if d.Recipient.ID != "" {
		env.Recipient = &d.Recipient
	}
	return env
}
