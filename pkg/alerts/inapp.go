package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// InboxWriter persists in-app notifications.
type InboxWriter interface {
	CreateUserNotification(ctx context.Context, n *model.UserNotification) error
}

// InAppNotifier writes notifications to the recipient's inbox.
type InAppNotifier struct {
	inbox InboxWriter
}

// NewInAppNotifier creates an inbox notifier.
func NewInAppNotifier(inbox InboxWriter) *InAppNotifier {
	return &InAppNotifier{inbox: inbox}
}

func (n *InAppNotifier) Name() string { return "in_app" }

func (n *InAppNotifier) Send(ctx context.Context, d Delivery) error {
	if d.Recipient.ID == "" {
		return errors.New("in-app delivery needs a recipient")
	}
	data, err := json.Marshal(inboxData{
		Kind:      d.Notification.Kind,
		Severity:  d.Notification.Severity,
		EntityID:  d.Notification.EntityID,
		Entities:  len(d.Notification.Entities),
		Reference: d.Notification.Reference,
		Action:    d.Notification.SuggestedAction,
	})
	if err != nil {
		return fmt.Errorf("marshal inbox data: %w", err)
	}
	return n.inbox.CreateUserNotification(ctx, &model.UserNotification{
		UserID:    d.Recipient.ID,
		Type:      string(d.Notification.Type),
		Title:     d.Notification.Title,
		Message:   d.Notification.Message,
		Data:      string(data),
		CreatedAt: d.Notification.CreatedAt,
	})
}

type inboxData struct {
	Kind      model.AlertKind `json:"kind,omitempty"`
	Severity  model.Severity  `json:"severity,omitempty"`
	EntityID  string          `json:"entity_id,omitempty"`
	Entities  int             `json:"entities,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Action    string          `json:"suggested_action,omitempty"`
}
