package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

// maxSlackEntities caps the per-entity lines in a bulk attachment.
const maxSlackEntities = 10

// SlackNotifier sends notifications to a Slack incoming webhook.
type SlackNotifier struct {
	endpoint endpoint
	channel  string
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{endpoint: newEndpoint("slack", webhookURL, only200), channel: channel}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, d Delivery) error {
	return s.endpoint.post(ctx, slackMessage(s.channel, d), nil)
}

func slackMessage(channel string, d Delivery) slackPayload {
	n := d.Notification
	fields := []slackField{{Title: "Type", Value: string(n.Type), Short: true}}
	if n.Severity != "" {
		fields = append(fields, slackField{Title: "Severity", Value: string(n.Severity), Short: true})
	}
	if n.EntityID != "" {
		fields = append(fields, slackField{Title: "Entity", Value: n.EntityID, Short: true})
	}
	if n.Reference != "" {
		fields = append(fields, slackField{Title: "Reference", Value: n.Reference, Short: true})
	}
	if n.Amount > 0 {
		fields = append(fields, slackField{Title: "Amount", Value: fmt.Sprintf("%.2f", n.Amount), Short: true})
	}
	if d.Recipient.ID != "" {
		fields = append(fields, slackField{Title: "For", Value: d.Recipient.Name, Short: true})
	}
	if n.SuggestedAction != "" {
		fields = append(fields, slackField{Title: "Suggested action", Value: n.SuggestedAction})
	}
	if len(n.Entities) > 0 {
		fields = append(fields, slackField{Title: "Entities", Value: entityLines(n.Entities)})
	}

	return slackPayload{
		Channel: channel,
		Attachments: []slackAttachment{{
			Color:  severityColor(n),
			Title:  "Campus Guardian: " + n.Title,
			Text:   n.Message,
			Fields: fields,
			Footer: "Campus Guardian",
			Ts:     n.CreatedAt.Unix(),
		}},
	}
}

func severityColor(n Notification) string {
	if n.Type == TypeJobFailed {
		return "#ff0000"
	}
	switch n.Severity {
	case model.SeverityLow, model.SeverityWarning:
		return "#ff9900" // orange
	case model.SeverityCritical:
		return "#ff0000" // red
	case model.SeverityExhausted, model.SeverityExceeded:
		return "#cc0000" // dark red
	default:
		return "#36a64f" // green
	}
}

func entityLines(entities []model.AffectedEntity) string {
	var b strings.Builder
	for i, e := range entities {
		if i == maxSlackEntities {
			fmt.Fprintf(&b, "... and %d more", len(entities)-maxSlackEntities)
			break
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		fmt.Fprintf(&b, "%s: %s (%.2f / %.2f)\n", e.Severity, name, e.Value, e.Threshold)
	}
	return strings.TrimRight(b.String(), "\n")
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
