// Package notify implements monitor.Notifier over external channels:
// Slack webhooks and (Windows-only) desktop toast notifications,
// adapted from the teacher's internal/notifications package.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/marcus-mcp/marcus/internal/monitor"
)

// SlackNotifier posts C2's pattern and health-degraded alerts to a
// Slack incoming webhook, using slack-go/slack's webhook client
// instead of the teacher's hand-rolled net/http POST.
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
}

func NewSlackNotifier(webhookURL, channel, username string) *SlackNotifier {
	if username == "" {
		username = "marcus"
	}
	return &SlackNotifier{webhookURL: webhookURL, channel: channel, username: username}
}

var _ monitor.Notifier = (*SlackNotifier)(nil)

// NotifyPattern sends one attachment per detected error pattern,
// colored by severity the way the teacher colors by event priority.
func (s *SlackNotifier) NotifyPattern(ctx context.Context, p *monitor.ErrorPattern) error {
	msg := &slack.WebhookMessage{
		Channel:  s.channel,
		Username: s.username,
		Text:     fmt.Sprintf("Error pattern detected: %s", p.PatternType),
		Attachments: []slack.Attachment{
			{
				Color: colorForSeverity(string(p.Severity)),
				Title: fmt.Sprintf("%s pattern (%s)", p.PatternType, p.Severity),
				Text:  p.Description,
				Fields: []slack.AttachmentField{
					{Title: "Frequency", Value: fmt.Sprintf("%d", p.Frequency), Short: true},
					{Title: "Affected agents", Value: joinOrNone(p.AffectedAgents), Short: true},
					{Title: "Affected operations", Value: joinOrNone(p.AffectedOperations), Short: true},
				},
				Ts: json.Number(fmt.Sprintf("%d", p.LastSeen.Unix())),
			},
		},
	}
	return s.post(msg)
}

// NotifyHealthDegraded sends one summary attachment for a degraded
// health report; the monitor calls it on every snapshot tick while the
// band is poor or critical.
func (s *SlackNotifier) NotifyHealthDegraded(ctx context.Context, r monitor.HealthReport) error {
	msg := &slack.WebhookMessage{
		Channel:  s.channel,
		Username: s.username,
		Text:     "System health degraded",
		Attachments: []slack.Attachment{
			{
				Color: "danger",
				Title: fmt.Sprintf("Health score: %d (%s)", r.Score, r.Status),
				Fields: []slack.AttachmentField{
					{Title: "Error rate/min", Value: fmt.Sprintf("%.2f", r.ErrorRatePerMinute), Short: true},
					{Title: "Critical errors", Value: fmt.Sprintf("%d", r.CriticalErrorCount), Short: true},
					{Title: "Active patterns", Value: fmt.Sprintf("%d", r.ActivePatternCount), Short: true},
				},
			},
		},
	}
	return s.post(msg)
}

func (s *SlackNotifier) post(msg *slack.WebhookMessage) error {
	if s.webhookURL == "" {
		return fmt.Errorf("notify: slack webhook URL not configured")
	}
	if err := slack.PostWebhook(s.webhookURL, msg); err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}

func colorForSeverity(severity string) string {
	switch severity {
	case "critical":
		return "danger"
	case "high":
		return "warning"
	default:
		return "good"
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	out := items[0]
	for _, s := range items[1:] {
		out += ", " + s
	}
	return out
}
