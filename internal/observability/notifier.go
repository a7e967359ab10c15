package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Failure describes a scheduling action that went wrong and is worth
// telling a human about.
type Failure struct {
	TaskID     string
	TaskTitle  string
	Reason     string
	OccurredAt time.Time
}

// Notifier sends failure notifications to external channels.
type Notifier interface {
	Notify(failure Failure) error
}

// slackNotifier sends failure notifications to a Slack webhook.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts failures to the given
// Slack webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify sends the failure to the configured Slack webhook. A notifier
// constructed with an empty URL is a no-op.
func (s *slackNotifier) Notify(failure Failure) error {
	if s.webhookURL == "" {
		return nil
	}

	msg := slackMessage{
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: "taskpilot scheduling failure"},
			},
			{
				Type: "section",
				Text: &slackText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("❌ *%s* (`%s`)\n%s\n_%s_",
						failure.TaskTitle,
						failure.TaskID,
						failure.Reason,
						failure.OccurredAt.Format("2006-01-02 15:04 UTC"),
					),
				},
			},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}
