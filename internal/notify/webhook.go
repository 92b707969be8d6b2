package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const embedColor = 0x00b0f4

// WebhookSink posts session notifications to a Discord-compatible
// webhook as a single embed.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink. timeout bounds each delivery
// attempt.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookBody struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Fields      []embedField `json:"fields"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Send posts the payload. Any non-2xx response is a delivery failure.
func (s *WebhookSink) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(webhookBody{Embeds: []embed{buildEmbed(p)}})
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildEmbed(p Payload) embed {
	title := "Session Report"
	if p.Degraded {
		title = "Session Report (partial data)"
	}

	day := p.SentAt.UTC().Format("2006-01-02")
	month := p.SentAt.UTC().Format("2006-01")

	return embed{
		Title: title,
		Description: fmt.Sprintf("**Principal:** %s\n**Left at:** %s\n**Session duration:** %s",
			p.Principal,
			p.LeaveTime.UTC().Format("15:04:05"),
			FormatMinutes(p.SessionMinutes),
		),
		Fields: []embedField{
			{Name: fmt.Sprintf("Total today (%s)", day), Value: FormatMinutes(p.TodayMinutes)},
			{Name: fmt.Sprintf("Total this month (%s)", month), Value: FormatMinutes(p.MonthMinutes)},
			{Name: "Daily average", Value: FormatMinutes(p.DailyAverageMinutes)},
		},
		Color:     embedColor,
		Timestamp: p.SentAt.UTC().Format(time.RFC3339),
	}
}
