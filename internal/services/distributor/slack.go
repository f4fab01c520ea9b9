package distributor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

const slackMaxAttempts = 3

// SlackNotifier posts a Block Kit summary of the board pack to an
// incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	baseDelay  time.Duration
	logger     arbor.ILogger
}

func NewSlackNotifier() *SlackNotifier {
	return &SlackNotifier{
		webhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		client:     &http.Client{Timeout: 15 * time.Second},
		baseDelay:  time.Second,
		logger:     common.GetLogger(),
	}
}

// IsConfigured reports whether a webhook URL is present.
func (n *SlackNotifier) IsConfigured() bool {
	return n.webhookURL != ""
}

type slackPayload struct {
	Channel   string       `json:"channel,omitempty"`
	Username  string       `json:"username,omitempty"`
	IconEmoji string       `json:"icon_emoji,omitempty"`
	Blocks    []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts the summary, retrying with exponential backoff on any
// transport error or non-2xx response.
func (n *SlackNotifier) Notify(ctx context.Context, dist common.DistributionConfig, pkg *models.MetricsPackage, narrative *models.NarrativePackage) error {
	if n.webhookURL == "" {
		return fmt.Errorf("slack webhook not configured")
	}

	body, err := json.Marshal(n.buildPayload(dist, pkg, narrative))
	if err != nil {
		return fmt.Errorf("encoding slack payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= slackMaxAttempts; attempt++ {
		if err := n.post(ctx, body); err != nil {
			lastErr = err
			n.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Slack notification failed")
			if attempt < slackMaxAttempts {
				delay := n.baseDelay * time.Duration(1<<(attempt-1))
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		n.logger.Info().Str("run_id", pkg.RunID).Msg("Slack notification sent")
		return nil
	}
	return fmt.Errorf("slack notification failed after %d attempts: %w", slackMaxAttempts, lastErr)
}

func (n *SlackNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

func (n *SlackNotifier) buildPayload(dist common.DistributionConfig, pkg *models.MetricsPackage, narrative *models.NarrativePackage) slackPayload {
	statusEmoji := func(s models.RAGStatus) string {
		switch s {
		case models.StatusGreen:
			return ":large_green_circle:"
		case models.StatusAmber:
			return ":large_yellow_circle:"
		case models.StatusRed:
			return ":red_circle:"
		default:
			return ":white_circle:"
		}
	}

	var fields []slackText
	for _, name := range models.AllKPINames() {
		result, ok := pkg.KPIs[name]
		if !ok {
			continue
		}
		display := result.Display
		if result.NotComputable {
			display = "n/a"
		}
		fields = append(fields, slackText{
			Type: "mrkdwn",
			Text: fmt.Sprintf("%s *%s*: %s", statusEmoji(result.Status), name.Title(), display),
		})
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("%s board pack - %s", pkg.Company, pkg.Period)},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("Overall status: %s *%s*", statusEmoji(pkg.OverallStatus()), pkg.OverallStatus())},
		},
	}
	if narrative != nil && narrative.ExecutiveSummary != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: narrative.ExecutiveSummary},
		})
	}
	// Slack caps section fields at ten per block.
	for start := 0; start < len(fields); start += 10 {
		end := start + 10
		if end > len(fields) {
			end = len(fields)
		}
		blocks = append(blocks, slackBlock{Type: "section", Fields: fields[start:end]})
	}

	return slackPayload{
		Channel:   dist.SlackChannel,
		Username:  dist.SlackUsername,
		IconEmoji: dist.SlackIconEmoji,
		Blocks:    blocks,
	}
}
