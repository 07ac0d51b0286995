// Package notify sends operator alerts to Slack. A nil client is a no-op,
// so wiring stays unconditional even when Slack is not configured.
package notify

import (
	"fmt"

	"pump_control/internal/logger"

	"github.com/slack-go/slack"
)

type Client struct {
	api       *slack.Client
	channelID string
	log       *logger.Logger
}

// NewClient returns nil when token or channel is missing; all methods are
// safe to call on a nil receiver.
func NewClient(token, channelID string, log *logger.Logger) *Client {
	if token == "" || channelID == "" {
		if log != nil {
			log.Infow("slack not configured; notifications disabled")
		}
		return nil
	}
	return &Client{
		api:       slack.New(token),
		channelID: channelID,
		log:       log,
	}
}

// Alert posts a short operator notification. Failures are logged, never
// propagated: alerting is best-effort and must not affect control flow.
func (c *Client) Alert(title, message string) {
	if c == nil || c.api == nil {
		return
	}
	_, _, err := c.api.PostMessage(c.channelID, slack.MsgOptionBlocks(
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, false, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, message, false, false), nil, nil),
	))
	if err != nil && c.log != nil {
		c.log.Warnw("slack_post_failed", "err", err)
	}
}

// Alertf is Alert with a formatted message.
func (c *Client) Alertf(title, format string, args ...any) {
	if c == nil {
		return
	}
	c.Alert(title, fmt.Sprintf(format, args...))
}
