package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// slackPoster is the part of *slack.Client the sender uses.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts messages through the Slack Web API. Recipients are member or
// channel ids; a member id opens a direct message from the bot.
type Slack struct {
	client slackPoster
}

func NewSlack(token string) *Slack {
	return &Slack{client: slack.New(token)}
}

func (s *Slack) Send(ctx context.Context, recipient RecipientID, text string) error {
	_, _, err := s.client.PostMessageContext(
		ctx,
		string(recipient),
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used
// when no Slack token is configured.
type LogSender struct {
	Log zerolog.Logger
}

func (s LogSender) Send(_ context.Context, recipient RecipientID, text string) error {
	s.Log.Info().Str("recipient", string(recipient)).Str("text", text).Msg("Notification")
	return nil
}

// NewSender returns a Slack sender when token is set and a LogSender
// otherwise.
func NewSender(token string, log zerolog.Logger) Sender {
	if token == "" {
		return LogSender{Log: log}
	}
	return NewSlack(token)
}
