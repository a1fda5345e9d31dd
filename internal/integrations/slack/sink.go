package slack

import (
	"context"
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// Sink delivers digests to Slack channels or DMs. The chat id is a Slack
// channel or user id.
type Sink struct {
	api *slack.Client
}

func NewSink(api *slack.Client) *Sink {
	return &Sink{api: api}
}

func (s *Sink) Send(ctx context.Context, chatID, text string, richFormat bool) error {
	if chatID == "" {
		return fmt.Errorf("slack: missing chat id")
	}
	_, _, err := s.api.PostMessageContext(ctx, chatID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post to %s: %w", chatID, err)
	}
	log.Printf("slack sent chat=%s size=%d rich=%t", chatID, len(text), richFormat)
	return nil
}
