// Package slackbot adapts the Slack Web and Socket Mode APIs to the interfaces
// the command layer consumes.
package slackbot

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/zerollpaper/presence-bot/internal/bot"
)

// Client wraps a Slack Web API client behind the bot.MessageSink and
// bot.IdentityResolver interfaces.
type Client struct {
	api *slack.Client
}

// NewClient wraps an authenticated Slack API client.
func NewClient(api *slack.Client) *Client {
	return &Client{api: api}
}

var (
	_ bot.MessageSink      = (*Client)(nil)
	_ bot.IdentityResolver = (*Client)(nil)
)

// ResolveDisplayName returns the user's display name, falling back to the
// real name and finally the profile name when unset.
func (c *Client) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get user info: %w", err)
	}
	if name := user.Profile.DisplayName; name != "" {
		return name, nil
	}
	if name := user.RealName; name != "" {
		return name, nil
	}
	return user.Name, nil
}

func (c *Client) PostMessage(ctx context.Context, channel, text string) (bot.MessageRef, error) {
	ch, ts, err := c.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return bot.MessageRef{}, fmt.Errorf("post message: %w", err)
	}
	return bot.MessageRef{Channel: ch, Timestamp: ts}, nil
}

func (c *Client) UpdateMessage(ctx context.Context, ref bot.MessageRef, text string) error {
	_, _, _, err := c.api.UpdateMessageContext(ctx, ref.Channel, ref.Timestamp, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

func (c *Client) PostEphemeral(ctx context.Context, channel, userID, text string) error {
	_, err := c.api.PostEphemeralContext(ctx, channel, userID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post ephemeral: %w", err)
	}
	return nil
}

func (c *Client) PinMessage(ctx context.Context, ref bot.MessageRef) error {
	if err := c.api.AddPinContext(ctx, ref.Channel, slack.NewRefToMessage(ref.Channel, ref.Timestamp)); err != nil {
		return fmt.Errorf("add pin: %w", err)
	}
	return nil
}

func (c *Client) UnpinMessage(ctx context.Context, ref bot.MessageRef) error {
	if err := c.api.RemovePinContext(ctx, ref.Channel, slack.NewRefToMessage(ref.Channel, ref.Timestamp)); err != nil {
		return fmt.Errorf("remove pin: %w", err)
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, ref bot.MessageRef) error {
	_, _, err := c.api.DeleteMessageContext(ctx, ref.Channel, ref.Timestamp)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (c *Client) ListHistory(ctx context.Context, channel, cursor string) ([]bot.HistoryMessage, string, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channel,
		Limit:     200,
		Cursor:    cursor,
	})
	if err != nil {
		return nil, "", fmt.Errorf("conversation history: %w", err)
	}
	messages := make([]bot.HistoryMessage, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		messages = append(messages, bot.HistoryMessage{
			UserID:    msg.User,
			BotID:     msg.BotID,
			Timestamp: msg.Timestamp,
		})
	}
	return messages, resp.ResponseMetaData.NextCursor, nil
}

func (c *Client) BotUserID(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth test: %w", err)
	}
	return resp.UserID, nil
}
