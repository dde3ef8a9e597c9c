// Package telegram is the external-bindings adapter (spec.md §6): it
// owns the one connection to the chat-platform client library and
// translates between its types and the core's platform-agnostic
// relay.Message / inbound Event. No matching or relay logic lives here.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/randompartner/chatrelay/internal/relay"
)

// Client wraps a tgbotapi.BotAPI and satisfies relay.Client and
// relay.Subscriber.
type Client struct {
	api       *tgbotapi.BotAPI
	channelID string
}

// New dials the bot API with the given token.
func New(token, channelID string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	log.Info().Str("bot_username", api.Self.UserName).Msg("telegram client ready")
	return &Client{api: api, channelID: channelID}, nil
}

// Updates returns the long-poll update channel. The start is wrapped in
// backoff.Retry, but GetUpdatesChan reports no error and the wrapped op
// always returns nil, so it succeeds on the first attempt and no retry
// takes place here.
func (c *Client) Updates(ctx context.Context) (tgbotapi.UpdatesChannel, error) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60

	var updates tgbotapi.UpdatesChannel
	op := func() error {
		updates = c.api.GetUpdatesChan(cfg)
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, fmt.Errorf("telegram: start update poll: %w", err)
	}
	return updates, nil
}

// Send implements relay.Client. It maps msg.Kind to the matching typed
// send primitive, preserving the caption and setting protect_content.
func (c *Client) Send(ctx context.Context, chatID int64, msg relay.Message, protectContent bool) error {
	var chattable tgbotapi.Chattable

	switch msg.Kind {
	case relay.KindText:
		m := tgbotapi.NewMessage(chatID, msg.Text)
		m.ProtectContent = protectContent
		chattable = m
	case relay.KindPhoto:
		m := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(msg.FileID))
		m.Caption = msg.Caption
		m.ProtectContent = protectContent
		chattable = m
	case relay.KindVideo:
		m := tgbotapi.NewVideo(chatID, tgbotapi.FileID(msg.FileID))
		m.Caption = msg.Caption
		m.ProtectContent = protectContent
		chattable = m
	case relay.KindDocument:
		m := tgbotapi.NewDocument(chatID, tgbotapi.FileID(msg.FileID))
		m.Caption = msg.Caption
		m.ProtectContent = protectContent
		chattable = m
	case relay.KindVoice:
		m := tgbotapi.NewVoice(chatID, tgbotapi.FileID(msg.FileID))
		m.Caption = msg.Caption
		m.ProtectContent = protectContent
		chattable = m
	case relay.KindSticker:
		m := tgbotapi.NewSticker(chatID, tgbotapi.FileID(msg.FileID))
		m.ProtectContent = protectContent
		chattable = m
	default:
		return fmt.Errorf("telegram: unknown message kind %v", msg.Kind)
	}

	_, err := c.api.Send(chattable)
	if err != nil {
		return classifySendError(err)
	}
	return nil
}

// Archive sends a best-effort copy of msg to the operator log channel,
// captioned with sender/partner ids (spec.md §4.4 step 4). Stickers are
// sent without a caption, so a sticker's archive copy carries no ids.
func (c *Client) Archive(ctx context.Context, logChannelID string, msg relay.Message, senderID, partnerID int64) error {
	caption := fmt.Sprintf("sender=%d partner=%d", senderID, partnerID)
	if msg.Caption != "" {
		caption = msg.Caption + "\n" + caption
	}
	archived := msg
	archived.Caption = caption
	if msg.Kind == relay.KindText {
		archived.Text = fmt.Sprintf("%s\n\n%s", msg.Text, caption)
	}
	return c.Send(ctx, mustChatID(logChannelID), archived, false)
}

// IsSubscribed implements relay.Subscriber / the Dispatcher's
// subscription gate by querying channel membership.
func (c *Client) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: c.channelID,
			UserID:             userID,
		},
	})
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	default:
		return false, nil
	}
}

// classifySendError maps the bot API's error strings to relay.SendError,
// marking terminal the three conditions spec.md §4.4 step 7 names:
// bot-blocked, user-deactivated, chat-not-found.
func classifySendError(err error) *relay.SendError {
	msg := strings.ToLower(err.Error())
	terminal := strings.Contains(msg, "blocked") ||
		strings.Contains(msg, "deactivated") ||
		strings.Contains(msg, "chat not found")
	if terminal {
		return &relay.SendError{Terminal: true, Err: errors.Join(relay.ErrUndeliverablePeer, err)}
	}
	return &relay.SendError{Terminal: false, Err: err}
}

func mustChatID(s string) int64 {
	var id int64
	_, _ = fmt.Sscanf(s, "%d", &id)
	return id
}
