package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reply implements dispatcher.Replier: a plain protected text message,
// matching the protect_content=true the teacher's source sets on every
// outbound send.
func (c *Client) Reply(ctx context.Context, userID int64, text string) error {
	m := tgbotapi.NewMessage(userID, text)
	m.ProtectContent = true
	_, err := c.api.Send(m)
	return err
}

// AnswerCallback acknowledges an inline-button tap so the client stops
// showing its loading spinner (spec.md §6 answerCallback).
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}
