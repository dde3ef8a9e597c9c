package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/randompartner/chatrelay/internal/dispatcher"
	"github.com/randompartner/chatrelay/internal/relay"
)

// EventFromUpdate classifies a raw tgbotapi.Update into the dispatcher's
// platform-agnostic Event (spec.md §6: "kind ∈ {command, control-button,
// inline-callback, content-message}").
func EventFromUpdate(u tgbotapi.Update) (dispatcher.Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		return dispatcher.Event{
			Kind:         dispatcher.KindCallback,
			UserID:       cb.From.ID,
			CallbackID:   cb.ID,
			CallbackData: cb.Data,
			Locale:       localeFromLanguageCode(cb.From.LanguageCode),
		}, true

	case u.Message != nil:
		m := u.Message
		ev := dispatcher.Event{
			UserID: m.From.ID,
			Locale: localeFromLanguageCode(m.From.LanguageCode),
		}

		switch {
		case m.IsCommand():
			ev.Kind = dispatcher.KindCommand
			ev.Command = m.Command()
			ev.CommandArgs = m.CommandArguments()
		case m.Photo != nil && len(m.Photo) > 0:
			ev.Kind = dispatcher.KindContent
			ev.Message = relay.Message{Kind: relay.KindPhoto, FileID: m.Photo[len(m.Photo)-1].FileID, Caption: m.Caption}
		case m.Video != nil:
			ev.Kind = dispatcher.KindContent
			ev.Message = relay.Message{Kind: relay.KindVideo, FileID: m.Video.FileID, Caption: m.Caption}
		case m.Document != nil:
			ev.Kind = dispatcher.KindContent
			ev.Message = relay.Message{Kind: relay.KindDocument, FileID: m.Document.FileID, Caption: m.Caption}
		case m.Voice != nil:
			ev.Kind = dispatcher.KindContent
			ev.Message = relay.Message{Kind: relay.KindVoice, FileID: m.Voice.FileID, Caption: m.Caption}
		case m.Sticker != nil:
			ev.Kind = dispatcher.KindContent
			ev.Message = relay.Message{Kind: relay.KindSticker, FileID: m.Sticker.FileID}
		case isControlButton(m.Text) != "":
			// Reply-keyboard button taps arrive as plain text matching
			// the button label (spec.md §6 "control-button"); route
			// them through the same command dispatch as their slash
			// equivalents.
			ev.Kind = dispatcher.KindCommand
			ev.Command = isControlButton(m.Text)
		case m.Text != "":
			ev.Kind = dispatcher.KindContent
			ev.Message = relay.Message{Kind: relay.KindText, Text: m.Text}
		default:
			return dispatcher.Event{}, false
		}
		return ev, true
	}
	return dispatcher.Event{}, false
}

// buttonLabels maps the fixed reply-keyboard labels to their command
// equivalents (original_source/Rp.py's get_keyboard()).
var buttonLabels = map[string]string{
	"Search \U0001F50E":     "search",
	"Next \U0001F3B2":       "next",
	"Stop ⏹️":                "stop",
	"Block User \U0001F6AB": "block",
}

func isControlButton(text string) string {
	return buttonLabels[text]
}

// localeFromLanguageCode maps Telegram's BCP-47 language_code to one of
// the closed locale set, falling back to the default.
func localeFromLanguageCode(code string) string {
	if len(code) >= 2 {
		short := code[:2]
		for _, l := range []string{"en", "ar", "es"} {
			if l == short {
				return l
			}
		}
	}
	return "en"
}
