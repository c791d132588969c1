package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/widgetsmith/internal/types"
)

const maxTelegramMessage = 4096

// Telegram announces finished widgets to a configured chat.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	baseURL string
}

// NewTelegram creates a Telegram notifier. baseURL is the externally
// reachable server address prepended to preview URL paths; it may be empty,
// in which case only the path is sent.
func NewTelegram(token string, chatID int64, baseURL string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, baseURL: baseURL}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// PreviewReady sends a short announcement with the widget title, grid size,
// and preview link.
func (t *Telegram) PreviewReady(sessionID types.SessionID, manifest types.Manifest) error {
	text := fmt.Sprintf("Widget ready: *%s* (%dx%d)\nSession: %s",
		manifest.Title,
		manifest.Dimensions.Width,
		manifest.Dimensions.Height,
		sessionID,
	)
	if manifest.URL != nil {
		text += "\n" + t.baseURL + *manifest.URL
	}
	return t.send(text)
}

func (t *Telegram) send(text string) error {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := t.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
	return nil
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
