package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const telegramAPIURL = "https://api.telegram.org"

type TelegramNotifier struct {
	baseURL string
	token   string
	chatID  string
}

// NewTelegramNotifier creates a Telegram notifier. With an empty token the
// notifier is a no-op, so callers never have to branch on configuration.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		baseURL: telegramAPIURL,
		token:   token,
		chatID:  chatID,
	}
}

func (t *TelegramNotifier) SendAlert(level, message string) error {
	if t.token == "" {
		return nil
	}

	emoji := "ℹ️"
	switch level {
	case "warning":
		emoji = "⚠️"
	case "error":
		emoji = "🚨"
	case "success":
		emoji = "✅"
	}

	text := fmt.Sprintf("%s *Paper Trader*\n\n%s", emoji, message)

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	resp, err := http.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
