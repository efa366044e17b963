package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"OpportunityScanner/internal/ports"
)

// Notifier delivers alerts and digests to users via the Telegram bot API.
// The userID passed to Send is the recipient's chat id.
type Notifier struct {
	botToken string
	baseURL  string
	client   *http.Client
}

var _ ports.Deliverer = (*Notifier)(nil)

// NewNotifier registers the bot token.
func NewNotifier(botToken string) *Notifier {
	return &Notifier{
		botToken: botToken,
		baseURL:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Send posts a Markdown message. Actions become an inline keyboard row whose
// buttons carry the action values as callback data.
func (n *Notifier) Send(ctx context.Context, userID, text string, actions []ports.DeliveryAction) error {
	if n.botToken == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", userID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	if len(actions) > 0 {
		markup, err := inlineKeyboard(actions)
		if err != nil {
			return err
		}
		form.Set("reply_markup", markup)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func inlineKeyboard(actions []ports.DeliveryAction) (string, error) {
	row := make([]map[string]string, 0, len(actions))
	for _, a := range actions {
		row = append(row, map[string]string{
			"text":          a.Label,
			"callback_data": a.Value,
		})
	}

	markup, err := json.Marshal(map[string]any{
		"inline_keyboard": [][]map[string]string{row},
	})
	if err != nil {
		return "", fmt.Errorf("marshal keyboard: %w", err)
	}
	return string(markup), nil
}
