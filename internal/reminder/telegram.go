package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TelegramSink posts reminders through the Telegram Bot API.
type TelegramSink struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// sendMessageResponse is the subset of the Bot API reply the sink inspects.
type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramSink constructs a Telegram reminder sink.
func NewTelegramSink(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramSink{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "reminder_telegram").Logger(),
	}
}

// Name implements Sink.
func (t *TelegramSink) Name() string { return "telegram" }

// CreateReminder calls sendMessage with the rendered reminder.
func (t *TelegramSink) CreateReminder(ctx context.Context, r Reminder) error {
	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    renderMessage(r),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if result.Description != "" {
			return fmt.Errorf("telegram status %d: %s", resp.StatusCode, result.Description)
		}
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}
	if decodeErr == nil && !result.OK {
		if result.Description != "" {
			return fmt.Errorf("telegram rejected reminder: %s", result.Description)
		}
		return fmt.Errorf("telegram returned ok=false")
	}

	t.logger.Info().Str("customer", r.Customer).
		Str("date", r.Date.Format("2006-01-02")).
		Str("run_id", r.RunID).
		Msg("reminder sent (telegram)")
	return nil
}

func renderMessage(r Reminder) string {
	builder := strings.Builder{}
	builder.WriteString("[Call Reminder]\n")
	builder.WriteString(r.Summary + "\n")
	builder.WriteString(fmt.Sprintf("Date: %s\n", r.Date.Format("2006-01-02")))
	if r.Description != "" {
		builder.WriteString(r.Description)
	}
	return builder.String()
}

var _ Sink = (*TelegramSink)(nil)
