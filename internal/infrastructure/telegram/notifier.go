package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"FilingsScanner/internal/ports"
)

const defaultAPIURL = "https://api.telegram.org"

// Notifier sends messages to a Telegram chat via bot API.
type Notifier struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.NotificationChannel = (*Notifier)(nil)

// Chat is a conversation the bot has seen in getUpdates.
type Chat struct {
	ID   int64
	User string
	Text string
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type update struct {
	Message *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			FirstName string `json:"first_name"`
		} `json:"from"`
	} `json:"message"`
}

// NewNotifier registers bot token and chat identifier; apiURL defaults to the public Bot API.
func NewNotifier(apiURL, botToken, chatID string, logger *slog.Logger) *Notifier {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Notifier{
		apiURL:   strings.TrimSuffix(apiURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// SendMessage renders Markdown to MarkdownV2 and posts it. When Telegram rejects the
// entities the message is resent as plain text.
func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("telegram message is empty")
	}

	err := n.send(ctx, map[string]any{
		"chat_id":    n.chatID,
		"text":       ToMarkdownV2(text),
		"parse_mode": "MarkdownV2",
	})
	if err == nil || !strings.Contains(err.Error(), "can't parse entities") {
		return err
	}

	n.warn("markdown rejected, resending as plain text", "error", err)
	return n.send(ctx, map[string]any{
		"chat_id": n.chatID,
		"text":    text,
	})
}

func (n *Notifier) send(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = n.do(req)
	return err
}

// ChatIDs lists chats that recently messaged the bot, for configuring chatId.
func (n *Notifier) ChatIDs(ctx context.Context) ([]Chat, error) {
	if n.botToken == "" {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint("getUpdates"), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	result, err := n.do(req)
	if err != nil {
		return nil, err
	}

	var updates []update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}

	chats := make([]Chat, 0, len(updates))
	for _, u := range updates {
		if u.Message == nil || u.Message.Chat.ID == 0 {
			continue
		}
		user := u.Message.From.FirstName
		if user == "" {
			user = "Unknown"
		}
		chats = append(chats, Chat{ID: u.Message.Chat.ID, User: user, Text: u.Message.Text})
	}
	return chats, nil
}

func (n *Notifier) do(req *http.Request) (json.RawMessage, error) {
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("telegram error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK || !decoded.OK {
		return nil, fmt.Errorf("telegram error %s: %s", resp.Status, decoded.Description)
	}
	return decoded.Result, nil
}

func (n *Notifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.apiURL, n.botToken, method)
}

func (n *Notifier) warn(msg string, args ...interface{}) {
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}
