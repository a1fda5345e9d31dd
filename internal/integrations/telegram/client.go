package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"digestbot/internal/httpx"
)

// Client delivers digests over the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: "https://api.telegram.org",
		http:    httpx.ExternalHTTPClient(),
	}
}

// Send posts one message to a chat. richFormat selects HTML parse mode;
// progress notices go out as plain text.
func (c *Client) Send(ctx context.Context, chatID, text string, richFormat bool) error {
	if c.token == "" || chatID == "" {
		return fmt.Errorf("telegram: missing token or chat id")
	}

	body := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if richFormat {
		body["parse_mode"] = "HTML"
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram sendMessage status=%d body=%s", resp.StatusCode, string(respBody))
	}

	log.Printf("telegram sent chat=%s size=%d rich=%t", chatID, len(text), richFormat)
	return nil
}
