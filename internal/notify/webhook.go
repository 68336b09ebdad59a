package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// WebhookNotifier отправляет сообщение JSON-запросом во внешний сервис доставки.
type WebhookNotifier struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// NewWebhookNotifier создаёт клиента; timeout <= 0 заменяется значением по умолчанию.
func NewWebhookNotifier(url, apiKey string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &WebhookNotifier{
		URL:        url,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Send ожидает 2xx; иначе возвращает ошибку с началом тела ответа.
func (n *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	const op = "notify.webhook.Send"

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.APIKey)
	}

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status=%d body=%s", op, resp.StatusCode, string(b))
	}

	return nil
}
