package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const webhookNotifyTimeout = 10 * time.Second

// WebhookNotifyService 推广事件 Webhook 推送服务
// 将通知事件以 JSON POST 到运营方配置的回调地址
type WebhookNotifyService struct {
	httpClient *http.Client
}

// NewWebhookNotifyService 创建 Webhook 推送服务
func NewWebhookNotifyService() *WebhookNotifyService {
	return &WebhookNotifyService{
		httpClient: &http.Client{Timeout: webhookNotifyTimeout},
	}
}

// SendEvent 推送单个事件，非 2xx 响应视为失败
func (s *WebhookNotifyService) SendEvent(ctx context.Context, targetURL, eventType string, data map[string]interface{}) error {
	if s == nil || s.httpClient == nil {
		return ErrNotificationSendFailed
	}
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return fmt.Errorf("%w: webhook url is empty", ErrNotificationSendFailed)
	}

	payload := map[string]interface{}{
		"event":       strings.TrimSpace(eventType),
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
		"data":        data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", ErrNotificationSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrNotificationSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: webhook status %d: %s", ErrNotificationSendFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
