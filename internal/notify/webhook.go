package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	"github.com/go-resty/resty/v2"
)

// WebhookPublisher POSTs each event as JSON to a fixed URL
type WebhookPublisher struct {
	httpClient *resty.Client
	url        string
}

func NewWebhookPublisher(url string, timeout time.Duration, retries int) *WebhookPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &WebhookPublisher{httpClient: client, url: url}
}

func (p *WebhookPublisher) Publish(ctx context.Context, ev domain.AdaptationEvent) error {
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Event-Type", string(ev.Type)).
		SetBody(ev).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
