package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/privacy-assess/internal/model"
	"github.com/sells-group/privacy-assess/internal/resilience"
)

// Payload is the JSON body posted for each reminder. The receiving service
// owns email rendering and delivery.
type Payload struct {
	Type           string     `json:"type"`
	SubscriberID   string     `json:"subscriber_id"`
	Email          string     `json:"email"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// WebhookNotifier posts reminders to a webhook, retrying transient failures.
type WebhookNotifier struct {
	url    string
	client *http.Client
	retry  resilience.RetryConfig
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string, retry resilience.RetryConfig) *WebhookNotifier {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("reminder", "webhook")
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  retry,
	}
}

// Notify delivers a reminder for sub.
func (n *WebhookNotifier) Notify(ctx context.Context, sub model.Subscriber) error {
	payload, err := json.Marshal(Payload{
		Type:           "reassessment_reminder",
		SubscriberID:   sub.ID,
		Email:          sub.Email,
		SubscribedAt:   sub.CreatedAt,
		LastRemindedAt: sub.LastRemindedAt,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrap(err, "reminder: marshal payload")
	}
	return resilience.Do(ctx, n.retry, func(ctx context.Context) error {
		return n.post(ctx, payload)
	})
}

func (n *WebhookNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "reminder: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "reminder: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		err := eris.Errorf("reminder: webhook returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	return nil
}
