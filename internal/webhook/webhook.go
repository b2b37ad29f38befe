// Package webhook delivers digest messages to an incoming-webhook endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"calhook/internal/digest"
	appLog "calhook/internal/log"
)

// payload is the wire shape the webhook endpoint expects.
type payload struct {
	Text string `json:"text"`
}

// Sender posts messages as JSON to a webhook URL, retrying transient
// failures with exponential backoff. Delivery is fire-and-forget from the
// composer's perspective; the caller only learns whether the final attempt
// succeeded.
type Sender struct {
	client   *http.Client
	url      string
	errorURL string
}

// NewSender creates a Sender. errorURL may equal url; it receives the
// error-path notifications.
func NewSender(url, errorURL string) *Sender {
	if errorURL == "" {
		errorURL = url
	}
	return &Sender{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		url:      url,
		errorURL: errorURL,
	}
}

// Send posts a normal notification message.
func (s *Sender) Send(ctx context.Context, msg digest.Message) error {
	appLog.Info("posting message", "chars", len(msg.Text))
	return s.post(ctx, s.url, msg)
}

// SendError posts an error notification message.
func (s *Sender) SendError(ctx context.Context, msg digest.Message) error {
	appLog.Info("posting error message", "chars", len(msg.Text))
	return s.post(ctx, s.errorURL, msg)
}

func (s *Sender) post(ctx context.Context, url string, msg digest.Message) error {
	if url == "" {
		return fmt.Errorf("webhook URL is empty")
	}

	body, err := json.Marshal(payload{Text: msg.Text})
	if err != nil {
		return err
	}

	retryStrategy := backoff.NewExponentialBackOff()
	retryStrategy.InitialInterval = 1 * time.Second
	// Keep retries well inside a poll interval so a dead endpoint cannot
	// wedge the cycle.
	retryStrategy.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Client errors will not heal on retry.
			return backoff.Permanent(fmt.Errorf("webhook rejected message: %s", resp.Status))
		default:
			return fmt.Errorf("webhook returned %s", resp.Status)
		}
	}, backoff.WithContext(retryStrategy, ctx))
}
