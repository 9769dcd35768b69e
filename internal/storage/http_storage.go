package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

const webhookAttempts = 3

// WebhookSink POSTs artifacts to an HTTP endpoint
type WebhookSink struct {
	url     string
	client  *http.Client
	backoff time.Duration
}

// NewWebhookSink creates a webhook sink. backoff is the base delay between attempts.
func NewWebhookSink(url string, timeout, backoff time.Duration) (*WebhookSink, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook sink needs a URL")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &WebhookSink{
		url:     url,
		backoff: backoff,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}, nil
}

// Name returns the sink name
func (s *WebhookSink) Name() string {
	return "webhook"
}

// Publish sends the artifact, retrying transport errors and 5xx responses
func (s *WebhookSink) Publish(ctx context.Context, artifact models.Artifact) (string, error) {
	var lastErr error

	for attempt := 0; attempt < webhookAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(artifact.Content))
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		req.Header.Set("Content-Type", artifact.MIMEType)
		req.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
		req.Header.Set("X-Export-Format", string(artifact.Format))
		req.Header.Set("User-Agent", "Face-Batch-Inspector/1.0")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			status := resp.StatusCode
			func() {
				defer resp.Body.Close()
				_, _ = io.Copy(io.Discard, resp.Body)
			}()

			if status >= 200 && status < 300 {
				return s.url, nil
			}
			// 4xx client errors are non-retryable
			if status >= 400 && status < 500 {
				return "", fmt.Errorf("webhook rejected artifact: client error: status code %d", status)
			}
			lastErr = fmt.Errorf("server error: status code %d", status)
		}

		if attempt < webhookAttempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * s.backoff):
			}
		}
	}

	return "", fmt.Errorf("failed to publish artifact after %d attempts: %w", webhookAttempts, lastErr)
}
