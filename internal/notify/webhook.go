// Package notify delivers webhook events to issuer endpoints. Delivery is
// fire-and-forget: a failed webhook is logged and never fails the
// operation that triggered it.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	baseBackoff        = time.Second
	maxBackoff         = 60 * time.Second
)

// WebhookSink posts signed JSON events to issuer webhook URLs. Each event
// is delivered from a detached goroutine with retries.
type WebhookSink struct {
	client      *http.Client
	secret      []byte
	logger      *slog.Logger
	backoff     func(attempt int) time.Duration
	maxAttempts int
	wg          sync.WaitGroup
}

type SinkOption func(*WebhookSink)

func WithLogger(logger *slog.Logger) SinkOption {
	return func(s *WebhookSink) {
		s.logger = logger
	}
}

func WithTimeout(timeout time.Duration) SinkOption {
	return func(s *WebhookSink) {
		s.client.Timeout = timeout
	}
}

// WithBackoff overrides retry pacing, used in tests.
func WithBackoff(fn func(attempt int) time.Duration) SinkOption {
	return func(s *WebhookSink) {
		s.backoff = fn
	}
}

// WithMaxAttempts bounds delivery attempts per event. Values below one keep
// the default.
func WithMaxAttempts(attempts int) SinkOption {
	return func(s *WebhookSink) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// NewWebhookSink builds a sink signing payloads with secret.
func NewWebhookSink(secret string, opts ...SinkOption) *WebhookSink {
	s := &WebhookSink{
		client:      &http.Client{Timeout: defaultTimeout},
		secret:      []byte(secret),
		logger:      slog.Default(),
		backoff:     defaultBackoffFor,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultBackoffFor(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Notify queues one delivery attempt chain for url. Returns immediately.
func (s *WebhookSink) Notify(url string, event string, body map[string]any) {
	if url == "" {
		return
	}
	payload := map[string]any{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      body,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("webhook payload not serializable", "event", event, "error", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(url, event, data)
	}()
}

// Wait blocks until all in-flight deliveries finish or ctx expires. It
// reports whether every delivery completed; abandoned deliveries keep
// running but the caller stops waiting for them.
func (s *WebhookSink) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *WebhookSink) deliver(url, event string, data []byte) {
	webhookID := uuid.New().String()
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(s.backoff(attempt - 1))
		}
		if s.post(url, webhookID, data) {
			return
		}
	}
	s.logger.Warn("webhook delivery abandoned",
		"url", url,
		"event", event,
		"attempts", s.maxAttempts,
	)
}

func (s *WebhookSink) post(url, webhookID string, data []byte) bool {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("webhook request build failed", "url", url, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-ID", webhookID)
	req.Header.Set("X-Webhook-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	req.Header.Set("X-Credverse-Signature", s.sign(data))

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (s *WebhookSink) sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}
