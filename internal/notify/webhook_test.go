package notify_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credverse/internal/notify"
)

type WebhookSuite struct {
	suite.Suite
}

func TestWebhookSuite(t *testing.T) {
	suite.Run(t, new(WebhookSuite))
}

func newSink(secret string) *notify.WebhookSink {
	return notify.NewWebhookSink(secret,
		notify.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		notify.WithBackoff(func(int) time.Duration { return time.Millisecond }),
	)
}

func (s *WebhookSuite) TestDeliversSignedPayload() {
	var (
		mu      sync.Mutex
		body    []byte
		headers http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body, _ = io.ReadAll(r.Body)
		headers = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := newSink("hook-secret")
	sink.Notify(server.URL, "credential.issued", map[string]any{"credential_id": "abc"})
	sink.Wait(context.Background())

	mu.Lock()
	defer mu.Unlock()
	s.Require().NotEmpty(body)
	s.NotEmpty(headers.Get("X-Webhook-ID"))
	s.NotEmpty(headers.Get("X-Webhook-Timestamp"))

	mac := hmac.New(sha256.New, []byte("hook-secret"))
	mac.Write(body)
	s.Equal(hex.EncodeToString(mac.Sum(nil)), headers.Get("X-Credverse-Signature"))

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(body, &payload))
	s.Equal("credential.issued", payload["event"])
	data, ok := payload["data"].(map[string]any)
	s.Require().True(ok)
	s.Equal("abc", data["credential_id"])
}

func (s *WebhookSuite) TestRetriesUntilSuccess() {
	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := newSink("hook-secret")
	sink.Notify(server.URL, "credential.revoked", map[string]any{"credential_id": "abc"})
	sink.Wait(context.Background())

	mu.Lock()
	defer mu.Unlock()
	s.Equal(3, calls)
}

func (s *WebhookSuite) TestConfiguredMaxAttempts() {
	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := notify.NewWebhookSink("hook-secret",
		notify.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		notify.WithBackoff(func(int) time.Duration { return time.Millisecond }),
		notify.WithMaxAttempts(1),
	)
	sink.Notify(server.URL, "credential.issued", nil)
	sink.Wait(context.Background())

	mu.Lock()
	defer mu.Unlock()
	s.Equal(1, calls)
}

func (s *WebhookSuite) TestWaitHonorsContextDeadline() {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	defer close(release)

	sink := newSink("hook-secret")
	sink.Notify(server.URL, "credential.issued", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	completed := sink.Wait(ctx)
	s.False(completed)
	s.Less(time.Since(start), 2*time.Second)
}

func (s *WebhookSuite) TestGivesUpAfterMaxAttempts() {
	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := newSink("hook-secret")
	sink.Notify(server.URL, "credential.issued", nil)
	sink.Wait(context.Background())

	mu.Lock()
	defer mu.Unlock()
	s.Equal(3, calls)
}
