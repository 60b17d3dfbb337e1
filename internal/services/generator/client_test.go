package generator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bookforge/internal/config"
	"bookforge/internal/services/generator"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *generator.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return generator.NewClient(config.Generator{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	}, generator.WithSleeper(func(time.Duration) {}))
}

func TestRewriteReturnsCompletionContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"A richer chapter."}}]}`))
	})

	text, err := client.Rewrite(context.Background(), "John walked through the forest.")
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if text != "A richer chapter." {
		t.Fatalf("unexpected rewrite: %q", text)
	}
}

func TestRewriteRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"second attempt"}}]}`))
	})

	text, err := client.Rewrite(context.Background(), "text")
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if text != "second attempt" || calls.Load() != 2 {
		t.Fatalf("retry behavior wrong: text=%q calls=%d", text, calls.Load())
	}
}

func TestRewriteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Rewrite(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error for http 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("client error retried %d times", calls.Load())
	}
}

func TestReviewIncludesBothTexts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Pacing is better."}}]}`))
	})

	feedback, err := client.Review(context.Background(), "original text", "rewritten text")
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if feedback != "Pacing is better." {
		t.Fatalf("unexpected feedback: %q", feedback)
	}

	if _, err := client.Review(context.Background(), "", "rewritten"); err == nil {
		t.Fatal("empty original must be rejected")
	}
}

func TestEmptyCompletionIsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	})

	_, err := client.Rewrite(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "empty completion") {
		t.Fatalf("expected empty completion error, got %v", err)
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := generator.NewClient(config.Generator{Model: "m"})
	if _, err := client.Rewrite(context.Background(), "text"); err == nil {
		t.Fatal("missing api key must fail fast")
	}
}
