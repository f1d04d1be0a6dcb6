package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/git-pkgs/trustscore/fetch"
)

func testClient(opts ...Option) *Client {
	base := []Option{
		WithMaxRetries(2),
		WithBaseDelay(time.Millisecond),
	}
	return NewClient(append(base, opts...)...)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "trustscore" {
			t.Errorf("unexpected User-Agent: %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("unexpected Accept: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"name": "lodash"})
	}))
	defer server.Close()

	var out struct {
		Name string `json:"name"`
	}
	if err := testClient().GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Name != "lodash" {
		t.Errorf("expected 'lodash', got %q", out.Name)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer server.Close()

	var out map[string]bool
	if err := testClient().GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestNoRetryOnClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	var out map[string]any
	err := testClient().GetJSON(context.Background(), server.URL, &out)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if attempts != 1 {
		t.Errorf("404 must not be retried, got %d attempts", attempts)
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected status: %d", httpErr.StatusCode)
	}
	if !httpErr.IsNotFound() {
		t.Error("expected IsNotFound")
	}
}

func TestRetriesRateLimits(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	var out map[string]any
	if err := testClient().GetJSON(context.Background(), server.URL, &out); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("429 should use the full retry budget, got %d attempts", attempts)
	}
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected Content-Type: %q", got)
		}

		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if in["query"] != "lodash" {
			t.Errorf("unexpected payload: %v", in)
		}
		json.NewEncoder(w).Encode(map[string]int{"count": 7})
	}))
	defer server.Close()

	var out map[string]int
	err := testClient().PostJSON(context.Background(), server.URL, map[string]string{"query": "lodash"}, &out)
	if err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
	if out["count"] != 7 {
		t.Errorf("unexpected response: %v", out)
	}
}

func TestTryGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good":
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case "/garbage":
			w.Write([]byte("<html>definitely not json</html>"))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := testClient()
	var out map[string]string

	if !c.TryGetJSON(context.Background(), server.URL+"/good", &out) {
		t.Error("expected true for valid response")
	}
	if c.TryGetJSON(context.Background(), server.URL+"/garbage", &out) {
		t.Error("expected false for undecodable body")
	}
	if c.TryGetJSON(context.Background(), server.URL+"/missing", &out) {
		t.Error("expected false for 404")
	}
}

func TestAttemptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c := testClient(WithTimeout(50*time.Millisecond), WithMaxRetries(0))

	start := time.Now()
	var out map[string]any
	if err := c.GetJSON(context.Background(), server.URL, &out); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took too long: %v", elapsed)
	}
}

func TestContextCancellationStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "fail", http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(WithMaxRetries(5), WithBaseDelay(10*time.Millisecond))
	var out map[string]any
	err := c.GetJSON(ctx, server.URL, &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWithUserAgentClone(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	base := testClient()
	custom := base.WithUserAgent("trustscore-test/1.0")

	var out map[string]any
	if err := custom.GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got != "trustscore-test/1.0" {
		t.Errorf("unexpected User-Agent: %q", got)
	}

	// The original client is untouched.
	if err := base.GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got != "trustscore" {
		t.Errorf("clone must not mutate the original, got %q", got)
	}
}

func TestAuthFunc(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("unexpected auth header: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	c := testClient(WithAuthFunc(func(string) (string, string) {
		return "Authorization", "Bearer sekrit"
	}))

	var out map[string]any
	if err := c.GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
}

func TestBreakerShortCircuits(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(
		WithMaxRetries(0),
		WithBaseDelay(time.Millisecond),
		WithBreaker(fetch.NewGuard()),
	)

	var out map[string]any
	for range 10 {
		_ = c.GetJSON(context.Background(), server.URL, &out)
	}

	// Trips after 5 consecutive failures; later calls never reach the server.
	if attempts >= 10 {
		t.Errorf("expected breaker to short-circuit, server saw %d requests", attempts)
	}
}
