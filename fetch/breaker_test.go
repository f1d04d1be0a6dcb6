package fetch

import (
	"errors"
	"testing"
)

func TestGuardPassesThroughSuccess(t *testing.T) {
	guard := NewGuard()

	calls := 0
	err := guard.Do("https://registry.npmjs.org/lodash", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestGuardStates(t *testing.T) {
	guard := NewGuard()

	// Initially empty
	if states := guard.States(); len(states) != 0 {
		t.Errorf("expected empty states, got %d entries", len(states))
	}

	_ = guard.Do("https://registry.npmjs.org/x", func() error { return nil })
	_ = guard.Do("https://pypi.org/pypi/x/json", func() error { return nil })

	states := guard.States()
	if len(states) != 2 {
		t.Fatalf("expected 2 breaker states, got %d", len(states))
	}
	for host, state := range states {
		if state != "closed" {
			t.Errorf("expected closed state for %s, got %s", host, state)
		}
	}
}

func TestGuardOpensAfterFailures(t *testing.T) {
	guard := NewGuard()
	fail := errors.New("connection refused")

	calls := 0
	// Trips after 5 consecutive failures
	for range 10 {
		_ = guard.Do("https://dead-registry.example.com/pkg", func() error {
			calls++
			return fail
		})
	}

	states := guard.States()
	if states["dead-registry.example.com"] != "open" {
		t.Errorf("expected open breaker, got %q", states["dead-registry.example.com"])
	}
	if calls >= 10 {
		t.Errorf("open breaker should stop invoking fn, got %d calls", calls)
	}

	err := guard.Do("https://dead-registry.example.com/pkg", func() error { return nil })
	if !errors.Is(err, ErrUpstreamDown) {
		t.Errorf("expected ErrUpstreamDown, got %v", err)
	}
}

func TestGuardIsolatesHosts(t *testing.T) {
	guard := NewGuard()
	fail := errors.New("boom")

	for range 10 {
		_ = guard.Do("https://dead.example.com/x", func() error { return fail })
	}

	// The healthy host is unaffected by the dead one.
	err := guard.Do("https://alive.example.com/x", func() error { return nil })
	if err != nil {
		t.Fatalf("expected healthy host to pass, got %v", err)
	}

	states := guard.States()
	if states["dead.example.com"] != "open" {
		t.Errorf("expected dead host open, got %q", states["dead.example.com"])
	}
	if states["alive.example.com"] != "closed" {
		t.Errorf("expected alive host closed, got %q", states["alive.example.com"])
	}
}

func TestExtractHost(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "npm registry",
			url:      "https://registry.npmjs.org/lodash",
			expected: "registry.npmjs.org",
		},
		{
			name:     "with port",
			url:      "https://example.com:8080/path",
			expected: "example.com:8080",
		},
		{
			name:     "invalid URL",
			url:      "not-a-valid-url",
			expected: "not-a-valid-url",
		},
		{
			name:     "very long non-URL truncated",
			url:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			expected: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractHost(tt.url)
			if got != tt.expected {
				t.Errorf("extractHost(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}
