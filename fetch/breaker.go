package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// ErrUpstreamDown is returned when a host's circuit is open.
var ErrUpstreamDown = errors.New("upstream unavailable")

// Guard maintains a circuit breaker per upstream host, so a dead registry
// stops consuming retry budget without affecting other upstreams.
type Guard struct {
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewGuard creates an empty per-host circuit breaker set.
func NewGuard() *Guard {
	return &Guard{
		breakers: make(map[string]*circuit.Breaker),
	}
}

// getBreaker returns or creates a circuit breaker for the given host.
func (g *Guard) getBreaker(host string) *circuit.Breaker {
	g.mu.RLock()
	breaker, exists := g.breakers[host]
	g.mu.RUnlock()

	if exists {
		return breaker
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := g.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, resets on exponential backoff
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	g.breakers[host] = breaker
	return breaker
}

// Do runs fn under the circuit breaker for rawURL's host.
// Returns ErrUpstreamDown without invoking fn when the circuit is open.
func (g *Guard) Do(rawURL string, fn func() error) error {
	host := extractHost(rawURL)
	breaker := g.getBreaker(host)

	if !breaker.Ready() {
		return fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
	}

	return breaker.Call(fn, 0)
}

// States returns the current state of all circuit breakers (for health checks).
func (g *Guard) States() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	states := make(map[string]string)
	for host, breaker := range g.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// extractHost extracts a host identifier from a URL for breaker grouping.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		// Fallback to simple truncation
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
