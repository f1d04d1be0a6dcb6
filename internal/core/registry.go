package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/git-pkgs/trustscore/client"
)

// Source is the interface implemented by all ecosystem registry integrations.
// Both operations are best-effort: an unreachable registry yields an
// unavailable result, never an error.
type Source interface {
	// Ecosystem returns the ecosystem this source covers.
	Ecosystem() Ecosystem

	// FetchMetadata retrieves package metadata for a name and version.
	// Version may be LatestVersion to resolve the current release.
	FetchMetadata(ctx context.Context, name, version string) Result[PackageMetadata]

	// FetchDownloads retrieves recent download counts for a package.
	// Sources without time-windowed stats return Unavailable.
	FetchDownloads(ctx context.Context, name string) Result[DownloadStats]
}

// Factory creates a source instance for a given base URL.
type Factory func(baseURL string, client *client.Client) Source

var (
	factories = make(map[Ecosystem]Factory)
	defaults  = make(map[Ecosystem]string)
	mu        sync.RWMutex
)

// Register adds a source factory for an ecosystem.
// defaultURL is the canonical registry URL for the ecosystem.
func Register(ecosystem Ecosystem, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[ecosystem] = factory
	defaults[ecosystem] = defaultURL
}

// New creates a source for the given ecosystem.
// If baseURL is empty, the default registry URL is used.
func New(ecosystem Ecosystem, baseURL string, c *client.Client) (Source, error) {
	mu.RLock()
	factory, ok := factories[ecosystem]
	defaultURL := defaults[ecosystem]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown ecosystem: %s", ecosystem)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}

	if c == nil {
		c = client.DefaultClient()
	}

	return factory(baseURL, c), nil
}

// SupportedEcosystems returns all registered ecosystems.
func SupportedEcosystems() []Ecosystem {
	mu.RLock()
	defer mu.RUnlock()

	ecosystems := make([]Ecosystem, 0, len(factories))
	for eco := range factories {
		ecosystems = append(ecosystems, eco)
	}
	return ecosystems
}

// DefaultURL returns the default registry URL for an ecosystem.
func DefaultURL(ecosystem Ecosystem) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[ecosystem]
}
