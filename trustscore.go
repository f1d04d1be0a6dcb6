// Package trustscore aggregates registry metadata and known-vulnerability
// records for packages across ecosystems (npm, PyPI, Docker Hub) and derives
// a composite 0-100 trust score per package.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/trustscore"
//		_ "github.com/git-pkgs/trustscore/all"
//	)
//
//	scanner := trustscore.NewScanner()
//	analyses := scanner.Scan(context.Background(), []trustscore.PackageIdentifier{
//		{Name: "lodash", Version: "4.17.21", Ecosystem: trustscore.EcosystemNPM},
//	})
//	fmt.Println(analyses[0].TrustScore)
//
// Scan never fails as a whole: unreachable registries and advisory sources
// degrade individual analyses instead of aborting the batch, and the result
// list always matches the input list in length and order.
package trustscore

import (
	"time"

	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/trustscore/client"
	"github.com/git-pkgs/trustscore/internal/advisory"
	"github.com/git-pkgs/trustscore/internal/core"
	"github.com/git-pkgs/trustscore/internal/github"
	"github.com/git-pkgs/trustscore/internal/manifest"
	"github.com/git-pkgs/trustscore/internal/scan"
	"github.com/git-pkgs/trustscore/internal/score"
)

// Re-export types from internal/core
type (
	// Ecosystem identifies one of the supported package distribution systems.
	Ecosystem = core.Ecosystem

	// PackageIdentifier names a single package to analyze.
	PackageIdentifier = core.PackageIdentifier

	// Severity classifies an advisory.
	Severity = core.Severity

	// Vulnerability is a normalized advisory record.
	Vulnerability = core.Vulnerability

	// RepositoryStats is a point-in-time activity snapshot of a repository.
	RepositoryStats = core.RepositoryStats

	// DownloadStats holds recent download counts per window.
	DownloadStats = core.DownloadStats

	// PackageMetadata is the registry-sourced description of a package.
	PackageMetadata = core.PackageMetadata

	// TrustBreakdown carries the four per-dimension sub-scores.
	TrustBreakdown = core.TrustBreakdown

	// PackageAnalysis is the terminal per-package aggregate of a scan.
	PackageAnalysis = core.PackageAnalysis

	// Describer produces an optional natural-language package description.
	Describer = core.Describer

	// Source is the interface implemented by ecosystem registry integrations.
	Source = core.Source
)

// Re-export constants
const (
	EcosystemNPM    = core.EcosystemNPM
	EcosystemPython = core.EcosystemPython
	EcosystemDocker = core.EcosystemDocker

	SeverityCritical = core.SeverityCritical
	SeverityHigh     = core.SeverityHigh
	SeverityMedium   = core.SeverityMedium
	SeverityLow      = core.SeverityLow

	// LatestVersion is the sentinel version meaning "resolve to current".
	LatestVersion = core.LatestVersion
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for upstream APIs.
	Client = client.Client

	// Option configures a Client.
	Option = client.Option
)

// Re-export errors
var ErrNotFound = client.ErrNotFound

// Error types
type (
	HTTPError     = client.HTTPError
	NotFoundError = client.NotFoundError
)

// DefaultClient returns a client with sensible defaults:
// - 10s per-attempt timeout
// - 2 retries with exponential backoff
// - Retry on connection errors, 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
var NewClient = client.NewClient

// WithTimeout sets the per-attempt timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// Scanner orchestrates per-package analysis pipelines.
type Scanner = scan.Orchestrator

// ScanOption configures a Scanner.
type ScanOption = scan.Option

// Scanner options.
var (
	WithClient     = scan.WithClient
	WithAdvisories = scan.WithAdvisories
	WithRepoStats  = scan.WithRepoStats
	WithDescriber  = scan.WithDescriber
	WithLogger     = scan.WithLogger
)

// NewScanner creates a scan orchestrator. Ecosystem sources must be
// registered by importing the all subpackage (or individual ecosystems).
func NewScanner(opts ...ScanOption) *Scanner {
	return scan.New(opts...)
}

// CalculateTrustScore computes the 0-100 trust score and its breakdown from
// already-fetched inputs. Pure and deterministic; exposed separately so
// collaborators holding partial data can re-score without re-fetching.
func CalculateTrustScore(
	vulns []Vulnerability,
	meta PackageMetadata,
	dependencyCount int,
	repoStats *RepositoryStats,
	downloads *DownloadStats,
) (int, TrustBreakdown) {
	return score.Calculate(score.Input{
		Vulnerabilities: vulns,
		Metadata:        meta,
		DependencyCount: dependencyCount,
		RepoStats:       repoStats,
		Downloads:       downloads,
		Now:             time.Now(),
	})
}

// Advisory aggregation.
type Aggregator = advisory.Aggregator

// NewAggregator wires advisory sources; the GHSA client may be nil.
var NewAggregator = advisory.NewAggregator

// NewGHSAClient builds the advisory-graph source from a token.
var NewGHSAClient = advisory.NewGHSAClient

// NewOSVClient builds the vulnerability-database source.
var NewOSVClient = advisory.NewOSVClient

// Repository stats.
type RepoStatsFetcher = github.StatsFetcher

// NewRepoStatsFetcher builds a GitHub stats fetcher. A nil httpClient gets
// the shared cached-DNS transport; token may be empty.
var NewRepoStatsFetcher = github.NewStatsFetcher

// Manifest parsing.
type (
	ManifestFormat = manifest.Format
	ParseError     = manifest.ParseError
)

const (
	FormatPackageJSON  = manifest.FormatPackageJSON
	FormatRequirements = manifest.FormatRequirements
	FormatDockerfile   = manifest.FormatDockerfile
)

// ParseManifest extracts package identifiers from raw manifest text.
var ParseManifest = manifest.Parse

// ParsePURL parses a Package URL string (e.g. "pkg:npm/lodash@4.17.21").
var ParsePURL = purl.Parse

// IdentifierFromPURL converts a Package URL string into an identifier.
var IdentifierFromPURL = core.IdentifierFromPURL

// New creates an ecosystem source directly. If baseURL is empty, the default
// registry URL is used.
func New(ecosystem Ecosystem, baseURL string, c *Client) (Source, error) {
	return core.New(ecosystem, baseURL, c)
}

// SupportedEcosystems returns all registered ecosystems.
// Note: ecosystems must be imported to be registered.
func SupportedEcosystems() []Ecosystem {
	return core.SupportedEcosystems()
}

// DefaultURL returns the default registry URL for an ecosystem.
func DefaultURL(ecosystem Ecosystem) string {
	return core.DefaultURL(ecosystem)
}
