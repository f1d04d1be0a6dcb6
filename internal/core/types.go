// Package core provides shared types and the ecosystem source system.
package core

import "time"

// Ecosystem identifies one of the supported package distribution systems.
type Ecosystem string

const (
	EcosystemNPM    Ecosystem = "npm"
	EcosystemPython Ecosystem = "python"
	EcosystemDocker Ecosystem = "docker"
)

// LatestVersion is the sentinel version meaning "resolve to current".
const LatestVersion = "latest"

// PackageIdentifier names a single package to analyze. Immutable once built.
type PackageIdentifier struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Ecosystem Ecosystem `json:"ecosystem"`
}

// Severity classifies an advisory.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Vulnerability is a normalized advisory record. Identity is the advisory ID;
// two records with the same ID are the same vulnerability regardless of source.
type Vulnerability struct {
	ID          string   `json:"id"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	CVSS        *float64 `json:"cvss,omitempty"`
	CWE         []string `json:"cwe,omitempty"`
	References  []string `json:"references,omitempty"`
	FixedIn     string   `json:"fixedIn,omitempty"` // empty means no fix known
}

// RepositoryStats is a point-in-time activity snapshot of a source repository.
// Fetched fresh on every scan, never cached across scans.
type RepositoryStats struct {
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	Watchers      int       `json:"watchers"`
	OpenIssues    int       `json:"openIssues"`
	Contributors  int       `json:"contributors"`
	PullRequests  int       `json:"pullRequests"`
	LastCommit    time.Time `json:"lastCommit"`
	CreatedAt     time.Time `json:"createdAt"`
	DefaultBranch string    `json:"defaultBranch,omitempty"`
	Language      string    `json:"language,omitempty"`
	Topics        []string  `json:"topics,omitempty"`
}

// DownloadStats holds recent download counts. A nil window means the source
// did not provide that window, which is distinct from a reported zero.
type DownloadStats struct {
	LastDay   *int64 `json:"lastDay,omitempty"`
	LastWeek  *int64 `json:"lastWeek,omitempty"`
	LastMonth *int64 `json:"lastMonth,omitempty"`
	Total     *int64 `json:"total,omitempty"`
}

// PackageMetadata is the registry-sourced description of a package. Fields are
// best-effort: any of them may be zero-valued when the registry omitted them,
// and downstream consumers treat absence as a neutral signal.
type PackageMetadata struct {
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	License           string            `json:"license,omitempty"`
	Author            string            `json:"author,omitempty"`
	Homepage          string            `json:"homepage,omitempty"`
	Repository        string            `json:"repository,omitempty"`
	Dependencies      map[string]string `json:"dependencies,omitempty"`
	CurrentVersion    string            `json:"currentVersion,omitempty"`
	LatestVersion     string            `json:"latestVersion,omitempty"`
	Deprecated        bool              `json:"deprecated,omitempty"`
	Maintainers       int               `json:"maintainers,omitempty"`
	HasTests          bool              `json:"hasTests,omitempty"`
	HasSecurityPolicy bool              `json:"hasSecurityPolicy,omitempty"`
	BundleSize        *int64            `json:"bundleSize,omitempty"` // bytes, optional enrichment
	Downloads         *int64            `json:"downloads,omitempty"`  // cumulative pulls (docker only)
	LastPublish       time.Time         `json:"lastPublish,omitzero"` // zero means unknown
}

// TrustBreakdown carries the four per-dimension sub-scores, each normalized
// to its own 0-100 scale. The fields are percentages of their dimension's
// maximum, not proportional contributions, so they do not sum to the score.
type TrustBreakdown struct {
	Security     int `json:"security"`
	Maintenance  int `json:"maintenance"`
	Popularity   int `json:"popularity"`
	Dependencies int `json:"dependencies"`
}

// PackageAnalysis is the terminal per-package aggregate produced by a scan.
// Built once by the orchestrator and immutable thereafter.
type PackageAnalysis struct {
	Package         PackageIdentifier `json:"package"`
	Vulnerabilities []Vulnerability   `json:"vulnerabilities"`
	TrustScore      int               `json:"trustScore"`
	Breakdown       TrustBreakdown    `json:"breakdown"`
	Metadata        PackageMetadata   `json:"metadata"`
	RepoStats       *RepositoryStats  `json:"repoStats,omitempty"`
	Downloads       *DownloadStats    `json:"downloads,omitempty"`
	Description     string            `json:"description,omitempty"`
}

// Describer produces an optional natural-language description of a package.
// Implementations live outside the core; a nil or failing describer degrades
// to the registry description or a constant placeholder.
type Describer interface {
	Describe(name string, ecosystem Ecosystem, meta PackageMetadata, repo *RepositoryStats) (string, error)
}
