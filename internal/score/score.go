// Package score computes the composite trust score for a package.
//
// The calculation is a pure function of its inputs: no I/O, fully
// deterministic. Raw points are allocated across four dimensions —
// security 40, maintenance 25, popularity 20, dependencies 15 — and the
// composite is their clamped sum. The breakdown reports each dimension as a
// percentage of its own maximum, rounded per field, so breakdown values do
// not sum to the composite.
package score

import (
	"math"
	"time"

	"github.com/git-pkgs/trustscore/internal/core"
)

const (
	securityMax     = 40
	maintenanceMax  = 25
	popularityMax   = 20
	dependenciesMax = 15
)

// Input carries everything the calculator looks at. Now anchors the
// maintenance recency checks; a zero Now means time.Now().
type Input struct {
	Vulnerabilities []core.Vulnerability
	Metadata        core.PackageMetadata
	DependencyCount int
	RepoStats       *core.RepositoryStats
	Downloads       *core.DownloadStats
	Now             time.Time
}

// Calculate returns the 0-100 trust score and its four-way breakdown.
func Calculate(in Input) (int, core.TrustBreakdown) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	security := securityScore(in.Vulnerabilities)
	maintenance := maintenanceScore(in.Metadata, in.RepoStats, now)
	popularity := popularityScore(in.RepoStats, in.Downloads)
	dependencies := dependenciesScore(in.DependencyCount)

	composite := clamp(security+maintenance+popularity+dependencies, 0, 100)

	breakdown := core.TrustBreakdown{
		Security:     normalize(security, securityMax),
		Maintenance:  normalize(maintenance, maintenanceMax),
		Popularity:   normalize(popularity, popularityMax),
		Dependencies: normalize(dependencies, dependenciesMax),
	}

	return composite, breakdown
}

// securityScore starts at the maximum and subtracts per advisory by
// severity: critical 15, high 10, medium 5. Low severity does not subtract.
func securityScore(vulns []core.Vulnerability) int {
	s := securityMax
	for _, v := range vulns {
		switch v.Severity {
		case core.SeverityCritical:
			s -= 15
		case core.SeverityHigh:
			s -= 10
		case core.SeverityMedium:
			s -= 5
		}
	}
	return clamp(s, 0, securityMax)
}

// maintenanceScore penalizes stale registry publishes (largest threshold met
// wins, not cumulative) and credits a repository commit within 30 days.
// Unknown dates are no signal, not a penalty.
func maintenanceScore(meta core.PackageMetadata, repo *core.RepositoryStats, now time.Time) int {
	s := maintenanceMax

	if !meta.LastPublish.IsZero() {
		days := int(now.Sub(meta.LastPublish).Hours() / 24)
		switch {
		case days >= 730:
			s -= 15
		case days >= 365:
			s -= 10
		case days >= 180:
			s -= 5
		}
	}

	if repo != nil && !repo.LastCommit.IsZero() {
		if now.Sub(repo.LastCommit) <= 30*24*time.Hour {
			s += 5
		}
	}

	return clamp(s, 0, maintenanceMax)
}

// popularityScore starts from a base of 5 and adds the single highest
// bracket met for stars and for last-month downloads.
func popularityScore(repo *core.RepositoryStats, downloads *core.DownloadStats) int {
	s := 5

	if repo != nil {
		switch {
		case repo.Stars > 10000:
			s += 8
		case repo.Stars > 1000:
			s += 6
		case repo.Stars > 100:
			s += 4
		case repo.Stars > 10:
			s += 2
		}
	}

	if downloads != nil && downloads.LastMonth != nil {
		switch monthly := *downloads.LastMonth; {
		case monthly > 1_000_000:
			s += 7
		case monthly > 100_000:
			s += 5
		case monthly > 10_000:
			s += 3
		case monthly > 1_000:
			s += 1
		}
	}

	return clamp(s, 0, popularityMax)
}

// dependenciesScore rewards small dependency footprints. Step function of
// dependency count, not complexity.
func dependenciesScore(count int) int {
	switch {
	case count > 100:
		return 5
	case count > 50:
		return 10
	case count > 20:
		return 12
	default:
		return dependenciesMax
	}
}

// normalize converts a raw sub-score to its own 0-100 scale, rounded per
// field rather than once at the end.
func normalize(raw, max int) int {
	return int(math.Round(float64(raw) / float64(max) * 100))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
