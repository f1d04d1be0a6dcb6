package advisory

import (
	"context"
	"strings"

	"github.com/git-pkgs/trustscore/internal/core"
)

// Aggregator merges advisories from the configured sources, deduplicated
// by advisory ID. When every live source yields nothing, a small static
// table of well-known historical advisories is consulted.
type Aggregator struct {
	ghsa     *GHSAClient // nil when no token is configured
	osv      *OSVClient
	fallback map[string][]core.Vulnerability
}

// NewAggregator wires the sources. ghsa may be nil, which skips the
// advisory graph entirely rather than erroring.
func NewAggregator(ghsa *GHSAClient, osv *OSVClient) *Aggregator {
	return &Aggregator{
		ghsa:     ghsa,
		osv:      osv,
		fallback: loadFallback(),
	}
}

// FetchVulnerabilities returns the merged advisory list for a package.
// Never errors; an empty list means none were found, which is deliberately
// indistinguishable from "sources unavailable" — both consult the fallback
// table before returning.
func (a *Aggregator) FetchVulnerabilities(ctx context.Context, id core.PackageIdentifier) []core.Vulnerability {
	var lists [][]core.Vulnerability

	if a.ghsa != nil {
		if vulns, ok := a.ghsa.Fetch(ctx, id).Get(); ok {
			lists = append(lists, vulns)
		}
	}
	if a.osv != nil {
		if vulns, ok := a.osv.Fetch(ctx, id).Get(); ok {
			lists = append(lists, vulns)
		}
	}

	merged := Merge(lists...)
	if len(merged) > 0 {
		return merged
	}

	if entries, ok := a.fallback[id.Name]; ok {
		return entries
	}
	return []core.Vulnerability{}
}

// Merge concatenates advisory lists, keeping only the first record seen for
// each advisory ID. Earlier lists win on collision: this is the deliberate
// tie-break, not an accident of iteration order.
func Merge(lists ...[]core.Vulnerability) []core.Vulnerability {
	seen := make(map[string]struct{})
	merged := make([]core.Vulnerability, 0)

	for _, list := range lists {
		for _, v := range list {
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
			merged = append(merged, v)
		}
	}

	return merged
}

// normalizeSeverity prefers an explicit severity tag and otherwise derives
// severity from a numeric score: >=9 critical, >=7 high, >=4 medium, else low.
func normalizeSeverity(tag string, score *float64) core.Severity {
	if tag != "" {
		return normalizeSeverityTag(tag)
	}
	if score != nil {
		return severityFromScore(*score)
	}
	return core.SeverityLow
}

func normalizeSeverityTag(tag string) core.Severity {
	switch strings.ToLower(tag) {
	case "critical":
		return core.SeverityCritical
	case "high":
		return core.SeverityHigh
	case "moderate", "medium":
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}

func severityFromScore(score float64) core.Severity {
	switch {
	case score >= 9:
		return core.SeverityCritical
	case score >= 7:
		return core.SeverityHigh
	case score >= 4:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}
