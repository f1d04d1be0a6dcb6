package score

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/trustscore/internal/core"
)

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func int64p(v int64) *int64 { return &v }

func TestCalculateStalePackage(t *testing.T) {
	// Clean but abandoned: no advisories, no repo, no downloads, published
	// 800 days ago.
	composite, breakdown := Calculate(Input{
		Metadata: core.PackageMetadata{LastPublish: daysAgo(800)},
		Now:      testNow,
	})

	assert.Equal(t, 70, composite)
	assert.Equal(t, 100, breakdown.Security)
	assert.Equal(t, 40, breakdown.Maintenance)
	assert.Equal(t, 25, breakdown.Popularity)
	assert.Equal(t, 100, breakdown.Dependencies)
}

func TestCalculateSecurityPenalties(t *testing.T) {
	tests := []struct {
		name     string
		vulns    []core.Vulnerability
		raw      int
		security int
	}{
		{"no advisories", nil, 40, 100},
		{"one critical", vulns(core.SeverityCritical), 25, 63},
		{"one high", vulns(core.SeverityHigh), 30, 75},
		{"one medium", vulns(core.SeverityMedium), 35, 88},
		{"low ignored", vulns(core.SeverityLow), 40, 100},
		{
			"two critical one medium",
			vulns(core.SeverityCritical, core.SeverityCritical, core.SeverityMedium),
			5, 13,
		},
		{
			"floor at zero",
			vulns(core.SeverityCritical, core.SeverityCritical, core.SeverityCritical),
			0, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.raw, securityScore(tt.vulns))

			_, breakdown := Calculate(Input{Vulnerabilities: tt.vulns, Now: testNow})
			assert.Equal(t, tt.security, breakdown.Security)
		})
	}
}

func TestMaintenanceScore(t *testing.T) {
	recentCommit := &core.RepositoryStats{LastCommit: daysAgo(10)}

	tests := []struct {
		name string
		meta core.PackageMetadata
		repo *core.RepositoryStats
		want int
	}{
		{"fresh publish", core.PackageMetadata{LastPublish: daysAgo(7)}, nil, 25},
		{"six months stale", core.PackageMetadata{LastPublish: daysAgo(200)}, nil, 20},
		{"a year stale", core.PackageMetadata{LastPublish: daysAgo(400)}, nil, 15},
		{"two years stale", core.PackageMetadata{LastPublish: daysAgo(800)}, nil, 10},
		{"unknown publish date is no signal", core.PackageMetadata{}, nil, 25},
		{"recent commit bonus clamps at max", core.PackageMetadata{LastPublish: daysAgo(7)}, recentCommit, 25},
		{"recent commit offsets staleness", core.PackageMetadata{LastPublish: daysAgo(400)}, recentCommit, 20},
		{"old commit is no bonus", core.PackageMetadata{LastPublish: daysAgo(400)}, &core.RepositoryStats{LastCommit: daysAgo(90)}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maintenanceScore(tt.meta, tt.repo, testNow))
		})
	}
}

func TestPopularityScore(t *testing.T) {
	tests := []struct {
		name      string
		stars     int
		downloads *core.DownloadStats
		want      int
	}{
		{"nothing known keeps the base", 0, nil, 5},
		{"stars brackets are exclusive", 15000, nil, 13},
		{"mid stars", 500, nil, 11},
		{"huge downloads", 0, &core.DownloadStats{LastMonth: int64p(5_000_000)}, 12},
		{"both maxed clamps to dimension max", 15000, &core.DownloadStats{LastMonth: int64p(5_000_000)}, 20},
		{"absent month window is no signal", 0, &core.DownloadStats{LastDay: int64p(1_000_000)}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var repo *core.RepositoryStats
			if tt.stars > 0 {
				repo = &core.RepositoryStats{Stars: tt.stars}
			}
			assert.Equal(t, tt.want, popularityScore(repo, tt.downloads))
		})
	}
}

func TestDependenciesScore(t *testing.T) {
	tests := []struct {
		count int
		raw   int
		pct   int
	}{
		{0, 15, 100},
		{20, 15, 100},
		{21, 12, 80},
		{50, 12, 80},
		{60, 10, 67},
		{101, 5, 33},
	}

	for _, tt := range tests {
		require.Equal(t, tt.raw, dependenciesScore(tt.count), "count=%d", tt.count)

		_, breakdown := Calculate(Input{DependencyCount: tt.count, Now: testNow})
		assert.Equal(t, tt.pct, breakdown.Dependencies, "count=%d", tt.count)
	}
}

func TestCalculateDeterministic(t *testing.T) {
	in := Input{
		Vulnerabilities: vulns(core.SeverityHigh, core.SeverityMedium),
		Metadata:        core.PackageMetadata{LastPublish: daysAgo(400)},
		DependencyCount: 30,
		RepoStats:       &core.RepositoryStats{Stars: 2000, LastCommit: daysAgo(5)},
		Downloads:       &core.DownloadStats{LastMonth: int64p(250_000)},
		Now:             testNow,
	}

	first, firstBreakdown := Calculate(in)
	for i := 0; i < 10; i++ {
		composite, breakdown := Calculate(in)
		require.Equal(t, first, composite)
		require.Equal(t, firstBreakdown, breakdown)
	}
}

func TestCalculateBounds(t *testing.T) {
	// Worst case across every dimension still stays within range.
	composite, _ := Calculate(Input{
		Vulnerabilities: vulns(
			core.SeverityCritical, core.SeverityCritical, core.SeverityCritical,
			core.SeverityCritical, core.SeverityCritical,
		),
		Metadata:        core.PackageMetadata{LastPublish: daysAgo(3000)},
		DependencyCount: 500,
		Now:             testNow,
	})
	assert.GreaterOrEqual(t, composite, 0)
	assert.LessOrEqual(t, composite, 100)

	// Best case.
	composite, _ = Calculate(Input{
		Metadata:        core.PackageMetadata{LastPublish: daysAgo(1)},
		RepoStats:       &core.RepositoryStats{Stars: 50000, LastCommit: daysAgo(1)},
		Downloads:       &core.DownloadStats{LastMonth: int64p(10_000_000)},
		DependencyCount: 3,
		Now:             testNow,
	})
	assert.Equal(t, 100, composite)
}

func TestCalculateMoreVulnsNeverScoresHigher(t *testing.T) {
	base := Input{
		Metadata: core.PackageMetadata{LastPublish: daysAgo(30)},
		Now:      testNow,
	}

	prev := 101
	severities := []core.Severity{}
	for i := 0; i < 6; i++ {
		in := base
		in.Vulnerabilities = vulns(severities...)
		composite, _ := Calculate(in)
		require.LessOrEqual(t, composite, prev, "adding advisories must not raise the score")
		prev = composite
		severities = append(severities, core.SeverityHigh)
	}
}

func vulns(severities ...core.Severity) []core.Vulnerability {
	out := make([]core.Vulnerability, len(severities))
	for i, s := range severities {
		out[i] = core.Vulnerability{ID: fmt.Sprintf("ADV-%d", i), Severity: s}
	}
	return out
}
