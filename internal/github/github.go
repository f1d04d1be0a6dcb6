// Package github fetches repository activity stats for scored packages.
package github

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	gh "github.com/google/go-github/v60/github"
	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/trustscore/fetch"
	"github.com/git-pkgs/trustscore/internal/core"
)

// defaultStatsTimeout bounds one full stats fetch (summary plus aux counts).
const defaultStatsTimeout = 10 * time.Second

// repoURLPattern matches github.com repository URLs in the assorted formats
// registries hand back (https, ssh-ish, bare host prefix).
var repoURLPattern = regexp.MustCompile(`github\.com[/:]([^/\s]+)/([^/\s#?]+)`)

// StatsFetcher retrieves activity snapshots for GitHub-hosted repositories.
type StatsFetcher struct {
	gh      *gh.Client
	timeout time.Duration
}

// NewStatsFetcher creates a fetcher. A nil httpClient gets the shared
// cached-DNS transport. An empty token means unauthenticated requests,
// which works but is rate limited harder.
func NewStatsFetcher(httpClient *http.Client, token string) *StatsFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Transport: fetch.NewTransport()}
	}
	c := gh.NewClient(httpClient)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	return &StatsFetcher{gh: c, timeout: defaultStatsTimeout}
}

// NewStatsFetcherWithClient wraps an already configured go-github client.
func NewStatsFetcherWithClient(c *gh.Client) *StatsFetcher {
	return &StatsFetcher{gh: c, timeout: defaultStatsTimeout}
}

// ParseRepoURL extracts owner and repo from a repository URL of arbitrary
// format. ok is false when the URL is not a GitHub repository, which is a
// normal "no stats available" outcome.
func ParseRepoURL(repoURL string) (owner, repo string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(repoURL)
	if m == nil {
		return "", "", false
	}
	repo = strings.TrimSuffix(m[2], ".git")
	if m[1] == "" || repo == "" {
		return "", "", false
	}
	return m[1], repo, true
}

// Fetch retrieves the repo summary plus contributor and pull request counts.
// Returns nil when the URL is not a GitHub repository or the summary fetch
// fails; the auxiliary counts are each independently best-effort and fall
// back to 0 on failure.
func (f *StatsFetcher) Fetch(ctx context.Context, repoURL string) *core.RepositoryStats {
	owner, repo, ok := ParseRepoURL(repoURL)
	if !ok {
		return nil
	}

	// The injected HTTP client may carry no timeout of its own; a hung
	// connection must not stall the scan, so the whole fetch is bounded here.
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	summary, _, err := f.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil
	}

	stats := &core.RepositoryStats{
		Stars:         summary.GetStargazersCount(),
		Forks:         summary.GetForksCount(),
		Watchers:      summary.GetSubscribersCount(),
		OpenIssues:    summary.GetOpenIssuesCount(),
		LastCommit:    summary.GetPushedAt().Time,
		CreatedAt:     summary.GetCreatedAt().Time,
		DefaultBranch: summary.GetDefaultBranch(),
		Language:      summary.GetLanguage(),
		Topics:        summary.Topics,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats.Contributors = f.countContributors(gctx, owner, repo)
		return nil
	})
	g.Go(func() error {
		stats.PullRequests = f.countPullRequests(gctx, owner, repo)
		return nil
	})
	_ = g.Wait()

	return stats
}

// countContributors reads the total from the pagination metadata of a
// one-item page. Without a Link header it falls back to the page length,
// which undercounts when more than one page exists. Known approximation.
func (f *StatsFetcher) countContributors(ctx context.Context, owner, repo string) int {
	opts := &gh.ListContributorsOptions{
		ListOptions: gh.ListOptions{PerPage: 1},
	}
	contributors, resp, err := f.gh.Repositories.ListContributors(ctx, owner, repo, opts)
	if err != nil {
		return 0
	}
	if resp.LastPage > 0 {
		return resp.LastPage
	}
	return len(contributors)
}

// countPullRequests uses the same last-page trick over all-state PRs.
func (f *StatsFetcher) countPullRequests(ctx context.Context, owner, repo string) int {
	opts := &gh.PullRequestListOptions{
		State:       "all",
		ListOptions: gh.ListOptions{PerPage: 1},
	}
	pulls, resp, err := f.gh.PullRequests.List(ctx, owner, repo, opts)
	if err != nil {
		return 0
	}
	if resp.LastPage > 0 {
		return resp.LastPage
	}
	return len(pulls)
}
