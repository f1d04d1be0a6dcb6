// Package pypi provides the registry integration for pypi.org.
package pypi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/git-pkgs/trustscore/client"
	"github.com/git-pkgs/trustscore/internal/core"
)

const (
	DefaultURL      = "https://pypi.org"
	DefaultStatsURL = "https://pypistats.org"
)

func init() {
	core.Register(core.EcosystemPython, DefaultURL, func(baseURL string, c *client.Client) core.Source {
		return New(baseURL, c)
	})
}

type Registry struct {
	baseURL  string
	statsURL string
	client   *client.Client
}

func New(baseURL string, c *client.Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Registry{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		statsURL: DefaultStatsURL,
		client:   c,
	}
}

func (r *Registry) Ecosystem() core.Ecosystem {
	return core.EcosystemPython
}

type packageResponse struct {
	Info infoBlock    `json:"info"`
	URLs []uploadFile `json:"urls"`
}

type infoBlock struct {
	Name              string            `json:"name"`
	Summary           string            `json:"summary"`
	HomePage          string            `json:"home_page"`
	Author            string            `json:"author"`
	License           string            `json:"license"`
	LicenseExpression string            `json:"license_expression"`
	Version           string            `json:"version"`
	Classifiers       []string          `json:"classifiers"`
	ProjectURLs       map[string]string `json:"project_urls"`
	RequiresDist      []string          `json:"requires_dist"`
	Yanked            bool              `json:"yanked"`
}

type uploadFile struct {
	UploadTime string `json:"upload_time"`
}

type recentDownloads struct {
	Data struct {
		LastDay   int64 `json:"last_day"`
		LastWeek  int64 `json:"last_week"`
		LastMonth int64 `json:"last_month"`
	} `json:"data"`
}

// FetchMetadata retrieves metadata from the project's JSON description.
// The endpoint publishes a single "info" version, so the current version
// always equals the latest one regardless of the requested version. This
// asymmetry versus npm comes from the upstream API and is preserved.
func (r *Registry) FetchMetadata(ctx context.Context, name, version string) core.Result[core.PackageMetadata] {
	fetchURL := fmt.Sprintf("%s/pypi/%s/json", r.baseURL, name)

	var resp packageResponse
	if !r.client.TryGetJSON(ctx, fetchURL, &resp) {
		return core.Unavailable[core.PackageMetadata]()
	}

	meta := core.PackageMetadata{
		Name:           strings.ToLower(coalesce(resp.Info.Name, name)),
		Description:    resp.Info.Summary,
		License:        extractLicense(resp.Info),
		Author:         resp.Info.Author,
		Homepage:       extractHomepage(resp.Info.ProjectURLs, resp.Info.HomePage),
		Repository:     extractRepoURL(resp.Info.ProjectURLs, resp.Info.HomePage),
		Dependencies:   parseRequiresDist(resp.Info.RequiresDist),
		CurrentVersion: resp.Info.Version,
		LatestVersion:  resp.Info.Version,
		Deprecated:     resp.Info.Yanked,
	}

	if len(resp.URLs) > 0 && resp.URLs[0].UploadTime != "" {
		if t, err := time.Parse("2006-01-02T15:04:05", resp.URLs[0].UploadTime); err == nil {
			meta.LastPublish = t
		}
	}

	return core.Ok(meta)
}

// FetchDownloads retrieves one aggregate payload containing all three
// windows. On failure every window stays absent, not zero.
func (r *Registry) FetchDownloads(ctx context.Context, name string) core.Result[core.DownloadStats] {
	u := fmt.Sprintf("%s/api/packages/%s/recent", r.statsURL, strings.ToLower(name))

	var resp recentDownloads
	if !r.client.TryGetJSON(ctx, u, &resp) {
		return core.Ok(core.DownloadStats{})
	}

	return core.Ok(core.DownloadStats{
		LastDay:   &resp.Data.LastDay,
		LastWeek:  &resp.Data.LastWeek,
		LastMonth: &resp.Data.LastMonth,
	})
}

func extractRepoURL(projectURLs map[string]string, homePage string) string {
	priorityKeys := []string{"Repository", "Source", "Source Code", "Code"}
	for _, key := range priorityKeys {
		if url, ok := projectURLs[key]; ok && url != "" {
			if isRepoURL(url) {
				return url
			}
		}
	}

	for _, url := range projectURLs {
		if isRepoURL(url) && !strings.Contains(url, "github.com/sponsors") {
			return url
		}
	}

	if isRepoURL(homePage) {
		return homePage
	}

	return ""
}

func extractHomepage(projectURLs map[string]string, homePage string) string {
	if homePage != "" {
		return homePage
	}
	if url, ok := projectURLs["Homepage"]; ok {
		return url
	}
	if url, ok := projectURLs["Home"]; ok {
		return url
	}
	return ""
}

func isRepoURL(url string) bool {
	return strings.Contains(url, "github.com") ||
		strings.Contains(url, "gitlab.com") ||
		strings.Contains(url, "bitbucket.org") ||
		strings.Contains(url, "codeberg.org")
}

func extractLicense(info infoBlock) string {
	if info.LicenseExpression != "" {
		return info.LicenseExpression
	}
	if info.License != "" {
		return info.License
	}

	for _, classifier := range info.Classifiers {
		if strings.HasPrefix(classifier, "License :: ") {
			parts := strings.Split(classifier, " :: ")
			if len(parts) > 0 {
				return parts[len(parts)-1]
			}
		}
	}

	return ""
}

// parseRequiresDist maps PEP 508 requirement strings to name -> constraint.
func parseRequiresDist(requires []string) map[string]string {
	if len(requires) == 0 {
		return nil
	}

	deps := make(map[string]string, len(requires))
	for _, req := range requires {
		// Environment markers after ";" mark optional extras; skip them so
		// the dependency count reflects the base install.
		parts := strings.SplitN(req, ";", 2)
		if len(parts) > 1 && strings.Contains(parts[1], "extra") {
			continue
		}

		nameAndVersion := strings.TrimSpace(parts[0])
		name := nameAndVersion
		constraint := "*"

		for i, r := range nameAndVersion {
			if r == ' ' || r == '<' || r == '>' || r == '=' || r == '!' || r == '~' || r == '(' {
				name = nameAndVersion[:i]
				constraint = strings.Trim(strings.TrimSpace(nameAndVersion[i:]), "()")
				break
			}
		}

		if idx := strings.Index(name, "["); idx != -1 {
			name = name[:idx]
		}
		if name == "" {
			continue
		}
		if constraint == "" {
			constraint = "*"
		}
		deps[name] = constraint
	}

	return deps
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
