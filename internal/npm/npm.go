// Package npm provides the registry integration for npmjs.com.
package npm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/trustscore/client"
	"github.com/git-pkgs/trustscore/internal/core"
)

const (
	DefaultURL      = "https://registry.npmjs.org"
	DefaultStatsURL = "https://api.npmjs.org"
	bundleSizeURL   = "https://bundlephobia.com/api/size"
)

func init() {
	core.Register(core.EcosystemNPM, DefaultURL, func(baseURL string, c *client.Client) core.Source {
		return New(baseURL, c)
	})
}

type Registry struct {
	baseURL   string
	statsURL  string
	bundleURL string
	client    *client.Client
	enrich    *client.Client
}

func New(baseURL string, c *client.Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Registry{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		statsURL:  DefaultStatsURL,
		bundleURL: bundleSizeURL,
		client:    c,
		// Bundle-size lookup is optional enrichment: one retry, short timeout.
		enrich: client.NewClient(
			client.WithMaxRetries(1),
			client.WithTimeout(3*time.Second),
			client.WithBaseDelay(100*time.Millisecond),
		),
	}
}

func (r *Registry) Ecosystem() core.Ecosystem {
	return core.EcosystemNPM
}

type packageResponse struct {
	ID          string                 `json:"_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Homepage    interface{}            `json:"homepage"`
	Repository  interface{}            `json:"repository"`
	Author      interface{}            `json:"author"`
	Versions    map[string]versionInfo `json:"versions"`
	Time        map[string]string      `json:"time"`
	Maintainers []maintainerInfo       `json:"maintainers"`
	DistTags    map[string]string      `json:"dist-tags"`
}

type versionInfo struct {
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	License      interface{}       `json:"license"`
	Homepage     interface{}       `json:"homepage"`
	Repository   interface{}       `json:"repository"`
	Dependencies map[string]string `json:"dependencies"`
	Deprecated   string            `json:"deprecated"`
	Scripts      map[string]string `json:"scripts"`
}

type maintainerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type bundleResponse struct {
	Size     int64 `json:"size"`
	GzipSize int64 `json:"gzip"`
}

type downloadPoint struct {
	Downloads int64  `json:"downloads"`
	Package   string `json:"package"`
}

// FetchMetadata retrieves metadata for a package version. The latest version
// is resolved from the registry's dist-tag; when the requested version's
// sub-record is absent, the latest version's sub-record supplies per-version
// fields like license and dependencies.
func (r *Registry) FetchMetadata(ctx context.Context, name, version string) core.Result[core.PackageMetadata] {
	fetchURL := fmt.Sprintf("%s/%s", r.baseURL, url.PathEscape(name))

	var resp packageResponse
	if !r.client.TryGetJSON(ctx, fetchURL, &resp) {
		return core.Unavailable[core.PackageMetadata]()
	}

	latestVersion := resp.DistTags["latest"]

	resolved := version
	if resolved == "" || resolved == core.LatestVersion {
		resolved = latestVersion
	}
	sub, ok := resp.Versions[resolved]
	if !ok {
		sub = resp.Versions[latestVersion]
	}

	meta := core.PackageMetadata{
		Name:           coalesce(resp.Name, resp.ID, name),
		Description:    coalesce(sub.Description, resp.Description),
		License:        extractLicense(sub.License),
		Author:         extractAuthor(resp.Author),
		Homepage:       extractString(resp.Homepage, sub.Homepage),
		Repository:     extractRepoURL(resp.Repository, sub.Repository),
		Dependencies:   sub.Dependencies,
		CurrentVersion: resolved,
		LatestVersion:  latestVersion,
		Deprecated:     sub.Deprecated != "",
		Maintainers:    len(resp.Maintainers),
		HasTests:       sub.Scripts["test"] != "",
	}

	if ts, ok := resp.Time[latestVersion]; ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			meta.LastPublish = t
		}
	}

	// Enrichment failure leaves the field absent, nothing else.
	if size := r.fetchBundleSize(ctx, name, resolved); size > 0 {
		meta.BundleSize = &size
	}

	return core.Ok(meta)
}

func (r *Registry) fetchBundleSize(ctx context.Context, name, version string) int64 {
	u := fmt.Sprintf("%s?package=%s", r.bundleURL, url.QueryEscape(name+"@"+version))
	var resp bundleResponse
	if !r.enrich.TryGetJSON(ctx, u, &resp) {
		return 0
	}
	return resp.Size
}

// FetchDownloads retrieves day/week/month counts as three concurrent calls.
// An individual window's failure yields 0 for that window without blocking
// the other two.
func (r *Registry) FetchDownloads(ctx context.Context, name string) core.Result[core.DownloadStats] {
	windows := []string{"last-day", "last-week", "last-month"}
	counts := make([]int64, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	for i, window := range windows {
		g.Go(func() error {
			u := fmt.Sprintf("%s/downloads/point/%s/%s", r.statsURL, window, url.PathEscape(name))
			var point downloadPoint
			if r.client.TryGetJSON(gctx, u, &point) {
				counts[i] = point.Downloads
			}
			return nil
		})
	}
	_ = g.Wait()

	return core.Ok(core.DownloadStats{
		LastDay:   &counts[0],
		LastWeek:  &counts[1],
		LastMonth: &counts[2],
	})
}

func extractString(values ...interface{}) string {
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
		if arr, ok := v.([]interface{}); ok && len(arr) > 0 {
			if s, ok := arr[0].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func extractAuthor(v interface{}) string {
	switch a := v.(type) {
	case string:
		return a
	case map[string]interface{}:
		if name, ok := a["name"].(string); ok {
			return name
		}
	}
	return ""
}

func extractRepoURL(pkgRepo, versionRepo interface{}) string {
	for _, repo := range []interface{}{versionRepo, pkgRepo} {
		switch r := repo.(type) {
		case string:
			return normalizeGitURL(r)
		case map[string]interface{}:
			if url, ok := r["url"].(string); ok {
				return normalizeGitURL(url)
			}
		}
	}
	return ""
}

// normalizeGitURL strips VCS-scheme prefixes and the .git suffix so that
// downstream URL matching works regardless of source formatting.
func normalizeGitURL(u string) string {
	u = strings.TrimPrefix(u, "git+")
	u = strings.TrimPrefix(u, "git://")
	u = strings.TrimSuffix(u, ".git")
	if strings.HasPrefix(u, "github.com/") {
		u = "https://" + u
	}
	return u
}

func extractLicense(v interface{}) string {
	switch l := v.(type) {
	case string:
		return l
	case map[string]interface{}:
		if t, ok := l["type"].(string); ok {
			return t
		}
	case []interface{}:
		var licenses []string
		for _, item := range l {
			switch li := item.(type) {
			case string:
				licenses = append(licenses, li)
			case map[string]interface{}:
				if t, ok := li["type"].(string); ok {
					licenses = append(licenses, t)
				}
			}
		}
		return strings.Join(licenses, ",")
	}
	return ""
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
