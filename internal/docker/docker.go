// Package docker provides the registry integration for hub.docker.com.
package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/git-pkgs/trustscore/client"
	"github.com/git-pkgs/trustscore/internal/core"
)

const DefaultURL = "https://hub.docker.com"

func init() {
	core.Register(core.EcosystemDocker, DefaultURL, func(baseURL string, c *client.Client) core.Source {
		return New(baseURL, c)
	})
}

type Registry struct {
	baseURL string
	client  *client.Client
}

func New(baseURL string, c *client.Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  c,
	}
}

func (r *Registry) Ecosystem() core.Ecosystem {
	return core.EcosystemDocker
}

type repositoryResponse struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	Description string `json:"description"`
	StarCount   int64  `json:"star_count"`
	PullCount   int64  `json:"pull_count"`
	LastUpdated string `json:"last_updated"`
	DateCreated string `json:"date_registered"`
	User        string `json:"user"`
}

// qualifyName treats an unqualified image name as an official image.
func qualifyName(name string) string {
	if !strings.Contains(name, "/") {
		return "library/" + name
	}
	return name
}

// FetchMetadata retrieves repository metadata from Docker Hub. Images have
// no dependency concept, so the dependency map is always empty. The
// cumulative pull count is folded into the metadata as downloads.
func (r *Registry) FetchMetadata(ctx context.Context, name, version string) core.Result[core.PackageMetadata] {
	fetchURL := fmt.Sprintf("%s/v2/repositories/%s", r.baseURL, qualifyName(name))

	var resp repositoryResponse
	if !r.client.TryGetJSON(ctx, fetchURL, &resp) {
		return core.Unavailable[core.PackageMetadata]()
	}

	current := version
	if current == "" {
		current = core.LatestVersion
	}

	pulls := resp.PullCount
	meta := core.PackageMetadata{
		Name:           name,
		Description:    resp.Description,
		Author:         resp.User,
		Dependencies:   map[string]string{},
		CurrentVersion: current,
		LatestVersion:  core.LatestVersion,
		Downloads:      &pulls,
	}

	if t, err := time.Parse(time.RFC3339, resp.LastUpdated); err == nil {
		meta.LastPublish = t
	}

	return core.Ok(meta)
}

// FetchDownloads reports Unavailable: Docker Hub has no time-windowed stats,
// only the cumulative pull count carried on the metadata record.
func (r *Registry) FetchDownloads(ctx context.Context, name string) core.Result[core.DownloadStats] {
	return core.Unavailable[core.DownloadStats]()
}
