// Package scan orchestrates the per-package analysis pipeline.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/git-pkgs/trustscore/client"
	"github.com/git-pkgs/trustscore/internal/advisory"
	"github.com/git-pkgs/trustscore/internal/core"
	"github.com/git-pkgs/trustscore/internal/score"
)

// ErrorDescription marks a degraded analysis produced by a failed pipeline.
const ErrorDescription = "error during analysis"

// placeholderDescription is the deterministic fallback when neither the
// describer nor the registry provided one.
const placeholderDescription = "No description available."

// RepoStats fetches an activity snapshot for a repository URL.
// A nil result means no stats are available, which is not an error.
type RepoStats interface {
	Fetch(ctx context.Context, repoURL string) *core.RepositoryStats
}

// Advisories returns the merged vulnerability list for a package.
type Advisories interface {
	FetchVulnerabilities(ctx context.Context, id core.PackageIdentifier) []core.Vulnerability
}

// Orchestrator runs the analysis pipeline: metadata, repository stats,
// downloads, vulnerabilities, score. Packages are processed sequentially in
// input order; fetches within one package may run concurrently. One
// package's failure never affects its siblings.
type Orchestrator struct {
	client     *client.Client
	advisories Advisories
	repos      RepoStats
	describer  core.Describer
	logger     *slog.Logger
	now        func() time.Time
	newSource  func(core.Ecosystem) (core.Source, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClient sets the HTTP client injected into ecosystem sources.
func WithClient(c *client.Client) Option {
	return func(o *Orchestrator) {
		o.client = c
	}
}

// WithAdvisories sets the vulnerability aggregator.
func WithAdvisories(a Advisories) Option {
	return func(o *Orchestrator) {
		o.advisories = a
	}
}

// WithRepoStats sets the repository stats fetcher. Nil disables repo stats.
func WithRepoStats(r RepoStats) Option {
	return func(o *Orchestrator) {
		o.repos = r
	}
}

// WithDescriber sets the optional description generator.
func WithDescriber(d core.Describer) Option {
	return func(o *Orchestrator) {
		o.describer = d
	}
}

// WithLogger sets the logger for degraded-package reporting.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithNow fixes the clock used for scoring recency.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an orchestrator. Without options it uses the default client
// and the vulnerability database source alone.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		o.client = client.DefaultClient()
	}
	if o.advisories == nil {
		o.advisories = advisory.NewAggregator(nil, advisory.NewOSVClient(o.client))
	}
	if o.newSource == nil {
		o.newSource = func(eco core.Ecosystem) (core.Source, error) {
			return core.New(eco, "", o.client)
		}
	}
	return o
}

// Scan analyzes each identifier and returns one analysis per input, in
// input order. Never errors: individual failures degrade to zeroed records.
func (o *Orchestrator) Scan(ctx context.Context, ids []core.PackageIdentifier) []core.PackageAnalysis {
	analyses := make([]core.PackageAnalysis, 0, len(ids))
	for _, id := range ids {
		analyses = append(analyses, o.analyze(ctx, id))
	}
	return analyses
}

func (o *Orchestrator) analyze(ctx context.Context, id core.PackageIdentifier) (analysis core.PackageAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("package analysis failed",
				"package", id.Name,
				"ecosystem", id.Ecosystem,
				"error", fmt.Sprint(r))
			analysis = degraded(id)
		}
	}()

	src, err := o.newSource(id.Ecosystem)
	if err != nil {
		o.logger.Warn("package analysis failed",
			"package", id.Name,
			"ecosystem", id.Ecosystem,
			"error", err)
		return degraded(id)
	}

	meta, ok := src.FetchMetadata(ctx, id.Name, id.Version).Get()
	if !ok {
		o.logger.Warn("registry unavailable",
			"package", id.Name,
			"ecosystem", id.Ecosystem)
		return degraded(id)
	}

	var repoStats *core.RepositoryStats
	if o.repos != nil && meta.Repository != "" {
		repoStats = o.repos.Fetch(ctx, meta.Repository)
	}

	var downloads *core.DownloadStats
	if stats, ok := src.FetchDownloads(ctx, id.Name).Get(); ok {
		downloads = &stats
	}

	vulns := o.advisories.FetchVulnerabilities(ctx, id)

	trust, breakdown := score.Calculate(score.Input{
		Vulnerabilities: vulns,
		Metadata:        meta,
		DependencyCount: len(meta.Dependencies),
		RepoStats:       repoStats,
		Downloads:       downloads,
		Now:             o.now(),
	})

	return core.PackageAnalysis{
		Package:         id,
		Vulnerabilities: vulns,
		TrustScore:      trust,
		Breakdown:       breakdown,
		Metadata:        meta,
		RepoStats:       repoStats,
		Downloads:       downloads,
		Description:     o.describe(id, meta, repoStats),
	}
}

// describe asks the describer when one is configured and falls back to the
// registry description, then a constant placeholder.
func (o *Orchestrator) describe(id core.PackageIdentifier, meta core.PackageMetadata, repo *core.RepositoryStats) string {
	if o.describer != nil {
		if text, err := o.describer.Describe(id.Name, id.Ecosystem, meta, repo); err == nil && text != "" {
			return text
		}
	}
	if meta.Description != "" {
		return meta.Description
	}
	return placeholderDescription
}

// degraded produces the well-formed record for a failed package: zeroed
// score, empty vulnerability list, error-marker description.
func degraded(id core.PackageIdentifier) core.PackageAnalysis {
	return core.PackageAnalysis{
		Package:         id,
		Vulnerabilities: []core.Vulnerability{},
		Description:     ErrorDescription,
	}
}
