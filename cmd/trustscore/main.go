package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/trustscore"
	_ "github.com/git-pkgs/trustscore/all"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "trustscore [purl...]",
		Short:   "Score the trustworthiness of package dependencies",
		Long:    `Aggregates registry metadata, repository activity and known vulnerabilities for npm, PyPI and Docker Hub packages, and derives a 0-100 trust score per package.`,
		Version: fmt.Sprintf("%s (%s)", version, commit),
		RunE:    run,
	}

	rootCmd.Flags().String("manifest", "", "Path to a manifest (package.json, requirements.txt, Dockerfile)")
	rootCmd.Flags().String("output", "table", "Output format: json | table")
	rootCmd.Flags().String("config", ".trustscore.yml", "Path to config file")
	rootCmd.Flags().String("github-token", os.Getenv("GITHUB_TOKEN"), "GitHub token for repo stats and the advisory graph")
	rootCmd.Flags().Int("min-score", 0, "Exit non-zero when any package scores below this")
	rootCmd.Flags().Bool("verbose", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: could not load config file: %v (using defaults)\n", err)
		}
		cfg = defaultConfig()
	}
	cfg = mergeFlags(cfg, cmd.Flags())

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ids, err := collectPackages(cfg, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("nothing to scan: pass purls (pkg:npm/lodash@4.17.21) or --manifest")
	}

	scanner := trustscore.NewScanner(buildOptions(cfg, logger)...)
	analyses := scanner.Scan(context.Background(), ids)

	if err := report(os.Stdout, analyses, cfg.Output); err != nil {
		return err
	}

	if cfg.MinScore > 0 {
		for _, a := range analyses {
			if a.TrustScore < cfg.MinScore {
				return fmt.Errorf("%s scored %d, below the minimum %d",
					a.Package.Name, a.TrustScore, cfg.MinScore)
			}
		}
	}
	return nil
}

func buildOptions(cfg *config, logger *slog.Logger) []trustscore.ScanOption {
	opts := []trustscore.ScanOption{trustscore.WithLogger(logger)}

	client := trustscore.DefaultClient()
	opts = append(opts, trustscore.WithClient(client))

	if cfg.GitHubToken != "" {
		opts = append(opts,
			trustscore.WithRepoStats(trustscore.NewRepoStatsFetcher(nil, cfg.GitHubToken)),
			trustscore.WithAdvisories(trustscore.NewAggregator(
				trustscore.NewGHSAClient(cfg.GitHubToken),
				trustscore.NewOSVClient(client),
			)),
		)
	} else {
		opts = append(opts, trustscore.WithRepoStats(trustscore.NewRepoStatsFetcher(nil, "")))
	}

	return opts
}

func collectPackages(cfg *config, args []string) ([]trustscore.PackageIdentifier, error) {
	var ids []trustscore.PackageIdentifier

	for _, arg := range args {
		id, err := trustscore.IdentifierFromPURL(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if cfg.Manifest != "" {
		data, err := os.ReadFile(cfg.Manifest)
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		parsed, err := trustscore.ParseManifest(data, detectFormat(cfg.Manifest))
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed...)
	}

	return ids, nil
}

func detectFormat(path string) trustscore.ManifestFormat {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case base == "package.json":
		return trustscore.FormatPackageJSON
	case strings.HasSuffix(base, ".txt"):
		return trustscore.FormatRequirements
	default:
		return trustscore.FormatDockerfile
	}
}
