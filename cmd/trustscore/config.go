package main

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type config struct {
	Manifest    string `yaml:"manifest"`
	Output      string `yaml:"output"`
	MinScore    int    `yaml:"minScore"`
	GitHubToken string `yaml:"-"`
	Verbose     bool   `yaml:"-"`
}

func defaultConfig() *config {
	return &config{
		Output: "table",
	}
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags lets command-line flags override config file values.
func mergeFlags(cfg *config, flags *pflag.FlagSet) *config {
	if v, err := flags.GetString("manifest"); err == nil && v != "" {
		cfg.Manifest = v
	}
	if v, err := flags.GetString("output"); err == nil && v != "" {
		cfg.Output = v
	}
	if v, err := flags.GetInt("min-score"); err == nil && v > 0 {
		cfg.MinScore = v
	}
	if v, err := flags.GetString("github-token"); err == nil && v != "" {
		cfg.GitHubToken = v
	}
	if v, err := flags.GetBool("verbose"); err == nil {
		cfg.Verbose = v
	}
	return cfg
}
