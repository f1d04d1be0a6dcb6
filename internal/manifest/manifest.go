// Package manifest extracts package identifiers from dependency manifests.
package manifest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/trustscore/internal/core"
)

// Format identifies a supported manifest format.
type Format string

const (
	FormatPackageJSON  Format = "package.json"
	FormatRequirements Format = "requirements.txt"
	FormatDockerfile   Format = "dockerfile"
)

// ParseError reports structurally invalid manifest input. It is a distinct
// error kind so callers can tell bad input apart from transport problems.
type ParseError struct {
	Format Format
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s manifest: %s", e.Format, e.Reason)
}

// Parse extracts package identifiers from raw manifest text.
func Parse(data []byte, format Format) ([]core.PackageIdentifier, error) {
	switch format {
	case FormatPackageJSON:
		return parsePackageJSON(data)
	case FormatRequirements:
		return parseRequirements(data), nil
	case FormatDockerfile:
		return parseDockerfile(data), nil
	default:
		return nil, fmt.Errorf("unknown manifest format: %s", format)
	}
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(data []byte) ([]core.PackageIdentifier, error) {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, &ParseError{Format: FormatPackageJSON, Reason: err.Error()}
	}

	ids := make([]core.PackageIdentifier, 0, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for _, deps := range []map[string]string{pkg.Dependencies, pkg.DevDependencies} {
		for name, constraint := range deps {
			ids = append(ids, core.PackageIdentifier{
				Name:      name,
				Version:   cleanNpmVersion(constraint),
				Ecosystem: core.EcosystemNPM,
			})
		}
	}
	return ids, nil
}

// cleanNpmVersion reduces a semver range to a concrete version where one is
// pinned, and to the latest sentinel otherwise.
func cleanNpmVersion(constraint string) string {
	v := strings.TrimSpace(constraint)
	v = strings.TrimLeft(v, "^~=v")
	v = strings.TrimPrefix(v, ">")
	v = strings.TrimPrefix(v, "=")
	if idx := strings.IndexAny(v, " |<"); idx >= 0 {
		v = v[:idx]
	}
	v = strings.TrimSpace(v)
	if v == "" || v == "*" || v == "x" || v == "latest" {
		return core.LatestVersion
	}
	return v
}

func parseRequirements(data []byte) []core.PackageIdentifier {
	var ids []core.PackageIdentifier

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		// Drop environment markers and inline comments
		if idx := strings.IndexAny(line, ";#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		name := line
		version := core.LatestVersion
		if idx := strings.Index(line, "=="); idx >= 0 {
			name = strings.TrimSpace(line[:idx])
			version = strings.TrimSpace(line[idx+2:])
		} else if idx := strings.IndexAny(line, "<>~!"); idx >= 0 {
			// Ranged constraints resolve to the current release
			name = strings.TrimSpace(line[:idx])
		}

		if idx := strings.Index(name, "["); idx >= 0 {
			name = name[:idx]
		}
		if name == "" {
			continue
		}

		ids = append(ids, core.PackageIdentifier{
			Name:      strings.ToLower(name),
			Version:   version,
			Ecosystem: core.EcosystemPython,
		})
	}

	return ids
}

var fromPattern = regexp.MustCompile(`(?i)^\s*FROM\s+(?:--platform=\S+\s+)?(\S+)(?:\s+AS\s+(\S+))?`)

func parseDockerfile(data []byte) []core.PackageIdentifier {
	var ids []core.PackageIdentifier
	aliases := make(map[string]struct{})

	for _, line := range strings.Split(string(data), "\n") {
		m := fromPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		image := m[1]
		if m[2] != "" {
			aliases[strings.ToLower(m[2])] = struct{}{}
		}
		// Skip multi-stage references to earlier build stages and scratch
		if _, isAlias := aliases[strings.ToLower(image)]; isAlias || image == "scratch" {
			continue
		}

		name, version := splitImageRef(image)
		ids = append(ids, core.PackageIdentifier{
			Name:      name,
			Version:   version,
			Ecosystem: core.EcosystemDocker,
		})
	}

	return ids
}

// splitImageRef separates an image reference into name and tag.
// A digest pins the image but is not a tag; it resolves to latest.
func splitImageRef(ref string) (name, version string) {
	if idx := strings.Index(ref, "@"); idx >= 0 {
		ref = ref[:idx]
	}

	name, version = ref, core.LatestVersion
	if idx := strings.LastIndex(ref, ":"); idx >= 0 && !strings.Contains(ref[idx:], "/") {
		name, version = ref[:idx], ref[idx+1:]
	}
	return name, version
}
