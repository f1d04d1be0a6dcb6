package advisory

import (
	"context"
	"strconv"

	"github.com/git-pkgs/trustscore/client"
	"github.com/git-pkgs/trustscore/internal/core"
)

const DefaultOSVURL = "https://api.osv.dev"

// osvEcosystems maps supported ecosystems to OSV ecosystem names.
var osvEcosystems = map[core.Ecosystem]string{
	core.EcosystemNPM:    "npm",
	core.EcosystemPython: "PyPI",
	core.EcosystemDocker: "Docker",
}

// OSVClient performs point queries against a vulnerability database by
// exact package, ecosystem and version.
type OSVClient struct {
	client *client.Client
	url    string
}

func NewOSVClient(c *client.Client) *OSVClient {
	if c == nil {
		c = client.DefaultClient()
	}
	return &OSVClient{client: c, url: DefaultOSVURL}
}

type osvQuery struct {
	Package osvPackage `json:"package"`
	Version string     `json:"version,omitempty"`
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type osvResponse struct {
	Vulns []osvVuln `json:"vulns"`
}

type osvVuln struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	Details    string `json:"details"`
	References []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"references"`
	Severity []struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	} `json:"severity"`
	DatabaseSpecific struct {
		Severity string   `json:"severity"`
		CWEIDs   []string `json:"cwe_ids"`
	} `json:"database_specific"`
	Affected []struct {
		Ranges []struct {
			Type   string `json:"type"`
			Events []struct {
				Introduced string `json:"introduced"`
				Fixed      string `json:"fixed"`
			} `json:"events"`
		} `json:"ranges"`
	} `json:"affected"`
}

// Fetch queries the database for the exact package and version. A version
// of "latest" queries without a version pin, matching all known advisories
// for the package.
func (o *OSVClient) Fetch(ctx context.Context, id core.PackageIdentifier) core.Result[[]core.Vulnerability] {
	ecosystem, ok := osvEcosystems[id.Ecosystem]
	if !ok {
		return core.Ok[[]core.Vulnerability](nil)
	}

	query := osvQuery{
		Package: osvPackage{Name: id.Name, Ecosystem: ecosystem},
	}
	if id.Version != "" && id.Version != core.LatestVersion {
		query.Version = id.Version
	}

	var resp osvResponse
	if err := o.client.PostJSON(ctx, o.url+"/v1/query", query, &resp); err != nil {
		return core.Unavailable[[]core.Vulnerability]()
	}

	vulns := make([]core.Vulnerability, 0, len(resp.Vulns))
	for _, raw := range resp.Vulns {
		v := core.Vulnerability{
			ID:          raw.ID,
			Title:       raw.Summary,
			Description: raw.Details,
			CWE:         raw.DatabaseSpecific.CWEIDs,
			FixedIn:     firstFixedVersion(raw),
		}

		// The severity score is often a CVSS vector string rather than a
		// number; vectors do not parse here and leave CVSS unset, so
		// classification then rests on database_specific.severity (or low
		// when that is absent too).
		var score *float64
		for _, s := range raw.Severity {
			if n, err := strconv.ParseFloat(s.Score, 64); err == nil {
				score = &n
				break
			}
		}
		v.CVSS = score
		v.Severity = normalizeSeverity(raw.DatabaseSpecific.Severity, score)

		for _, ref := range raw.References {
			v.References = append(v.References, ref.URL)
		}

		vulns = append(vulns, v)
	}

	return core.Ok(vulns)
}

func firstFixedVersion(raw osvVuln) string {
	for _, affected := range raw.Affected {
		for _, rng := range affected.Ranges {
			for _, event := range rng.Events {
				if event.Fixed != "" {
					return event.Fixed
				}
			}
		}
	}
	return ""
}
