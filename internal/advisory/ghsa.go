// Package advisory aggregates vulnerability records from independent
// sources into one normalized, deduplicated list per package.
package advisory

import (
	"context"
	"time"

	"github.com/git-pkgs/trustscore/client"
	"github.com/git-pkgs/trustscore/internal/core"
)

const DefaultGraphQLURL = "https://api.github.com/graphql"

// ghsaEcosystems maps supported ecosystems to the advisory graph's enum.
// Container images are not covered and are skipped entirely.
var ghsaEcosystems = map[core.Ecosystem]string{
	core.EcosystemNPM:    "NPM",
	core.EcosystemPython: "PIP",
}

const ghsaQuery = `query($ecosystem: SecurityAdvisoryEcosystem!, $package: String!) {
  securityVulnerabilities(ecosystem: $ecosystem, package: $package, first: 10) {
    nodes {
      advisory {
        ghsaId
        summary
        description
        severity
        cvss { score }
        cwes(first: 5) { nodes { cweId } }
        references { url }
      }
      firstPatchedVersion { identifier }
    }
  }
}`

// GHSAClient queries the GitHub security advisory graph. It is only
// constructed when a token is available; without one the source is skipped.
type GHSAClient struct {
	client *client.Client
	url    string
}

// NewGHSAClient builds a client authenticated with the given token.
func NewGHSAClient(token string) *GHSAClient {
	return &GHSAClient{
		client: client.NewClient(
			client.WithTimeout(10*time.Second),
			client.WithAuthFunc(func(string) (string, string) {
				return "Authorization", "Bearer " + token
			}),
		),
		url: DefaultGraphQLURL,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		SecurityVulnerabilities struct {
			Nodes []ghsaNode `json:"nodes"`
		} `json:"securityVulnerabilities"`
	} `json:"data"`
}

type ghsaNode struct {
	Advisory struct {
		GHSAID      string `json:"ghsaId"`
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
		CVSS        struct {
			Score float64 `json:"score"`
		} `json:"cvss"`
		CWEs struct {
			Nodes []struct {
				CWEID string `json:"cweId"`
			} `json:"nodes"`
		} `json:"cwes"`
		References []struct {
			URL string `json:"url"`
		} `json:"references"`
	} `json:"advisory"`
	FirstPatchedVersion struct {
		Identifier string `json:"identifier"`
	} `json:"firstPatchedVersion"`
}

// Fetch queries the advisory graph for the package. Uncovered ecosystems
// yield an empty Ok result; transport failures yield Unavailable.
func (g *GHSAClient) Fetch(ctx context.Context, id core.PackageIdentifier) core.Result[[]core.Vulnerability] {
	ecosystem, ok := ghsaEcosystems[id.Ecosystem]
	if !ok {
		return core.Ok[[]core.Vulnerability](nil)
	}

	req := graphQLRequest{
		Query: ghsaQuery,
		Variables: map[string]any{
			"ecosystem": ecosystem,
			"package":   id.Name,
		},
	}

	var resp graphQLResponse
	if err := g.client.PostJSON(ctx, g.url, req, &resp); err != nil {
		return core.Unavailable[[]core.Vulnerability]()
	}

	nodes := resp.Data.SecurityVulnerabilities.Nodes
	vulns := make([]core.Vulnerability, 0, len(nodes))
	for _, node := range nodes {
		v := core.Vulnerability{
			ID:          node.Advisory.GHSAID,
			Severity:    normalizeSeverityTag(node.Advisory.Severity),
			Title:       node.Advisory.Summary,
			Description: node.Advisory.Description,
			FixedIn:     node.FirstPatchedVersion.Identifier,
		}
		if node.Advisory.CVSS.Score > 0 {
			score := node.Advisory.CVSS.Score
			v.CVSS = &score
		}
		for _, cwe := range node.Advisory.CWEs.Nodes {
			v.CWE = append(v.CWE, cwe.CWEID)
		}
		for _, ref := range node.Advisory.References {
			v.References = append(v.References, ref.URL)
		}
		vulns = append(vulns, v)
	}

	return core.Ok(vulns)
}
