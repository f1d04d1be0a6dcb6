package advisory

import (
	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/git-pkgs/trustscore/internal/core"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type fallbackEntry struct {
	ID          string   `yaml:"id"`
	Severity    string   `yaml:"severity"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	CVSS        *float64 `yaml:"cvss"`
	CWE         []string `yaml:"cwe"`
	References  []string `yaml:"references"`
	FixedIn     string   `yaml:"fixedIn"`
}

// loadFallback parses the embedded static advisory table. The table ships
// with the binary, so a parse failure is a build defect; it panics rather
// than degrading silently.
func loadFallback() map[string][]core.Vulnerability {
	var raw map[string][]fallbackEntry
	if err := yaml.Unmarshal(fallbackYAML, &raw); err != nil {
		panic("advisory: invalid embedded fallback table: " + err.Error())
	}

	table := make(map[string][]core.Vulnerability, len(raw))
	for name, entries := range raw {
		vulns := make([]core.Vulnerability, 0, len(entries))
		for _, e := range entries {
			vulns = append(vulns, core.Vulnerability{
				ID:          e.ID,
				Severity:    normalizeSeverityTag(e.Severity),
				Title:       e.Title,
				Description: e.Description,
				CVSS:        e.CVSS,
				CWE:         e.CWE,
				References:  e.References,
				FixedIn:     e.FixedIn,
			})
		}
		table[name] = vulns
	}
	return table
}
