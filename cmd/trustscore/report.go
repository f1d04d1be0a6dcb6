package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/git-pkgs/trustscore"
)

func report(w io.Writer, analyses []trustscore.PackageAnalysis, format string) error {
	switch format {
	case "json":
		return reportJSON(w, analyses)
	case "table":
		return reportTable(w, analyses)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func reportJSON(w io.Writer, analyses []trustscore.PackageAnalysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(analyses)
}

func reportTable(w io.Writer, analyses []trustscore.PackageAnalysis) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tVERSION\tECOSYSTEM\tSCORE\tVULNS\tWORST\tLICENSE")
	fmt.Fprintln(tw, "-------\t-------\t---------\t-----\t-----\t-----\t-------")

	for _, a := range analyses {
		license := a.Metadata.License
		if license == "" {
			license = "(unknown)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			a.Package.Name,
			a.Package.Version,
			a.Package.Ecosystem,
			a.TrustScore,
			len(a.Vulnerabilities),
			worstSeverity(a.Vulnerabilities),
			license,
		)
	}
	return tw.Flush()
}

func worstSeverity(vulns []trustscore.Vulnerability) string {
	if len(vulns) == 0 {
		return "-"
	}
	rank := map[trustscore.Severity]int{
		trustscore.SeverityLow:      1,
		trustscore.SeverityMedium:   2,
		trustscore.SeverityHigh:     3,
		trustscore.SeverityCritical: 4,
	}
	worst := vulns[0].Severity
	for _, v := range vulns[1:] {
		if rank[v.Severity] > rank[worst] {
			worst = v.Severity
		}
	}
	return strings.ToUpper(string(worst))
}
