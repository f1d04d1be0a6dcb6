package core

import (
	"fmt"

	"github.com/git-pkgs/purl"
)

// purlTypes maps PURL types to supported ecosystems.
var purlTypes = map[string]Ecosystem{
	"npm":    EcosystemNPM,
	"pypi":   EcosystemPython,
	"docker": EcosystemDocker,
}

// IdentifierFromPURL converts a Package URL string into a PackageIdentifier.
// A PURL without a version resolves to the latest release.
func IdentifierFromPURL(purlStr string) (PackageIdentifier, error) {
	p, err := purl.Parse(purlStr)
	if err != nil {
		return PackageIdentifier{}, fmt.Errorf("parsing purl %q: %w", purlStr, err)
	}

	eco, ok := purlTypes[p.Type]
	if !ok {
		return PackageIdentifier{}, fmt.Errorf("unsupported purl type: %s", p.Type)
	}

	name := p.Name
	if p.Namespace != "" {
		name = p.Namespace + "/" + p.Name
	}

	version := p.Version
	if version == "" {
		version = LatestVersion
	}

	return PackageIdentifier{Name: name, Version: version, Ecosystem: eco}, nil
}

// PURL returns the canonical Package URL for the identifier.
func (p PackageIdentifier) PURL() string {
	purlType := string(p.Ecosystem)
	if p.Ecosystem == EcosystemPython {
		purlType = "pypi"
	}
	if p.Version == "" || p.Version == LatestVersion {
		return fmt.Sprintf("pkg:%s/%s", purlType, p.Name)
	}
	return fmt.Sprintf("pkg:%s/%s@%s", purlType, p.Name, p.Version)
}
