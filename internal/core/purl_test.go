package core

import "testing"

func TestIdentifierFromPURL(t *testing.T) {
	tests := []struct {
		purl      string
		name      string
		version   string
		ecosystem Ecosystem
	}{
		{"pkg:npm/lodash@4.17.21", "lodash", "4.17.21", EcosystemNPM},
		{"pkg:npm/%40babel/core@7.24.0", "@babel/core", "7.24.0", EcosystemNPM},
		{"pkg:pypi/requests@2.31.0", "requests", "2.31.0", EcosystemPython},
		{"pkg:docker/nginx@1.21", "nginx", "1.21", EcosystemDocker},
		{"pkg:docker/library/redis", "library/redis", "latest", EcosystemDocker},
		{"pkg:npm/express", "express", "latest", EcosystemNPM},
	}

	for _, tt := range tests {
		t.Run(tt.purl, func(t *testing.T) {
			id, err := IdentifierFromPURL(tt.purl)
			if err != nil {
				t.Fatalf("IdentifierFromPURL failed: %v", err)
			}
			if id.Name != tt.name {
				t.Errorf("expected name %q, got %q", tt.name, id.Name)
			}
			if id.Version != tt.version {
				t.Errorf("expected version %q, got %q", tt.version, id.Version)
			}
			if id.Ecosystem != tt.ecosystem {
				t.Errorf("expected ecosystem %s, got %s", tt.ecosystem, id.Ecosystem)
			}
		})
	}
}

func TestIdentifierFromPURLUnsupported(t *testing.T) {
	if _, err := IdentifierFromPURL("pkg:cargo/serde@1.0.0"); err == nil {
		t.Error("expected error for unsupported purl type")
	}
	if _, err := IdentifierFromPURL("not a purl"); err == nil {
		t.Error("expected error for malformed purl")
	}
}

func TestPURLRoundTrip(t *testing.T) {
	tests := []struct {
		id   PackageIdentifier
		want string
	}{
		{PackageIdentifier{Name: "lodash", Version: "4.17.21", Ecosystem: EcosystemNPM}, "pkg:npm/lodash@4.17.21"},
		{PackageIdentifier{Name: "requests", Version: "2.31.0", Ecosystem: EcosystemPython}, "pkg:pypi/requests@2.31.0"},
		{PackageIdentifier{Name: "nginx", Version: "latest", Ecosystem: EcosystemDocker}, "pkg:docker/nginx"},
		{PackageIdentifier{Name: "express", Ecosystem: EcosystemNPM}, "pkg:npm/express"},
	}

	for _, tt := range tests {
		if got := tt.id.PURL(); got != tt.want {
			t.Errorf("PURL() = %q, want %q", got, tt.want)
		}
	}
}
