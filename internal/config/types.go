package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/catalog"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/platform"
)

// Config is the evaluated sdk table.
type Config struct {
	Version   string
	BaseURL   string
	Platforms map[string]string // platform key -> archive filename
	Checksums map[string]string // archive filename -> sha256 hex
	Install   Install
	Signature Signature
	Bundle    Bundle
}

// Install holds orchestrator settings.
type Install struct {
	Dest         string
	Prune        []string
	MaxRedirects int
	Timeout      time.Duration
	Retries      int
	Staged       bool
}

// Signature configures optional OpenPGP detached signature checks.
// It is enabled when Keyring is set.
type Signature struct {
	Keyring string // path to an armored or binary public keyring
	Suffix  string // appended to the archive URL, e.g. ".asc"
}

// Enabled reports whether signature verification is configured.
func (s Signature) Enabled() bool {
	return s.Keyring != ""
}

// Bundle configures optional Sigstore bundle checks.
// It is enabled when Issuer is set.
type Bundle struct {
	Suffix      string // appended to the archive URL, e.g. ".sigstore.json"
	Issuer      string // expected OIDC issuer of the signing certificate
	Identity    string // regular expression matched against the certificate SAN
	TrustedRoot string // trusted_root.json path; empty fetches via TUF
}

// Enabled reports whether bundle verification is configured.
func (b Bundle) Enabled() bool {
	return b.Issuer != ""
}

// Validate checks the config for structural errors. Digest coverage is
// checked separately by catalog.Catalog.Validate.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("sdk.version is required")
	}

	if err := validateBaseURL(c.BaseURL); err != nil {
		return err
	}

	if len(c.Platforms) == 0 {
		return fmt.Errorf("sdk.platforms must list at least one platform")
	}

	for key, filename := range c.Platforms {
		if strings.ContainsAny(filename, `/\`) || filename == "" {
			return fmt.Errorf("sdk.platforms[%q]: invalid archive filename %q", key, filename)
		}
	}

	if strings.TrimSpace(c.Install.Dest) == "" {
		return fmt.Errorf("sdk.install.dest is required")
	}

	for _, name := range c.Install.Prune {
		if err := validatePruneEntry(name); err != nil {
			return err
		}
	}

	if c.Install.MaxRedirects < 0 {
		return fmt.Errorf("sdk.install.max_redirects must not be negative")
	}
	if c.Install.Timeout <= 0 {
		return fmt.Errorf("sdk.install.timeout must be positive")
	}
	if c.Install.Retries < 0 {
		return fmt.Errorf("sdk.install.retries must not be negative")
	}

	if c.Signature.Enabled() && c.Signature.Suffix == "" {
		return fmt.Errorf("sdk.signature.suffix is required when a keyring is set")
	}

	if c.Bundle.Enabled() {
		if c.Bundle.Identity == "" {
			return fmt.Errorf("sdk.bundle.identity is required when an issuer is set")
		}
		if c.Bundle.Suffix == "" {
			return fmt.Errorf("sdk.bundle.suffix is required when an issuer is set")
		}
	}

	return nil
}

// Catalog builds the immutable artifact catalog described by the config.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	platforms := make(map[platform.Key]string, len(c.Platforms))
	for key, filename := range c.Platforms {
		platforms[platform.Key(key)] = filename
	}
	return catalog.New(c.Version, c.BaseURL, platforms, c.Checksums)
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("sdk.base_url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("sdk.base_url: %w", err)
	}

	switch u.Scheme {
	case "https", "http", "s3":
	default:
		return fmt.Errorf("sdk.base_url: unsupported scheme %q (want https, http or s3)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("sdk.base_url: missing host in %q", raw)
	}

	return nil
}

// validatePruneEntry rejects anything other than a single directory name.
func validatePruneEntry(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) {
		return fmt.Errorf("sdk.install.prune: %q must be a plain directory name", name)
	}
	return nil
}
