// Package catalog holds the pinned table of prebuilt SDK archives: for each
// supported platform key, the archive filename, its download URL, and the
// expected SHA-256 digest.
//
// A Catalog is built once from configuration and never mutated. Platform
// coverage (key -> filename) and digest coverage (filename -> digest) are
// kept as separate tables and checked independently, so a platform that is
// listed without a digest is reported as a configuration error rather than
// as an unsupported platform.
package catalog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/platform"
)

var (
	// ErrUnsupportedPlatform means the platform key has no catalog entry.
	ErrUnsupportedPlatform = platform.ErrUnsupportedPlatform
	// ErrMissingDigest means a known platform's archive has no digest on record.
	ErrMissingDigest = errors.New("missing digest")
	// ErrInvalidDigest means a digest on record is not 64 hex characters.
	ErrInvalidDigest = errors.New("invalid digest")
)

// Descriptor describes the archive a platform needs.
type Descriptor struct {
	Key      platform.Key `json:"key" yaml:"key"`
	Filename string       `json:"filename" yaml:"filename"`
	URL      string       `json:"url" yaml:"url"`
	Digest   string       `json:"sha256" yaml:"sha256"`
}

// Catalog is a read-only, version-scoped artifact table.
type Catalog struct {
	version   string
	baseURL   string
	platforms map[platform.Key]string
	checksums map[string]string
}

// New builds a catalog. The maps are copied, so later changes by the caller
// do not affect the catalog. Digests are stored lowercase.
func New(version, baseURL string, platforms map[platform.Key]string, checksums map[string]string) (*Catalog, error) {
	if version == "" {
		return nil, fmt.Errorf("version is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	c := &Catalog{
		version:   version,
		baseURL:   strings.TrimRight(baseURL, "/"),
		platforms: make(map[platform.Key]string, len(platforms)),
		checksums: make(map[string]string, len(checksums)),
	}

	for key, filename := range platforms {
		if filename == "" {
			return nil, fmt.Errorf("platform %s has an empty filename", key)
		}
		c.platforms[key] = filename
	}

	for filename, digest := range checksums {
		c.checksums[filename] = strings.ToLower(strings.TrimSpace(digest))
	}

	return c, nil
}

// Version returns the pinned SDK version.
func (c *Catalog) Version() string {
	return c.version
}

// BaseURL returns the release base URL without a trailing slash.
func (c *Catalog) BaseURL() string {
	return c.baseURL
}

// Supports reports whether key has a platform entry.
func (c *Catalog) Supports(key platform.Key) bool {
	_, ok := c.platforms[key]
	return ok
}

// Keys returns the supported platform keys in sorted order.
func (c *Catalog) Keys() []platform.Key {
	keys := make([]platform.Key, 0, len(c.platforms))
	for key := range c.platforms {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// URLFor returns {baseURL}/{version}/{filename}.
func (c *Catalog) URLFor(filename string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, filename)
}

// Resolve returns the descriptor for key.
func (c *Catalog) Resolve(key platform.Key) (*Descriptor, error) {
	filename, ok := c.platforms[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, key)
	}

	digest, ok := c.checksums[filename]
	if !ok || digest == "" {
		return nil, fmt.Errorf("%w for %s (%s)", ErrMissingDigest, filename, key)
	}
	if !isSHA256Hex(digest) {
		return nil, fmt.Errorf("%w for %s: %q", ErrInvalidDigest, filename, digest)
	}

	return &Descriptor{
		Key:      key,
		Filename: filename,
		URL:      c.URLFor(filename),
		Digest:   digest,
	}, nil
}

// Descriptors resolves every platform. Entries that fail to resolve are
// skipped; use Validate to report them.
func (c *Catalog) Descriptors() []Descriptor {
	var out []Descriptor
	for _, key := range c.Keys() {
		d, err := c.Resolve(key)
		if err != nil {
			continue
		}
		out = append(out, *d)
	}
	return out
}

// Validate checks that every platform's archive has a well-formed digest.
// All problems are reported together.
func (c *Catalog) Validate() error {
	var errs []error
	for _, key := range c.Keys() {
		if _, err := c.Resolve(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Orphans returns digest entries whose filename no platform references.
func (c *Catalog) Orphans() []string {
	referenced := make(map[string]bool, len(c.platforms))
	for _, filename := range c.platforms {
		referenced[filename] = true
	}

	var orphans []string
	for filename := range c.checksums {
		if !referenced[filename] {
			orphans = append(orphans, filename)
		}
	}
	sort.Strings(orphans)
	return orphans
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
