package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/platform"
)

const (
	digestA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	digestB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := New("1.0.0", "https://releases.example.com/sdk/", map[platform.Key]string{
		"linux-x64":  "sdk-linux-x64.tar.gz",
		"win32-x64":  "sdk-win32-x64.zip",
		"darwin-x64": "sdk-darwin-x64.tar.gz",
	}, map[string]string{
		"sdk-linux-x64.tar.gz": digestA,
		"sdk-win32-x64.zip":    digestB,
		"sdk-unused.tar.gz":    digestA,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestCatalog_ResolveEveryPlatform(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		key      platform.Key
		filename string
		digest   string
	}{
		{"linux-x64", "sdk-linux-x64.tar.gz", digestA},
		{"win32-x64", "sdk-win32-x64.zip", strings.ToLower(digestB)},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			d, err := c.Resolve(tt.key)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if d.Filename != tt.filename {
				t.Errorf("Filename = %s, want %s", d.Filename, tt.filename)
			}
			wantURL := "https://releases.example.com/sdk/1.0.0/" + tt.filename
			if d.URL != wantURL {
				t.Errorf("URL = %s, want %s", d.URL, wantURL)
			}
			if !strings.Contains(d.URL, c.Version()) {
				t.Errorf("URL %s does not contain version %s", d.URL, c.Version())
			}
			if d.Digest != tt.digest {
				t.Errorf("Digest = %s, want %s", d.Digest, tt.digest)
			}
		})
	}
}

func TestCatalog_UnsupportedVersusMissingDigest(t *testing.T) {
	c := testCatalog(t)

	_, err := c.Resolve("linux-arm64")
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("unknown key: expected ErrUnsupportedPlatform, got %v", err)
	}
	if errors.Is(err, ErrMissingDigest) {
		t.Errorf("unknown key must not report a missing digest: %v", err)
	}

	_, err = c.Resolve("darwin-x64")
	if !errors.Is(err, ErrMissingDigest) {
		t.Errorf("known key without digest: expected ErrMissingDigest, got %v", err)
	}
	if errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("known key must not be reported as unsupported: %v", err)
	}
}

func TestCatalog_Validate(t *testing.T) {
	c := testCatalog(t)

	err := c.Validate()
	if err == nil {
		t.Fatal("expected validation error for darwin-x64")
	}
	if !errors.Is(err, ErrMissingDigest) {
		t.Errorf("expected ErrMissingDigest, got %v", err)
	}
	if !strings.Contains(err.Error(), "darwin-x64") {
		t.Errorf("error should name the platform: %v", err)
	}

	if got := c.Orphans(); len(got) != 1 || got[0] != "sdk-unused.tar.gz" {
		t.Errorf("Orphans() = %v, want [sdk-unused.tar.gz]", got)
	}
}

func TestCatalog_InvalidDigest(t *testing.T) {
	c, err := New("1.0.0", "https://example.com", map[platform.Key]string{
		"linux-x64": "a.tar.gz",
	}, map[string]string{
		"a.tar.gz": "not-hex",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Resolve("linux-x64"); !errors.Is(err, ErrInvalidDigest) {
		t.Errorf("expected ErrInvalidDigest, got %v", err)
	}
}

func TestCatalog_IsImmutable(t *testing.T) {
	platforms := map[platform.Key]string{"linux-x64": "a.tar.gz"}
	checksums := map[string]string{"a.tar.gz": digestA}

	c, err := New("1.0.0", "https://example.com", platforms, checksums)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	platforms["linux-arm64"] = "b.tar.gz"
	checksums["a.tar.gz"] = digestB

	if c.Supports("linux-arm64") {
		t.Error("catalog changed after caller mutated its input map")
	}
	d, err := c.Resolve("linux-x64")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if d.Digest != digestA {
		t.Errorf("Digest = %s, want %s", d.Digest, digestA)
	}
}

func TestNew_RequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		baseURL   string
		platforms map[platform.Key]string
	}{
		{"missing version", "", "https://example.com", nil},
		{"missing base URL", "1.0.0", "", nil},
		{"empty filename", "1.0.0", "https://example.com", map[platform.Key]string{"linux-x64": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.version, tt.baseURL, tt.platforms, nil); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

func TestCatalog_KeysAndDescriptors(t *testing.T) {
	c := testCatalog(t)

	keys := c.Keys()
	want := []platform.Key{"darwin-x64", "linux-x64", "win32-x64"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %s, want %s", i, keys[i], want[i])
		}
	}

	// darwin-x64 has no digest and is skipped
	if got := len(c.Descriptors()); got != 2 {
		t.Errorf("len(Descriptors()) = %d, want 2", got)
	}
}
