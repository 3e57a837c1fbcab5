package platform

import (
	"fmt"
	"strings"
)

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
}

// normalizeOS converts GOOS values to the OS token used in artifact keys.
func normalizeOS(goos string) (string, error) {
	switch goos {
	case "linux":
		return "linux", nil
	case "darwin":
		return "darwin", nil
	case "windows":
		return "win32", nil
	default:
		return "", fmt.Errorf("%w: operating system %q", ErrUnsupportedPlatform, goos)
	}
}

// normalizeArch converts GOARCH values to the architecture token used in
// artifact keys.
func normalizeArch(goarch string) (string, error) {
	switch goarch {
	case "amd64", "x86_64":
		return "x64", nil
	case "arm64", "aarch64":
		return "arm64", nil
	default:
		return "", fmt.Errorf("%w: architecture %q", ErrUnsupportedPlatform, goarch)
	}
}

// KeyFor maps detected platform info to its canonical key.
func KeyFor(info *Info) (Key, error) {
	if info == nil {
		return "", fmt.Errorf("platform info is required")
	}

	osName, err := normalizeOS(info.OS)
	if err != nil {
		return "", err
	}

	archName, err := normalizeArch(info.Arch)
	if err != nil {
		return "", err
	}

	return NewKey(osName, archName), nil
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}
