// Package platform detects the host OS and CPU architecture and maps them to
// the canonical platform key used to select a prebuilt SDK archive.
//
// Keys use the release naming ("linux-x64", "darwin-arm64", "win32-x64"),
// not Go's GOOS/GOARCH values. On Linux the detector also
// records distribution details via gopsutil so callers can warn about hosts
// (such as Alpine/musl) where the glibc-linked artifacts may not load.
package platform

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform is returned when the host has no prebuilt artifact.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Key is a canonical platform identifier such as "linux-x64".
type Key string

// String returns the string representation of the key
func (k Key) String() string {
	return string(k)
}

// NewKey joins an operating system and architecture into a Key.
func NewKey(os, arch string) Key {
	return Key(fmt.Sprintf("%s-%s", os, arch))
}

// Info contains platform detection information.
type Info struct {
	OS       string // GOOS: "linux", "darwin", "windows"
	Arch     string // GOARCH: "amd64", "arm64"
	Platform string // distro ID (Linux only, e.g., "ubuntu", "alpine")
	Family   string // canonical family (e.g., "debian", "alpine")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information if this is a Linux platform.
// Returns nil for non-Linux platforms or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != "linux" || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsMusl reports whether the host is a musl-based Linux distribution.
func (i *Info) IsMusl() bool {
	return i.OS == "linux" && i.Family == FamilyAlpine
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
