package install

import (
	"errors"
	"fmt"
)

// ErrMuslHost marks the warning for musl-based Linux hosts.
var ErrMuslHost = errors.New("host uses musl libc; the prebuilt SDK is linked against glibc and may not load")

// Kind classifies a fatal install error.
type Kind int

const (
	KindUnsupportedPlatform Kind = iota + 1
	KindConfig
	KindDestination
	KindTransport
	KindIntegrity
	KindExtraction
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedPlatform:
		return "unsupported platform"
	case KindConfig:
		return "configuration"
	case KindDestination:
		return "destination"
	case KindTransport:
		return "transport"
	case KindIntegrity:
		return "integrity"
	case KindExtraction:
		return "extraction"
	default:
		return "unknown"
	}
}

// Error is a fatal install failure. State is the state the run was trying
// to reach.
type Error struct {
	State State
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.State.stage(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PruneError reports a prune target that could not be removed.
type PruneError struct {
	Path string
	Err  error
}

func (e *PruneError) Error() string {
	return fmt.Sprintf("prune %s: %v", e.Path, e.Err)
}

func (e *PruneError) Unwrap() error {
	return e.Err
}

// CleanupError reports a temporary path that could not be removed.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("clean up %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}
