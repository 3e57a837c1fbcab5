package platform

import (
	"context"
	"fmt"
)

// Catalog reports which platform keys have a prebuilt artifact.
type Catalog interface {
	Supports(key Key) bool
}

// Resolver maps the running host to a supported platform key.
type Resolver struct {
	detector Detector
	catalog  Catalog
}

// NewResolver creates a resolver that checks detected keys against catalog.
func NewResolver(detector Detector, catalog Catalog) *Resolver {
	return &Resolver{detector: detector, catalog: catalog}
}

// Resolve detects the host platform and returns its key. It fails with
// ErrUnsupportedPlatform when the OS/arch pair has no catalog entry. Resolve
// never touches the network.
func (r *Resolver) Resolve(ctx context.Context) (Key, *Info, error) {
	info, err := r.detector.Detect(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("detect platform: %w", err)
	}

	key, err := KeyFor(info)
	if err != nil {
		return "", info, err
	}

	if r.catalog != nil && !r.catalog.Supports(key) {
		return key, info, fmt.Errorf("%w: no prebuilt SDK for %s", ErrUnsupportedPlatform, key)
	}

	return key, info, nil
}
