package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/catalog"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/extract"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/verify"
	"github.com/google/uuid"
)

// DefaultPrune lists the archive directories removed after extraction.
var DefaultPrune = []string{"examples", "docs"}

// Resolver yields the host's platform key.
type Resolver interface {
	Resolve(ctx context.Context) (platform.Key, *platform.Info, error)
}

// Catalog maps a platform key to its archive.
type Catalog interface {
	Resolve(key platform.Key) (*catalog.Descriptor, error)
}

// Fetcher downloads a URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) (int64, error)
}

// Verifier checks a downloaded archive. *verify.Verifier satisfies it.
type Verifier interface {
	VerifyDigest(path, expectedHex string) error
	VerifySignature(path, sigPath, keyringPath string) error
	VerifyBundle(path, bundlePath string, policy verify.BundlePolicy) error
}

// ExtractorFunc selects the extractor for an archive filename.
type ExtractorFunc func(filename string) (extract.Extractor, error)

// SignatureCheck enables OpenPGP verification of a detached signature
// published at the archive URL plus Suffix.
type SignatureCheck struct {
	Keyring string
	Suffix  string
}

// BundleCheck enables Sigstore verification of a bundle published at the
// archive URL plus Suffix.
type BundleCheck struct {
	Suffix string
	Policy verify.BundlePolicy
}

// Options configures an Orchestrator.
type Options struct {
	// Dest is the install directory. Its presence means "installed".
	Dest string
	// Prune lists top-level directories removed after extraction. nil
	// selects DefaultPrune; an empty non-nil slice prunes nothing.
	Prune []string
	// Staged extracts into a sibling directory and renames it into place.
	Staged bool
	// TempDir is the parent of the per-run download directory.
	// Defaults to os.TempDir().
	TempDir string

	Signature *SignatureCheck
	Bundle    *BundleCheck

	// Extractors defaults to extract.ForArchive with default options.
	Extractors ExtractorFunc

	Logger Logger
}

// Result describes a completed or failed run.
type Result struct {
	RunID      string
	Trail      []State
	Check      Check
	Skipped    bool
	Descriptor *catalog.Descriptor
	Bytes      int64
	Warnings   []error
}

// State returns the last state reached.
func (r *Result) State() State {
	if len(r.Trail) == 0 {
		return StateIdle
	}
	return r.Trail[len(r.Trail)-1]
}

// Orchestrator runs one install.
type Orchestrator struct {
	resolver   Resolver
	catalog    Catalog
	fetcher    Fetcher
	verifier   Verifier
	extractors ExtractorFunc
	opts       Options
	logger     Logger
}

// New creates an orchestrator. The collaborators are required.
func New(resolver Resolver, cat Catalog, fetcher Fetcher, verifier Verifier, opts Options) (*Orchestrator, error) {
	if resolver == nil || cat == nil || fetcher == nil || verifier == nil {
		return nil, fmt.Errorf("resolver, catalog, fetcher and verifier are required")
	}
	if opts.Dest == "" {
		return nil, fmt.Errorf("destination is required")
	}
	if opts.Prune == nil {
		opts.Prune = DefaultPrune
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}

	o := &Orchestrator{
		resolver:   resolver,
		catalog:    cat,
		fetcher:    fetcher,
		verifier:   verifier,
		extractors: opts.Extractors,
		opts:       opts,
		logger:     opts.Logger,
	}
	if o.extractors == nil {
		o.extractors = func(filename string) (extract.Extractor, error) {
			return extract.ForArchive(filename, extract.Options{})
		}
	}
	if o.logger == nil {
		o.logger = defaultLogger()
	}
	return o, nil
}

// IsInstalled reports whether dest exists as a directory. A non-directory
// at dest is an error.
func IsInstalled(dest string) (bool, error) {
	info, err := os.Stat(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat destination: %w", err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s exists and is not a directory", dest)
	}
	return true, nil
}

// run carries the state of one Run call.
type run struct {
	*Orchestrator
	res     *Result
	tmpDir  string
	cleanup []string
}

// Run executes the pipeline. The returned Result is never nil; on failure
// its trail ends in StateFailed and the error is an *Error.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	r := &run{
		Orchestrator: o,
		res:          &Result{RunID: uuid.NewString()},
	}
	r.enter(StateIdle)

	err := r.execute(ctx)
	if err != nil {
		r.enter(StateFailed)
		r.removeTemp()
		o.logger.Debug("install failed", "run", r.res.RunID, "error", err)
		return r.res, err
	}
	return r.res, nil
}

func (r *run) execute(ctx context.Context) error {
	dest := r.opts.Dest

	// Idle -> Checked
	installed, err := IsInstalled(dest)
	if err != nil {
		return &Error{State: StateChecked, Kind: KindDestination, Err: err}
	}
	r.enter(StateChecked)
	if installed {
		r.res.Check = AlreadyInstalled
		r.res.Skipped = true
		r.logger.Info("SDK already installed", "run", r.res.RunID, "dest", dest)
		r.enter(StateDone)
		return nil
	}
	r.res.Check = NeedsInstall

	// Checked -> Resolved
	desc, err := r.resolve(ctx)
	if err != nil {
		return err
	}
	r.res.Descriptor = desc
	r.enter(StateResolved)

	// Resolved -> Downloaded
	archive, sigPath, bundlePath, err := r.download(ctx, desc)
	if err != nil {
		return err
	}
	r.enter(StateDownloaded)

	// Downloaded -> Verified
	if err := r.verify(archive, sigPath, bundlePath, desc); err != nil {
		return &Error{State: StateVerified, Kind: KindIntegrity, Err: err}
	}
	r.enter(StateVerified)

	// Verified -> Extracted
	target, err := r.extract(ctx, archive, desc)
	if err != nil {
		return err
	}
	r.enter(StateExtracted)

	// Extracted -> Pruned
	r.prune(target)
	if r.opts.Staged {
		if err := os.Rename(target, dest); err != nil {
			r.removeAll(target)
			return &Error{State: StatePruned, Kind: KindDestination, Err: fmt.Errorf("move staged install into place: %w", err)}
		}
	}
	r.enter(StatePruned)

	// Pruned -> Cleaned
	r.removeTemp()
	r.enter(StateCleaned)

	r.logger.Info("SDK installed", "run", r.res.RunID, "dest", dest, "key", desc.Key, "bytes", r.res.Bytes)
	r.enter(StateDone)
	return nil
}

func (r *run) enter(s State) {
	r.res.Trail = append(r.res.Trail, s)
	r.logger.Debug("install state", "run", r.res.RunID, "state", s.String())
}

func (r *run) warn(err error) {
	r.res.Warnings = append(r.res.Warnings, err)
	r.logger.Warn("install warning", "run", r.res.RunID, "error", err)
}

func (r *run) resolve(ctx context.Context) (*catalog.Descriptor, error) {
	key, info, err := r.resolver.Resolve(ctx)
	if err != nil {
		return nil, &Error{State: StateResolved, Kind: classifyResolve(err), Err: err}
	}
	if info != nil && info.IsMusl() {
		r.warn(fmt.Errorf("%s (%s): %w", key, info.Platform, ErrMuslHost))
	}

	desc, err := r.catalog.Resolve(key)
	if err != nil {
		return nil, &Error{State: StateResolved, Kind: classifyResolve(err), Err: err}
	}
	r.logger.Debug("resolved artifact", "run", r.res.RunID, "key", key, "url", desc.URL)
	return desc, nil
}

func classifyResolve(err error) Kind {
	if errors.Is(err, platform.ErrUnsupportedPlatform) {
		return KindUnsupportedPlatform
	}
	return KindConfig
}

// download fetches the archive and any configured signature material into
// a fresh per-run directory.
func (r *run) download(ctx context.Context, desc *catalog.Descriptor) (archive, sigPath, bundlePath string, err error) {
	r.tmpDir, err = os.MkdirTemp(r.opts.TempDir, "sdkfetch-"+r.res.RunID+"-")
	if err != nil {
		return "", "", "", &Error{State: StateDownloaded, Kind: KindDestination, Err: fmt.Errorf("create temp dir: %w", err)}
	}

	archive = filepath.Join(r.tmpDir, desc.Filename)
	r.cleanup = append(r.cleanup, archive)

	r.logger.Info("downloading SDK", "run", r.res.RunID, "url", desc.URL)
	n, err := r.fetcher.Fetch(ctx, desc.URL, archive)
	if err != nil {
		return "", "", "", &Error{State: StateDownloaded, Kind: KindTransport, Err: err}
	}
	r.res.Bytes = n

	if sig := r.opts.Signature; sig != nil {
		sigPath = archive + sig.Suffix
		r.cleanup = append(r.cleanup, sigPath)
		if _, err := r.fetcher.Fetch(ctx, desc.URL+sig.Suffix, sigPath); err != nil {
			return "", "", "", &Error{State: StateDownloaded, Kind: KindTransport, Err: fmt.Errorf("signature: %w", err)}
		}
	}

	if b := r.opts.Bundle; b != nil {
		bundlePath = archive + b.Suffix
		r.cleanup = append(r.cleanup, bundlePath)
		if _, err := r.fetcher.Fetch(ctx, desc.URL+b.Suffix, bundlePath); err != nil {
			return "", "", "", &Error{State: StateDownloaded, Kind: KindTransport, Err: fmt.Errorf("bundle: %w", err)}
		}
	}

	return archive, sigPath, bundlePath, nil
}

func (r *run) verify(archive, sigPath, bundlePath string, desc *catalog.Descriptor) error {
	if err := r.verifier.VerifyDigest(archive, desc.Digest); err != nil {
		return err
	}
	if sigPath != "" {
		if err := r.verifier.VerifySignature(archive, sigPath, r.opts.Signature.Keyring); err != nil {
			return err
		}
	}
	if bundlePath != "" {
		if err := r.verifier.VerifyBundle(archive, bundlePath, r.opts.Bundle.Policy); err != nil {
			return err
		}
	}
	return nil
}

// extract unpacks the archive and returns the directory it landed in: the
// destination itself, or the staging directory in staged mode.
func (r *run) extract(ctx context.Context, archive string, desc *catalog.Descriptor) (string, error) {
	extractor, err := r.extractors(desc.Filename)
	if err != nil {
		return "", &Error{State: StateExtracted, Kind: KindExtraction, Err: err}
	}

	dest := r.opts.Dest
	target := dest
	if r.opts.Staged {
		parent := filepath.Dir(dest)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", &Error{State: StateExtracted, Kind: KindDestination, Err: fmt.Errorf("create parent dir: %w", err)}
		}
		target, err = os.MkdirTemp(parent, "."+filepath.Base(dest)+".partial-")
		if err != nil {
			return "", &Error{State: StateExtracted, Kind: KindDestination, Err: fmt.Errorf("create staging dir: %w", err)}
		}
		// MkdirTemp creates 0700; the renamed SDK root must match a plain install.
		if err := os.Chmod(target, 0o755); err != nil {
			r.removeAll(target)
			return "", &Error{State: StateExtracted, Kind: KindDestination, Err: fmt.Errorf("chmod staging dir: %w", err)}
		}
	} else if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", &Error{State: StateExtracted, Kind: KindDestination, Err: fmt.Errorf("create destination: %w", err)}
	}

	if err := extractor.Extract(ctx, archive, target); err != nil {
		if r.opts.Staged {
			r.removeAll(target)
		} else {
			r.logger.Warn("destination left after failed extraction; remove it before retrying",
				"run", r.res.RunID, "dest", dest)
		}
		return "", &Error{State: StateExtracted, Kind: KindExtraction, Err: err}
	}
	return target, nil
}

// prune removes the configured top-level directories from dir.
func (r *run) prune(dir string) {
	for _, name := range r.opts.Prune {
		path := filepath.Join(dir, name)
		if err := os.RemoveAll(path); err != nil {
			r.warn(&PruneError{Path: path, Err: err})
		}
	}
}

// removeTemp deletes downloaded files and the per-run directory.
func (r *run) removeTemp() {
	for _, path := range r.cleanup {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.warn(&CleanupError{Path: path, Err: err})
		}
	}
	r.cleanup = nil

	if r.tmpDir != "" {
		r.removeAll(r.tmpDir)
		r.tmpDir = ""
	}
}

func (r *run) removeAll(path string) {
	if err := os.RemoveAll(path); err != nil {
		r.warn(&CleanupError{Path: path, Err: err})
	}
}
