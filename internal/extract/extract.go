package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrUnsupportedFormat is returned by ForArchive for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// Extractor unpacks an archive into destDir, creating it if needed.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// ExtractionError reports a failed extraction.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Options configures the extractor returned by ForArchive.
type Options struct {
	// Runner executes the native zip tool. Defaults to ExecRunner.
	Runner Runner
	// GOOS selects the zip tool. Defaults to runtime.GOOS.
	GOOS string
}

// ForArchive returns the extractor for the archive named name.
func ForArchive(name string, opts Options) (Extractor, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return &TarGz{}, nil
	case strings.HasSuffix(lower, ".zip"):
		runner := opts.Runner
		if runner == nil {
			runner = ExecRunner{}
		}
		goos := opts.GOOS
		if goos == "" {
			goos = runtime.GOOS
		}
		return &Zip{runner: runner, goos: goos}, nil
	default:
		return nil, &ExtractionError{Archive: name, Err: ErrUnsupportedFormat}
	}
}
