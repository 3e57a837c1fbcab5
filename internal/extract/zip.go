package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner runs an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Zip extracts .zip archives with the platform's native tool.
type Zip struct {
	runner Runner
	goos   string
}

// Extract runs the native tool to unpack archivePath into destDir.
func (x *Zip) Extract(ctx context.Context, archivePath, destDir string) error {
	if _, err := os.Stat(archivePath); err != nil {
		return &ExtractionError{Archive: archivePath, Err: fmt.Errorf("open archive: %w", err)}
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &ExtractionError{Archive: archivePath, Err: fmt.Errorf("create dest dir: %w", err)}
	}

	name, args := x.command(archivePath, destDir)
	out, err := x.runner.Run(ctx, name, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			err = fmt.Errorf("%s: %w: %s", name, err, msg)
		} else {
			err = fmt.Errorf("%s: %w", name, err)
		}
		return &ExtractionError{Archive: archivePath, Err: err}
	}
	return nil
}

// command builds the extraction command line for the target OS.
func (x *Zip) command(archivePath, destDir string) (string, []string) {
	if x.goos == "windows" {
		script := fmt.Sprintf("Expand-Archive -LiteralPath %s -DestinationPath %s -Force",
			psQuote(archivePath), psQuote(destDir))
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", script}
	}
	return "unzip", []string{"-q", "-o", filepath.Clean(archivePath), "-d", filepath.Clean(destDir)}
}

// psQuote wraps s in single quotes for PowerShell.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
