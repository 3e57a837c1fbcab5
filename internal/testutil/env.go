// Package testutil provides utilities for testing sdkfetch in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points every environment input sdkfetch reads at a fresh
// temporary directory and returns it. Tests then never pick up:
// - the developer's $SDKFETCH_CONFIG
// - AWS credentials or shared config from $HOME
// - leftovers in the system temp directory
//
// Cleanup is handled by t.TempDir.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	t.Setenv("SDKFETCH_CONFIG", "")
	t.Setenv("TMPDIR", filepath.Join(tmpDir, "tmp"))
	t.Setenv("TMP", filepath.Join(tmpDir, "tmp"))
	t.Setenv("TEMP", filepath.Join(tmpDir, "tmp"))

	t.Setenv("AWS_CONFIG_FILE", filepath.Join(tmpDir, "aws", "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(tmpDir, "aws", "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	if err := os.MkdirAll(filepath.Join(tmpDir, "tmp"), 0o750); err != nil {
		t.Fatalf("failed to create test directory: %v", err)
	}

	return tmpDir
}

// TempEntries lists the system temp directory, which SetupTestEnv isolates.
func TempEntries(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(os.TempDir())
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
