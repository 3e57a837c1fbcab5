package extract

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// tarEntry is one entry in a generated test archive.
type tarEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
	mode     int64
}

// createTestTarGz writes entries in order to a .tar.gz in a temp dir.
func createTestTarGz(t *testing.T, entries []tarEntry) string {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, e := range entries {
		typeflag := e.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}
		mode := e.mode
		if mode == 0 {
			mode = 0o644
			if typeflag == tar.TypeDir {
				mode = 0o755
			}
		}
		header := &tar.Header{
			Name:     e.name,
			Typeflag: typeflag,
			Linkname: e.linkname,
			Mode:     mode,
		}
		if typeflag == tar.TypeReg {
			header.Size = int64(len(e.body))
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", e.name, err)
		}
		if typeflag == tar.TypeReg {
			if _, err := tarWriter.Write([]byte(e.body)); err != nil {
				t.Fatalf("failed to write content for %s: %v", e.name, err)
			}
		}
	}

	if err := tarWriter.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatal(err)
	}

	archivePath := filepath.Join(t.TempDir(), "sdk.tar.gz")
	if err := os.WriteFile(archivePath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return archivePath
}

func TestTarGz_Extract(t *testing.T) {
	archive := createTestTarGz(t, []tarEntry{
		{name: "./", typeflag: tar.TypeDir},
		{name: "include/", typeflag: tar.TypeDir},
		{name: "include/aic.h", body: "#pragma once\n"},
		{name: "lib/libaic.so.1", body: "ELF", mode: 0o755},
		{name: "lib/libaic.so", typeflag: tar.TypeSymlink, linkname: "libaic.so.1"},
		{name: "lib/libaic_copy.so", typeflag: tar.TypeLink, linkname: "lib/libaic.so.1"},
		{name: "examples/basic.c", body: "int main(void) { return 0; }\n"},
		{name: "docs/README.md", body: "# SDK\n"},
	})

	dest := filepath.Join(t.TempDir(), "sdk")
	if err := (&TarGz{}).Extract(context.Background(), archive, dest); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	for _, rel := range []string{"include/aic.h", "lib/libaic.so.1", "examples/basic.c", "docs/README.md"} {
		if _, err := os.Stat(filepath.Join(dest, rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	link, err := os.Readlink(filepath.Join(dest, "lib/libaic.so"))
	if err != nil || link != "libaic.so.1" {
		t.Errorf("Readlink() = %q, %v", link, err)
	}

	content, err := os.ReadFile(filepath.Join(dest, "lib/libaic_copy.so"))
	if err != nil || string(content) != "ELF" {
		t.Errorf("hard link content = %q, %v", content, err)
	}

	info, err := os.Stat(filepath.Join(dest, "lib/libaic.so.1"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("mode = %v, want executable bit preserved", info.Mode())
	}
}

func TestTarGz_Extract_UnsafeEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []tarEntry
	}{
		{
			name:    "dot dot traversal",
			entries: []tarEntry{{name: "../evil.txt", body: "x"}},
		},
		{
			name:    "nested traversal",
			entries: []tarEntry{{name: "lib/../../evil.txt", body: "x"}},
		},
		{
			name:    "absolute path",
			entries: []tarEntry{{name: "/tmp/evil.txt", body: "x"}},
		},
		{
			name:    "absolute symlink",
			entries: []tarEntry{{name: "lib/passwd", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"}},
		},
		{
			name:    "escaping symlink",
			entries: []tarEntry{{name: "lib/up", typeflag: tar.TypeSymlink, linkname: "../../outside"}},
		},
		{
			name:    "escaping hard link",
			entries: []tarEntry{{name: "lib/h", typeflag: tar.TypeLink, linkname: "../outside"}},
		},
		{
			name: "write through chained symlinks",
			entries: []tarEntry{
				{name: "d/", typeflag: tar.TypeDir},
				{name: "d/l", typeflag: tar.TypeSymlink, linkname: ".."},
				{name: "m", typeflag: tar.TypeSymlink, linkname: "d/l/.."},
				{name: "m/evil.txt", body: "x"},
			},
		},
		{
			name: "write through symlinked directory",
			entries: []tarEntry{
				{name: "lib", typeflag: tar.TypeSymlink, linkname: "."},
				{name: "lib/evil.txt", body: "x"},
			},
		},
		{
			name: "overwrite symlink with file",
			entries: []tarEntry{
				{name: "lib/libaic.so.1", body: "ELF"},
				{name: "lib/libaic.so", typeflag: tar.TypeSymlink, linkname: "libaic.so.1"},
				{name: "lib/libaic.so", body: "x"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := createTestTarGz(t, tt.entries)
			parent := t.TempDir()
			dest := filepath.Join(parent, "sdk")

			err := (&TarGz{}).Extract(context.Background(), archive, dest)

			var xe *ExtractionError
			if !errors.As(err, &xe) {
				t.Fatalf("error = %v, want *ExtractionError", err)
			}
			if !errors.Is(err, ErrUnsafePath) {
				t.Errorf("error = %v, want ErrUnsafePath", err)
			}
			if _, err := os.Lstat(filepath.Join(parent, "evil.txt")); !os.IsNotExist(err) {
				t.Error("entry escaped the destination")
			}
		})
	}
}

func TestTarGz_Extract_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not gzip", []byte("this is not an archive")},
		{"truncated", nil},
	}

	good := createTestTarGz(t, []tarEntry{{name: "include/aic.h", body: strings.Repeat("h", 4096)}})
	goodData, err := os.ReadFile(good)
	if err != nil {
		t.Fatal(err)
	}
	tests[1].data = goodData[:len(goodData)/2]

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := filepath.Join(t.TempDir(), "bad.tar.gz")
			if err := os.WriteFile(archive, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}

			err := (&TarGz{}).Extract(context.Background(), archive, filepath.Join(t.TempDir(), "sdk"))
			var xe *ExtractionError
			if !errors.As(err, &xe) {
				t.Fatalf("error = %v, want *ExtractionError", err)
			}
			if xe.Archive != archive {
				t.Errorf("Archive = %q, want %q", xe.Archive, archive)
			}
		})
	}
}

func TestTarGz_Extract_MissingArchive(t *testing.T) {
	err := (&TarGz{}).Extract(context.Background(), filepath.Join(t.TempDir(), "none.tar.gz"), t.TempDir())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestTarGz_Extract_Cancelled(t *testing.T) {
	archive := createTestTarGz(t, []tarEntry{{name: "include/aic.h", body: "x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&TarGz{}).Extract(ctx, archive, filepath.Join(t.TempDir(), "sdk"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestForArchive(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "aic-sdk-linux-x64.tar.gz", want: "*extract.TarGz"},
		{name: "aic-sdk-linux-x64.TGZ", want: "*extract.TarGz"},
		{name: "aic-sdk-win32-x64.zip", want: "*extract.Zip"},
		{name: "aic-sdk.tar.xz", wantErr: true},
		{name: "aic-sdk", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := ForArchive(tt.name, Options{})
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("error = %v, want ErrUnsupportedFormat", err)
				}
				var xe *ExtractionError
				if !errors.As(err, &xe) {
					t.Errorf("error = %T, want *ExtractionError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForArchive() error = %v", err)
			}
			if got := typeName(x); got != tt.want {
				t.Errorf("ForArchive() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(x Extractor) string {
	switch x.(type) {
	case *TarGz:
		return "*extract.TarGz"
	case *Zip:
		return "*extract.Zip"
	}
	return "unknown"
}
