package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner records invocations and returns canned results.
type fakeRunner struct {
	name string
	args []string
	out  []byte
	err  error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return f.out, f.err
}

func writeArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aic-sdk-win32-x64.zip")
	if err := os.WriteFile(path, []byte("PK\x03\x04"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestZip_Command(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
		wantArgs []string
	}{
		{
			goos:     "linux",
			wantName: "unzip",
			wantArgs: []string{"-q", "-o", "ARCHIVE", "-d", "DEST"},
		},
		{
			goos:     "darwin",
			wantName: "unzip",
			wantArgs: []string{"-q", "-o", "ARCHIVE", "-d", "DEST"},
		},
		{
			goos:     "windows",
			wantName: "powershell",
			wantArgs: []string{"-NoProfile", "-NonInteractive", "-Command",
				"Expand-Archive -LiteralPath 'ARCHIVE' -DestinationPath 'DEST' -Force"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			runner := &fakeRunner{}
			archive := writeArchive(t)
			dest := filepath.Join(t.TempDir(), "sdk")

			x, err := ForArchive(archive, Options{Runner: runner, GOOS: tt.goos})
			if err != nil {
				t.Fatal(err)
			}
			if err := x.Extract(context.Background(), archive, dest); err != nil {
				t.Fatalf("Extract() error = %v", err)
			}

			if runner.name != tt.wantName {
				t.Errorf("command = %s, want %s", runner.name, tt.wantName)
			}
			got := strings.Join(runner.args, "|")
			want := strings.NewReplacer("ARCHIVE", archive, "DEST", dest).Replace(strings.Join(tt.wantArgs, "|"))
			if got != want {
				t.Errorf("args =\n%s\nwant\n%s", got, want)
			}
			if info, err := os.Stat(dest); err != nil || !info.IsDir() {
				t.Errorf("destination should be created before the tool runs")
			}
		})
	}
}

func TestZip_ToolFailure(t *testing.T) {
	runner := &fakeRunner{
		out: []byte("  End-of-central-directory signature not found.\n"),
		err: errors.New("exit status 9"),
	}
	archive := writeArchive(t)

	err := (&Zip{runner: runner, goos: "linux"}).Extract(context.Background(), archive, t.TempDir())

	var xe *ExtractionError
	if !errors.As(err, &xe) {
		t.Fatalf("error = %v, want *ExtractionError", err)
	}
	if !strings.Contains(err.Error(), "End-of-central-directory") {
		t.Errorf("error = %q, want tool output included", err.Error())
	}
}

func TestZip_MissingArchive(t *testing.T) {
	runner := &fakeRunner{}
	err := (&Zip{runner: runner, goos: "linux"}).
		Extract(context.Background(), filepath.Join(t.TempDir(), "none.zip"), t.TempDir())

	var xe *ExtractionError
	if !errors.As(err, &xe) {
		t.Fatalf("error = %v, want *ExtractionError", err)
	}
	if runner.name != "" {
		t.Error("tool should not run for a missing archive")
	}
}

func TestPsQuote(t *testing.T) {
	if got := psQuote(`C:\Users\o'brien\sdk.zip`); got != `'C:\Users\o''brien\sdk.zip'` {
		t.Errorf("psQuote() = %s", got)
	}
}
