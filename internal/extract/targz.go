package extract

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for entries or link targets outside the
// destination directory.
var ErrUnsafePath = errors.New("path escapes destination")

// TarGz extracts .tar.gz archives in-process.
type TarGz struct{}

// Extract streams archivePath into destDir.
func (x *TarGz) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := x.extract(ctx, archivePath, destDir); err != nil {
		return &ExtractionError{Archive: archivePath, Err: err}
	}
	return nil
}

func (x *TarGz) extract(ctx context.Context, archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	root, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolve dest dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := within(root, header.Name)
		if err != nil {
			return err
		}
		if target == root {
			continue
		}
		if err := checkParents(root, target); err != nil {
			return fmt.Errorf("entry %s: %w", header.Name, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", header.Name, err)
			}

		case tar.TypeReg:
			if isSymlink(target) {
				return fmt.Errorf("entry %s: %w: overwrites a symlink", header.Name, ErrUnsafePath)
			}
			if err := writeFile(target, tarReader, header.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("write file %s: %w", header.Name, err)
			}

		case tar.TypeSymlink:
			if err := checkLink(root, target, header.Linkname); err != nil {
				return fmt.Errorf("symlink %s -> %s: %w", header.Name, header.Linkname, err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", header.Name, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", header.Name, err)
			}

		case tar.TypeLink:
			source, err := within(root, header.Linkname)
			if err != nil {
				return fmt.Errorf("hard link %s: %w", header.Name, err)
			}
			if err := checkParents(root, source); err != nil {
				return fmt.Errorf("hard link %s: %w", header.Name, err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", header.Name, err)
			}
			if err := os.Link(source, target); err != nil {
				return fmt.Errorf("create hard link %s: %w", header.Name, err)
			}

		default:
			// Skip other types (char devices, block devices, etc.)
			continue
		}
	}
}

// within joins name onto root and rejects results outside root.
func within(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(root, name)
	if !inside(root, target) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// checkLink rejects a symlink at target whose destination resolves outside
// root. The link is walked one component at a time and may not pass through
// a symlink already on disk, so ".." always means the lexical parent.
func checkLink(root, target, linkname string) error {
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return ErrUnsafePath
	}

	parts := strings.Split(filepath.ToSlash(linkname), "/")
	cur := filepath.Dir(target)
	for i, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
		default:
			cur = filepath.Join(cur, part)
		}
		if !inside(root, cur) {
			return ErrUnsafePath
		}
		if i < len(parts)-1 && isSymlink(cur) {
			return fmt.Errorf("%w: traverses symlink %s", ErrUnsafePath, cur)
		}
	}
	return nil
}

// checkParents rejects target when a directory between root and target is
// a symlink on disk. Components that do not exist yet are fine.
func checkParents(root, target string) error {
	for dir := filepath.Dir(target); dir != root && inside(root, dir); dir = filepath.Dir(dir) {
		if isSymlink(dir) {
			return fmt.Errorf("%w: parent %s is a symlink", ErrUnsafePath, dir)
		}
	}
	return nil
}

func inside(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}
