// Package extract unpacks downloaded archives into a destination directory.
package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/terassyi/fbinstall/internal/plan"
)

// Format is an archive container format.
type Format string

const (
	FormatZip   Format = "zip"
	FormatTarGz Format = "tar.gz"
	FormatTarXz Format = "tar.xz"
)

// DetectFormat infers the archive format from a file name or URL.
// It returns "" when the name carries no known extension.
func DetectFormat(name string) Format {
	base := strings.ToLower(filepath.Base(name))
	switch {
	case strings.HasSuffix(base, ".zip"):
		return FormatZip
	case strings.HasSuffix(base, ".tar.gz"), strings.HasSuffix(base, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(base, ".tar.xz"), strings.HasSuffix(base, ".txz"):
		return FormatTarXz
	}
	return ""
}

// Extractor converges archive actions from files on local disk.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract unpacks p.Source into p.Destination. Whether the archive needs
// unpacking at all is decided by the action guard, so a successful call
// always reports a change.
func (e *Extractor) Extract(ctx context.Context, p *plan.ArchiveParams) (bool, error) {
	format := DetectFormat(p.Source)
	if format == "" {
		return false, fmt.Errorf("unsupported archive: %s", p.Source)
	}

	f, err := os.Open(p.Source)
	if err != nil {
		return false, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(p.Destination, 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	slog.Debug("extracting archive", "source", p.Source, "dest", p.Destination, "format", format)
	if err := Unpack(ctx, format, f, p.Destination); err != nil {
		return false, err
	}
	return true, nil
}

// Unpack extracts an archive read from f into destDir.
func Unpack(ctx context.Context, format Format, f *os.File, destDir string) error {
	switch format {
	case FormatZip:
		info, err := f.Stat()
		if err != nil {
			return err
		}
		return unzip(ctx, f, info.Size(), destDir)
	case FormatTarGz:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gr.Close()
		return untar(ctx, gr, destDir)
	case FormatTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		return untar(ctx, xr, destDir)
	default:
		return fmt.Errorf("unsupported archive format: %s", format)
	}
}

func unzip(ctx context.Context, r io.ReaderAt, size int64, destDir string) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("failed to create zip reader: %w", err)
	}

	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if isOSMetadataPath(zf.Name) {
			continue
		}

		target := filepath.Join(destDir, zf.Name)
		if !isInsideDir(destDir, target) {
			return fmt.Errorf("invalid file path: %s", zf.Name)
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", zf.Name, err)
		}
		err = writeFile(rc, target, zf.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func untar(ctx context.Context, r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		target := filepath.Join(destDir, hdr.Name)
		if !isInsideDir(destDir, target) {
			return fmt.Errorf("invalid file path: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(tr, target, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if !isInsideDir(destDir, filepath.Join(filepath.Dir(target), hdr.Linkname)) {
				return fmt.Errorf("invalid symlink target: %s -> %s", hdr.Name, hdr.Linkname)
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink: %w", err)
			}
		default:
			slog.Debug("skipping tar entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}
}

func writeFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return f.Close()
}

// isOSMetadataPath reports whether name is part of a __MACOSX tree.
func isOSMetadataPath(name string) bool {
	return name == "__MACOSX" || strings.HasPrefix(name, "__MACOSX/")
}

// isInsideDir reports whether target lies strictly below baseDir.
func isInsideDir(baseDir, target string) bool {
	rel, err := filepath.Rel(baseDir, target)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !filepath.IsAbs(rel) && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
