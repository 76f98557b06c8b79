// Package fsys converges directories and files on the local filesystem.
package fsys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/terassyi/fbinstall/internal/plan"
)

const (
	defaultDirMode  fs.FileMode = 0o755
	defaultFileMode fs.FileMode = 0o644
)

// FS implements the filesystem provider. Every path is resolved below
// root, which is empty on a real host.
type FS struct {
	root string
}

// New returns an FS rooted at root.
func New(root string) *FS {
	return &FS{root: root}
}

// Path maps a plan path onto the host.
func (f *FS) Path(p string) string {
	p = filepath.FromSlash(p)
	if f.root == "" {
		return p
	}
	return filepath.Join(f.root, p)
}

// Exists reports whether path exists.
func (f *FS) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Lstat(f.Path(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// CreateDirectory creates p.Path and converges its mode and ownership.
func (f *FS) CreateDirectory(_ context.Context, p *plan.DirectoryParams) (bool, error) {
	target := f.Path(p.Path)
	mode := p.Mode
	if mode == 0 {
		mode = defaultDirMode
	}

	changed := false
	info, err := os.Stat(target)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, fmt.Errorf("%s exists and is not a directory", p.Path)
		}
	case errors.Is(err, fs.ErrNotExist):
		if p.Recursive {
			err = os.MkdirAll(target, mode)
		} else {
			err = os.Mkdir(target, mode)
		}
		if err != nil {
			return false, fmt.Errorf("failed to create directory %s: %w", p.Path, err)
		}
		slog.Debug("created directory", "path", target)
		changed = true
	default:
		return false, fmt.Errorf("failed to stat %s: %w", p.Path, err)
	}

	attrChanged, err := converge(target, mode, p.Owner, p.Group)
	return changed || attrChanged, err
}

// DeleteDirectory removes p.Path. Non-recursive deletion fails on a
// directory that still has entries.
func (f *FS) DeleteDirectory(_ context.Context, p *plan.DirectoryParams) (bool, error) {
	target := f.Path(p.Path)
	if _, err := os.Lstat(target); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	var err error
	if p.Recursive {
		err = os.RemoveAll(target)
	} else {
		err = os.Remove(target)
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete directory %s: %w", p.Path, err)
	}
	slog.Debug("deleted directory", "path", target, "recursive", p.Recursive)
	return true, nil
}

// WriteFile writes p.Content when it differs from what is on disk.
func (f *FS) WriteFile(_ context.Context, p *plan.FileParams) (bool, error) {
	changed, err := f.Write(p.Path, p.Content, p.Mode)
	if err != nil {
		return false, err
	}
	mode := p.Mode
	if mode == 0 {
		mode = defaultFileMode
	}
	attrChanged, err := converge(f.Path(p.Path), mode, p.Owner, p.Group)
	return changed || attrChanged, err
}

// DeleteFile removes path if present.
func (f *FS) DeleteFile(_ context.Context, path string) (bool, error) {
	return f.Remove(path)
}

// Write replaces the file at path with content unless it already matches.
// Parent directories are created as needed.
func (f *FS) Write(path string, content []byte, mode fs.FileMode) (bool, error) {
	target := f.Path(path)
	if mode == 0 {
		mode = defaultFileMode
	}

	current, err := os.ReadFile(target)
	if err == nil && bytes.Equal(current, content) {
		return false, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, content, mode); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("failed to replace %s: %w", path, err)
	}
	slog.Debug("wrote file", "path", target, "bytes", len(content))
	return true, nil
}

// Read returns the content at path. A missing file reads as nil.
func (f *FS) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(f.Path(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Remove deletes the file at path and reports whether it existed.
func (f *FS) Remove(path string) (bool, error) {
	err := os.Remove(f.Path(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	slog.Debug("removed file", "path", path)
	return true, nil
}

func converge(target string, mode fs.FileMode, owner, group string) (bool, error) {
	info, err := os.Stat(target)
	if err != nil {
		return false, err
	}
	changed := false
	if chmodSupported && info.Mode().Perm() != mode.Perm() {
		if err := os.Chmod(target, mode.Perm()); err != nil {
			return false, fmt.Errorf("failed to chmod %s: %w", target, err)
		}
		changed = true
	}
	if owner == "" && group == "" {
		return changed, nil
	}
	chowned, err := chown(target, info, owner, group)
	return changed || chowned, err
}
