package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/terassyi/fbinstall/internal/converge"
	"github.com/terassyi/fbinstall/internal/plan"
)

// Fetcher converges remote_file actions.
type Fetcher struct {
	downloader Downloader
}

// NewFetcher creates a Fetcher backed by d.
func NewFetcher(d Downloader) *Fetcher {
	return &Fetcher{downloader: d}
}

// Fetch downloads p.URL to p.Path unless a verified copy already exists.
// A download that fails verification is removed.
func (f *Fetcher) Fetch(ctx context.Context, p *plan.RemoteFileParams, progress converge.ProgressFunc) (bool, error) {
	cs := &Checksum{Value: p.Checksum, URL: p.ChecksumURL}

	if _, err := os.Stat(p.Path); err == nil {
		if err := f.downloader.Verify(ctx, p.Path, cs); err == nil {
			slog.Debug("remote file already present", "path", p.Path)
			return false, nil
		}
		slog.Warn("cached file failed verification, downloading again", "path", p.Path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", p.Path, err)
	}

	var cb ProgressCallback
	if progress != nil {
		cb = ProgressCallback(progress)
	}
	if _, err := f.downloader.DownloadWithProgress(ctx, p.URL, p.Path, cb); err != nil {
		return false, err
	}
	if err := f.downloader.Verify(ctx, p.Path, cs); err != nil {
		os.Remove(p.Path)
		return false, err
	}
	return true, nil
}
