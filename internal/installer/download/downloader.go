// Package download fetches remote files over HTTP.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/terassyi/fbinstall/internal/checksum"
	fbErrors "github.com/terassyi/fbinstall/internal/errors"
)

// ProgressCallback is called during download to report progress.
// total is -1 if Content-Length is unknown.
type ProgressCallback func(downloaded, total int64)

// Checksum describes how to verify a download. Value is "algorithm:hash";
// URL points at a checksum file. Value takes precedence.
type Checksum struct {
	Value string
	URL   string
}

// Downloader defines the interface for downloading and verifying artifacts.
type Downloader interface {
	// Download downloads a file from the given URL to destPath.
	Download(ctx context.Context, url, destPath string) (string, error)

	// DownloadWithProgress downloads a file with progress callback.
	DownloadWithProgress(ctx context.Context, url, destPath string, callback ProgressCallback) (string, error)

	// Get returns the body of a small document such as a signing key.
	Get(ctx context.Context, url string) ([]byte, error)

	// Verify verifies the checksum of a downloaded file. A nil or empty
	// checksum skips verification.
	Verify(ctx context.Context, filePath string, cs *Checksum) error
}

// httpDownloader implements Downloader using HTTP.
type httpDownloader struct {
	client *http.Client
}

// NewDownloader creates a new Downloader with the default HTTP client.
func NewDownloader() Downloader {
	return &httpDownloader{client: http.DefaultClient}
}

// NewDownloaderWithClient creates a new Downloader with the given HTTP client.
func NewDownloaderWithClient(client *http.Client) Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpDownloader{client: client}
}

func (d *httpDownloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fbErrors.NewNetworkError(url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fbErrors.NewHTTPError(url, resp.StatusCode)
	}
	return resp, nil
}

// Download downloads a file from the given URL to destPath.
func (d *httpDownloader) Download(ctx context.Context, url, destPath string) (string, error) {
	return d.DownloadWithProgress(ctx, url, destPath, nil)
}

// DownloadWithProgress downloads to a temporary file and renames it into
// place, so destPath never holds a partial download.
func (d *httpDownloader) DownloadWithProgress(ctx context.Context, url, destPath string, callback ProgressCallback) (string, error) {
	slog.Debug("downloading file", "url", url, "dest", destPath)

	resp, err := d.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	var reader io.Reader = resp.Body
	if callback != nil {
		reader = &progressReader{
			reader:   resp.Body,
			total:    resp.ContentLength,
			callback: callback,
		}
	}

	if _, err := io.Copy(f, reader); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	slog.Debug("download completed", "path", destPath)
	return destPath, nil
}

// Get returns the body at url, capped at 1 MiB.
func (d *httpDownloader) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return body, nil
}

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	callback   ProgressCallback
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		r.callback(r.downloaded, r.total)
	}
	return n, err
}

// Verify verifies the checksum of a downloaded file.
func (d *httpDownloader) Verify(ctx context.Context, filePath string, cs *Checksum) error {
	if cs == nil || (cs.Value == "" && cs.URL == "") {
		slog.Debug("no checksum specified, skipping verification")
		return nil
	}

	slog.Debug("verifying checksum", "file", filePath)

	var (
		algorithm checksum.Algorithm
		expected  checksum.Digest
		err       error
	)
	if cs.Value != "" {
		algorithm, expected, err = checksum.Parse(cs.Value)
	} else {
		algorithm, expected, err = d.fetchChecksum(ctx, cs.URL, filepath.Base(filePath))
	}
	if err != nil {
		return err
	}

	if err := checksum.Verify(filePath, algorithm, expected); err != nil {
		return err
	}
	slog.Debug("checksum verified", "algorithm", algorithm)
	return nil
}

// fetchChecksum fetches a checksum file and extracts the hash for filename.
// The name in the artifact URL is tried when the local name differs.
func (d *httpDownloader) fetchChecksum(ctx context.Context, url, filename string) (checksum.Algorithm, checksum.Digest, error) {
	slog.Debug("fetching checksum file", "url", url, "filename", filename)

	body, err := d.Get(ctx, url)
	if err != nil {
		return "", "", err
	}

	algo, hash, err := checksum.ParseFile(body, filename)
	if err != nil {
		remote := path.Base(url)
		remote = remote[:len(remote)-len(path.Ext(remote))]
		if remote == filename {
			return "", "", err
		}
		return checksum.ParseFile(body, remote)
	}
	slog.Debug("found checksum", "file", filename, "algorithm", algo, "format", checksum.DetectFileFormat(body))
	return algo, hash, nil
}
