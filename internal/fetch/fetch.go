// Package fetch downloads toolchain archives into the work directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hu-ti-dev/installers/internal/httputil"
	"github.com/hu-ti-dev/installers/internal/log"
	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/progress"
)

// partSuffix marks an archive that is still being downloaded.
const partSuffix = ".part"

// SizeMismatchError reports a download whose byte count differs from the
// size the server advertised.
type SizeMismatchError struct {
	Name     string
	URL      string
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("download of %s is incomplete: expected %d bytes, got %d", e.Name, e.Expected, e.Actual)
}

// Result describes a fetched archive.
type Result struct {
	Path       string
	Size       int64
	Downloaded bool // false when the archive was already present
}

// Fetcher downloads archives over HTTPS.
type Fetcher struct {
	// Client defaults to httputil.NewClient(httputil.DefaultOptions()).
	Client *http.Client

	// Progress receives the progress bar. Nil disables it.
	Progress io.Writer

	Logger log.Logger
}

// Fetch makes sure the archive for spec exists in dir. An existing file is
// trusted without contacting the server. A fresh download is written to a
// ".part" file first and only renamed into place once its size matches the
// advertised Content-Length; on a mismatch the partial file is removed and
// a *SizeMismatchError is returned.
func (f *Fetcher) Fetch(ctx context.Context, dir string, spec manifest.ToolchainSpec) (Result, error) {
	logger := log.OrDefault(f.Logger).With("toolchain", spec.Name)

	name := spec.ArchiveName()
	dest := filepath.Join(dir, name)
	res := Result{Path: dest}

	if info, err := os.Stat(dest); err == nil {
		logger.Info("archive already downloaded", "file", name, "size", humanize.IBytes(uint64(info.Size())))
		res.Size = info.Size()
		return res, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("failed to inspect %s: %w", dest, err)
	}

	if !strings.HasPrefix(spec.URL, "https://") {
		return res, fmt.Errorf("download URL must use HTTPS, got: %s", spec.URL)
	}

	client := f.client()

	expected, err := probeSize(ctx, client, spec.URL)
	if err != nil {
		logger.Debug("size probe failed", "error", err)
		expected = -1
	}

	logger.Info("downloading archive", "url", spec.URL, "file", name)
	written, advertised, err := f.download(ctx, client, spec.URL, dest+partSuffix, expected, name)
	if err != nil {
		_ = os.Remove(dest + partSuffix)
		return res, err
	}
	if expected < 0 {
		expected = advertised
	}

	if expected < 0 {
		logger.Warn("server did not report a size, skipping length check", "file", name)
	} else if written != expected {
		_ = os.Remove(dest + partSuffix)
		return res, &SizeMismatchError{Name: name, URL: spec.URL, Expected: expected, Actual: written}
	}

	if err := os.Rename(dest+partSuffix, dest); err != nil {
		_ = os.Remove(dest + partSuffix)
		return res, fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	logger.Info("download complete", "file", name, "size", humanize.IBytes(uint64(written)))
	res.Size = written
	res.Downloaded = true
	return res, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return httputil.NewClient(httputil.DefaultOptions())
}

// probeSize asks the server for the archive size with a HEAD request.
// It returns -1 when the server does not say.
func probeSize(ctx context.Context, client *http.Client, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return -1, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := client.Do(req)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return -1, fmt.Errorf("bad status: %s", resp.Status)
	}
	return resp.ContentLength, nil
}

// download streams url into path and returns the bytes written together
// with the Content-Length of the GET response (-1 if unknown).
func (f *Fetcher) download(ctx context.Context, client *http.Client, url, path string, total int64, label string) (int64, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, -1, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := client.Do(req)
	if err != nil {
		return 0, -1, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, -1, fmt.Errorf("bad status: %s", resp.Status)
	}
	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" && encoding != "identity" {
		return 0, -1, fmt.Errorf("compressed responses not supported (got %s)", encoding)
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, -1, fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if total < 0 {
		total = resp.ContentLength
	}

	var dst io.Writer = out
	if f.Progress != nil {
		pw := progress.NewWriter(out, total, f.Progress).WithLabel(label)
		defer pw.Finish()
		dst = pw
	}

	written, err := io.Copy(dst, resp.Body)
	if err != nil {
		return written, -1, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return written, -1, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return written, resp.ContentLength, nil
}
