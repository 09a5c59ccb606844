// Package cache resolves remote dataset files to checksum-verified local paths.
//
// A file that is present and matches its checksum is never fetched again.
// Downloads land in a temp file beside the target and are renamed into place
// only after verification, so a crash mid-download leaves no file that could
// pass for a complete one. The cache assumes a single writer.
package cache

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/crimson-sun/corpora/internal/fetch"
	"github.com/crimson-sun/corpora/internal/metrics"
)

// Entry names one cached file.
type Entry struct {
	URL      string
	Checksum string // hex MD5 (32 chars) or SHA-256 (64 chars); empty skips verification
	Dir      string // cache directory, created if absent
	FileName string // local name; defaults to the last URL path segment
}

// Path returns the local path the entry resolves to.
func (e Entry) Path() string {
	return filepath.Join(e.Dir, e.fileName())
}

func (e Entry) fileName() string {
	if e.FileName != "" {
		return e.FileName
	}
	if u, err := url.Parse(e.URL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." {
			return base
		}
	}
	return ""
}

// ChecksumError reports a file whose digest does not match the expected one.
type ChecksumError struct {
	Path string
	Want string
	Got  string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("cache: checksum mismatch for %s: want %s, got %s", e.Path, e.Want, e.Got)
}

// Resolver turns entries into local paths, downloading through a Fetcher.
type Resolver struct {
	fetcher  fetch.Fetcher
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProgress renders a download progress bar to w. Without it downloads
// are silent.
func WithProgress(w io.Writer) Option {
	return func(r *Resolver) { r.progress = w }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver backed by f.
func New(f fetch.Fetcher, opts ...Option) *Resolver {
	r := &Resolver{fetcher: f}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve returns the local path for e, downloading it if it is missing or
// fails its checksum.
func (r *Resolver) Resolve(ctx context.Context, e Entry) (string, error) {
	name := e.fileName()
	if e.URL == "" || name == "" {
		return "", fmt.Errorf("cache: entry needs a URL and a file name (url=%q)", e.URL)
	}
	if e.Dir == "" {
		return "", errors.New("cache: entry needs a directory")
	}
	if e.Checksum != "" {
		if _, err := newHash(e.Checksum); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("cache: %w", err)
	}

	dst := e.Path()
	ok, err := r.valid(dst, e.Checksum)
	if err != nil {
		return "", err
	}
	if ok {
		metrics.CacheHitsTotal.WithLabelValues(name).Inc()
		r.logger.Debug("cache hit", "path", dst)
		return dst, nil
	}

	if err := r.download(ctx, e, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// valid reports whether dst exists and matches checksum.
func (r *Resolver) valid(dst, checksum string) (bool, error) {
	if _, err := os.Stat(dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("cache: %w", err)
	}
	if checksum == "" {
		return true, nil
	}
	got, err := fileDigest(dst, checksum)
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(got, checksum) {
		r.logger.Warn("cached file fails checksum, downloading again",
			"path", dst, "want", checksum, "got", got)
		return false, nil
	}
	return true, nil
}

func (r *Resolver) download(ctx context.Context, e Entry, dst string) error {
	start := time.Now()
	scheme := "unknown"
	if u, err := url.Parse(e.URL); err == nil && u.Scheme != "" {
		scheme = strings.ToLower(u.Scheme)
	}
	r.logger.Info("downloading", "url", e.URL, "path", dst)

	rc, size, err := r.fetcher.Open(ctx, e.URL)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(scheme, "error").Inc()
		return fmt.Errorf("cache: download %s: %w", e.URL, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(e.Dir, "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	var h hash.Hash
	writers := []io.Writer{tmp}
	if e.Checksum != "" {
		h, _ = newHash(e.Checksum)
		writers = append(writers, h)
	}
	if r.progress != nil {
		bar := newBar(r.progress, size, filepath.Base(dst))
		defer bar.Finish()
		writers = append(writers, bar)
	}

	n, err := io.Copy(io.MultiWriter(writers...), rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(scheme, "error").Inc()
		return fmt.Errorf("cache: download %s: %w", e.URL, err)
	}
	metrics.DownloadBytesTotal.Add(float64(n))

	if h != nil {
		got := hex.EncodeToString(h.Sum(nil))
		if !strings.EqualFold(got, e.Checksum) {
			metrics.ChecksumFailuresTotal.Inc()
			metrics.DownloadsTotal.WithLabelValues(scheme, "checksum_mismatch").Inc()
			return &ChecksumError{Path: dst, Want: e.Checksum, Got: got}
		}
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	committed = true
	metrics.DownloadsTotal.WithLabelValues(scheme, "ok").Inc()

	r.logger.Info("download complete",
		"path", dst,
		"bytes", n,
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

func newBar(w io.Writer, size int64, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

// newHash picks the digest by the hex length of the expected checksum.
func newHash(checksum string) (hash.Hash, error) {
	switch len(checksum) {
	case 2 * md5.Size:
		return md5.New(), nil
	case 2 * sha256.Size:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("cache: unsupported checksum %q: want hex MD5 or SHA-256", checksum)
	}
}

func fileDigest(path, checksum string) (string, error) {
	h, err := newHash(checksum)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cache: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("cache: hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
