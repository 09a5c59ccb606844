// Package archive unpacks downloaded dataset archives into the cache.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/crimson-sun/corpora/internal/metrics"
)

// Format is an archive container/compression pair, detected by extension.
type Format string

const (
	Tar    Format = "tar"
	TarGz  Format = "tar.gz"
	TarZst Format = "tar.zst"
	Zip    Format = "zip"
)

// Detect returns the archive format implied by path's extension.
func Detect(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return TarGz, nil
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return TarZst, nil
	case strings.HasSuffix(name, ".tar"):
		return Tar, nil
	case strings.HasSuffix(name, ".zip"):
		return Zip, nil
	default:
		return "", fmt.Errorf("archive: unsupported archive type: %s", path)
	}
}

// Extract unpacks archivePath into destDir unless destDir/expect already
// exists. It reports whether anything was extracted.
//
// Entries are unpacked into a staging directory first and moved into
// destDir afterwards, so an interrupted run never leaves a partial expect
// directory behind to satisfy the next call's check.
func Extract(archivePath, destDir, expect string) (bool, error) {
	format, err := Detect(archivePath)
	if err != nil {
		return false, err
	}
	if expect != "" {
		if _, err := os.Stat(filepath.Join(destDir, expect)); err == nil {
			metrics.ExtractionsTotal.WithLabelValues(string(format), "skipped").Inc()
			slog.Debug("archive already extracted", "dest", destDir, "expect", expect)
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("archive: %w", err)
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return false, fmt.Errorf("archive: %w", err)
	}
	staging, err := os.MkdirTemp(destDir, ".extract-")
	if err != nil {
		return false, fmt.Errorf("archive: %w", err)
	}
	defer os.RemoveAll(staging)

	slog.Info("extracting", "archive", archivePath, "dest", destDir)
	switch format {
	case Zip:
		err = extractZip(archivePath, staging)
	default:
		err = extractTarFile(archivePath, format, staging)
	}
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(string(format), "error").Inc()
		return false, err
	}

	if expect != "" {
		if _, err := os.Stat(filepath.Join(staging, expect)); err != nil {
			metrics.ExtractionsTotal.WithLabelValues(string(format), "error").Inc()
			return false, fmt.Errorf("archive: %s does not contain %s", archivePath, expect)
		}
	}
	if err := promote(staging, destDir); err != nil {
		metrics.ExtractionsTotal.WithLabelValues(string(format), "error").Inc()
		return false, err
	}
	metrics.ExtractionsTotal.WithLabelValues(string(format), "ok").Inc()
	return true, nil
}

// promote moves the top-level entries of staging into destDir. Entries that
// already exist in destDir are replaced.
func promote(staging, destDir string) error {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	for _, e := range entries {
		dst := filepath.Join(destDir, e.Name())
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		if err := os.Rename(filepath.Join(staging, e.Name()), dst); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}

func extractTarFile(path string, format Format, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch format {
	case TarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("archive: gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	case TarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("archive: zstd %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	return extractTar(r, dest)
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive: read tar: %w", err)
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("archive: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			// Links and device entries never appear in dataset archives.
			slog.Debug("skipping tar entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}
}

func extractZip(path, dest string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("archive: zip %s: %w", path, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return err
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("archive: %w", err)
			}
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("archive: open %s: %w", zf.Name, err)
		}
		err = writeFile(target, rc, zf.Mode().Perm())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(target string, r io.Reader, perm fs.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("archive: write %s: %w", target, err)
	}
	return out.Close()
}

// safeJoin resolves name under dest, rejecting entries that would escape it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive: entry %q escapes destination", name)
	}
	return target, nil
}
