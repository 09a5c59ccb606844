package cache

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/crimson-sun/corpora/internal/fetch"
)

const payload = "label,title,text\n1,Great,product\n"

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingServer serves body and counts requests.
func countingServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestResolve_DownloadsOnce(t *testing.T) {
	srv, calls := countingServer(t, payload)
	r := New(fetch.NewHTTP(), WithLogger(quietLogger()))
	e := Entry{
		URL:      srv.URL + "/reviews.csv",
		Checksum: md5Hex(payload),
		Dir:      filepath.Join(t.TempDir(), "datasets", "Reviews"),
	}

	for i := 0; i < 2; i++ {
		path, err := r.Resolve(context.Background(), e)
		if err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
		if filepath.Base(path) != "reviews.csv" {
			t.Fatalf("expected file name from URL, got %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != payload {
			t.Fatalf("unexpected content: %q", data)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one download, got %d", calls.Load())
	}
}

func TestResolve_ExplicitFileName(t *testing.T) {
	srv, _ := countingServer(t, payload)
	r := New(fetch.NewHTTP(), WithLogger(quietLogger()))
	e := Entry{
		URL:      srv.URL + "/uc?export=download&id=abc",
		Dir:      t.TempDir(),
		FileName: "reviews.tar.gz",
	}
	path, err := r.Resolve(context.Background(), e)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(e.Dir, "reviews.tar.gz") {
		t.Fatalf("unexpected path %s", path)
	}
}

func TestResolve_ChecksumMismatchAfterDownload(t *testing.T) {
	srv, _ := countingServer(t, payload)
	r := New(fetch.NewHTTP(), WithLogger(quietLogger()))
	e := Entry{
		URL:      srv.URL + "/reviews.csv",
		Checksum: md5Hex("something else"),
		Dir:      t.TempDir(),
	}

	_, err := r.Resolve(context.Background(), e)
	var ce *ChecksumError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ChecksumError, got %v", err)
	}
	if ce.Got != md5Hex(payload) {
		t.Fatalf("unexpected digest in error: %+v", ce)
	}

	entries, err := os.ReadDir(e.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files left behind, found %d", len(entries))
	}
}

func TestResolve_CorruptCacheRedownloads(t *testing.T) {
	srv, calls := countingServer(t, payload)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "reviews.csv"), []byte("truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(fetch.NewHTTP(), WithLogger(quietLogger()))
	path, err := r.Resolve(context.Background(), Entry{
		URL:      srv.URL + "/reviews.csv",
		Checksum: sha256Hex(payload),
		Dir:      dir,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != payload {
		t.Fatalf("expected fresh content, got %q", data)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one download, got %d", calls.Load())
	}
}

func TestResolve_NoChecksumTrustsExistingFile(t *testing.T) {
	srv, calls := countingServer(t, payload)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "reviews.csv"), []byte("local copy"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(fetch.NewHTTP(), WithLogger(quietLogger()))
	if _, err := r.Resolve(context.Background(), Entry{URL: srv.URL + "/reviews.csv", Dir: dir}); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no download, got %d", calls.Load())
	}
}

func TestResolve_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := New(fetch.NewHTTP(), WithLogger(quietLogger()))
	_, err := r.Resolve(context.Background(), Entry{URL: srv.URL + "/x.csv", Dir: t.TempDir()})
	var se *fetch.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusForbidden {
		t.Fatalf("expected wrapped StatusError 403, got %v", err)
	}
}

func TestResolve_ProgressOutput(t *testing.T) {
	srv, _ := countingServer(t, strings.Repeat("x", 1024))
	var progress bytes.Buffer
	r := New(fetch.NewHTTP(), WithProgress(&progress), WithLogger(quietLogger()))
	if _, err := r.Resolve(context.Background(), Entry{URL: srv.URL + "/big.bin", Dir: t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(progress.String(), "big.bin") {
		t.Fatalf("expected progress output to mention the file, got %q", progress.String())
	}
}

func TestResolve_InvalidEntries(t *testing.T) {
	r := New(fetch.NewHTTP(), WithLogger(quietLogger()))
	tests := []struct {
		name string
		e    Entry
	}{
		{"no url", Entry{Dir: t.TempDir()}},
		{"no dir", Entry{URL: "https://example.com/a.csv"}},
		{"bad checksum", Entry{URL: "https://example.com/a.csv", Dir: t.TempDir(), Checksum: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Resolve(context.Background(), tt.e); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
