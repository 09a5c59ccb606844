// Package fixtures provides small embedded corpora and archive builders for
// tests that exercise the download → extract → parse path without network.
package fixtures

import (
	"archive/tar"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

//go:embed data/amazon_train.csv
var AmazonTrainCSV string

//go:embed data/amazon_test.csv
var AmazonTestCSV string

// AmazonFiles is the extracted layout of the Amazon review polarity archive.
func AmazonFiles() map[string]string {
	return map[string]string{
		"amazon_review_polarity_csv/train.csv":  AmazonTrainCSV,
		"amazon_review_polarity_csv/test.csv":   AmazonTestCSV,
		"amazon_review_polarity_csv/readme.txt": "Amazon Review Polarity Dataset\n",
	}
}

// IMDBFiles is a miniature aclImdb layout: two reviews per split and polarity.
func IMDBFiles() map[string]string {
	return map[string]string{
		"aclImdb/train/pos/0_9.txt":   "Bromwell High is a cartoon comedy. It ran at the same time as some other programs.",
		"aclImdb/train/pos/1_7.txt":   "Homelessness or Houselessness as George Carlin stated, has been an issue for years.",
		"aclImdb/train/neg/0_3.txt":   "Story of a man who has unnatural feelings for a pig.",
		"aclImdb/train/neg/1_1.txt":   "Airport '77 starts as a brand new luxury 747 plane is loaded up.",
		"aclImdb/test/pos/0_10.txt":   "I went and saw this movie last night after being coaxed to by a few friends.",
		"aclImdb/test/neg/0_2.txt":    "Once again Mr. Costner has dragged out a movie for far longer than necessary.",
		"aclImdb/test/neg/1_3.txt":    "This is an example of why the majority of action films are the same.",
		"aclImdb/train/unsup/0_0.txt": "Unlabelled review kept out of the labelled splits.",
		"aclImdb/README":              "Large Movie Review Dataset v1.0\n",
	}
}

// TarGz builds a gzip-compressed tar archive holding files.
func TarGz(files map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := writeTar(gz, files); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TarZst builds a zstd-compressed tar archive holding files.
func TarZst(files map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if err := writeTar(zw, files); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Tar builds an uncompressed tar archive holding files.
func Tar(files map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTar(&buf, files); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Zip builds a zip archive holding files.
func Zip(files map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedNames(files) {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTar(w io.Writer, files map[string]string) error {
	tw := tar.NewWriter(w)
	dirs := map[string]bool{}
	for _, name := range sortedNames(files) {
		for _, dir := range parents(name) {
			if dirs[dir] {
				continue
			}
			dirs[dir] = true
			if err := tw.WriteHeader(&tar.Header{Name: dir + "/", Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
				return fmt.Errorf("fixtures: %w", err)
			}
		}
		body := files[name]
		hdr := &tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("fixtures: %w", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			return fmt.Errorf("fixtures: %w", err)
		}
	}
	return tw.Close()
}

func parents(name string) []string {
	var out []string
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			out = append(out, name[:i])
		}
	}
	return out
}

func sortedNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
