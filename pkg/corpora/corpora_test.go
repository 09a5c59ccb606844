package corpora

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/crimson-sun/corpora/internal/dataset"
	"github.com/crimson-sun/corpora/internal/fixtures"
	"github.com/crimson-sun/corpora/internal/text"
)

func mirror(t *testing.T) string {
	t.Helper()
	data, err := fixtures.TarGz(fixtures.AmazonFiles())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/amazon_review_polarity_csv.tar.gz"
}

func TestDatasets(t *testing.T) {
	names := Datasets()
	want := map[string]bool{"AmazonReviewPolarity": false, "IMDB": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, found := range want {
		if !found {
			t.Errorf("%s not registered (have %v)", n, names)
		}
	}
}

func TestLoadAndProcess(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	src := mirror(t)

	splits, err := Load(ctx, "amazonreviewpolarity", WithRoot(root), WithMirror(src, ""), WithQuiet())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("got %d splits", len(splits))
	}

	train, vocab, err := Process(splits[0], WithColumn("title_text"), WithTokenizer(&text.BasicTokenizer{Lower: true}))
	if err != nil {
		t.Fatalf("Process train: %v", err)
	}
	test, same, err := Process(splits[1], WithVocab(vocab))
	if err != nil {
		t.Fatalf("Process test: %v", err)
	}
	if same != vocab || train.Len() != 5 || test.Len() != 3 {
		t.Fatalf("train=%d test=%d", train.Len(), test.Len())
	}
	if _, _, err := Process(splits[0], WithColumn("label")); err == nil {
		t.Fatal("expected error for non-text column")
	}
}

func TestProcessVocabularyLimits(t *testing.T) {
	ds, err := dataset.New("Reviews", "train", []string{"label", "text"}, []int{1, 0}, []string{"a a b", "a c"})
	if err != nil {
		t.Fatal(err)
	}

	_, vocab, err := Process(ds, WithMinFreq(2))
	if err != nil {
		t.Fatal(err)
	}
	if vocab.Size() != 3 || !vocab.Contains("a") || vocab.Contains("b") {
		t.Fatalf("min-freq vocab size = %d", vocab.Size())
	}

	_, vocab, err = Process(ds, WithTopK(2))
	if err != nil {
		t.Fatal(err)
	}
	if vocab.Size() != 4 || !vocab.Contains("b") || vocab.Contains("c") {
		t.Fatalf("top-k vocab size = %d", vocab.Size())
	}
}

func TestLoadSplit(t *testing.T) {
	var progress bytes.Buffer
	ds, err := LoadSplit(context.Background(), "AmazonReviewPolarity", "test",
		WithRoot(t.TempDir()),
		WithMirror(mirror(t), ""),
		WithProgress(&progress),
		WithTimeout(10*time.Second),
		WithRetries(1))
	if err != nil {
		t.Fatalf("LoadSplit: %v", err)
	}
	if ds.Split() != "test" || ds.Len() != 3 {
		t.Fatalf("got %s with %d rows", ds.Split(), ds.Len())
	}
	if progress.Len() == 0 {
		t.Error("expected progress output")
	}
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Load(ctx, "NoSuchDataset"); err == nil {
		t.Error("expected error for unknown dataset")
	}
	if _, err := LoadSplit(ctx, "AmazonReviewPolarity", "valid", WithRoot(t.TempDir()), WithQuiet()); err == nil {
		t.Error("expected error for unknown split")
	}
	proxy, _ := url.Parse("http://127.0.0.1:1")
	if _, err := Load(ctx, "AmazonReviewPolarity", WithRoot(t.TempDir()), WithProxy(proxy), WithQuiet(), WithMirror("http://example.invalid/a.tar.gz", "")); err == nil {
		t.Error("expected error through an unreachable proxy")
	}
	if _, _, err := Process(nil); err == nil {
		t.Error("expected error for nil dataset")
	}
}
