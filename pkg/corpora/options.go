package corpora

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/crimson-sun/corpora/internal/text"
)

type options struct {
	root     string
	splits   []string
	proxy    *url.URL
	quiet    bool
	progress io.Writer
	timeout  time.Duration
	retries  int
	mirror   string
	checksum string
	region   string
	endpoint string

	tokenizer Tokenizer
	vocab     *Vocab
	column    string
	build     []text.BuildOption
}

// Option configures Load, LoadSplit and Process. Options that do not apply to
// a call are ignored.
type Option func(*options)

// WithRoot sets the cache root. Default: ~/.corpora.
func WithRoot(dir string) Option {
	return func(o *options) { o.root = dir }
}

// WithSplits selects splits and their order. Default: every split.
func WithSplits(splits ...string) Option {
	return func(o *options) { o.splits = splits }
}

// WithProxy routes downloads through proxy instead of the environment proxy.
func WithProxy(proxy *url.URL) Option {
	return func(o *options) { o.proxy = proxy }
}

// WithQuiet suppresses the download progress bar.
func WithQuiet() Option {
	return func(o *options) { o.quiet = true }
}

// WithProgress renders the download progress bar to w. Default: stderr.
func WithProgress(w io.Writer) Option {
	return func(o *options) { o.progress = w }
}

// WithTimeout bounds each HTTP request. Default: no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetries retries failed downloads (429 and 5xx) up to n times.
// Default: 0.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithMirror downloads from url instead of the dataset's origin. checksum
// (hex MD5 or SHA-256) may be empty to skip verification.
func WithMirror(url, checksum string) Option {
	return func(o *options) {
		o.mirror = url
		o.checksum = checksum
	}
}

// WithS3 configures the client used for s3:// mirrors.
func WithS3(region, endpoint string) Option {
	return func(o *options) {
		o.region = region
		o.endpoint = endpoint
	}
}

// WithTokenizer sets the tokenizer used by Process.
// Default: a case-preserving BasicTokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(o *options) { o.tokenizer = t }
}

// WithVocab makes Process apply v instead of fitting a new vocabulary.
func WithVocab(v *Vocab) Option {
	return func(o *options) { o.vocab = v }
}

// WithColumn names the column Process tokenizes. It must be the dataset's
// text column.
func WithColumn(name string) Option {
	return func(o *options) { o.column = name }
}

// WithMinFreq makes Process drop tokens seen fewer than n times when it
// fits a vocabulary. Default: 1.
func WithMinFreq(n int) Option {
	return func(o *options) { o.build = append(o.build, text.WithMinFreq(n)) }
}

// WithTopK makes Process keep only the k most frequent tokens, specials
// aside, when it fits a vocabulary. Default: 0, keeping all.
func WithTopK(k int) Option {
	return func(o *options) { o.build = append(o.build, text.WithTopK(k)) }
}

func defaultOptions() options {
	return options{
		root:     defaultRoot(),
		progress: os.Stderr,
		region:   "us-east-1",
	}
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".corpora"
	}
	return filepath.Join(home, ".corpora")
}
