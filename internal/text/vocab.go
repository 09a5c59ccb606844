package text

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	PadToken = "<pad>"
	UnkToken = "<unk>"
)

// Vocab is a frozen token ↔ id mapping. Ids are dense, starting at 0.
type Vocab struct {
	tokenToID map[string]int64
	idToToken []string

	padID int64
	unkID int64
}

type buildConfig struct {
	specials []string
	minFreq  int
	topK     int
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithSpecials replaces the default special tokens. The first special is the
// padding token and the second the unknown token.
func WithSpecials(tokens ...string) BuildOption {
	return func(c *buildConfig) { c.specials = tokens }
}

// WithMinFreq drops tokens seen fewer than n times.
func WithMinFreq(n int) BuildOption {
	return func(c *buildConfig) { c.minFreq = n }
}

// WithTopK keeps only the k most frequent tokens, not counting specials.
// Zero keeps all.
func WithTopK(k int) BuildOption {
	return func(c *buildConfig) { c.topK = k }
}

// Build creates a vocabulary from tokenized documents. Specials come first,
// then tokens by descending frequency with ties broken lexicographically.
func Build(docs [][]string, opts ...BuildOption) (*Vocab, error) {
	cfg := buildConfig{specials: []string{PadToken, UnkToken}, minFreq: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.specials) < 2 {
		return nil, fmt.Errorf("vocab: need a padding and an unknown special token, got %v", cfg.specials)
	}

	counts := make(map[string]int)
	for _, doc := range docs {
		for _, tok := range doc {
			counts[tok]++
		}
	}

	special := make(map[string]bool, len(cfg.specials))
	for _, s := range cfg.specials {
		if special[s] {
			return nil, fmt.Errorf("vocab: duplicate special token %q", s)
		}
		special[s] = true
	}

	ranked := make([]string, 0, len(counts))
	for tok, n := range counts {
		if special[tok] || n < cfg.minFreq {
			continue
		}
		ranked = append(ranked, tok)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return a < b
	})
	if cfg.topK > 0 && len(ranked) > cfg.topK {
		ranked = ranked[:cfg.topK]
	}

	tokens := append(append([]string(nil), cfg.specials...), ranked...)
	return newVocab(tokens, 0, 1), nil
}

func newVocab(tokens []string, padID, unkID int64) *Vocab {
	m := make(map[string]int64, len(tokens))
	for i, tok := range tokens {
		m[tok] = int64(i)
	}
	return &Vocab{tokenToID: m, idToToken: tokens, padID: padID, unkID: unkID}
}

// LoadVocab reads a vocabulary file where each line is a token and the line
// number (0-indexed) is the token id. The unknown token must be <unk> or
// [UNK]; the padding token is <pad> or [PAD] when present, else id 0.
func LoadVocab(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()
	return ReadVocab(f)
}

// ReadVocab is LoadVocab over an arbitrary reader.
func ReadVocab(r io.Reader) (*Vocab, error) {
	var tokens []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tok := strings.TrimRight(scanner.Text(), "\r")
		if seen[tok] {
			return nil, fmt.Errorf("vocab: duplicate token %q on line %d", tok, len(tokens)+1)
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read error: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vocab: file is empty")
	}

	v := newVocab(tokens, 0, -1)
	for _, name := range []string{UnkToken, "[UNK]"} {
		if id, ok := v.tokenToID[name]; ok {
			v.unkID = id
			break
		}
	}
	if v.unkID < 0 {
		return nil, fmt.Errorf("vocab: missing unknown token (%s or [UNK])", UnkToken)
	}
	for _, name := range []string{PadToken, "[PAD]"} {
		if id, ok := v.tokenToID[name]; ok {
			v.padID = id
			break
		}
	}
	return v, nil
}

// WriteTo writes one token per line in id order.
func (v *Vocab) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, tok := range v.idToToken {
		k, err := bw.WriteString(tok + "\n")
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Save writes the vocabulary to path.
func (v *Vocab) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("vocab: %w", err)
	}
	if _, err := v.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("vocab: write %s: %w", path, err)
	}
	return f.Close()
}

// Lookup returns the id for token, or the unknown id if absent.
func (v *Vocab) Lookup(token string) int64 {
	if id, ok := v.tokenToID[token]; ok {
		return id
	}
	return v.unkID
}

// Lookups maps every token and reports how many were unknown.
func (v *Vocab) Lookups(tokens []string) (ids []int64, unknown int) {
	ids = make([]int64, len(tokens))
	for i, tok := range tokens {
		id, ok := v.tokenToID[tok]
		if !ok {
			id = v.unkID
			unknown++
		}
		ids[i] = id
	}
	return ids, unknown
}

// Token returns the token for id, or "" if id is out of range.
func (v *Vocab) Token(id int64) string {
	if id < 0 || id >= int64(len(v.idToToken)) {
		return ""
	}
	return v.idToToken[id]
}

// Contains reports whether the token is in the vocabulary.
func (v *Vocab) Contains(token string) bool {
	_, ok := v.tokenToID[token]
	return ok
}

// Size returns the number of tokens in the vocabulary.
func (v *Vocab) Size() int { return len(v.idToToken) }

func (v *Vocab) UnknownID() int64 { return v.unkID }
func (v *Vocab) PadID() int64     { return v.padID }
