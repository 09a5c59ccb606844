package text

import (
	"fmt"
	"log/slog"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Pretrained wraps a HuggingFace tokenizer.json. Only the token strings are
// used; ids always come from a corpora Vocab.
type Pretrained struct {
	tk *tokenizer.Tokenizer
}

// NewPretrained loads a tokenizer.json file.
func NewPretrained(path string) (*Pretrained, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("text: load tokenizer %s: %w", path, err)
	}
	return &Pretrained{tk: tk}, nil
}

// TokenizeChecked returns the model's tokens without special tokens.
func (p *Pretrained) TokenizeChecked(text string) ([]string, error) {
	enc, err := p.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("text: pretrained tokenizer: %w", err)
	}
	return enc.Tokens, nil
}

// Tokenize is TokenizeChecked for callers that cannot handle an error; a
// rejected text is logged and yields no tokens.
func (p *Pretrained) Tokenize(text string) []string {
	toks, err := p.TokenizeChecked(text)
	if err != nil {
		slog.Warn("text rejected by tokenizer", "error", err)
	}
	return toks
}
