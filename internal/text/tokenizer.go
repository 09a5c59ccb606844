// Package text turns raw review text into tokens and tokens into ids.
package text

import (
	"fmt"
	"strings"
)

// Tokenizer splits one text into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// CheckedTokenizer is a Tokenizer that can reject a text instead of
// silently producing no tokens.
type CheckedTokenizer interface {
	Tokenizer
	TokenizeChecked(text string) ([]string, error)
}

// Tokenize runs t on text. Rejections are reported only by tokenizers that
// implement CheckedTokenizer.
func Tokenize(t Tokenizer, text string) ([]string, error) {
	if ct, ok := t.(CheckedTokenizer); ok {
		return ct.TokenizeChecked(text)
	}
	return t.Tokenize(text), nil
}

// TokenizerFunc adapts a plain function to Tokenizer.
type TokenizerFunc func(string) []string

func (f TokenizerFunc) Tokenize(text string) []string { return f(text) }

// WhitespaceTokenizer splits on Unicode whitespace only.
type WhitespaceTokenizer struct{}

func (WhitespaceTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

// ByName resolves a tokenizer by name:
//
//	basic             BasicTokenizer, case preserved
//	basic-lower       BasicTokenizer, lower-cased with accents stripped
//	whitespace        WhitespaceTokenizer
//	hf:<path>         pretrained tokenizer.json
func ByName(name string) (Tokenizer, error) {
	switch {
	case name == "" || name == "basic":
		return &BasicTokenizer{}, nil
	case name == "basic-lower":
		return &BasicTokenizer{Lower: true}, nil
	case name == "whitespace":
		return WhitespaceTokenizer{}, nil
	case strings.HasPrefix(name, "hf:"):
		return NewPretrained(strings.TrimPrefix(name, "hf:"))
	default:
		return nil, fmt.Errorf("text: unknown tokenizer %q", name)
	}
}
