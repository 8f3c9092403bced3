// Package tokenize segments Japanese text for the full-text index.
package tokenize

import (
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/pkg/errors"
)

// Separator joins morphological units in tokenized output.
const Separator = " "

// Analyzer wraps a kagome tokenizer. It is safe for concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer loads the IPA dictionary and creates a tokenizer.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, errors.Wrap(err, "create kagome tokenizer")
	}
	return &Analyzer{t: t}, nil
}

// Tokenize splits text into word-like units joined by Separator. Search mode
// is used so that long compounds are also split into their parts.
func (a *Analyzer) Tokenize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	tokens := a.t.Analyze(text, tokenizer.Search)
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		// Whitespace tokens would only produce empty FTS terms.
		if strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		parts = append(parts, tok.Surface)
	}
	return strings.Join(parts, Separator)
}

// Surfaces returns the surface forms of text, one per token.
func (a *Analyzer) Surfaces(text string) []string {
	joined := a.Tokenize(text)
	if joined == "" {
		return nil
	}
	return strings.Split(joined, Separator)
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// ContainsKana reports whether s has any hiragana or katakana.
func ContainsKana(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}

// ContainsKanji reports whether s has any Han character.
func ContainsKanji(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// IsJapanese reports whether s looks like Japanese input rather than English.
func IsJapanese(s string) bool {
	return ContainsKana(s) || ContainsKanji(s)
}
