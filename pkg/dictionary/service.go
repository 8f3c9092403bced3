// Package dictionary answers lookups against an imported store.
package dictionary

import (
	"context"
	"database/sql"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/width"

	"github.com/japaniel/jisho/pkg/db"
	"github.com/japaniel/jisho/pkg/kanjidic"
	"github.com/japaniel/jisho/pkg/textindex"
	"github.com/japaniel/jisho/pkg/tokenize"
)

// DefaultLimit caps search results.
const DefaultLimit = 50

// ErrNotFound is returned when an entry or kanji does not exist.
var ErrNotFound = db.ErrNotFound

// Result is one search hit.
type Result struct {
	ID       string   `json:"id" yaml:"id"`
	Primary  string   `json:"primary" yaml:"primary"`
	Readings []string `json:"readings,omitempty" yaml:"readings,omitempty"`
	Glosses  []string `json:"glosses,omitempty" yaml:"glosses,omitempty"`
	// Exact is set when the query equals a spelling, reading or gloss.
	Exact bool `json:"exact" yaml:"exact"`
}

// Kanji is a kanji character with readings split by type.
type Kanji struct {
	Literal     string   `json:"literal" yaml:"literal"`
	StrokeCount int      `json:"stroke_count" yaml:"stroke_count"`
	Freq        *int     `json:"freq,omitempty" yaml:"freq,omitempty"`
	JLPT        *int     `json:"jlpt,omitempty" yaml:"jlpt,omitempty"`
	Meanings    []string `json:"meanings" yaml:"meanings"`
	Onyomi      []string `json:"onyomi,omitempty" yaml:"onyomi,omitempty"`
	Kunyomi     []string `json:"kunyomi,omitempty" yaml:"kunyomi,omitempty"`
	SVGFile     string   `json:"svg_file,omitempty" yaml:"svg_file,omitempty"`
}

// Service runs lookups.
type Service struct {
	DB        *sql.DB
	Tokenizer textindex.Tokenizer
	Limit     int
}

// NewService returns a Service with the default result limit.
func NewService(conn *sql.DB, tok textindex.Tokenizer) *Service {
	return &Service{DB: conn, Tokenizer: tok, Limit: DefaultLimit}
}

func (s *Service) limit() int {
	if s.Limit <= 0 {
		return DefaultLimit
	}
	return s.Limit
}

// Normalize folds full-width Latin and half-width katakana to their usual
// forms and trims the query.
func Normalize(q string) string {
	return strings.TrimSpace(width.Fold.String(q))
}

// Search dispatches to SearchJapanese or SearchEnglish depending on the script of q.
func (s *Service) Search(ctx context.Context, q string) ([]Result, error) {
	q = Normalize(q)
	if tokenize.IsJapanese(q) {
		return s.SearchJapanese(ctx, q)
	}
	return s.SearchEnglish(ctx, q)
}

// SearchJapanese looks q up by spelling and reading. Exact matches come
// first, then full-text and prefix matches.
func (s *Service) SearchJapanese(ctx context.Context, q string) ([]Result, error) {
	q = Normalize(q)
	if q == "" {
		return nil, nil
	}
	hira := tokenize.ToHiragana(q)

	exact, err := db.EntriesByForm(ctx, s.DB, q)
	if err != nil {
		return nil, err
	}
	if hira != q {
		more, err := db.EntriesByForm(ctx, s.DB, hira)
		if err != nil {
			return nil, err
		}
		exact = append(exact, more...)
	}

	var related []string
	terms := ftsTerms(s.tokenize(q))
	hiraTerms := ftsTerms(s.tokenize(hira))
	var clauses []string
	for _, col := range []string{"kanji", "reading"} {
		if c := columnClause(col, terms); c != "" {
			clauses = append(clauses, c)
		}
	}
	if c := columnClause("reading_hiragana", hiraTerms); c != "" {
		clauses = append(clauses, c)
	}
	if len(clauses) > 0 {
		if related, err = db.MatchFTS(ctx, s.DB, strings.Join(clauses, " OR "), s.limit()); err != nil {
			return nil, err
		}
	}
	prefix, err := db.EntriesByPrefix(ctx, s.DB, q, s.limit())
	if err != nil {
		return nil, err
	}
	related = append(related, prefix...)
	return s.results(ctx, exact, related)
}

// SearchEnglish looks q up in the glosses.
func (s *Service) SearchEnglish(ctx context.Context, q string) ([]Result, error) {
	q = Normalize(q)
	if q == "" {
		return nil, nil
	}
	exact, err := db.EntriesWithGloss(ctx, s.DB, q)
	if err != nil {
		return nil, err
	}
	var related []string
	if c := columnClause("glosses", ftsTerms(strings.Fields(q))); c != "" {
		if related, err = db.MatchFTS(ctx, s.DB, c, s.limit()); err != nil {
			return nil, err
		}
	}
	return s.results(ctx, exact, related)
}

func (s *Service) tokenize(q string) []string {
	if s.Tokenizer == nil {
		return strings.Fields(q)
	}
	return strings.Fields(s.Tokenizer.Tokenize(q))
}

// ftsTerms turns raw tokens into terms safe to put in a MATCH expression.
// ASCII punctuation splits terms the same way the index tokenizer does, and
// lower-casing keeps words such as OR from being read as operators.
func ftsTerms(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		parts := strings.FieldsFunc(strings.ToLower(tok), func(r rune) bool {
			return r < unicode.MaxASCII && !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		out = append(out, parts...)
	}
	return out
}

// columnClause requires every term in one column.
func columnClause(col string, terms []string) string {
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = col + ":" + t
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// results loads exact hits followed by related hits, without duplicates.
func (s *Service) results(ctx context.Context, exact, related []string) ([]Result, error) {
	seen := map[string]bool{}
	var out []Result
	add := func(id string, isExact bool) error {
		if seen[id] || len(out) >= s.limit() {
			return nil
		}
		seen[id] = true
		r, err := s.result(ctx, id)
		if err != nil {
			return err
		}
		r.Exact = isExact
		out = append(out, r)
		return nil
	}
	for _, id := range exact {
		if err := add(id, true); err != nil {
			return nil, err
		}
	}
	for _, id := range related {
		if err := add(id, false); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Service) result(ctx context.Context, id string) (Result, error) {
	d, err := db.GetEntry(ctx, s.DB, id)
	if err != nil {
		return Result{}, errors.Wrapf(err, "load entry %s", id)
	}
	r := Result{ID: id, Readings: d.Readings}
	switch {
	case len(d.Kanji) > 0:
		r.Primary = d.Kanji[0]
	case len(d.Readings) > 0:
		r.Primary = d.Readings[0]
	}
	if len(d.Senses) > 0 {
		r.Glosses = d.Senses[0].Glosses
	}
	return r, nil
}

// Entry returns the full detail of an entry.
func (s *Service) Entry(ctx context.Context, id string) (*db.EntryDetail, error) {
	return db.GetEntry(ctx, s.DB, id)
}

// PrimaryForm returns the display form of an entry.
func (s *Service) PrimaryForm(ctx context.Context, id string) (string, error) {
	return db.PrimaryForm(ctx, s.DB, id)
}

// Kanji returns a kanji character with its on and kun readings.
func (s *Service) Kanji(ctx context.Context, literal string) (*Kanji, error) {
	d, err := db.GetKanjiEntry(ctx, s.DB, strings.TrimSpace(literal))
	if err != nil {
		return nil, err
	}
	k := &Kanji{
		Literal:     d.Literal,
		StrokeCount: d.StrokeCount,
		Freq:        d.Freq,
		JLPT:        d.JLPT,
		Meanings:    d.Meanings,
		SVGFile:     d.SVGFile,
	}
	for _, r := range d.Readings {
		switch r.Type {
		case kanjidic.ReadingOn:
			k.Onyomi = append(k.Onyomi, r.Reading)
		case kanjidic.ReadingKun:
			k.Kunyomi = append(k.Kunyomi, r.Reading)
		}
	}
	return k, nil
}
