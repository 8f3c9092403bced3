// Package kanjidic builds kanji-character records from the KANJIDIC2 XML corpus.
package kanjidic

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/japaniel/jisho/pkg/xmlstream"
)

// Reading types kept from the corpus; pinyin, korean and the rest are dropped.
const (
	ReadingOn  = "ja_on"
	ReadingKun = "ja_kun"
)

// ErrStructure marks element nesting the builder cannot make sense of.
var ErrStructure = errors.New("kanjidic: unexpected document structure")

// Character is one <character> record.
type Character struct {
	Literal     string
	StrokeCount int
	Freq        *int
	JLPT        *int
	// Meanings only holds meanings in the default language.
	Meanings []string
	Readings []Reading
	// SVGFile names the stroke-order diagram for the literal, e.g. "04e9c.svg".
	SVGFile string
}

// Reading is an on or kun reading of a Character.
type Reading struct {
	Text string
	Type string
}

// SVGFileName turns a ucs code point value ("4e9c") into a diagram file name
// ("04e9c.svg"). The value is stored as written; whether the file exists is
// up to whoever displays it.
func SVGFileName(ucs string) string {
	ucs = strings.TrimSpace(ucs)
	if ucs == "" {
		return ""
	}
	return "0" + ucs + ".svg"
}

// Builder accumulates one character at a time.
type Builder struct {
	open    bool
	current Character
	strokes bool
	// Attributes captured on start tags, consumed on the matching end tag.
	readingType string
	meaningLang bool
	cpType      string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Handle feeds one event to the builder and returns a Character when its
// element closes.
func (b *Builder) Handle(ev xmlstream.Event) (Character, bool, error) {
	if ev.Kind == xmlstream.StartElement {
		return Character{}, false, b.start(ev)
	}
	return b.end(ev)
}

func (b *Builder) start(ev xmlstream.Event) error {
	if ev.Name == "character" {
		if b.open {
			return errors.Wrap(ErrStructure, "<character> opened inside another character")
		}
		b.open = true
		b.current = Character{}
		b.strokes = false
		return nil
	}
	if !b.open {
		return nil
	}
	switch ev.Name {
	case "reading":
		b.readingType, _ = ev.AttrValue("r_type")
	case "meaning":
		_, b.meaningLang = ev.AttrValue("m_lang")
	case "cp_value":
		b.cpType, _ = ev.AttrValue("cp_type")
	}
	return nil
}

func (b *Builder) end(ev xmlstream.Event) (Character, bool, error) {
	if !b.open {
		return Character{}, false, nil
	}
	c := &b.current
	text := ev.Text
	switch ev.Name {
	case "literal":
		c.Literal = text
	case "stroke_count":
		// The first count is the accepted one; later ones are common miscounts.
		if !b.strokes {
			n, err := strconv.Atoi(text)
			if err == nil {
				c.StrokeCount = n
			}
			b.strokes = true
		}
	case "freq":
		c.Freq = optionalInt(text)
	case "jlpt":
		c.JLPT = optionalInt(text)
	case "cp_value":
		if b.cpType == "ucs" {
			c.SVGFile = SVGFileName(text)
		}
		b.cpType = ""
	case "meaning":
		if !b.meaningLang {
			c.Meanings = append(c.Meanings, text)
		}
		b.meaningLang = false
	case "reading":
		if b.readingType == ReadingOn || b.readingType == ReadingKun {
			c.Readings = append(c.Readings, Reading{Text: text, Type: b.readingType})
		}
		b.readingType = ""
	case "character":
		if c.Literal == "" {
			return Character{}, false, errors.Wrap(ErrStructure, "character without literal")
		}
		done := b.current
		b.current = Character{}
		b.open = false
		return done, true, nil
	}
	return Character{}, false, nil
}

func optionalInt(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// Parse streams r and calls fn for every completed Character.
func Parse(ctx context.Context, r io.Reader, fn func(Character) error) error {
	b := NewBuilder()
	rd := xmlstream.NewReader(r)
	for {
		ev, err := rd.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "parse kanjidic")
		}
		c, ok, err := b.Handle(ev)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
}
