package jmdict

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/japaniel/jisho/pkg/xmlstream"
)

// ErrStructure marks element nesting the builder cannot make sense of.
var ErrStructure = errors.New("jmdict: unexpected document structure")

type state int

const (
	stateIdle state = iota
	stateEntry
	stateSense
	stateExample
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateEntry:
		return "entry"
	case stateSense:
		return "sense"
	case stateExample:
		return "example"
	}
	return "unknown"
}

// Builder consumes element events and assembles Entries. The accumulators
// are only meaningful in the states that own them: entry is live from
// stateEntry on, sense from stateSense on, example only in stateExample.
type Builder struct {
	state   state
	entry   Entry
	sense   Sense
	example Example
	// pendingLang is the xml:lang of the ex_sent currently open.
	pendingLang string
}

// NewBuilder returns a Builder in the idle state.
func NewBuilder() *Builder { return &Builder{} }

// Handle feeds one event to the builder. When the event closes an entry the
// completed Entry is returned with ok set.
func (b *Builder) Handle(ev xmlstream.Event) (entry Entry, ok bool, err error) {
	if ev.Kind == xmlstream.StartElement {
		return Entry{}, false, b.start(ev)
	}
	return b.end(ev)
}

func (b *Builder) start(ev xmlstream.Event) error {
	switch ev.Name {
	case "entry":
		if b.state != stateIdle {
			return errors.Wrapf(ErrStructure, "<entry> opened while in %s", b.state)
		}
		b.entry = Entry{}
		b.state = stateEntry
	case "sense":
		if b.state != stateEntry {
			return errors.Wrapf(ErrStructure, "<sense> opened while in %s", b.state)
		}
		b.sense = Sense{}
		b.example = Example{}
		b.state = stateSense
	case "example":
		if b.state != stateSense {
			return errors.Wrapf(ErrStructure, "<example> opened while in %s", b.state)
		}
		b.example = Example{}
		b.pendingLang = ""
		b.state = stateExample
	case "ex_sent":
		if b.state == stateExample {
			b.pendingLang, _ = ev.AttrValue("lang")
		}
	}
	return nil
}

func (b *Builder) end(ev xmlstream.Event) (Entry, bool, error) {
	text := ev.Text
	switch b.state {
	case stateEntry:
		switch ev.Name {
		case "ent_seq":
			b.entry.ID = text
		case "keb":
			if text != "" {
				b.entry.Kanji = append(b.entry.Kanji, text)
			}
		case "reb":
			if text != "" {
				b.entry.Readings = append(b.entry.Readings, text)
			}
		case "entry":
			if b.entry.ID == "" {
				return Entry{}, false, errors.Wrap(ErrStructure, "entry without ent_seq")
			}
			done := b.entry
			b.entry = Entry{}
			b.state = stateIdle
			return done, true, nil
		}
	case stateSense:
		if ev.Name == "sense" {
			b.closeSense()
			return Entry{}, false, nil
		}
		b.senseField(ev.Name, text)
	case stateExample:
		switch ev.Name {
		case "ex_text":
			b.example.Text = text
		case "ex_sent":
			b.exampleSentence(text)
		case "example":
			if !b.example.empty() {
				b.sense.Examples = append(b.sense.Examples, b.example)
			}
			b.example = Example{}
			b.state = stateSense
		case "sense":
			// Some documents close the sense without closing the example.
			b.closeSense()
		case "entry":
			return Entry{}, false, errors.Wrap(ErrStructure, "</entry> inside an open example")
		default:
			b.senseField(ev.Name, text)
		}
	case stateIdle:
		// Header elements and the document root close here.
	}
	if ev.Name == "entry" && b.state != stateIdle {
		return Entry{}, false, errors.Wrapf(ErrStructure, "</entry> while in %s", b.state)
	}
	return Entry{}, false, nil
}

func (b *Builder) closeSense() {
	if !b.example.empty() {
		b.sense.Examples = append(b.sense.Examples, b.example)
	}
	b.example = Example{}
	b.entry.Senses = append(b.entry.Senses, b.sense)
	b.sense = Sense{}
	b.state = stateEntry
}

func (b *Builder) senseField(name, text string) {
	s := &b.sense
	switch name {
	case "pos":
		s.POS = append(s.POS, text)
	case "gloss":
		s.Glosses = append(s.Glosses, text)
	case "field":
		// Fields are shared lookup rows keyed by name; a blank one names nothing.
		if text != "" {
			s.Fields = append(s.Fields, text)
		}
	case "misc":
		s.Misc = append(s.Misc, text)
	case "stagk":
		s.StagK = append(s.StagK, text)
	case "stagr":
		s.StagR = append(s.StagR, text)
	case "xref":
		s.XRef = append(s.XRef, text)
	case "ant":
		s.Ant = append(s.Ant, text)
	case "s_inf":
		s.Info = append(s.Info, text)
	}
}

// exampleSentence assigns an ex_sent to the source (Japanese) or target slot.
// A "jpn" language attribute picks the source slot and any other language the
// target slot. Without an attribute the first sentence is the source and the
// second the target. Sentences beyond a filled slot are dropped.
func (b *Builder) exampleSentence(text string) {
	lang := b.pendingLang
	b.pendingLang = ""
	ex := &b.example
	switch {
	case lang == "jpn":
		if ex.SentenceJpn == "" {
			ex.SentenceJpn = text
		}
	case lang != "":
		if ex.SentenceEng == "" {
			ex.SentenceEng = text
		}
	case ex.SentenceJpn == "":
		ex.SentenceJpn = text
	case ex.SentenceEng == "":
		ex.SentenceEng = text
	}
}

// Parse streams r and calls fn for every completed Entry. A malformed
// document or an fn error stops the parse and is returned.
func Parse(ctx context.Context, r io.Reader, fn func(Entry) error) error {
	b := NewBuilder()
	rd := xmlstream.NewReader(r)
	for {
		ev, err := rd.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "parse jmdict")
		}
		entry, ok, err := b.Handle(ev)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}
