// Package xmlstream is a pull-based XML event reader. It never builds a
// document tree: callers receive one start or end event at a time, with the
// character data of leaf elements already collected and trimmed.
package xmlstream

import (
	"encoding/xml"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes start and end events.
type Kind int

const (
	StartElement Kind = iota
	EndElement
)

func (k Kind) String() string {
	if k == StartElement {
		return "start"
	}
	return "end"
}

// Event is one element boundary in document order.
type Event struct {
	Kind Kind
	// Name is the local name; namespace prefixes are dropped so namespaced
	// and plain documents are handled the same way.
	Name string
	Attr []xml.Attr
	// Text holds the trimmed character data seen since the previous element
	// boundary. It is only set on end events.
	Text string
}

// AttrValue returns the value of the first attribute with the given local name.
func (e Event) AttrValue(local string) (string, bool) {
	for _, a := range e.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// SyntaxError reports malformed input. Offset is the input offset at which
// the decoder gave up.
type SyntaxError struct {
	Offset int64
	Err    error
}

func (e *SyntaxError) Error() string {
	return "xmlstream: malformed document at offset " + strconv.FormatInt(e.Offset, 10) + ": " + e.Err.Error()
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// entityDecl matches general entity declarations inside a DOCTYPE internal
// subset. Parameter entities ("<!ENTITY % name ...>") are skipped.
var entityDecl = regexp.MustCompile(`<!ENTITY\s+([^\s%"']+)\s+(SYSTEM|PUBLIC|"|')`)

// Reader turns a byte stream into Events.
type Reader struct {
	dec  *xml.Decoder
	text strings.Builder
	// Entities lists the general entities declared by the document, mapped to
	// the substitution the decoder uses for them.
	Entities map[string]string
}

// NewReader returns a Reader over r. The decoder is strict, so truncated or
// malformed input surfaces as a *SyntaxError.
func NewReader(r io.Reader) *Reader {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	ents := make(map[string]string)
	dec.Entity = ents
	return &Reader{dec: dec, Entities: ents}
}

// Next returns the next element event. It returns io.EOF once the document
// has been consumed completely.
func (r *Reader) Next() (Event, error) {
	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			return Event{}, io.EOF
		}
		if err != nil {
			return Event{}, &SyntaxError{Offset: r.dec.InputOffset(), Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			r.text.Reset()
			return Event{Kind: StartElement, Name: t.Name.Local, Attr: t.Attr}, nil
		case xml.EndElement:
			text := strings.TrimSpace(r.text.String())
			r.text.Reset()
			return Event{Kind: EndElement, Name: t.Name.Local, Text: text}, nil
		case xml.CharData:
			r.text.Write(t)
		case xml.Directive:
			r.declareEntities(t)
		}
	}
}

// declareEntities registers the general entities of a DOCTYPE. Internal
// entities are substituted with their own name (the corpora use them as short
// tags such as "n" or "v5r"), which keeps the large declaration tables from
// being expanded. External entities are never fetched and resolve to "".
func (r *Reader) declareEntities(d xml.Directive) {
	if !strings.HasPrefix(strings.TrimSpace(string(d)), "DOCTYPE") {
		return
	}
	for _, m := range entityDecl.FindAllSubmatch(d, -1) {
		name := string(m[1])
		if _, ok := r.Entities[name]; ok {
			continue
		}
		switch string(m[2]) {
		case "SYSTEM", "PUBLIC":
			r.Entities[name] = ""
		default:
			r.Entities[name] = name
		}
	}
}

// Each reads events until EOF, calling fn for every event.
func Each(r io.Reader, fn func(Event) error) error {
	rd := NewReader(r)
	for {
		ev, err := rd.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
