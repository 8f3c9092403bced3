package xmlstream

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, doc string) []Event {
	t.Helper()
	var out []Event
	err := Each(strings.NewReader(doc), func(ev Event) error {
		out = append(out, ev)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestReaderEventsInDocumentOrder(t *testing.T) {
	events := collect(t, `<root><a>  one </a><b x="1">two</b></root>`)

	require.Len(t, events, 6)
	assert.Equal(t, Event{Kind: StartElement, Name: "root", Attr: events[0].Attr}, events[0])
	assert.Equal(t, "a", events[1].Name)
	assert.Equal(t, EndElement, events[2].Kind)
	assert.Equal(t, "one", events[2].Text)
	v, ok := events[3].AttrValue("x")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, "two", events[4].Text)
	assert.Equal(t, "root", events[5].Name)
}

func TestReaderDropsNamespacePrefixes(t *testing.T) {
	plain := collect(t, `<entry><keb>犬</keb></entry>`)
	spaced := collect(t, `<j:entry xmlns:j="urn:jmdict"><j:keb>犬</j:keb></j:entry>`)

	require.Len(t, spaced, len(plain))
	for i := range plain {
		assert.Equal(t, plain[i].Name, spaced[i].Name)
		assert.Equal(t, plain[i].Text, spaced[i].Text)
	}
}

func TestReaderSubstitutesDeclaredEntitiesWithTheirName(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE JMdict [
<!ELEMENT JMdict (entry*)>
<!ENTITY n "noun (common) (futsuumeishi)">
<!ENTITY v5r "Godan verb with 'ru' ending">
<!ENTITY ext SYSTEM "http://example.invalid/never-fetched.ent">
]>
<JMdict><pos>&n;</pos><pos>&v5r;</pos><pos>&ext;</pos></JMdict>`

	events := collect(t, doc)
	var texts []string
	for _, ev := range events {
		if ev.Kind == EndElement && ev.Name == "pos" {
			texts = append(texts, ev.Text)
		}
	}
	assert.Equal(t, []string{"n", "v5r", ""}, texts)
}

func TestReaderAttributeWithXMLPrefix(t *testing.T) {
	events := collect(t, `<ex_sent xml:lang="eng">A dog.</ex_sent>`)
	lang, ok := events[0].AttrValue("lang")
	require.True(t, ok)
	assert.Equal(t, "eng", lang)
}

func TestReaderTruncatedInputIsSyntaxError(t *testing.T) {
	r := NewReader(strings.NewReader(`<JMdict><entry><ent_seq>1</ent_seq>`))
	var err error
	for err == nil {
		_, err = r.Next()
	}
	require.NotEqual(t, io.EOF, err)
	var se *SyntaxError
	require.True(t, errors.As(err, &se), "got %T: %v", err, err)
}

func TestReaderUndeclaredEntityIsSyntaxError(t *testing.T) {
	err := Each(strings.NewReader(`<a>&nope;</a>`), func(Event) error { return nil })
	var se *SyntaxError
	require.True(t, errors.As(err, &se), "got %v", err)
}

func TestEachStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Each(strings.NewReader(`<a><b/><c/></a>`), func(Event) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 2, calls)
}
