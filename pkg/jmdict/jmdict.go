// Package jmdict builds word-dictionary records from the JMdict XML corpus.
package jmdict

// Entry is one headword record, emitted when its <entry> element closes.
type Entry struct {
	ID       string
	Kanji    []string
	Readings []string
	Senses   []Sense
}

// Sense is one meaning of an Entry.
type Sense struct {
	POS      []string
	Glosses  []string
	Fields   []string
	Misc     []string
	StagK    []string
	StagR    []string
	XRef     []string
	Ant      []string
	Info     []string
	Examples []Example
}

// Example is a sentence pair attached to a Sense.
type Example struct {
	Text        string
	SentenceJpn string
	SentenceEng string
}

func (e Example) empty() bool {
	return e.Text == "" && e.SentenceJpn == "" && e.SentenceEng == ""
}

// Glosses returns every gloss of every sense, in document order.
func (e Entry) Glosses() []string {
	var out []string
	for _, s := range e.Senses {
		out = append(out, s.Glosses...)
	}
	return out
}
