package db

// Kanji is one written form of an entry. Position keeps document order;
// position 0 is the primary spelling.
type Kanji struct {
	EntryID  string
	Position int
	Kanji    string
}

// Reading is one kana form of an entry, ordered like Kanji.
type Reading struct {
	EntryID  string
	Position int
	Reading  string
}

// Sense is one meaning of an entry. ID is assigned on insert.
type Sense struct {
	ID       int64
	EntryID  string
	Position int
	POS      []string
	Glosses  []string
	Misc     []string
	StagK    []string
	StagR    []string
	XRef     []string
	Ant      []string
	Info     []string
}

// Example is a sentence pair attached to a sense.
type Example struct {
	ID          int64
	SenseID     int64
	Text        string
	SentenceJpn string
	SentenceEng string
}

// Field is a usage-domain tag shared between senses.
type Field struct {
	ID   int64
	Name string
}

// SenseField links a sense to a field.
type SenseField struct {
	SenseID int64
	FieldID int64
}

// FTSRow is the full-text projection of one entry.
type FTSRow struct {
	EntryID         string
	Kanji           string
	Reading         string
	ReadingHiragana string
	Glosses         string
}

// KanjiEntry is one kanji character.
type KanjiEntry struct {
	Literal     string
	StrokeCount int
	Freq        *int
	JLPT        *int
	Meanings    []string
	SVGFile     string
}

// KanjiReading is an on or kun reading of a kanji character.
type KanjiReading struct {
	ID      int64
	Literal string
	Reading string
	Type    string
}

// SenseDetail is a stored sense with its fields and examples.
type SenseDetail struct {
	Sense
	Fields   []string
	Examples []Example
}

// EntryDetail is an entry with everything hanging off it, in stored order.
type EntryDetail struct {
	ID       string
	Kanji    []string
	Readings []string
	Senses   []SenseDetail
}

// KanjiDetail is a kanji character with its readings.
type KanjiDetail struct {
	KanjiEntry
	Readings []KanjiReading
}
