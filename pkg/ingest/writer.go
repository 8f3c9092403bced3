package ingest

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/japaniel/jisho/pkg/db"
	"github.com/japaniel/jisho/pkg/jmdict"
	"github.com/japaniel/jisho/pkg/kanjidic"
	"github.com/japaniel/jisho/pkg/textindex"
)

// entryRows is a batch of entries flattened into table rows. senses[i] was
// built from source[i].
type entryRows struct {
	ids      []string
	kanji    []db.Kanji
	readings []db.Reading
	senses   []db.Sense
	source   []jmdict.Sense
}

func flattenEntries(batch []jmdict.Entry) entryRows {
	var r entryRows
	for _, e := range batch {
		r.ids = append(r.ids, e.ID)
		for i, k := range e.Kanji {
			r.kanji = append(r.kanji, db.Kanji{EntryID: e.ID, Position: i, Kanji: k})
		}
		for i, rd := range e.Readings {
			r.readings = append(r.readings, db.Reading{EntryID: e.ID, Position: i, Reading: rd})
		}
		for i, s := range e.Senses {
			r.senses = append(r.senses, db.Sense{
				EntryID:  e.ID,
				Position: i,
				POS:      s.POS,
				Glosses:  s.Glosses,
				Misc:     s.Misc,
				StagK:    s.StagK,
				StagR:    s.StagR,
				XRef:     s.XRef,
				Ant:      s.Ant,
				Info:     s.Info,
			})
			r.source = append(r.source, s)
		}
	}
	return r
}

// examplesFor attaches every example to the generated id of its sense.
func examplesFor(source []jmdict.Sense, ids []int64) []db.Example {
	var out []db.Example
	for i, s := range source {
		for _, ex := range s.Examples {
			out = append(out, db.Example{
				SenseID:     ids[i],
				Text:        ex.Text,
				SentenceJpn: ex.SentenceJpn,
				SentenceEng: ex.SentenceEng,
			})
		}
	}
	return out
}

// fieldRefs resolves field names to ids, asking the store once per distinct
// name in the batch.
func fieldRefs(ctx context.Context, tx db.DBExecutor, source []jmdict.Sense, ids []int64) ([]db.SenseField, error) {
	memo := map[string]int64{}
	var out []db.SenseField
	for i, s := range source {
		for _, name := range s.Fields {
			fid, ok := memo[name]
			if !ok {
				var err error
				if fid, err = db.GetOrCreateField(ctx, tx, name); err != nil {
					return nil, err
				}
				memo[name] = fid
			}
			out = append(out, db.SenseField{SenseID: ids[i], FieldID: fid})
		}
	}
	return out, nil
}

// writeEntries stores one batch of dictionary entries and their full-text
// rows in a single transaction.
func writeEntries(ctx context.Context, conn *sql.DB, fts []db.FTSRow, batch []jmdict.Entry) error {
	rows := flattenEntries(batch)
	return db.WithTx(ctx, conn, func(tx db.DBExecutor) error {
		if err := db.InsertEntries(ctx, tx, rows.ids); err != nil {
			return err
		}
		if err := db.InsertKanji(ctx, tx, rows.kanji); err != nil {
			return err
		}
		if err := db.InsertReadings(ctx, tx, rows.readings); err != nil {
			return err
		}
		ids, err := db.InsertSenses(ctx, tx, rows.senses)
		if err != nil {
			return err
		}
		if len(ids) != len(rows.senses) {
			return errors.Errorf("store returned %d sense ids for %d senses", len(ids), len(rows.senses))
		}
		if err := db.InsertExamples(ctx, tx, examplesFor(rows.source, ids)); err != nil {
			return err
		}
		refs, err := fieldRefs(ctx, tx, rows.source, ids)
		if err != nil {
			return err
		}
		if err := db.InsertSenseFields(ctx, tx, refs); err != nil {
			return err
		}
		return textindex.Write(ctx, tx, fts)
	})
}

func kanjiRows(batch []kanjidic.Character) ([]db.KanjiEntry, []db.KanjiReading) {
	entries := make([]db.KanjiEntry, 0, len(batch))
	var readings []db.KanjiReading
	for _, c := range batch {
		entries = append(entries, db.KanjiEntry{
			Literal:     c.Literal,
			StrokeCount: c.StrokeCount,
			Freq:        c.Freq,
			JLPT:        c.JLPT,
			Meanings:    c.Meanings,
			SVGFile:     c.SVGFile,
		})
		for _, r := range c.Readings {
			readings = append(readings, db.KanjiReading{Literal: c.Literal, Reading: r.Text, Type: r.Type})
		}
	}
	return entries, readings
}

// writeKanji stores one batch of kanji characters in a single transaction.
func writeKanji(ctx context.Context, conn *sql.DB, batch []kanjidic.Character) error {
	entries, readings := kanjiRows(batch)
	return db.WithTx(ctx, conn, func(tx db.DBExecutor) error {
		if err := db.InsertKanjiEntries(ctx, tx, entries); err != nil {
			return err
		}
		return db.InsertKanjiReadings(ctx, tx, readings)
	})
}
