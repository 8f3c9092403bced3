package db

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by the single-row lookups.
var ErrNotFound = errors.New("not found")

func queryStrings(ctx context.Context, db DBExecutor, b sq.Sqlizer) ([]string, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// KanjiForEntry returns the kanji spellings of an entry in document order.
func KanjiForEntry(ctx context.Context, db DBExecutor, entryID string) ([]string, error) {
	out, err := queryStrings(ctx, db, sq.Select("kanji").From("kanji").
		Where(sq.Eq{"entry_id": entryID}).OrderBy("position", "id"))
	return out, errors.Wrap(err, "kanji for entry")
}

// ReadingsForEntry returns the readings of an entry in document order.
func ReadingsForEntry(ctx context.Context, db DBExecutor, entryID string) ([]string, error) {
	out, err := queryStrings(ctx, db, sq.Select("reading").From("reading").
		Where(sq.Eq{"entry_id": entryID}).OrderBy("position", "id"))
	return out, errors.Wrap(err, "readings for entry")
}

// PrimaryForm returns the first kanji spelling of an entry, or its first
// reading when it has no kanji.
func PrimaryForm(ctx context.Context, db DBExecutor, entryID string) (string, error) {
	kanji, err := KanjiForEntry(ctx, db, entryID)
	if err != nil {
		return "", err
	}
	if len(kanji) > 0 {
		return kanji[0], nil
	}
	readings, err := ReadingsForEntry(ctx, db, entryID)
	if err != nil {
		return "", err
	}
	if len(readings) == 0 {
		return "", ErrNotFound
	}
	return readings[0], nil
}

// SensesForEntry returns the senses of an entry in document order.
func SensesForEntry(ctx context.Context, db DBExecutor, entryID string) ([]Sense, error) {
	query, args, err := sq.Select(append([]string{"id"}, senseColumns...)...).From("senses").
		Where(sq.Eq{"entry_id": entryID}).OrderBy("position", "id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "senses for entry")
	}
	defer rows.Close()
	var out []Sense
	for rows.Next() {
		var s Sense
		var pos, glosses, misc, stagk, stagr, xref, ant, info sql.NullString
		if err := rows.Scan(&s.ID, &s.EntryID, &s.Position, &pos, &glosses, &misc, &stagk, &stagr, &xref, &ant, &info); err != nil {
			return nil, err
		}
		for _, col := range []struct {
			dst *[]string
			src sql.NullString
		}{
			{&s.POS, pos}, {&s.Glosses, glosses}, {&s.Misc, misc}, {&s.StagK, stagk},
			{&s.StagR, stagr}, {&s.XRef, xref}, {&s.Ant, ant}, {&s.Info, info},
		} {
			if *col.dst, err = decodeList(col.src); err != nil {
				return nil, err
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ExamplesForSense returns the examples attached to a sense.
func ExamplesForSense(ctx context.Context, db DBExecutor, senseID int64) ([]Example, error) {
	query, args, err := sq.Select("id", "sense_id", "ex_text", "ex_sent_jpn", "ex_sent_eng").
		From("examples").Where(sq.Eq{"sense_id": senseID}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "examples for sense")
	}
	defer rows.Close()
	var out []Example
	for rows.Next() {
		var e Example
		if err := rows.Scan(&e.ID, &e.SenseID, &e.Text, &e.SentenceJpn, &e.SentenceEng); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FieldsForSense returns the field names linked to a sense.
func FieldsForSense(ctx context.Context, db DBExecutor, senseID int64) ([]string, error) {
	out, err := queryStrings(ctx, db, sq.Select("f.name").From("fields f").
		Join("sense_field_refs r ON r.field_id = f.id").
		Where(sq.Eq{"r.sense_id": senseID}).OrderBy("f.name"))
	return out, errors.Wrap(err, "fields for sense")
}

// SensesWithField returns the ids of senses linked to the named field.
func SensesWithField(ctx context.Context, db DBExecutor, name string) ([]int64, error) {
	query, args, err := sq.Select("r.sense_id").From("sense_field_refs r").
		Join("fields f ON f.id = r.field_id").
		Where(sq.Eq{"f.name": name}).OrderBy("r.sense_id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "senses with field")
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetEntry loads an entry with its spellings, senses, fields and examples.
func GetEntry(ctx context.Context, db DBExecutor, id string) (*EntryDetail, error) {
	var found string
	err := db.QueryRowContext(ctx, `SELECT id FROM dictionary_entries WHERE id = ?`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get entry")
	}
	d := &EntryDetail{ID: found}
	if d.Kanji, err = KanjiForEntry(ctx, db, id); err != nil {
		return nil, err
	}
	if d.Readings, err = ReadingsForEntry(ctx, db, id); err != nil {
		return nil, err
	}
	senses, err := SensesForEntry(ctx, db, id)
	if err != nil {
		return nil, err
	}
	for _, s := range senses {
		sd := SenseDetail{Sense: s}
		if sd.Fields, err = FieldsForSense(ctx, db, s.ID); err != nil {
			return nil, err
		}
		if sd.Examples, err = ExamplesForSense(ctx, db, s.ID); err != nil {
			return nil, err
		}
		d.Senses = append(d.Senses, sd)
	}
	return d, nil
}

// MatchFTS runs a full-text MATCH expression and returns matching entry ids
// in rank order of the index.
func MatchFTS(ctx context.Context, db DBExecutor, match string, limit int) ([]string, error) {
	b := sq.Select("entry_id").From("dictionary_fts").Where("dictionary_fts MATCH ?", match)
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	out, err := queryStrings(ctx, db, b)
	return out, errors.Wrap(err, "full-text match")
}

// EntriesByForm returns entries having a kanji spelling or reading equal to form.
func EntriesByForm(ctx context.Context, db DBExecutor, form string) ([]string, error) {
	out, err := queryStrings(ctx, db, sq.Select("entry_id").From("kanji").Where(sq.Eq{"kanji": form}).
		Suffix("UNION SELECT entry_id FROM reading WHERE reading = ?", form))
	return out, errors.Wrap(err, "entries by form")
}

// EntriesByPrefix returns entries with a kanji spelling or reading starting with prefix.
func EntriesByPrefix(ctx context.Context, db DBExecutor, prefix string, limit int) ([]string, error) {
	pattern := escapeLike(prefix) + "%"
	b := sq.Select("entry_id").From("kanji").Where("kanji LIKE ? ESCAPE '\\'", pattern).
		Suffix("UNION SELECT entry_id FROM reading WHERE reading LIKE ? ESCAPE '\\'", pattern)
	if limit > 0 {
		b = b.Suffix("LIMIT ?", limit)
	}
	out, err := queryStrings(ctx, db, b)
	return out, errors.Wrap(err, "entries by prefix")
}

// EntriesWithGloss returns entries where some sense has a gloss equal to gloss.
func EntriesWithGloss(ctx context.Context, db DBExecutor, gloss string) ([]string, error) {
	out, err := queryStrings(ctx, db, sq.Select("DISTINCT s.entry_id").From("senses s").
		Where("EXISTS (SELECT 1 FROM json_each(s.glosses) WHERE json_each.value = ? COLLATE NOCASE)", gloss).
		OrderBy("s.entry_id"))
	return out, errors.Wrap(err, "entries with gloss")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetKanjiEntry loads a kanji character with its readings.
func GetKanjiEntry(ctx context.Context, db DBExecutor, literal string) (*KanjiDetail, error) {
	var (
		d        KanjiDetail
		freq     sql.NullInt64
		jlpt     sql.NullInt64
		meanings sql.NullString
		svg      sql.NullString
	)
	query, args, err := sq.Select("literal", "stroke_count", "freq", "jlpt", "meanings", "svg_file").
		From("kanji_entries").Where(sq.Eq{"literal": literal}).ToSql()
	if err != nil {
		return nil, err
	}
	err = db.QueryRowContext(ctx, query, args...).Scan(&d.Literal, &d.StrokeCount, &freq, &jlpt, &meanings, &svg)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get kanji entry")
	}
	if freq.Valid {
		v := int(freq.Int64)
		d.Freq = &v
	}
	if jlpt.Valid {
		v := int(jlpt.Int64)
		d.JLPT = &v
	}
	if d.Meanings, err = decodeList(meanings); err != nil {
		return nil, err
	}
	d.SVGFile = svg.String

	query, args, err = sq.Select("id", "kanji_literal", "reading", "type").From("kanji_readings").
		Where(sq.Eq{"kanji_literal": literal}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "kanji readings")
	}
	defer rows.Close()
	for rows.Next() {
		var r KanjiReading
		if err := rows.Scan(&r.ID, &r.Literal, &r.Reading, &r.Type); err != nil {
			return nil, err
		}
		d.Readings = append(d.Readings, r)
	}
	return &d, rows.Err()
}
