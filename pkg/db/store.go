package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// maxVariables is SQLite's default SQLITE_MAX_VARIABLE_NUMBER for older
// builds. Bulk statements are chunked to stay under it.
const maxVariables = 999

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// WithTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics.
func WithTx(ctx context.Context, conn *sql.DB, fn func(tx DBExecutor) error) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// CountEntries returns the number of word-dictionary entries.
func CountEntries(ctx context.Context, db DBExecutor) (int, error) {
	return count(ctx, db, "dictionary_entries")
}

// CountKanjiEntries returns the number of kanji characters.
func CountKanjiEntries(ctx context.Context, db DBExecutor) (int, error) {
	return count(ctx, db, "kanji_entries")
}

func count(ctx context.Context, db DBExecutor, table string) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "count %s", table)
	}
	return n, nil
}

// bulkInsert writes rows with as few statements as the variable limit allows.
// options is the conflict clause, e.g. "OR REPLACE".
func bulkInsert(ctx context.Context, db DBExecutor, table, options string, columns []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	perStmt := maxVariables / len(columns)
	for start := 0; start < len(rows); start += perStmt {
		end := start + perStmt
		if end > len(rows) {
			end = len(rows)
		}
		ins := sq.Insert(table).Columns(columns...)
		if options != "" {
			ins = ins.Options(options)
		}
		for _, r := range rows[start:end] {
			ins = ins.Values(r...)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return errors.Wrapf(err, "build insert %s", table)
		}
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "insert %s", table)
		}
	}
	return nil
}

// InsertEntries inserts entry ids, replacing existing rows.
func InsertEntries(ctx context.Context, db DBExecutor, ids []string) error {
	rows := make([][]interface{}, len(ids))
	for i, id := range ids {
		rows[i] = []interface{}{id}
	}
	return bulkInsert(ctx, db, "dictionary_entries", "OR REPLACE", []string{"id"}, rows)
}

// InsertKanji inserts kanji spellings in the given order.
func InsertKanji(ctx context.Context, db DBExecutor, kanji []Kanji) error {
	rows := make([][]interface{}, len(kanji))
	for i, k := range kanji {
		rows[i] = []interface{}{k.EntryID, k.Position, k.Kanji}
	}
	return bulkInsert(ctx, db, "kanji", "OR REPLACE", []string{"entry_id", "position", "kanji"}, rows)
}

// InsertReadings inserts readings in the given order.
func InsertReadings(ctx context.Context, db DBExecutor, readings []Reading) error {
	rows := make([][]interface{}, len(readings))
	for i, r := range readings {
		rows[i] = []interface{}{r.EntryID, r.Position, r.Reading}
	}
	return bulkInsert(ctx, db, "reading", "OR REPLACE", []string{"entry_id", "position", "reading"}, rows)
}

var senseColumns = []string{"entry_id", "position", "pos", "glosses", "misc", "stagk", "stagr", "xref", "ant", "s_inf"}

// InsertSenses inserts senses and returns their generated ids. ids[i] is the
// id of senses[i]: rows are written one at a time through a prepared
// statement and each id is read back from that row's own insert.
func InsertSenses(ctx context.Context, db DBExecutor, senses []Sense) ([]int64, error) {
	if len(senses) == 0 {
		return nil, nil
	}
	query, _, err := sq.Insert("senses").Options("OR REPLACE").Columns(senseColumns...).
		Values(make([]interface{}, len(senseColumns))...).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build insert senses")
	}
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "prepare insert senses")
	}
	defer stmt.Close()

	ids := make([]int64, len(senses))
	for i, s := range senses {
		res, err := stmt.ExecContext(ctx, s.EntryID, s.Position,
			encodeList(s.POS), encodeList(s.Glosses),
			encodeOptional(s.Misc), encodeOptional(s.StagK), encodeOptional(s.StagR),
			encodeOptional(s.XRef), encodeOptional(s.Ant), encodeOptional(s.Info))
		if err != nil {
			return nil, errors.Wrapf(err, "insert sense %d of entry %s", s.Position, s.EntryID)
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return nil, errors.Wrap(err, "sense id")
		}
	}
	return ids, nil
}

// InsertExamples inserts examples; SenseID must already be set.
func InsertExamples(ctx context.Context, db DBExecutor, examples []Example) error {
	rows := make([][]interface{}, len(examples))
	for i, e := range examples {
		rows[i] = []interface{}{e.SenseID, e.Text, e.SentenceJpn, e.SentenceEng}
	}
	return bulkInsert(ctx, db, "examples", "OR REPLACE", []string{"sense_id", "ex_text", "ex_sent_jpn", "ex_sent_eng"}, rows)
}

// GetOrCreateField returns the id of the field called name, inserting it if missing.
func GetOrCreateField(ctx context.Context, db DBExecutor, name string) (int64, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, errors.New("field name must be non-empty")
	}
	lookup := func() (int64, error) {
		var id int64
		err := db.QueryRowContext(ctx, `SELECT id FROM fields WHERE name = ?`, trimmed).Scan(&id)
		return id, err
	}
	// Try to find existing field first
	if id, err := lookup(); err == nil {
		return id, nil
	} else if err != sql.ErrNoRows {
		return 0, errors.Wrapf(err, "lookup field %q", trimmed)
	}
	// Insert if missing (concurrent-safe via UNIQUE constraint)
	if err := bulkInsert(ctx, db, "fields", "OR IGNORE", []string{"name"}, [][]interface{}{{trimmed}}); err != nil {
		return 0, err
	}
	// Select again to get id
	id, err := lookup()
	if err != nil {
		return 0, errors.Wrapf(err, "lookup field %q", trimmed)
	}
	return id, nil
}

// InsertSenseFields links senses to fields, ignoring links that already exist.
func InsertSenseFields(ctx context.Context, db DBExecutor, refs []SenseField) error {
	rows := make([][]interface{}, len(refs))
	for i, r := range refs {
		rows[i] = []interface{}{r.SenseID, r.FieldID}
	}
	return bulkInsert(ctx, db, "sense_field_refs", "OR IGNORE", []string{"sense_id", "field_id"}, rows)
}

// InsertFTSRows adds full-text rows.
func InsertFTSRows(ctx context.Context, db DBExecutor, rows []FTSRow) error {
	vals := make([][]interface{}, len(rows))
	for i, r := range rows {
		vals[i] = []interface{}{r.EntryID, r.Kanji, r.Reading, r.ReadingHiragana, r.Glosses}
	}
	return bulkInsert(ctx, db, "dictionary_fts", "", []string{"entry_id", "kanji", "reading", "reading_hiragana", "glosses"}, vals)
}

// InsertKanjiEntries inserts kanji characters, replacing existing rows.
func InsertKanjiEntries(ctx context.Context, db DBExecutor, entries []KanjiEntry) error {
	rows := make([][]interface{}, len(entries))
	for i, k := range entries {
		rows[i] = []interface{}{k.Literal, k.StrokeCount, nullableInt(k.Freq), nullableInt(k.JLPT), encodeList(k.Meanings), nullableString(k.SVGFile)}
	}
	return bulkInsert(ctx, db, "kanji_entries", "OR REPLACE",
		[]string{"literal", "stroke_count", "freq", "jlpt", "meanings", "svg_file"}, rows)
}

// InsertKanjiReadings inserts kanji readings.
func InsertKanjiReadings(ctx context.Context, db DBExecutor, readings []KanjiReading) error {
	rows := make([][]interface{}, len(readings))
	for i, r := range readings {
		rows[i] = []interface{}{r.Literal, r.Reading, r.Type}
	}
	return bulkInsert(ctx, db, "kanji_readings", "OR REPLACE", []string{"kanji_literal", "reading", "type"}, rows)
}

// encodeList stores a list column as a JSON array; nil becomes [].
func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// encodeOptional is encodeList with NULL for an empty list.
func encodeOptional(v []string) interface{} {
	if len(v) == 0 {
		return nil
	}
	return encodeList(v)
}

func decodeList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, errors.Wrap(err, "decode list column")
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// nullableInt returns nil for a missing value.
func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
