// Package textindex derives the full-text rows of dictionary entries.
package textindex

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/japaniel/jisho/pkg/db"
	"github.com/japaniel/jisho/pkg/jmdict"
	"github.com/japaniel/jisho/pkg/tokenize"
	"github.com/japaniel/jisho/pkg/workerpool"
)

// Tokenizer segments text into separator-joined units.
type Tokenizer interface {
	Tokenize(text string) string
}

// Pool runs projection jobs. *workerpool.Pool satisfies it.
type Pool interface {
	SubmitCtx(ctx context.Context, job workerpool.Job) error
}

// Row builds the full-text row of one entry.
func Row(tok Tokenizer, e jmdict.Entry) db.FTSRow {
	readings := strings.Join(e.Readings, " ")
	return db.FTSRow{
		EntryID:         e.ID,
		Kanji:           tok.Tokenize(strings.Join(e.Kanji, " ")),
		Reading:         tok.Tokenize(readings),
		ReadingHiragana: tok.Tokenize(tokenize.ToHiragana(readings)),
		Glosses:         strings.Join(e.Glosses(), " "),
	}
}

// Project builds the rows of entries in parallel on pool. rows[i] belongs to
// entries[i]. With a nil pool the rows are built inline.
func Project(ctx context.Context, pool Pool, tok Tokenizer, entries []jmdict.Entry) ([]db.FTSRow, error) {
	rows := make([]db.FTSRow, len(entries))
	if pool == nil {
		for i, e := range entries {
			rows[i] = Row(tok, e)
		}
		return rows, nil
	}
	// Queued jobs are abandoned once ctx is done; never wait past that.
	done := make(chan struct{}, len(entries))
	for i := range entries {
		i := i
		err := pool.SubmitCtx(ctx, func(context.Context) error {
			rows[i] = Row(tok, entries[i])
			done <- struct{}{}
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "submit projection")
		}
	}
	for range entries {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return rows, nil
}

// Write inserts the rows inside the caller's transaction.
func Write(ctx context.Context, ex db.DBExecutor, rows []db.FTSRow) error {
	return errors.Wrap(db.InsertFTSRows(ctx, ex, rows), "write full-text rows")
}
