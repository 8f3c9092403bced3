package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/jisho/pkg/db"
	"github.com/japaniel/jisho/pkg/jmdict"
	"github.com/japaniel/jisho/pkg/kanjidic"
)

var writerBatch = []jmdict.Entry{
	{
		ID:       "a",
		Kanji:    []string{"一", "壱"},
		Readings: []string{"いち"},
		Senses: []jmdict.Sense{
			{Glosses: []string{"one"}, Examples: []jmdict.Example{{SentenceJpn: "一つ。"}}},
			{Glosses: []string{"first"}, Fields: []string{"math"}},
		},
	},
	{
		ID:     "b",
		Senses: []jmdict.Sense{{Glosses: []string{"two"}, Fields: []string{"math", "law"}, Examples: []jmdict.Example{{SentenceJpn: "二。"}, {SentenceJpn: "弐。"}}}},
	},
}

func TestFlattenEntriesKeepsPositions(t *testing.T) {
	r := flattenEntries(writerBatch)
	assert.Equal(t, []string{"a", "b"}, r.ids)
	assert.Equal(t, []db.Kanji{{EntryID: "a", Position: 0, Kanji: "一"}, {EntryID: "a", Position: 1, Kanji: "壱"}}, r.kanji)
	require.Len(t, r.senses, 3)
	assert.Equal(t, 1, r.senses[1].Position)
	assert.Equal(t, "b", r.senses[2].EntryID)
	assert.Equal(t, 0, r.senses[2].Position)
	assert.Len(t, r.source, 3)
}

func TestExamplesFollowSenseIds(t *testing.T) {
	r := flattenEntries(writerBatch)
	ids := []int64{10, 20, 30}
	got := examplesFor(r.source, ids)
	require.Len(t, got, 3)
	assert.Equal(t, int64(10), got[0].SenseID)
	assert.Equal(t, "一つ。", got[0].SentenceJpn)
	assert.Equal(t, int64(30), got[1].SenseID)
	assert.Equal(t, int64(30), got[2].SenseID)
	assert.Equal(t, "弐。", got[2].SentenceJpn)
}

func TestFieldRefsMemoisePerBatch(t *testing.T) {
	conn := setupDB(t)
	ctx := context.Background()
	r := flattenEntries(writerBatch)
	refs, err := fieldRefs(ctx, conn, r.source, []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, int64(2), refs[0].SenseID)
	assert.Equal(t, refs[0].FieldID, refs[1].FieldID, "math resolves to one id")
	assert.NotEqual(t, refs[1].FieldID, refs[2].FieldID)
	assert.Equal(t, 2, countRows(t, conn, `SELECT COUNT(*) FROM fields`))
}

func TestKanjiRows(t *testing.T) {
	entries, readings := kanjiRows([]kanjidic.Character{{
		Literal:  "学",
		Meanings: []string{"study"},
		Readings: []kanjidic.Reading{{Text: "ガク", Type: kanjidic.ReadingOn}},
	}})
	require.Len(t, entries, 1)
	assert.Equal(t, "学", entries[0].Literal)
	assert.Equal(t, []db.KanjiReading{{Literal: "学", Reading: "ガク", Type: "ja_on"}}, readings)
}
