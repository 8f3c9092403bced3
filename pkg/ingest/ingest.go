// Package ingest imports the word and kanji corpora into the store. Each
// import runs a parse producer and a write consumer joined by a bounded
// channel of batches.
package ingest

import (
	"bytes"
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/jisho/pkg/checkpoint"
	"github.com/japaniel/jisho/pkg/db"
	"github.com/japaniel/jisho/pkg/jmdict"
	"github.com/japaniel/jisho/pkg/kanjidic"
	"github.com/japaniel/jisho/pkg/textindex"
	"github.com/japaniel/jisho/pkg/workerpool"
)

// Phase tags progress reports and checkpoints.
type Phase string

const (
	ParseDictionary  Phase = "parse-dictionary"
	InsertDictionary Phase = "insert-dictionary"
	ParseKanji       Phase = "parse-kanji"
	InsertKanji      Phase = "insert-kanji"
)

// Corpus names used for run markers.
const (
	CorpusDictionary = "dictionary"
	CorpusKanji      = "kanji"
)

// Kind is the variant of an Outcome. The zero value, NotRun, marks an
// import that never started.
type Kind int

const (
	NotRun Kind = iota
	Imported
	Skipped
	Failed
)

func (k Kind) String() string {
	switch k {
	case NotRun:
		return "not run"
	case Imported:
		return "imported"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of one corpus import. Count is the number of records
// written; it is zero for Skipped.
type Outcome struct {
	Kind  Kind
	Count int
	Err   error
}

// Checkpointer persists per-phase counts and run markers.
type Checkpointer interface {
	Save(phase string, count int) error
	Load(phase string) (int, bool, error)
	BeginRun(corpus, runID string) error
	CompleteRun(corpus, runID string, count int) error
	Run(corpus string) (checkpoint.Run, bool, error)
}

// PoolInterface abstracts the worker pool so tests can inject failing implementations.
type PoolInterface interface {
	Start(ctx context.Context)
	SubmitCtx(ctx context.Context, job workerpool.Job) error
	Close()
}

// DefaultQueueCapacity is the number of parsed batches that may wait for the writer.
const DefaultQueueCapacity = 4

// Importer loads corpora into a database.
type Importer struct {
	DB *sql.DB
	// Tokenizer segments kanji and readings for the full-text index.
	Tokenizer textindex.Tokenizer
	// Checkpoints receives progress after every batch. nil disables checkpoints.
	Checkpoints Checkpointer
	// Sizer is consulted once per import. nil means MemorySizer.
	Sizer BatchSizer
	// QueueCapacity bounds the batches in flight between parser and writer.
	QueueCapacity int
	// Workers tokenize full-text rows in parallel.
	Workers int
	// Logger is used for informational messages. nil means no logging.
	Logger *zap.Logger
	// OnProgress is called after every parsed and every written batch. Calls
	// for one import come from a single goroutine; ImportAll in parallel mode
	// calls it from two.
	OnProgress func(phase Phase, current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) PoolInterface
}

// NewImporter creates an Importer with default settings.
func NewImporter(conn *sql.DB, tok textindex.Tokenizer) *Importer {
	return &Importer{
		DB:            conn,
		Tokenizer:     tok,
		QueueCapacity: DefaultQueueCapacity,
		Workers:       4,
	}
}

func (im *Importer) logger() *zap.Logger {
	if im.Logger == nil {
		return zap.NewNop()
	}
	return im.Logger
}

func (im *Importer) batchSize() int {
	if im.Sizer == nil {
		return MemorySizer{}.BatchSize()
	}
	return im.Sizer.BatchSize()
}

// ImportDictionary imports a JMdict document. If the store already holds
// dictionary entries nothing is written and the outcome is Skipped.
func (im *Importer) ImportDictionary(ctx context.Context, data []byte) (Outcome, error) {
	if im.Tokenizer == nil {
		err := errors.New("ingest: dictionary import needs a tokenizer")
		return Outcome{Kind: Failed, Err: err}, err
	}
	workers := im.Workers
	if workers <= 0 {
		workers = 1
	}
	var pool PoolInterface
	if im.PoolFactory != nil {
		pool = im.PoolFactory(workers, workers*2)
	} else {
		pool = workerpool.New(workers, workers*2)
	}
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pool.Start(poolCtx)
	defer pool.Close()

	return runImport(ctx, im, pipeline[jmdict.Entry]{
		corpus: CorpusDictionary,
		parse:  ParseDictionary,
		insert: InsertDictionary,
		count:  db.CountEntries,
		read: func(ctx context.Context, emit func(jmdict.Entry) error) error {
			return jmdict.Parse(ctx, bytes.NewReader(data), emit)
		},
		write: func(ctx context.Context, batch []jmdict.Entry) error {
			fts, err := textindex.Project(ctx, pool, im.Tokenizer, batch)
			if err != nil {
				return err
			}
			return writeEntries(ctx, im.DB, fts, batch)
		},
	})
}

// ImportKanji imports a KANJIDIC2 document. If the store already holds kanji
// characters nothing is written and the outcome is Skipped.
func (im *Importer) ImportKanji(ctx context.Context, data []byte) (Outcome, error) {
	return runImport(ctx, im, pipeline[kanjidic.Character]{
		corpus: CorpusKanji,
		parse:  ParseKanji,
		insert: InsertKanji,
		count:  db.CountKanjiEntries,
		read: func(ctx context.Context, emit func(kanjidic.Character) error) error {
			return kanjidic.Parse(ctx, bytes.NewReader(data), emit)
		},
		write: func(ctx context.Context, batch []kanjidic.Character) error {
			return writeKanji(ctx, im.DB, batch)
		},
	})
}

// Corpora holds the raw documents for ImportAll. A nil document is not imported.
type Corpora struct {
	Dictionary []byte
	Kanji      []byte
}

// Outcomes pairs the results of ImportAll.
type Outcomes struct {
	Dictionary Outcome
	Kanji      Outcome
}

// ImportAll imports both corpora, one after the other or, with parallel set,
// as two independent pipelines. The first failure is returned.
func (im *Importer) ImportAll(ctx context.Context, c Corpora, parallel bool) (Outcomes, error) {
	var out Outcomes
	dict := func() error {
		if c.Dictionary == nil {
			return nil
		}
		var err error
		out.Dictionary, err = im.ImportDictionary(ctx, c.Dictionary)
		return err
	}
	kanji := func() error {
		if c.Kanji == nil {
			return nil
		}
		var err error
		out.Kanji, err = im.ImportKanji(ctx, c.Kanji)
		return err
	}
	if !parallel {
		if err := dict(); err != nil {
			return out, err
		}
		return out, kanji()
	}
	var g errgroup.Group
	g.Go(dict)
	g.Go(kanji)
	return out, g.Wait()
}

// pipeline describes one corpus import.
type pipeline[T any] struct {
	corpus        string
	parse, insert Phase
	count         func(context.Context, db.DBExecutor) (int, error)
	read          func(ctx context.Context, emit func(T) error) error
	write         func(ctx context.Context, batch []T) error
}

type progressEvent struct {
	phase          Phase
	current, total int
}

func runImport[T any](ctx context.Context, im *Importer, p pipeline[T]) (Outcome, error) {
	log := im.logger().With(zap.String("corpus", p.corpus))
	fail := func(err error) (Outcome, error) {
		log.Error("import failed", zap.Error(err))
		return Outcome{Kind: Failed, Err: err}, err
	}

	existing, err := p.count(ctx, im.DB)
	if err != nil {
		return fail(errors.Wrap(err, "count existing rows"))
	}
	if existing > 0 {
		log.Info("already imported, skipping", zap.Int("rows", existing))
		return Outcome{Kind: Skipped}, nil
	}

	runID := uuid.NewString()
	size := im.batchSize()
	capacity := im.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	log = log.With(zap.String("run", runID))
	im.resumeHint(log, p.corpus, p.parse)
	if im.Checkpoints != nil {
		if err := im.Checkpoints.BeginRun(p.corpus, runID); err != nil {
			log.Warn("failed to record run start", zap.Error(err))
		}
	}
	log.Info("import started", zap.Int("batch_size", size), zap.Int("queue_capacity", capacity))
	started := time.Now()

	progress := make(chan progressEvent, capacity*2)
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		for ev := range progress {
			if im.OnProgress != nil {
				im.OnProgress(ev.phase, ev.current, ev.total)
			}
			if im.Checkpoints != nil {
				if err := im.Checkpoints.Save(string(ev.phase), ev.current); err != nil {
					log.Warn("failed to save checkpoint", zap.String("phase", string(ev.phase)), zap.Error(err))
				}
			}
		}
	}()

	batches := make(chan []T, capacity)
	var parsed atomic.Int64
	inserted := 0
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		b := NewBatcher(size, func(batch []T) error {
			n := int(parsed.Add(int64(len(batch))))
			progress <- progressEvent{phase: p.parse, current: n, total: n}
			// A full queue suspends the parser until the writer catches up.
			select {
			case batches <- batch:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err := p.read(gctx, b.Add); err != nil {
			return err
		}
		return b.Flush()
	})

	g.Go(func() error {
		for batch := range batches {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.write(gctx, batch); err != nil {
				return errors.Wrapf(err, "write batch at record %d", inserted)
			}
			inserted += len(batch)
			log.Debug("batch committed", zap.Int("size", len(batch)), zap.Int("inserted", inserted))
			progress <- progressEvent{phase: p.insert, current: inserted, total: int(parsed.Load())}
		}
		return nil
	})

	err = g.Wait()
	close(progress)
	<-reporterDone
	if err != nil {
		return fail(err)
	}

	if im.Checkpoints != nil {
		if err := im.Checkpoints.CompleteRun(p.corpus, runID, inserted); err != nil {
			log.Warn("failed to record run completion", zap.Error(err))
		}
	}
	log.Info("import finished", zap.Int("count", inserted), zap.Duration("took", time.Since(started)))
	return Outcome{Kind: Imported, Count: inserted}, nil
}

// resumeHint logs what an earlier, unfinished run got through. Stored counts
// are informational: every import starts from the first record.
func (im *Importer) resumeHint(log *zap.Logger, corpus string, parse Phase) {
	if im.Checkpoints == nil {
		return
	}
	run, ok, err := im.Checkpoints.Run(corpus)
	if err != nil || !ok || !run.Interrupted() {
		return
	}
	n, ok, err := im.Checkpoints.Load(string(parse))
	if err != nil || !ok {
		return
	}
	log.Info("previous run was interrupted; starting over",
		zap.String("previous_run", run.ID), zap.Int("previously_parsed", n))
}
