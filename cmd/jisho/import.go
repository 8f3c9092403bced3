package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/jisho/pkg/checkpoint"
	"github.com/japaniel/jisho/pkg/dictionary"
	"github.com/japaniel/jisho/pkg/ingest"
	"github.com/japaniel/jisho/pkg/tokenize"
)

type importOptions struct {
	dictPath  string
	kanjiPath string
	only      string
	batchSize int
	parallel  bool
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the word and kanji corpora",
		Long: `Parses JMdict and KANJIDIC2 and writes them to the database in batches.
A corpus whose tables already hold rows is skipped.

Examples:
  jisho import
  jisho import --dict JMdict_e.xml --kanji kanjidic2.xml --parallel
  jisho import --only kanji --batch-size 2000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dictPath != "" {
				a.cfg.DictionaryPath = opts.dictPath
			}
			if opts.kanjiPath != "" {
				a.cfg.KanjiPath = opts.kanjiPath
			}
			if cmd.Flags().Changed("batch-size") {
				a.cfg.BatchSize = opts.batchSize
			}
			if cmd.Flags().Changed("parallel") {
				a.cfg.ParallelCorpora = opts.parallel
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runImport(cmd, opts.only)
		},
	}
	cmd.Flags().StringVar(&opts.dictPath, "dict", "", "JMdict XML file (overrides config)")
	cmd.Flags().StringVar(&opts.kanjiPath, "kanji", "", "KANJIDIC2 XML file (overrides config)")
	cmd.Flags().StringVar(&opts.only, "only", "", "import a single corpus: dictionary or kanji")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "records per batch (0 sizes batches from available memory)")
	cmd.Flags().BoolVar(&opts.parallel, "parallel", false, "import both corpora concurrently")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, only string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	log := a.logger

	var corpora ingest.Corpora
	var err error
	switch only {
	case "", ingest.CorpusDictionary, ingest.CorpusKanji:
	default:
		return errors.Errorf("unknown corpus %q (want %s or %s)", only, ingest.CorpusDictionary, ingest.CorpusKanji)
	}
	if only != ingest.CorpusKanji {
		if corpora.Dictionary, err = a.readCorpus(cmd, a.cfg.DictionaryPath, a.cfg.DictionaryURL); err != nil {
			return err
		}
	}
	if only != ingest.CorpusDictionary {
		if corpora.Kanji, err = a.readCorpus(cmd, a.cfg.KanjiPath, a.cfg.KanjiURL); err != nil {
			return err
		}
	}

	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := checkpoint.Open(a.cfg.CheckpointPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var tok *tokenize.Analyzer
	if corpora.Dictionary != nil {
		if tok, err = tokenize.NewAnalyzer(); err != nil {
			return errors.Wrap(err, "failed to initialize analyzer")
		}
	}

	im := ingest.NewImporter(conn, nil)
	if tok != nil {
		im.Tokenizer = tok
	}
	im.Checkpoints = store
	im.Logger = log
	if a.cfg.BatchSize > 0 {
		im.Sizer = ingest.FixedSize(a.cfg.BatchSize)
	}
	if a.cfg.QueueCapacity > 0 {
		im.QueueCapacity = a.cfg.QueueCapacity
	}
	if a.cfg.Workers > 0 {
		im.Workers = a.cfg.Workers
	}
	progress := newProgressPrinter(out, log)
	im.OnProgress = progress.report

	outcomes, err := im.ImportAll(ctx, corpora, a.cfg.ParallelCorpora)
	progress.done()
	if corpora.Dictionary != nil {
		printOutcome(out, ingest.CorpusDictionary, outcomes.Dictionary)
	}
	if corpora.Kanji != nil {
		printOutcome(out, ingest.CorpusKanji, outcomes.Kanji)
	}
	return err
}

// readCorpus loads a corpus file, downloading it first when it is missing
// and auto_download is on.
func (a *app) readCorpus(cmd *cobra.Command, path, url string) ([]byte, error) {
	if a.cfg.AutoDownload {
		if err := dictionary.EnsureCorpus(cmd.Context(), path, url, a.logger); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Errorf("corpus %s not found; pass its path or enable auto_download", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read corpus %s", path)
	}
	a.logger.Debug("corpus loaded", zap.String("path", path), zap.Int("bytes", len(data)))
	return data, nil
}

func printOutcome(w io.Writer, corpus string, o ingest.Outcome) {
	switch o.Kind {
	case ingest.NotRun:
		fmt.Fprintf(w, "%s: not run\n", corpus)
	case ingest.Imported:
		fmt.Fprintf(w, "%s: imported %d records\n", corpus, o.Count)
	case ingest.Skipped:
		fmt.Fprintf(w, "%s: skipped (already imported)\n", corpus)
	case ingest.Failed:
		fmt.Fprintf(w, "%s: failed: %v\n", corpus, o.Err)
	}
}
