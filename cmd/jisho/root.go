package main

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/japaniel/jisho/pkg/config"
	"github.com/japaniel/jisho/pkg/db"
)

// app carries global flags and the state resolved from them.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "jisho",
		Short: "Japanese dictionary importer and lookup",
		Long: `jisho streams the JMdict and KANJIDIC2 XML corpora into a SQLite
database with a full-text index, then answers lookups against it.

Examples:
  jisho import
  jisho search 学校
  jisho search --en school
  jisho show 1206730 -o yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default: environment only)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newImportCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newKanjiCmd(a),
		newStatusCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DatabasePath = a.dbPath
	}
	a.cfg = cfg

	if a.logger == nil {
		if a.logger, err = buildLogger(cfg.LogLevel, a.verbose); err != nil {
			return err
		}
	}
	return nil
}

// buildLogger uses the production encoder at the configured level, or the
// development console encoder at debug level when verbose is set.
func buildLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, errors.Wrap(err, "log level")
		}
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}
	return logger, nil
}

func (a *app) openDB() (*sql.DB, error) {
	conn, err := db.Open(a.cfg.DatabasePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", a.cfg.DatabasePath)
	}
	return conn, nil
}
