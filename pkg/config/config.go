// Package config loads jisho settings from a YAML file and the environment.
package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"

	"github.com/japaniel/jisho/pkg/dictionary"
)

// Config holds settings shared by every command. Zero BatchSize means the
// batch size is derived from available host memory.
type Config struct {
	DatabasePath   string `yaml:"database_path"   env:"JISHO_DATABASE_PATH"   env-default:"jisho.db"`
	CheckpointPath string `yaml:"checkpoint_path" env:"JISHO_CHECKPOINT_PATH" env-default:"jisho.checkpoints"`
	DictionaryPath string `yaml:"dictionary_path" env:"JISHO_DICTIONARY_PATH" env-default:"JMdict_e.xml"`
	KanjiPath      string `yaml:"kanji_path"      env:"JISHO_KANJI_PATH"      env-default:"kanjidic2.xml"`
	DictionaryURL  string `yaml:"dictionary_url"  env:"JISHO_DICTIONARY_URL"`
	KanjiURL       string `yaml:"kanji_url"       env:"JISHO_KANJI_URL"`
	AutoDownload   bool   `yaml:"auto_download"   env:"JISHO_AUTO_DOWNLOAD"`

	BatchSize       int  `yaml:"batch_size"       env:"JISHO_BATCH_SIZE"`
	QueueCapacity   int  `yaml:"queue_capacity"   env:"JISHO_QUEUE_CAPACITY"   env-default:"4"`
	Workers         int  `yaml:"workers"          env:"JISHO_WORKERS"          env-default:"4"`
	ParallelCorpora bool `yaml:"parallel_corpora" env:"JISHO_PARALLEL_CORPORA"`

	LogLevel string `yaml:"log_level" env:"JISHO_LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from path, or from the environment alone when
// path is empty. Priority: ENV > YAML > defaults (via env-default tags).
// Empty download URLs fall back to the public corpus locations.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config: file %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: read env")
	}

	if cfg.DictionaryURL == "" {
		cfg.DictionaryURL = dictionary.JMdictURL
	}
	if cfg.KanjiURL == "" {
		cfg.KanjiURL = dictionary.Kanjidic2URL
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config: validate")
	}
	return &cfg, nil
}

// Validate rejects settings the importer cannot run with.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.BatchSize < 0 {
		return errors.Errorf("batch_size must not be negative, got %d", c.BatchSize)
	}
	if c.QueueCapacity < 0 {
		return errors.Errorf("queue_capacity must not be negative, got %d", c.QueueCapacity)
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
