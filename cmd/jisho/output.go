package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/jisho/pkg/ingest"
)

const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatYAML, formatJSON:
		return nil
	}
	return errors.Errorf("unknown output format %q (want text, yaml or json)", format)
}

// encode writes v as YAML or JSON. It returns false for the text format so
// the caller prints its own layout.
func encode(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, errors.Wrap(err, "encode yaml")
		}
		return true, enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return true, errors.Wrap(enc.Encode(v), "encode json")
	}
	return false, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// progressPrinter renders import progress. On a terminal it redraws one
// line per phase; otherwise every report becomes a log line. Reports may
// arrive from both corpus pipelines at once.
type progressPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	inline bool
	log    *zap.Logger
	last   ingest.Phase
}

func newProgressPrinter(w io.Writer, log *zap.Logger) *progressPrinter {
	return &progressPrinter{w: w, inline: isTerminal(w), log: log}
}

func (p *progressPrinter) report(phase ingest.Phase, current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inline {
		p.log.Info("progress", zap.String("phase", string(phase)), zap.Int("current", current), zap.Int("total", total))
		return
	}
	if p.last != "" && p.last != phase {
		fmt.Fprintln(p.w)
	}
	p.last = phase
	fmt.Fprintf(p.w, "\r\033[K%-18s %d/%d", phase, current, total)
}

// done ends the inline line, if any.
func (p *progressPrinter) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inline && p.last != "" {
		fmt.Fprintln(p.w)
	}
	p.last = ""
}
