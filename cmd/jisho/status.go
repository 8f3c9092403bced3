package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/japaniel/jisho/pkg/checkpoint"
	"github.com/japaniel/jisho/pkg/db"
	"github.com/japaniel/jisho/pkg/ingest"
)

// statusReport describes what has been imported so far.
type statusReport struct {
	Database    string               `json:"database" yaml:"database"`
	Entries     int                  `json:"entries" yaml:"entries"`
	Kanji       int                  `json:"kanji" yaml:"kanji"`
	Checkpoints map[string]int       `json:"checkpoints,omitempty" yaml:"checkpoints,omitempty"`
	Runs        map[string]runStatus `json:"runs,omitempty" yaml:"runs,omitempty"`
}

type runStatus struct {
	checkpoint.Run `yaml:",inline"`
	State          string `json:"state" yaml:"state"`
}

func newStatusCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show import status",
		Long: `Shows row counts, the last checkpoint of every import phase and the
most recent run of each corpus. A run that started but never completed is
reported as interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			report, err := a.status(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if done, err := encode(out, format, report); done {
				return err
			}
			printStatus(out, report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}

func (a *app) status(cmd *cobra.Command) (*statusReport, error) {
	ctx := cmd.Context()
	conn, err := a.openDB()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	r := &statusReport{Database: a.cfg.DatabasePath, Runs: map[string]runStatus{}}
	if r.Entries, err = db.CountEntries(ctx, conn); err != nil {
		return nil, err
	}
	if r.Kanji, err = db.CountKanjiEntries(ctx, conn); err != nil {
		return nil, err
	}

	store, err := checkpoint.Open(a.cfg.CheckpointPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if r.Checkpoints, err = store.Phases(); err != nil {
		return nil, err
	}
	for _, corpus := range []string{ingest.CorpusDictionary, ingest.CorpusKanji} {
		run, ok, err := store.Run(corpus)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		state := "completed"
		if run.Interrupted() {
			state = "interrupted"
		}
		r.Runs[corpus] = runStatus{Run: run, State: state}
	}
	return r, nil
}

func printStatus(w io.Writer, r *statusReport) {
	fmt.Fprintf(w, "Database: %s\n", r.Database)
	fmt.Fprintf(w, "Entries:  %d\n", r.Entries)
	fmt.Fprintf(w, "Kanji:    %d\n", r.Kanji)
	for _, corpus := range []string{ingest.CorpusDictionary, ingest.CorpusKanji} {
		run, ok := r.Runs[corpus]
		if !ok {
			fmt.Fprintf(w, "%-10s never imported\n", corpus+":")
			continue
		}
		fmt.Fprintf(w, "%-10s %s (run %s, started %s", corpus+":", run.State, run.ID, run.StartedAt.Format("2006-01-02 15:04:05"))
		if run.CompletedAt != nil {
			fmt.Fprintf(w, ", %d records", run.Count)
		}
		fmt.Fprintln(w, ")")
	}
	phases := make([]string, 0, len(r.Checkpoints))
	for p := range r.Checkpoints {
		phases = append(phases, p)
	}
	sort.Strings(phases)
	for _, p := range phases {
		fmt.Fprintf(w, "  %-18s %d\n", p, r.Checkpoints[p])
	}
}
