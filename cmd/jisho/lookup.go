package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/japaniel/jisho/pkg/db"
	"github.com/japaniel/jisho/pkg/dictionary"
	"github.com/japaniel/jisho/pkg/tokenize"
)

// withService opens the database and runs fn with a lookup service.
func (a *app) withService(fn func(s *dictionary.Service) error) error {
	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()
	tok, err := tokenize.NewAnalyzer()
	if err != nil {
		return errors.Wrap(err, "failed to initialize analyzer")
	}
	return fn(dictionary.NewService(conn, tok))
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		english bool
		limit   int
		format  string
	)
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search words by spelling, reading or meaning",
		Long: `Looks a query up in the dictionary. Japanese queries match spellings and
readings; anything else matches English glosses. Exact matches are marked
with an asterisk and listed first.

Examples:
  jisho search 学校
  jisho search がっこう
  jisho search --en "to eat"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			q := strings.Join(args, " ")
			return a.withService(func(s *dictionary.Service) error {
				s.Limit = limit
				var (
					results []dictionary.Result
					err     error
				)
				if english {
					results, err = s.SearchEnglish(cmd.Context(), q)
				} else {
					results, err = s.Search(cmd.Context(), q)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if done, err := encode(out, format, results); done {
					return err
				}
				printResults(out, results)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&english, "en", false, "search English glosses even for Japanese-looking input")
	cmd.Flags().IntVar(&limit, "limit", dictionary.DefaultLimit, "maximum number of results")
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}

func printResults(w io.Writer, results []dictionary.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}
	for _, r := range results {
		mark := " "
		if r.Exact {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %s", mark, r.Primary)
		if len(r.Readings) > 0 && r.Readings[0] != r.Primary {
			fmt.Fprintf(w, " [%s]", strings.Join(r.Readings, ", "))
		}
		fmt.Fprintf(w, "  %s  (%s)\n", strings.Join(r.Glosses, "; "), r.ID)
	}
}

// entryView is the printable form of an entry.
type entryView struct {
	ID       string      `json:"id" yaml:"id"`
	Kanji    []string    `json:"kanji,omitempty" yaml:"kanji,omitempty"`
	Readings []string    `json:"readings" yaml:"readings"`
	Senses   []senseView `json:"senses" yaml:"senses"`
}

type senseView struct {
	POS      []string      `json:"pos,omitempty" yaml:"pos,omitempty"`
	Glosses  []string      `json:"glosses" yaml:"glosses"`
	Fields   []string      `json:"fields,omitempty" yaml:"fields,omitempty"`
	Misc     []string      `json:"misc,omitempty" yaml:"misc,omitempty"`
	Info     []string      `json:"info,omitempty" yaml:"info,omitempty"`
	XRef     []string      `json:"xref,omitempty" yaml:"xref,omitempty"`
	Ant      []string      `json:"ant,omitempty" yaml:"ant,omitempty"`
	Examples []exampleView `json:"examples,omitempty" yaml:"examples,omitempty"`
}

type exampleView struct {
	Text     string `json:"text" yaml:"text"`
	Japanese string `json:"japanese" yaml:"japanese"`
	English  string `json:"english" yaml:"english"`
}

func newEntryView(d *db.EntryDetail) entryView {
	v := entryView{ID: d.ID, Kanji: d.Kanji, Readings: d.Readings}
	for _, s := range d.Senses {
		sv := senseView{
			POS:     s.POS,
			Glosses: s.Glosses,
			Fields:  s.Fields,
			Misc:    s.Misc,
			Info:    s.Info,
			XRef:    s.XRef,
			Ant:     s.Ant,
		}
		for _, ex := range s.Examples {
			sv.Examples = append(sv.Examples, exampleView{Text: ex.Text, Japanese: ex.SentenceJpn, English: ex.SentenceEng})
		}
		v.Senses = append(v.Senses, sv)
	}
	return v
}

func newShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show ENTRY_ID",
		Short: "Show a dictionary entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()
			s := dictionary.NewService(conn, nil)
			d, err := s.Entry(cmd.Context(), args[0])
			if errors.Is(err, dictionary.ErrNotFound) {
				return errors.Errorf("entry %s not found", args[0])
			}
			if err != nil {
				return err
			}
			v := newEntryView(d)
			out := cmd.OutOrStdout()
			if done, err := encode(out, format, v); done {
				return err
			}
			printEntry(out, v)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}

func printEntry(w io.Writer, v entryView) {
	if len(v.Kanji) > 0 {
		fmt.Fprintf(w, "%s [%s]\n", strings.Join(v.Kanji, ", "), strings.Join(v.Readings, ", "))
	} else {
		fmt.Fprintln(w, strings.Join(v.Readings, ", "))
	}
	for i, s := range v.Senses {
		fmt.Fprintf(w, "%d. %s", i+1, strings.Join(s.Glosses, "; "))
		if len(s.POS) > 0 {
			fmt.Fprintf(w, "  {%s}", strings.Join(s.POS, ", "))
		}
		fmt.Fprintln(w)
		for _, ex := range s.Examples {
			fmt.Fprintf(w, "     %s / %s\n", ex.Japanese, ex.English)
		}
	}
}

func newKanjiCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "kanji LITERAL",
		Short: "Show a kanji character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()
			k, err := dictionary.NewService(conn, nil).Kanji(cmd.Context(), args[0])
			if errors.Is(err, dictionary.ErrNotFound) {
				return errors.Errorf("kanji %s not found", args[0])
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if done, err := encode(out, format, k); done {
				return err
			}
			fmt.Fprintf(out, "%s  %d strokes\n", k.Literal, k.StrokeCount)
			fmt.Fprintf(out, "on:  %s\n", strings.Join(k.Onyomi, "、"))
			fmt.Fprintf(out, "kun: %s\n", strings.Join(k.Kunyomi, "、"))
			fmt.Fprintf(out, "meanings: %s\n", strings.Join(k.Meanings, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}
