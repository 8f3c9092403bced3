package ingest

import (
	"testing"

	"github.com/japaniel/jisho/pkg/tokenize"
)

func newAnalyzer(t testing.TB) *tokenize.Analyzer {
	t.Helper()
	a, err := tokenize.NewAnalyzer()
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	return a
}
